package proc

import (
	"bytes"
	"strconv"

	"golang.org/x/sys/unix"
)

const identBufSize = 4096

// procPath builds <root>/<pid>/<file> in a reused buffer.
func (t *Table) procPath(pid uint32, file string) string {
	b := append(t.pathBuf[:0], t.root...)
	b = append(b, '/')
	b = strconv.AppendUint(b, uint64(pid), 10)
	b = append(b, '/')
	b = append(b, file...)
	t.pathBuf = b
	return string(b)
}

// readSmall reads up to len(t.identBuf) bytes of a procfs file.
func (t *Table) readSmall(path string) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	n := 0
	for n < len(t.identBuf) {
		m, err := unix.Read(fd, t.identBuf[n:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		if m == 0 {
			break
		}
		n += m
	}
	return t.identBuf[:n], nil
}

// readCmdline returns argv joined by spaces and the basename of argv[0].
// Both are empty for kernel threads and zombies.
func (t *Table) readCmdline(pid uint32) (cmdline, name string, err error) {
	raw, err := t.readSmall(t.procPath(pid, "cmdline"))
	if err != nil {
		return "", "", err
	}
	raw = bytes.TrimRight(raw, "\x00")
	if len(raw) == 0 {
		return "", "", nil
	}

	argv0 := raw
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		argv0 = raw[:i]
	}
	if i := bytes.LastIndexByte(argv0, '/'); i >= 0 && i < len(argv0)-1 {
		argv0 = argv0[i+1:]
	}
	name = string(argv0)

	for i, c := range raw {
		if c == 0 || c == '\n' {
			raw[i] = ' '
		}
	}
	return string(bytes.TrimRight(raw, " ")), name, nil
}

var statusName = []byte("Name:")

// readStatusName returns the Name row of /proc/[pid]/status.
func (t *Table) readStatusName(pid uint32) (string, error) {
	raw, err := t.readSmall(t.procPath(pid, "status"))
	if err != nil {
		return "", err
	}
	for len(raw) > 0 {
		line := raw
		if nl := bytes.IndexByte(raw, '\n'); nl >= 0 {
			line, raw = raw[:nl], raw[nl+1:]
		} else {
			raw = nil
		}
		if bytes.HasPrefix(line, statusName) {
			return string(bytes.TrimSpace(line[len(statusName):])), nil
		}
	}
	return "", nil
}

func (t *Table) openStat(pid uint32) (int, error) {
	return unix.Open(t.procPath(pid, "stat"), unix.O_RDONLY|unix.O_CLOEXEC, 0)
}

func (t *Table) openSmaps(pid uint32) (int, error) {
	return unix.Open(t.procPath(pid, "smaps_rollup"), unix.O_RDONLY|unix.O_CLOEXEC, 0)
}
