//go:build linux

package procfs

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const direntBufSize = 32 * 1024

const (
	direntReclenOff = unsafe.Offsetof(unix.Dirent{}.Reclen)
	direntTypeOff   = unsafe.Offsetof(unix.Dirent{}.Type)
	direntNameOff   = unsafe.Offsetof(unix.Dirent{}.Name)
)

// getdentsScanner keeps one directory fd open and rereads it with getdents64
// into a fixed buffer, so a scan allocates nothing per entry.
type getdentsScanner struct {
	fd  int
	buf []byte
}

// Open returns the getdents-based Scanner for root.
func Open(root string) (Scanner, error) {
	fd, err := unix.Open(root, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &getdentsScanner{fd: fd, buf: make([]byte, direntBufSize)}, nil
}

func (s *getdentsScanner) Scan(fn func(pid uint32)) error {
	if _, err := unix.Seek(s.fd, 0, 0); err != nil {
		return err
	}
	for {
		n, err := unix.Getdents(s.fd, s.buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		s.walk(s.buf[:n], fn)
	}
}

// walk decodes one getdents64 batch of linux_dirent64 records.
func (s *getdentsScanner) walk(buf []byte, fn func(pid uint32)) {
	for off := 0; off+int(direntNameOff) < len(buf); {
		reclen := int(*(*uint16)(unsafe.Pointer(&buf[off+int(direntReclenOff)])))
		if reclen == 0 || off+reclen > len(buf) {
			return
		}
		rec := buf[off : off+reclen]
		off += reclen

		name := rec[direntNameOff:]
		for i, c := range name {
			if c == 0 {
				name = name[:i]
				break
			}
		}

		pid, ok := parsePID(name)
		if !ok {
			continue
		}

		switch rec[direntTypeOff] {
		case unix.DT_DIR:
		case unix.DT_UNKNOWN:
			if !s.isDir(name) {
				continue
			}
		default:
			continue
		}
		fn(pid)
	}
}

func (s *getdentsScanner) isDir(name []byte) bool {
	var st unix.Stat_t
	if err := unix.Fstatat(s.fd, string(name), &st, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR
}

func (s *getdentsScanner) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
