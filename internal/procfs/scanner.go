// Package procfs enumerates process directories under a procfs root.
package procfs

import (
	"os"
)

// Scanner yields the numeric directory names under a procfs root.
// Every Scan starts again from the beginning of the directory.
type Scanner interface {
	Scan(fn func(pid uint32)) error
	Close() error
}

// Digits returns the number of decimal digits in pid.
func Digits(pid uint32) int {
	n := 1
	for pid >= 10 {
		pid /= 10
		n++
	}
	return n
}

// parsePID parses a whole directory name as an unsigned 32-bit integer.
func parsePID(name []byte) (uint32, bool) {
	if len(name) == 0 || len(name) > 10 {
		return 0, false
	}
	var v uint64
	for _, c := range name {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	if v > 1<<32-1 {
		return 0, false
	}
	return uint32(v), true
}

// dirScanner is the portable implementation built on os.ReadDir. It is used
// where getdents is unavailable and for roots that are not procfs mounts.
type dirScanner struct {
	root string
}

// OpenDir returns a Scanner backed by os.ReadDir.
func OpenDir(root string) (Scanner, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: root, Err: os.ErrInvalid}
	}
	return &dirScanner{root: root}, nil
}

func (s *dirScanner) Scan(fn func(pid uint32)) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if pid, ok := parsePID([]byte(e.Name())); ok {
			fn(pid)
		}
	}
	return nil
}

func (s *dirScanner) Close() error { return nil }
