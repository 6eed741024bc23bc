//go:build !linux

package procfs

// Open returns the portable Scanner; getdents is Linux-only.
func Open(root string) (Scanner, error) {
	return OpenDir(root)
}
