package metrics

import (
	"sync"

	"github.com/prometheus/procfs"
)

// Memory samples /proc/meminfo.
type Memory struct {
	sync.RWMutex

	fs   procfs.FS
	snap RAMMetrics
}

// NewMemory creates a memory poller for the procfs mounted at root.
func NewMemory(root string) (*Memory, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, err
	}
	return &Memory{fs: fs}, nil
}

// Update reads meminfo. The caller holds the write lock.
func (m *Memory) Update() error {
	info, err := m.fs.Meminfo()
	if err != nil {
		return err
	}
	m.snap = ramFromMeminfo(info)
	return nil
}

// Snapshot returns the latest memory usage.
func (m *Memory) Snapshot() RAMMetrics {
	m.RLock()
	defer m.RUnlock()
	return m.snap
}

// ramFromMeminfo converts the kB rows of meminfo to bytes. Used memory
// excludes buffers and page cache, matching free(1).
func ramFromMeminfo(info procfs.Meminfo) RAMMetrics {
	total := kb(info.MemTotal)
	free := kb(info.MemFree)
	cached := kb(info.Buffers) + kb(info.Cached) + kb(info.SReclaimable)

	r := RAMMetrics{
		TotalBytes: total,
		Cached:     cached,
		Available:  kb(info.MemAvailable),
		SwapTotal:  kb(info.SwapTotal),
	}
	if info.MemAvailable == nil {
		r.Available = free + cached
	}
	if used := free + cached; used < total {
		r.UsedBytes = total - used
	}
	if swapFree := kb(info.SwapFree); swapFree < r.SwapTotal {
		r.SwapUsed = r.SwapTotal - swapFree
	}
	return r
}

func kb(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v * 1024
}
