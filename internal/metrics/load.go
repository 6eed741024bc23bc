package metrics

import (
	"sync"

	"github.com/prometheus/procfs"
)

// Load samples /proc/loadavg.
type Load struct {
	sync.RWMutex

	fs   procfs.FS
	snap LoadMetrics
}

func NewLoad(root string) (*Load, error) {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, err
	}
	return &Load{fs: fs}, nil
}

func (l *Load) Update() error {
	avg, err := l.fs.LoadAvg()
	if err != nil {
		return err
	}
	l.snap = LoadMetrics{avg.Load1, avg.Load5, avg.Load15}
	return nil
}

func (l *Load) Snapshot() LoadMetrics {
	l.RLock()
	defer l.RUnlock()
	return l.snap
}
