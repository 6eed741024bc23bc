package metrics

import (
	"os"
	"path/filepath"
	"sync"
)

// CPU samples /proc/stat. It also supplies the process table with the
// system-wide tick delta of the last interval.
type CPU struct {
	sync.RWMutex

	path    string
	started bool
	prev    jiffies
	prevPer []jiffies

	snap   CPUMetrics
	totald uint64
}

// NewCPU creates a CPU poller reading <procfs>/stat.
func NewCPU(procfs string) *CPU {
	return &CPU{path: filepath.Join(procfs, "stat")}
}

// Update reads /proc/stat and computes usage since the previous call.
// The caller holds the write lock.
func (c *CPU) Update() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	agg, per, err := parseProcStat(string(data))
	if err != nil {
		return err
	}

	if !c.started {
		c.started = true
		c.snap = CPUMetrics{PerCore: make([]float64, len(per)), Cores: len(per)}
		c.prev, c.prevPer = agg, per
		return nil
	}

	c.snap.Percent, c.totald = usage(agg, c.prev)

	// CPUs can come and go; only compare cores present in both samples.
	if len(c.snap.PerCore) != len(per) {
		c.snap.PerCore = make([]float64, len(per))
	}
	for i := range per {
		c.snap.PerCore[i] = 0
		if i < len(c.prevPer) {
			c.snap.PerCore[i], _ = usage(per[i], c.prevPer[i])
		}
	}
	c.snap.Cores = len(per)

	c.prev = agg
	c.prevPer = append(c.prevPer[:0], per...)
	return nil
}

// Snapshot returns a copy of the latest CPU usage.
func (c *CPU) Snapshot() CPUMetrics {
	c.RLock()
	defer c.RUnlock()
	out := c.snap
	out.PerCore = append([]float64(nil), c.snap.PerCore...)
	return out
}

// TotalDelta returns the jiffies elapsed across all cores between the last
// two samples, and the core count.
func (c *CPU) TotalDelta() (uint64, int) {
	c.RLock()
	defer c.RUnlock()
	return c.totald, c.snap.Cores
}
