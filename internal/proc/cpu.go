package proc

// CPUSource supplies the system-wide CPU tick delta for the interval the
// process table is measuring, and the number of logical cores.
type CPUSource interface {
	TotalDelta() (totald uint64, cores int)
}

// workDelta is the tick difference between two samples. It is zero without a
// previous sample and when the counter went backwards.
func workDelta(cur, prev uint64) uint64 {
	if prev == 0 || cur < prev {
		return 0
	}
	return cur - prev
}

// cpuPercent converts a process's tick delta to a percentage of totald.
// In top mode the result is relative to one core and may exceed 100;
// otherwise it is clamped to 100 to absorb skew between samplers.
func cpuPercent(work, totald uint64, cores int, topMode bool) float64 {
	if totald == 0 {
		return 0
	}
	pct := float64(work) / float64(totald) * 100
	if topMode {
		if cores < 1 {
			cores = 1
		}
		return pct * float64(cores)
	}
	if pct > 100 {
		return 100
	}
	return pct
}
