// Package metrics holds the simple pollers behind the dashboard cards:
// CPU, memory and swap, load, network, sensors and GPUs. Each poller is a
// sampler.Updater and hands out copies of its state through Snapshot.
package metrics

import "time"

// CPUMetrics contains CPU usage information.
type CPUMetrics struct {
	Percent float64
	PerCore []float64
	Cores   int
}

// RAMMetrics contains memory and swap usage in bytes.
type RAMMetrics struct {
	UsedBytes  uint64
	TotalBytes uint64
	Cached     uint64
	Available  uint64
	SwapUsed   uint64
	SwapTotal  uint64
}

// LoadMetrics are the 1, 5 and 15 minute load averages.
type LoadMetrics [3]float64

// GPUMetrics contains GPU usage information from nvidia-smi.
type GPUMetrics struct {
	Index       int
	Name        string
	Percent     float64
	MemoryUsed  uint64
	MemoryTotal uint64
	Temperature int
	PowerWatts  int
}

// NetworkInterface contains counters and rates for a single interface.
type NetworkInterface struct {
	Name       string
	BytesIn    uint64
	BytesOut   uint64
	PacketsIn  uint64
	PacketsOut uint64
	RateIn     float64 // bytes per second since the previous sample
	RateOut    float64
}

// NetworkMetrics aggregates every interface except loopback.
type NetworkMetrics struct {
	Interfaces []NetworkInterface
	RateIn     float64
	RateOut    float64
	TotalIn    uint64
	TotalOut   uint64
}

// Temperature is one hardware sensor reading in Celsius.
type Temperature struct {
	Sensor   string
	Celsius  float64
	High     float64
	Critical float64
}

// SystemInfo contains general system information.
type SystemInfo struct {
	Hostname string
	OS       string
	Kernel   string
	BootTime time.Time
}

// Uptime is the time since boot relative to now.
func (s SystemInfo) Uptime(now time.Time) time.Duration {
	if s.BootTime.IsZero() || now.Before(s.BootTime) {
		return 0
	}
	return now.Sub(s.BootTime)
}
