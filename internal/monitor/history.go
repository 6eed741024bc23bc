package monitor

import "sync"

// DefaultHistorySize is the default number of data points to retain per series.
const DefaultHistorySize = 120

// Series names a sparkline history.
type Series int

const (
	SeriesCPU Series = iota
	SeriesMemory
	SeriesSwap
	SeriesNetIn
	SeriesNetOut
	seriesCount
)

// String returns the series label used in card headers.
func (s Series) String() string {
	switch s {
	case SeriesCPU:
		return "cpu"
	case SeriesMemory:
		return "mem"
	case SeriesSwap:
		return "swap"
	case SeriesNetIn:
		return "rx"
	case SeriesNetOut:
		return "tx"
	default:
		return "unknown"
	}
}

// History keeps one ring buffer per series. Samplers push from event
// handlers and the view reads, so access is guarded.
type History struct {
	mu     sync.RWMutex
	size   int
	series [seriesCount]*ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history with size points per series.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	h := &History{size: size}
	for i := range h.series {
		h.series[i] = newRingBuffer(size)
	}
	return h
}

// Push appends value to series s. Unknown series are ignored.
func (h *History) Push(s Series, value float64) {
	if s < 0 || s >= seriesCount {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.series[s].push(value)
}

// Last returns up to count values of s in chronological order.
func (h *History) Last(s Series, count int) []float64 {
	if s < 0 || s >= seriesCount {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.series[s].getLast(count)
}

// Count returns the number of points stored for s.
func (h *History) Count(s Series) int {
	if s < 0 || s >= seriesCount {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.series[s].count
}

// Size is the per-series capacity.
func (h *History) Size() int { return h.size }

// Clear drops every point of every series.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.series {
		h.series[i] = newRingBuffer(h.size)
	}
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)

	// head is the next write position, so the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
