package proc

import (
	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/uring"
)

// RingPolicy decides when the batch reader is recreated with a new size.
type RingPolicy struct {
	Initial       int
	Min           int
	Max           int
	GrowFactor    int
	ShrinkDivisor int
}

// DefaultRingPolicy matches the config defaults.
func DefaultRingPolicy() RingPolicy {
	return PolicyFromConfig(config.DefaultConfig().Ring)
}

// PolicyFromConfig converts the ring section of the config file.
func PolicyFromConfig(rc config.RingConfig) RingPolicy {
	return RingPolicy{
		Initial:       rc.InitialEntries,
		Min:           rc.MinEntries,
		Max:           rc.MaxEntries,
		GrowFactor:    rc.GrowFactor,
		ShrinkDivisor: rc.ShrinkDivisor,
	}
}

// normalized fills in defaults and rounds the sizes up to powers of two, the
// way io_uring_setup rounds entry counts. Targets are compared against the
// capacity the kernel granted, so unrounded bounds would resize every tick.
func (p RingPolicy) normalized() RingPolicy {
	if p.Min < 1 {
		p.Min = 1
	}
	if p.Max < p.Min || p.Max > uring.MaxEntries {
		p.Max = uring.MaxEntries
	}
	if p.GrowFactor < 2 {
		p.GrowFactor = 2
	}
	if p.ShrinkDivisor < 2 {
		p.ShrinkDivisor = 4
	}
	if p.Initial < p.Min {
		p.Initial = p.Min
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	p.Min = nextPow2(p.Min)
	p.Initial = nextPow2(p.Initial)
	p.Max = nextPow2(p.Max)
	return p
}

// Target returns the capacity the reader should have for entries live
// processes, and whether that differs from capacity. Each process needs one
// request, two when smaps is on.
func (p RingPolicy) Target(entries int, smaps bool, capacity int) (int, bool) {
	p = p.normalized()
	reqs := entries
	if smaps {
		reqs *= 2
	}

	target := capacity
	switch {
	case reqs >= p.GrowFactor*capacity:
		target = nextPow2(reqs)
	case reqs < capacity/p.ShrinkDivisor && capacity > p.Min:
		target = nextPow2(reqs)
		if target < p.Min {
			target = p.Min
		}
	}
	if target > p.Max {
		target = p.Max
	}
	return target, target != capacity
}

// nextPow2 returns the smallest power of two >= n (1 for n <= 1).
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
