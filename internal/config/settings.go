package config

import (
	"sync/atomic"
	"time"
)

// Settings is the set of toggles the dashboard can change at runtime.
// A Settings value is immutable once published through Live.
type Settings struct {
	ShowAll    bool
	Smaps      bool
	TopPercent bool
	Interval   time.Duration
	Sort       SortKey
	Reverse    bool
}

// Live publishes Settings snapshots. Readers never block; writers swap in a
// modified copy.
type Live struct {
	p atomic.Pointer[Settings]
}

// NewLive creates a Live holding s.
func NewLive(s Settings) *Live {
	l := &Live{}
	l.p.Store(&s)
	return l
}

// Load returns the current snapshot.
func (l *Live) Load() Settings {
	return *l.p.Load()
}

// Update applies fn to a copy of the current snapshot and publishes it.
// Concurrent updates retry until their compare-and-swap wins.
func (l *Live) Update(fn func(*Settings)) Settings {
	for {
		old := l.p.Load()
		next := *old
		fn(&next)
		if l.p.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Interval returns the current tick interval. Samplers call it before every sleep.
func (l *Live) Interval() time.Duration {
	return l.p.Load().Interval
}

// StepInterval moves the tick interval by delta, clamped to [MinInterval, MaxInterval].
func (l *Live) StepInterval(delta time.Duration) Settings {
	return l.Update(func(s *Settings) {
		s.Interval = ClampInterval(s.Interval + delta)
	})
}

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}
