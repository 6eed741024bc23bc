// Package sampler runs each data source on its own goroutine and interval,
// reporting updates and failures to the renderer over a channel.
package sampler

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/logger"
)

// DefaultInterval is used when a subsystem has no interval source.
const DefaultInterval = time.Second

// Updater is a data source refreshed under its own lock. The harness holds
// the lock for the duration of Update; readers take it to copy state out.
type Updater interface {
	sync.Locker
	Update() error
}

// Subsystem describes one sampled source.
type Subsystem struct {
	Name    string
	Updater Updater

	// Interval is consulted before every sleep so runtime changes apply on
	// the next cycle. Nil means DefaultInterval.
	Interval func() time.Duration

	// LockThread pins the goroutine to one OS thread for its lifetime.
	LockThread bool
}

// EventKind distinguishes the events a sampler emits.
type EventKind int

const (
	KindUpdated EventKind = iota
	KindFatal
)

func (k EventKind) String() string {
	switch k {
	case KindUpdated:
		return "updated"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Event is sent to the renderer after every update attempt.
type Event struct {
	Source string
	Kind   EventKind
	Err    error
	At     time.Time
}

// Recorder receives per-tick measurements.
type Recorder interface {
	SamplerTick(subsystem string, took time.Duration)
	SamplerError(subsystem string)
}

type noopRecorder struct{}

func (noopRecorder) SamplerTick(string, time.Duration) {}
func (noopRecorder) SamplerError(string)               {}

// Group owns a set of sampler goroutines sharing one cancellation.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan<- Event
	log    logger.Logger
	rec    Recorder

	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewGroup creates a group. events may be nil when nobody listens; log and
// rec may be nil.
func NewGroup(ctx context.Context, events chan<- Event, log logger.Logger, rec Recorder) *Group {
	if log == nil {
		log = logger.Noop()
	}
	if rec == nil {
		rec = noopRecorder{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Group{
		ctx:    ctx,
		cancel: cancel,
		events: events,
		log:    log,
		rec:    rec,
	}
}

// Go starts the sampling loop for s.
func (g *Group) Go(s Subsystem) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if s.LockThread {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}
		if err := g.run(s); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	}()
}

// Stop cancels every sampler. Sleeping samplers wake immediately.
func (g *Group) Stop() {
	g.cancel()
}

// Done is closed once Stop was called or the parent context ended.
func (g *Group) Done() <-chan struct{} {
	return g.ctx.Done()
}

// Wait blocks until every sampler has returned and reports the ones that
// failed. Cancellation is not a failure.
func (g *Group) Wait() []error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]error, len(g.errs))
	copy(out, g.errs)
	return out
}

func (g *Group) run(s Subsystem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("%s sampler panicked: %v\n%s", s.Name, r, debug.Stack())
			err = errors.WrapWithCode(fmt.Errorf("panic: %v", r), errors.ErrSampler,
				fmt.Sprintf("The %s sampler crashed", s.Name),
				"Rerun with RTOP_DEBUG=1 and a log file to capture the stack trace")
			g.rec.SamplerError(s.Name)
			g.fatal(s.Name, err)
		}
	}()

	g.log.Debug("%s sampler started", s.Name)
	for {
		if g.ctx.Err() != nil {
			g.log.Debug("%s sampler stopped", s.Name)
			return nil
		}

		start := time.Now()
		if tickErr := g.tick(s.Updater); tickErr != nil {
			g.log.Error("%s sampler failed: %v", s.Name, tickErr)
			stopped := errors.Wrap(tickErr, fmt.Sprintf("The %s sampler stopped", s.Name))
			g.rec.SamplerError(s.Name)
			g.fatal(s.Name, stopped)
			return stopped
		}
		g.rec.SamplerTick(s.Name, time.Since(start))
		g.updated(s.Name)

		if !g.sleep(interval(s)) {
			g.log.Debug("%s sampler stopped", s.Name)
			return nil
		}
	}
}

func (g *Group) tick(u Updater) error {
	u.Lock()
	defer u.Unlock()
	return u.Update()
}

// updated drops the event when the channel is full; the renderer reads the
// latest state whenever it catches up.
func (g *Group) updated(source string) {
	if g.events == nil {
		return
	}
	select {
	case g.events <- Event{Source: source, Kind: KindUpdated, At: time.Now()}:
	default:
	}
}

// fatal blocks until the event is taken unless the group is shutting down.
func (g *Group) fatal(source string, err error) {
	if g.events == nil {
		return
	}
	select {
	case g.events <- Event{Source: source, Kind: KindFatal, Err: err, At: time.Now()}:
	case <-g.ctx.Done():
	}
}

// sleep waits d or until cancellation, reporting whether to continue.
func (g *Group) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-g.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func interval(s Subsystem) time.Duration {
	if s.Interval == nil {
		return DefaultInterval
	}
	if d := s.Interval(); d > 0 {
		return d
	}
	return DefaultInterval
}
