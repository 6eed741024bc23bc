// Package telemetry exposes rtop's own health as prometheus metrics:
// sampler tick latency and failures, process table size and io_uring usage.
package telemetry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/rtop/internal/logger"
)

const namespace = "rtop"

// Recorder collects metrics into its own registry. It satisfies both
// proc.Recorder and sampler.Recorder.
type Recorder struct {
	reg *prometheus.Registry

	samplerTicks  *prometheus.CounterVec
	samplerErrors *prometheus.CounterVec
	samplerTime   *prometheus.HistogramVec

	procEntries  prometheus.Gauge
	procRemoved  prometheus.Counter
	ringResizes  prometheus.Counter
	ringCapacity prometheus.Gauge
	ringSubmits  prometheus.Counter

	capacity atomic.Int64
}

// NewRecorder creates a Recorder with a private registry. The Go runtime
// and process collectors are included when withRuntime is set.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		samplerTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "ticks_total",
			Help:      "Completed sampler updates.",
		}, []string{"subsystem"}),
		samplerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "errors_total",
			Help:      "Sampler updates that failed or panicked.",
		}, []string{"subsystem"}),
		samplerTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "tick_seconds",
			Help:      "Time spent in one sampler update.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"subsystem"}),
		procEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "proc",
			Name:      "entries",
			Help:      "Processes in the table after the last update.",
		}),
		procRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proc",
			Name:      "removed_total",
			Help:      "Processes removed after their stat read failed.",
		}),
		ringResizes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ring",
			Name:      "resizes_total",
			Help:      "Times the batch reader was recreated with a new capacity.",
		}),
		ringCapacity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ring",
			Name:      "capacity",
			Help:      "Current batch reader capacity in entries.",
		}),
		ringSubmits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ring",
			Name:      "submits_total",
			Help:      "Batches submitted to the reader.",
		}),
	}
}

// Registry is the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) SamplerTick(subsystem string, took time.Duration) {
	r.samplerTicks.WithLabelValues(subsystem).Inc()
	r.samplerTime.WithLabelValues(subsystem).Observe(took.Seconds())
}

func (r *Recorder) SamplerError(subsystem string) {
	r.samplerErrors.WithLabelValues(subsystem).Inc()
}

func (r *Recorder) ProcEntries(n int) { r.procEntries.Set(float64(n)) }

func (r *Recorder) ProcRemoved(n int) { r.procRemoved.Add(float64(n)) }

// RingResized records the reader capacity. The first call is the initial
// reader and does not count as a resize.
func (r *Recorder) RingResized(capacity int) {
	if prev := r.capacity.Swap(int64(capacity)); prev != 0 {
		r.ringResizes.Inc()
	}
	r.ringCapacity.Set(float64(capacity))
}

func (r *Recorder) RingSubmitted() { r.ringSubmits.Inc() }

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. The listener is
// bound before Serve returns so address errors surface immediately.
func (r *Recorder) Serve(ctx context.Context, addr string, log logger.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped: %v", err)
		}
	}()

	log.Info("serving metrics on http://%s/metrics", ln.Addr())
	return ln.Addr(), nil
}
