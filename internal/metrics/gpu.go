package metrics

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// GPUTimeout bounds a single nvidia-smi run.
const GPUTimeout = 2 * time.Second

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// GPU samples NVIDIA GPUs through nvidia-smi. Hosts without the binary
// report no GPUs.
type GPU struct {
	sync.RWMutex

	binary  string
	timeout time.Duration
	lookup  func(string) (string, error)
	run     runFunc

	snap []GPUMetrics
	err  error
}

func NewGPU() *GPU {
	return &GPU{
		binary:  "nvidia-smi",
		timeout: GPUTimeout,
		lookup:  exec.LookPath,
		run:     runCommand,
	}
}

// Available reports whether nvidia-smi is on PATH.
func (g *GPU) Available() bool {
	_, err := g.lookup(g.binary)
	return err == nil
}

// Update runs one query. A missing binary, a timeout or an unparseable
// reply clear the GPU list and are kept in Err rather than stopping the
// sampler.
func (g *GPU) Update() error {
	path, err := g.lookup(g.binary)
	if err != nil {
		g.snap, g.err = nil, nil
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	out, err := g.run(ctx, path, "--query-gpu="+nvidiaQuery, "--format=csv,noheader,nounits")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
		g.snap, g.err = nil, err
		return nil
	}

	gpus, err := ParseNvidiaSMI(string(out))
	g.snap, g.err = gpus, err
	return nil
}

// Snapshot returns a copy of the latest GPU readings.
func (g *GPU) Snapshot() []GPUMetrics {
	g.RLock()
	defer g.RUnlock()
	return append([]GPUMetrics(nil), g.snap...)
}

// Err is the failure from the last query, if any.
func (g *GPU) Err() error {
	g.RLock()
	defer g.RUnlock()
	return g.err
}
