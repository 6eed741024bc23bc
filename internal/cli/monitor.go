package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/logger"
	"github.com/rileyhilliard/rtop/internal/metrics"
	"github.com/rileyhilliard/rtop/internal/monitor"
	"github.com/rileyhilliard/rtop/internal/proc"
	"github.com/rileyhilliard/rtop/internal/sampler"
	"github.com/rileyhilliard/rtop/internal/telemetry"
	"golang.org/x/term"
)

// eventBuffer bounds the sampler channel. Updates beyond it are dropped; the
// view reads the latest state anyway.
const eventBuffer = 64

// runDashboard starts every sampler and runs the TUI until the user quits,
// a signal arrives, or a sampler fails.
func runDashboard(ctx context.Context, cfg *config.Config, cfgPath string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrTerminal,
			"rtop needs an interactive terminal",
			"Use 'rtop ps' for a one-shot listing when output is piped")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := openLog(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	settings := config.NewLive(cfg.Settings())
	rec := telemetry.NewRecorder(cfg.MetricsAddr != "")

	src, err := openSources(cfg, settings, log, rec)
	if err != nil {
		return err
	}
	defer src.Table.Close()

	if cfg.MetricsAddr != "" {
		if _, err := rec.Serve(ctx, cfg.MetricsAddr, log); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot serve metrics on "+cfg.MetricsAddr,
				"Pick a free address with --metrics-addr, or leave it empty")
		}
	}

	events := make(chan sampler.Event, eventBuffer)
	group := sampler.NewGroup(ctx, events, log, rec)
	startSamplers(group, src, settings, cfg)

	model := monitor.NewModel(monitor.Options{
		Sources:    src,
		Settings:   settings,
		Events:     events,
		System:     metrics.HostInfo(ctx),
		ConfigPath: cfgPath,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	final, runErr := p.Run()

	group.Stop()
	for _, err := range group.Wait() {
		log.Error("%v", err)
	}

	if runErr != nil {
		return errors.WrapWithCode(runErr, errors.ErrTerminal,
			"The dashboard stopped unexpectedly",
			"Check that the terminal supports the alternate screen")
	}
	if m, ok := final.(monitor.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

// openSources creates every poller and the process table.
func openSources(cfg *config.Config, settings *config.Live, log logger.Logger, rec *telemetry.Recorder) (monitor.Sources, error) {
	mem, err := metrics.NewMemory(cfg.Procfs)
	if err != nil {
		return monitor.Sources{}, procfsError(err, cfg.Procfs)
	}
	load, err := metrics.NewLoad(cfg.Procfs)
	if err != nil {
		return monitor.Sources{}, procfsError(err, cfg.Procfs)
	}
	network, err := metrics.NewNetwork(cfg.Procfs)
	if err != nil {
		return monitor.Sources{}, procfsError(err, cfg.Procfs)
	}

	cpu := metrics.NewCPU(cfg.Procfs)
	table, err := openTable(cfg, settings, cpu, log, rec)
	if err != nil {
		return monitor.Sources{}, err
	}

	src := monitor.Sources{
		Table:   table,
		CPU:     cpu,
		Memory:  mem,
		Load:    load,
		Network: network,
		Sensors: metrics.NewSensors(),
	}
	if cfg.GPU.Enabled {
		src.GPU = metrics.NewGPU()
	}
	return src, nil
}

// openTable creates the process table with the configured ring policy.
// rec may be nil.
func openTable(cfg *config.Config, settings *config.Live, cpu proc.CPUSource, log logger.Logger, rec proc.Recorder) (*proc.Table, error) {
	return proc.NewTable(proc.Options{
		Root:          cfg.Procfs,
		AllowFallback: cfg.FallbackIO,
		CPU:           cpu,
		Settings:      settings,
		Policy:        proc.PolicyFromConfig(cfg.Ring),
		Logger:        log,
		Recorder:      rec,
	})
}

// startSamplers registers one subsystem per source. Hardware pollers shell
// out or walk sysfs, so they run on the slower GPU interval.
func startSamplers(g *sampler.Group, src monitor.Sources, settings *config.Live, cfg *config.Config) {
	tick := settings.Interval
	slow := func() time.Duration { return cfg.GPUInterval(settings.Interval()) }

	g.Go(sampler.Subsystem{Name: monitor.SourceCPU, Updater: src.CPU, Interval: tick})
	g.Go(sampler.Subsystem{Name: monitor.SourceProc, Updater: src.Table, Interval: tick, LockThread: true})
	g.Go(sampler.Subsystem{Name: monitor.SourceMemory, Updater: src.Memory, Interval: tick})
	g.Go(sampler.Subsystem{Name: monitor.SourceLoad, Updater: src.Load, Interval: tick})
	g.Go(sampler.Subsystem{Name: monitor.SourceNetwork, Updater: src.Network, Interval: tick})
	g.Go(sampler.Subsystem{Name: monitor.SourceSensors, Updater: src.Sensors, Interval: slow})
	if src.GPU != nil {
		g.Go(sampler.Subsystem{Name: monitor.SourceGPU, Updater: src.GPU, Interval: slow})
	}
}

// openLog returns the dashboard logger. The TUI owns the terminal, so
// diagnostics are discarded unless log.file is set.
func openLog(cfg *config.Config) (logger.Logger, func(), error) {
	if cfg.Log.File == "" {
		return logger.Noop(), func() {}, nil
	}

	log, f, err := logger.OpenFile(cfg.Log.File, "[rtop]", cfg.Log.Debug)
	if err != nil {
		return nil, nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot open log file: "+cfg.Log.File,
			"Check the directory exists and is writable, or unset log.file")
	}
	return log, func() { _ = f.Close() }, nil
}

func procfsError(err error, root string) error {
	return errors.WrapWithCode(err, errors.ErrProcfs,
		"Cannot read "+root,
		"Check that procfs is mounted there, or point --procfs at it")
}
