package cli

import (
	"time"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/spf13/cobra"
)

// rootFlags holds the flags that override config file values.
type rootFlags struct {
	ConfigPath  string
	Interval    time.Duration
	ShowAll     bool
	Smaps       bool
	TopPercent  bool
	Sort        string
	Procfs      string
	NoFallback  bool
	LogFile     string
	MetricsAddr string
	Color       string
}

// addRootFlags registers the persistent flags on cmd. Defaults mirror
// config.DefaultConfig for help output; only flags the user sets override
// the config.
func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	d := config.DefaultConfig()
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.ConfigPath, "config", "", "config file (default ~/.config/rtop/config.yaml)")
	pf.DurationVar(&flags.Interval, "interval", d.Interval, "sampling interval (250ms to 10s)")
	pf.BoolVarP(&flags.ShowAll, "all", "a", d.ShowAll, "include kernel threads and processes without a command line")
	pf.BoolVar(&flags.Smaps, "smaps", d.Smaps, "read smaps_rollup and show PSS instead of RSS")
	pf.BoolVar(&flags.TopPercent, "top", d.TopPercent, "report CPU relative to one core, like top")
	pf.StringVar(&flags.Sort, "sort", string(d.Sort), "sort column: cpu, mem, pid, or name")
	pf.StringVar(&flags.Procfs, "procfs", d.Procfs, "procfs mount point")
	pf.BoolVar(&flags.NoFallback, "no-fallback", !d.FallbackIO, "fail instead of using blocking reads when io_uring is unavailable")
	pf.StringVar(&flags.LogFile, "log-file", d.Log.File, "write diagnostics to this file")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", d.MetricsAddr, "serve prometheus metrics on this address (e.g. 127.0.0.1:9101)")
	pf.StringVar(&flags.Color, "color", d.Color, "color output: auto, always, or never")
}

// applyFlags copies every flag the user set on the command line into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags *rootFlags) {
	changed := cmd.Flags().Changed

	if changed("interval") {
		cfg.Interval = flags.Interval
	}
	if changed("all") {
		cfg.ShowAll = flags.ShowAll
	}
	if changed("smaps") {
		cfg.Smaps = flags.Smaps
	}
	if changed("top") {
		cfg.TopPercent = flags.TopPercent
	}
	if changed("sort") {
		cfg.Sort = config.SortKey(flags.Sort)
	}
	if changed("procfs") {
		cfg.Procfs = config.ExpandTilde(flags.Procfs)
	}
	if changed("no-fallback") {
		cfg.FallbackIO = !flags.NoFallback
	}
	if changed("log-file") {
		cfg.Log.File = config.Expand(flags.LogFile)
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flags.MetricsAddr
	}
	if changed("color") {
		cfg.Color = flags.Color
	}
}
