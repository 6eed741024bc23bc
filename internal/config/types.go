package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Interval bounds shared by validation and the dashboard's +/- keys.
const (
	MinInterval  = 250 * time.Millisecond
	MaxInterval  = 10 * time.Second
	IntervalStep = 250 * time.Millisecond
)

// SortKey selects the column the process list is ordered by.
type SortKey string

const (
	SortCPU  SortKey = "cpu"
	SortMem  SortKey = "mem"
	SortPID  SortKey = "pid"
	SortName SortKey = "name"
)

// SortKeys lists the keys in the order the dashboard cycles through them.
var SortKeys = []SortKey{SortCPU, SortMem, SortPID, SortName}

// Next returns the sort key after k, wrapping around.
func (k SortKey) Next() SortKey {
	for i, s := range SortKeys {
		if s == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortCPU
}

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	for _, s := range SortKeys {
		if s == k {
			return true
		}
	}
	return false
}

// Config represents the complete config.yaml file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Interval is the tick interval for every sampler.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// ShowAll includes kernel threads and processes without a command line.
	ShowAll bool `yaml:"show_all" mapstructure:"show_all"`

	// Smaps reads smaps_rollup for proportional set size.
	// Needs privilege for other users' processes.
	Smaps bool `yaml:"smaps" mapstructure:"smaps"`

	// TopPercent reports CPU relative to one core, like top.
	TopPercent bool `yaml:"top_percent" mapstructure:"top_percent"`

	Sort SortKey `yaml:"sort" mapstructure:"sort"`

	// Procfs is the process information root.
	Procfs string `yaml:"procfs" mapstructure:"procfs"`

	// FallbackIO switches to blocking reads when io_uring is unavailable.
	FallbackIO bool `yaml:"fallback_io" mapstructure:"fallback_io"`

	Ring RingConfig `yaml:"ring" mapstructure:"ring"`
	GPU  GPUConfig  `yaml:"gpu" mapstructure:"gpu"`
	Log  LogConfig  `yaml:"log" mapstructure:"log"`

	// MetricsAddr exposes prometheus metrics when set (e.g. 127.0.0.1:9101).
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`

	// Color mode: "auto", "always", or "never".
	Color string `yaml:"color" mapstructure:"color"`
}

// RingConfig controls io_uring sizing for the process table.
type RingConfig struct {
	InitialEntries int `yaml:"initial_entries" mapstructure:"initial_entries"`
	MinEntries     int `yaml:"min_entries" mapstructure:"min_entries"`
	MaxEntries     int `yaml:"max_entries" mapstructure:"max_entries"`

	// GrowFactor: grow once requests reach GrowFactor times capacity.
	GrowFactor int `yaml:"grow_factor" mapstructure:"grow_factor"`

	// ShrinkDivisor: shrink once requests drop under capacity / ShrinkDivisor.
	ShrinkDivisor int `yaml:"shrink_divisor" mapstructure:"shrink_divisor"`
}

// GPUConfig controls the nvidia-smi poller.
type GPUConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// LogConfig controls where diagnostics go while the dashboard owns the terminal.
type LogConfig struct {
	File  string `yaml:"file" mapstructure:"file"`
	Debug bool   `yaml:"debug" mapstructure:"debug"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:    CurrentConfigVersion,
		Interval:   time.Second,
		Sort:       SortCPU,
		Procfs:     "/proc",
		FallbackIO: true,
		Ring: RingConfig{
			InitialEntries: 256,
			MinEntries:     64,
			MaxEntries:     32768,
			GrowFactor:     2,
			ShrinkDivisor:  4,
		},
		GPU: GPUConfig{
			Enabled:  true,
			Interval: 2 * time.Second,
		},
		Color: "auto",
	}
}

// Settings derives the initial runtime toggles from the config.
func (c *Config) Settings() Settings {
	return Settings{
		ShowAll:    c.ShowAll,
		Smaps:      c.Smaps,
		TopPercent: c.TopPercent,
		Interval:   c.Interval,
		Sort:       c.Sort,
	}
}

// GPUInterval is the GPU poll interval, never faster than the main tick.
func (c *Config) GPUInterval(tick time.Duration) time.Duration {
	if c.GPU.Interval > tick {
		return c.GPU.Interval
	}
	return tick
}
