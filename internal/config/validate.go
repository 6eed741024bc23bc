package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/rileyhilliard/rtop/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but rtop only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Grab the latest rtop or lower the version field.")
	}

	if cfg.Interval < MinInterval || cfg.Interval > MaxInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("interval %v is out of range", cfg.Interval),
			fmt.Sprintf("Use a duration between %v and %v, like 1s or 500ms.", MinInterval, MaxInterval))
	}

	if !cfg.Sort.Valid() {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("sort '%s' isn't valid", cfg.Sort),
			"Use one of: cpu, mem, pid, name.")
	}

	if strings.TrimSpace(cfg.Procfs) == "" {
		return errors.New(errors.ErrConfig,
			"procfs can't be empty",
			"Leave it unset to use /proc.")
	}

	if err := validateRing(cfg.Ring); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'ring' section in your config.yaml.")
	}

	if cfg.GPU.Enabled && cfg.GPU.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			"gpu.interval must be positive",
			"Use a duration like 2s, or set gpu.enabled: false.")
	}

	if err := validateColor(cfg.Color); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Pass --color auto|always|never.")
	}

	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("metrics_addr '%s' isn't a host:port address", cfg.MetricsAddr),
				"Use something like 127.0.0.1:9101.")
		}
	}

	return nil
}

// validateRing checks io_uring sizing.
func validateRing(r RingConfig) error {
	if r.MinEntries < 1 {
		return fmt.Errorf("ring.min_entries must be at least 1, got %d", r.MinEntries)
	}
	if r.MaxEntries < r.MinEntries {
		return fmt.Errorf("ring.max_entries (%d) is smaller than ring.min_entries (%d)", r.MaxEntries, r.MinEntries)
	}
	if r.MaxEntries > 32768 {
		return fmt.Errorf("ring.max_entries (%d) exceeds the kernel limit of 32768", r.MaxEntries)
	}
	if r.InitialEntries < r.MinEntries || r.InitialEntries > r.MaxEntries {
		return fmt.Errorf("ring.initial_entries (%d) must be between min_entries and max_entries", r.InitialEntries)
	}
	if r.GrowFactor < 2 {
		return fmt.Errorf("ring.grow_factor must be at least 2, got %d", r.GrowFactor)
	}
	if r.ShrinkDivisor < 2 {
		return fmt.Errorf("ring.shrink_divisor must be at least 2, got %d", r.ShrinkDivisor)
	}
	return nil
}

func validateColor(color string) error {
	validColors := map[string]bool{"auto": true, "always": true, "never": true, "": true}
	if !validColors[color] {
		return fmt.Errorf("color '%s' isn't valid - use 'auto', 'always', or 'never'", color)
	}
	return nil
}
