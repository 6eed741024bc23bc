package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigDirName is the directory under the user config root.
	ConfigDirName = "rtop"
	// ConfigFileName is the config file name.
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. RTOP_INTERVAL=500ms.
	EnvPrefix = "RTOP"
)

// Load reads config from the specified path. An empty path yields defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'rtop init' to create a config file, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. $XDG_CONFIG_HOME/rtop/config.yaml
// 3. ~/.config/rtop/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", nil
}

// DefaultPath is where 'rtop init' writes the config file.
func DefaultPath() string {
	paths := searchPaths()
	if len(paths) == 0 {
		return ConfigFileName
	}
	return paths[0]
}

func searchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, ConfigDirName, ConfigFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, ConfigFileName))
	}
	return paths
}

// LoadOrDefault finds and loads the config, or returns defaults if none exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so environment overrides are picked up
// even when the file omits it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("interval", d.Interval.String())
	v.SetDefault("show_all", d.ShowAll)
	v.SetDefault("smaps", d.Smaps)
	v.SetDefault("top_percent", d.TopPercent)
	v.SetDefault("sort", string(d.Sort))
	v.SetDefault("procfs", d.Procfs)
	v.SetDefault("fallback_io", d.FallbackIO)
	v.SetDefault("ring.initial_entries", d.Ring.InitialEntries)
	v.SetDefault("ring.min_entries", d.Ring.MinEntries)
	v.SetDefault("ring.max_entries", d.Ring.MaxEntries)
	v.SetDefault("ring.grow_factor", d.Ring.GrowFactor)
	v.SetDefault("ring.shrink_divisor", d.Ring.ShrinkDivisor)
	v.SetDefault("gpu.enabled", d.GPU.Enabled)
	v.SetDefault("gpu.interval", d.GPU.Interval.String())
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("color", d.Color)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "your environment overrides"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+where)
	}

	cfg.Procfs = ExpandTilde(cfg.Procfs)
	cfg.Log.File = Expand(cfg.Log.File)

	return cfg, nil
}
