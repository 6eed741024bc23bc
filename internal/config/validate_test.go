package config

import (
	"testing"
	"time"

	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "version too high",
			mutate:  func(c *Config) { c.Version = CurrentConfigVersion + 1 },
			wantErr: true,
			errMsg:  "from the future",
		},
		{
			name:    "interval too short",
			mutate:  func(c *Config) { c.Interval = 100 * time.Millisecond },
			wantErr: true,
			errMsg:  "out of range",
		},
		{
			name:    "interval too long",
			mutate:  func(c *Config) { c.Interval = time.Minute },
			wantErr: true,
			errMsg:  "out of range",
		},
		{
			name:   "interval at lower bound",
			mutate: func(c *Config) { c.Interval = MinInterval },
		},
		{
			name:    "unknown sort",
			mutate:  func(c *Config) { c.Sort = "rss" },
			wantErr: true,
			errMsg:  "sort 'rss' isn't valid",
		},
		{
			name:    "empty procfs",
			mutate:  func(c *Config) { c.Procfs = " " },
			wantErr: true,
			errMsg:  "procfs can't be empty",
		},
		{
			name:    "ring max below min",
			mutate: func(c *Config) {
				c.Ring.MaxEntries = 32
				c.Ring.InitialEntries = 32
			},
			wantErr: true,
			errMsg:  "smaller than ring.min_entries",
		},
		{
			name:    "ring max above kernel limit",
			mutate:  func(c *Config) { c.Ring.MaxEntries = 65536 },
			wantErr: true,
			errMsg:  "kernel limit",
		},
		{
			name:    "ring initial outside bounds",
			mutate:  func(c *Config) { c.Ring.InitialEntries = 16 },
			wantErr: true,
			errMsg:  "ring.initial_entries",
		},
		{
			name:    "grow factor too small",
			mutate:  func(c *Config) { c.Ring.GrowFactor = 1 },
			wantErr: true,
			errMsg:  "grow_factor",
		},
		{
			name:    "shrink divisor too small",
			mutate:  func(c *Config) { c.Ring.ShrinkDivisor = 0 },
			wantErr: true,
			errMsg:  "shrink_divisor",
		},
		{
			name:    "gpu enabled with zero interval",
			mutate:  func(c *Config) { c.GPU.Interval = 0 },
			wantErr: true,
			errMsg:  "gpu.interval",
		},
		{
			name:   "gpu disabled ignores interval",
			mutate: func(c *Config) {
				c.GPU.Enabled = false
				c.GPU.Interval = 0
			},
		},
		{
			name:    "bad color",
			mutate:  func(c *Config) { c.Color = "rainbow" },
			wantErr: true,
			errMsg:  "color 'rainbow'",
		},
		{
			name:    "bad metrics address",
			mutate:  func(c *Config) { c.MetricsAddr = "9101" },
			wantErr: true,
			errMsg:  "metrics_addr",
		},
		{
			name:   "good metrics address",
			mutate: func(c *Config) { c.MetricsAddr = ":9101" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	err := Validate(nil)
	assert.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
