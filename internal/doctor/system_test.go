package doctor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/metrics"
	"github.com/rileyhilliard/rtop/internal/uring"
)

func fakeProc(t *testing.T, pids ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, pid := range pids {
		require.NoError(t, os.MkdirAll(filepath.Join(root, pid), 0o755))
	}
	return root
}

func TestProcfsCheck(t *testing.T) {
	t.Run("processes and stat", func(t *testing.T) {
		root := fakeProc(t, "1", "42", "self-not-a-pid")
		require.NoError(t, os.Mkdir(filepath.Join(root, "sys"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "stat"), []byte("cpu 1 2 3 4\n"), 0o644))

		result := (&ProcfsCheck{Root: root}).Run()
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "2 processes")
	})

	t.Run("missing stat", func(t *testing.T) {
		result := (&ProcfsCheck{Root: fakeProc(t, "1")}).Run()
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("no processes", func(t *testing.T) {
		result := (&ProcfsCheck{Root: fakeProc(t)}).Run()
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("missing root", func(t *testing.T) {
		result := (&ProcfsCheck{Root: filepath.Join(t.TempDir(), "nope")}).Run()
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Suggestion, "procfs")
	})
}

func TestUringCheck(t *testing.T) {
	setupErr := &uring.SetupError{Entries: 64, Err: errors.New("operation not permitted")}
	noDrop := &uring.SetupError{Entries: 64, Err: uring.ErrFeatureMissing}

	tests := []struct {
		name     string
		err      error
		fallback bool
		want     CheckStatus
		contains string
	}{
		{"ready", nil, true, StatusPass, "NODROP"},
		{"setup fails with fallback", setupErr, true, StatusWarn, "blocking reads"},
		{"setup fails without fallback", setupErr, false, StatusFail, "operation not permitted"},
		{"no NODROP", noDrop, false, StatusFail, "IORING_FEAT_NODROP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEntries int
			check := &UringCheck{
				Entries:    64,
				FallbackIO: tt.fallback,
				open: func(entries int) error {
					gotEntries = entries
					return tt.err
				},
			}

			result := check.Run()
			assert.Equal(t, tt.want, result.Status)
			assert.Contains(t, result.Message, tt.contains)
			assert.Equal(t, 64, gotEntries)
		})
	}
}

func TestUringCheck_RealKernel(t *testing.T) {
	result := (&UringCheck{Entries: 8, FallbackIO: true}).Run()
	if result.Status != StatusPass {
		t.Skipf("io_uring not usable here: %s", result.Message)
	}
	assert.Contains(t, result.Message, "8 entries")
}

func TestSmapsCheck(t *testing.T) {
	t.Run("readable", func(t *testing.T) {
		root := fakeProc(t, "1")
		require.NoError(t, os.WriteFile(filepath.Join(root, "1", "smaps_rollup"), []byte("Pss: 100 kB\n"), 0o644))

		assert.Equal(t, StatusPass, (&SmapsCheck{Root: root}).Run().Status)
	})

	t.Run("missing", func(t *testing.T) {
		result := (&SmapsCheck{Root: fakeProc(t, "1")}).Run()
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Suggestion, "4.14")
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file modes")
		}
		root := fakeProc(t, "1")
		path := filepath.Join(root, "1", "smaps_rollup")
		require.NoError(t, os.WriteFile(path, nil, 0o000))

		result := (&SmapsCheck{Root: root}).Run()
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Message, "your own processes")
	})
}

func TestGPUCheck(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	missing := func(string) (string, error) { return "", errors.New("not found") }

	tests := []struct {
		name     string
		check    *GPUCheck
		contains string
	}{
		{"disabled", &GPUCheck{Enabled: false, lookPath: found}, "disabled"},
		{"found", &GPUCheck{Enabled: true, lookPath: found}, "/usr/bin/nvidia-smi"},
		{"missing", &GPUCheck{Enabled: true, lookPath: missing}, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.check.Run()
			assert.Equal(t, StatusPass, result.Status, "a host without GPUs is not a problem")
			assert.Contains(t, result.Message, tt.contains)
		})
	}
}

func TestSensorsCheck(t *testing.T) {
	temps := []metrics.Temperature{{Sensor: "coretemp", Celsius: 40}, {Sensor: "nvme", Celsius: 35}}
	partial := errors.New("acpitz: read failed")

	tests := []struct {
		name  string
		temps []metrics.Temperature
		err   error
		want  CheckStatus
	}{
		{"sensors", temps, nil, StatusPass},
		{"none", nil, nil, StatusPass},
		{"partial", temps, partial, StatusWarn},
		{"failed", nil, partial, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := &SensorsCheck{read: func() ([]metrics.Temperature, error) { return tt.temps, tt.err }}
			assert.Equal(t, tt.want, check.Run().Status)
		})
	}
}

func TestNewSystemChecks(t *testing.T) {
	cfg := config.DefaultConfig()
	checks := NewSystemChecks(cfg)

	require.Len(t, checks, 5)
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{"procfs", "io_uring", "smaps_rollup", "nvidia_smi", "sensors"}, names)

	uc := checks[1].(*UringCheck)
	assert.Equal(t, cfg.Ring.MinEntries, uc.Entries)
	assert.True(t, uc.FallbackIO)
}
