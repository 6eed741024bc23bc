package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/rtop/internal/config"
	"github.com/rileyhilliard/rtop/internal/doctor"
	"github.com/rileyhilliard/rtop/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCheck returns a fixed result.
type stubCheck struct {
	name     string
	category string
	result   doctor.CheckResult
}

func (c stubCheck) Name() string            { return c.name }
func (c stubCheck) Category() string        { return c.category }
func (c stubCheck) Run() doctor.CheckResult { return c.result }

func stubResults(checks []doctor.Check) []doctor.CheckResult {
	return doctor.RunAll(checks)
}

func sampleChecks() []doctor.Check {
	return []doctor.Check{
		stubCheck{"config_file", "CONFIG", doctor.CheckResult{
			Name: "config_file", Status: doctor.StatusWarn,
			Message: "No config file found, using defaults", Suggestion: "Run 'rtop init'", Fixable: true,
		}},
		stubCheck{"procfs", "PROCFS", doctor.CheckResult{
			Name: "procfs", Status: doctor.StatusPass, Message: "/proc: 312 processes",
		}},
		stubCheck{"io_uring", "IO_URING", doctor.CheckResult{
			Name: "io_uring", Status: doctor.StatusFail,
			Message: "io_uring setup failed", Suggestion: "Check sysctl kernel.io_uring_disabled",
		}},
		stubCheck{"smaps_rollup", "PROCFS", doctor.CheckResult{
			Name: "smaps_rollup", Status: doctor.StatusPass, Message: "smaps_rollup readable",
		}},
	}
}

func TestCollectChecks(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name   string
		loaded *config.Config
		want   []string
	}{
		{
			name:   "loaded config adds the log check",
			loaded: cfg,
			want:   []string{"config_file", "config_schema", "config_log_file", "procfs", "io_uring", "smaps_rollup", "nvidia_smi", "sensors"},
		},
		{
			name:   "broken config still runs system checks",
			loaded: nil,
			want:   []string{"config_file", "config_schema", "procfs", "io_uring", "smaps_rollup", "nvidia_smi", "sensors"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := collectChecks("", tt.loaded, cfg)

			names := make([]string, len(checks))
			for i, c := range checks {
				names[i] = c.Name()
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestOutputDoctorJSON(t *testing.T) {
	checks := sampleChecks()
	var buf bytes.Buffer

	require.NoError(t, outputDoctorJSON(&buf, checks, stubResults(checks)))

	var env struct {
		Success bool         `json:"success"`
		Data    DoctorOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))

	assert.True(t, env.Success)
	require.Len(t, env.Data.Categories, 3)
	assert.Equal(t, "CONFIG", env.Data.Categories[0].Name)
	assert.Equal(t, "PROCFS", env.Data.Categories[1].Name)
	assert.Len(t, env.Data.Categories[1].Results, 2, "results are grouped by category")
	assert.Equal(t, "IO_URING", env.Data.Categories[2].Name)

	assert.Equal(t, SummaryOutput{Pass: 2, Warn: 1, Fail: 1, Fixable: 1, AllClear: false}, env.Data.Summary)
}

func TestOutputDoctorText(t *testing.T) {
	defer lipgloss.SetColorProfile(lipgloss.ColorProfile())
	ui.DisableColors()

	checks := sampleChecks()
	var buf bytes.Buffer
	outputDoctorText(&buf, checks, stubResults(checks))
	out := buf.String()

	assert.Contains(t, out, "rtop Diagnostic Report")
	assert.Contains(t, out, "IO_URING")
	assert.Contains(t, out, ui.SymbolFail+" io_uring setup failed")
	assert.Contains(t, out, "kernel.io_uring_disabled")
	assert.Contains(t, out, "2 issues found")
	assert.Contains(t, out, "rtop init", "fixable issues point at init")
}

func TestOutputDoctorText_AllClear(t *testing.T) {
	defer lipgloss.SetColorProfile(lipgloss.ColorProfile())
	ui.DisableColors()

	checks := []doctor.Check{
		stubCheck{"procfs", "PROCFS", doctor.CheckResult{Name: "procfs", Status: doctor.StatusPass, Message: "ok"}},
	}
	var buf bytes.Buffer
	outputDoctorText(&buf, checks, stubResults(checks))

	assert.Contains(t, buf.String(), ui.SymbolSuccess+" Everything looks good")
	assert.NotContains(t, buf.String(), "rtop init")
}

func TestDoctorCommand_FakeProcfs(t *testing.T) {
	isolateConfig(t)
	fs := newFakeProc(t)
	fs.addProcess(1, "init", []string{"/sbin/init"})

	orig := doctorJSON
	defer func() { doctorJSON = orig }()
	doctorJSON = true

	cmd := newTestCommand(t, "--procfs", fs.root)
	var buf bytes.Buffer
	err := doctorCommand(cmd, &buf)

	var env struct {
		Data DoctorOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	require.NotEmpty(t, env.Data.Categories)
	assert.Equal(t, "CONFIG", env.Data.Categories[0].Name)

	// A failing check (io_uring on some kernels) turns into exit code 1.
	if env.Data.Summary.Fail > 0 {
		require.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}
