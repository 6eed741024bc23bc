package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"syscall"
	"testing"

	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/uring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, buf *bytes.Buffer) JSONEnvelope {
	t.Helper()
	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	return env
}

func TestMachineMode_DefaultValue(t *testing.T) {
	oldMode := machineMode
	defer func() { machineMode = oldMode }()

	machineMode = false
	assert.False(t, MachineMode())

	machineMode = true
	assert.True(t, MachineMode())
}

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer

	data := PSOutput{
		Total:     2,
		Processes: []ProcessRow{{PID: 42, Name: "postgres", CPUPercent: 12.5, Memory: 4096, State: "S"}},
	}
	require.NoError(t, WriteJSONSuccess(&buf, data))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)

	dataMap, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), dataMap["total"]) // JSON numbers are float64

	procs, ok := dataMap["processes"].([]interface{})
	require.True(t, ok)
	require.Len(t, procs, 1)
	first := procs[0].(map[string]interface{})
	assert.Equal(t, "postgres", first["name"])
	assert.Equal(t, 12.5, first["cpu_percent"])
	assert.NotContains(t, first, "command", "empty command is omitted")
}

func TestWriteJSONSuccess_NilData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Nil(t, env.Error)
}

func TestWriteJSONError_AllFields(t *testing.T) {
	var buf bytes.Buffer

	details := map[string]string{"procfs": "/proc"}
	require.NoError(t, WriteJSONError(&buf, ErrCodeProcfsFailed, "Cannot read /proc", "Mount procfs", details))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)

	assert.Equal(t, ErrCodeProcfsFailed, env.Error.Code)
	assert.Equal(t, "Cannot read /proc", env.Error.Message)
	assert.Equal(t, "Mount procfs", env.Error.Suggestion)

	detailsMap, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/proc", detailsMap["procfs"])
}

func TestWriteJSONFromError_NilError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONFromError(&buf, nil))

	env := decodeEnvelope(t, &buf)
	assert.False(t, env.Success)
	assert.Nil(t, env.Error)
}

func TestWriteJSONFromError_WrappedStructuredError(t *testing.T) {
	var buf bytes.Buffer

	inner := errors.New(errors.ErrTerminal, "rtop needs an interactive terminal", "Use 'rtop ps'")
	require.NoError(t, WriteJSONFromError(&buf, fmt.Errorf("dashboard: %w", inner)))

	env := decodeEnvelope(t, &buf)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeTerminalRequired, env.Error.Code)
	assert.Equal(t, "Use 'rtop ps'", env.Error.Suggestion)
}

func TestErrorToJSON_NilReturnsNil(t *testing.T) {
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_GenericError(t *testing.T) {
	result := ErrorToJSON(fmt.Errorf("generic error message"))

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeUnknown, result.Code)
	assert.Equal(t, "generic error message", result.Message)
	assert.Empty(t, result.Suggestion)
}

func TestErrorToJSON_AllInternalErrorCodes(t *testing.T) {
	tests := []struct {
		name         string
		internalCode string
		message      string
		wantCode     string
	}{
		{"config not found", errors.ErrConfig, "Config file not found", ErrCodeConfigNotFound},
		{"specified config not found", errors.ErrConfig, "Specified config file not found: /tmp/x.yaml", ErrCodeConfigNotFound},
		{"config invalid", errors.ErrConfig, "Invalid config format", ErrCodeConfigInvalid},
		{"ring", errors.ErrRing, "Process table read failed", ErrCodeRingFailed},
		{"procfs", errors.ErrProcfs, "Cannot read /proc", ErrCodeProcfsFailed},
		{"sampler", errors.ErrSampler, "cpu sampler failed", ErrCodeSamplerFailed},
		{"terminal", errors.ErrTerminal, "rtop needs an interactive terminal", ErrCodeTerminalRequired},
		{"unknown code", "OTHER", "Something else", ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ErrorToJSON(errors.New(tt.internalCode, tt.message, "some suggestion"))

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, tt.message, result.Message)
			assert.Equal(t, "some suggestion", result.Suggestion)
		})
	}
}

func TestErrorToJSON_RingSetupError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantMessage    string
		featureMissing bool
	}{
		{
			name:        "bare setup error",
			err:         &uring.SetupError{Entries: 256, Err: syscall.EPERM},
			wantMessage: (&uring.SetupError{Entries: 256, Err: syscall.EPERM}).Error(),
		},
		{
			name:           "missing NODROP",
			err:            &uring.SetupError{Entries: 64, Err: uring.ErrFeatureMissing},
			wantMessage:    (&uring.SetupError{Entries: 64, Err: uring.ErrFeatureMissing}).Error(),
			featureMissing: true,
		},
		{
			name: "wrapped in a structured error",
			err: errors.WrapWithCode(&uring.SetupError{Entries: 64, Err: syscall.ENOMEM}, errors.ErrRing,
				"Cannot create io_uring", ""),
			wantMessage: "Cannot create io_uring",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ErrorToJSON(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, ErrCodeRingUnavailable, result.Code)
			assert.Equal(t, tt.wantMessage, result.Message)
			assert.Contains(t, result.Suggestion, "fallback_io")

			details, ok := result.Details.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.featureMissing, details["feature_missing"])
		})
	}
}
