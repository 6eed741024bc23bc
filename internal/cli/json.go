package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/rtop/internal/errors"
	"github.com/rileyhilliard/rtop/internal/uring"
)

// Machine mode flag - when true, failures are reported as a JSON envelope on stdout
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeRingUnavailable  = "RING_UNAVAILABLE"
	ErrCodeRingFailed       = "RING_FAILED"
	ErrCodeProcfsFailed     = "PROCFS_FAILED"
	ErrCodeSamplerFailed    = "SAMPLER_FAILED"
	ErrCodeTerminalRequired = "TERMINAL_REQUIRED"
	ErrCodeUnknown          = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	// Ring setup failures carry the requested size, whatever wraps them.
	var setupErr *uring.SetupError
	if stderrors.As(err, &setupErr) {
		return ringSetupToJSON(err, setupErr)
	}

	var rtErr *errors.Error
	if stderrors.As(err, &rtErr) {
		return &JSONError{
			Code:       mapErrorCode(rtErr.Code, rtErr.Message),
			Message:    rtErr.Message,
			Suggestion: rtErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		// Distinguish between not found and invalid
		if strings.Contains(strings.ToLower(message), "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrRing:
		return ErrCodeRingFailed
	case errors.ErrProcfs:
		return ErrCodeProcfsFailed
	case errors.ErrSampler:
		return ErrCodeSamplerFailed
	case errors.ErrTerminal:
		return ErrCodeTerminalRequired
	}

	return ErrCodeUnknown
}

// ringSetupToJSON reports an io_uring setup failure with the ring size and
// whether the kernel lacked a required feature.
func ringSetupToJSON(err error, setupErr *uring.SetupError) *JSONError {
	out := &JSONError{
		Code:       ErrCodeRingUnavailable,
		Message:    setupErr.Error(),
		Suggestion: "Enable fallback_io in the config, or check sysctl kernel.io_uring_disabled",
		Details: map[string]interface{}{
			"entries":         setupErr.Entries,
			"feature_missing": stderrors.Is(setupErr, uring.ErrFeatureMissing),
		},
	}
	var rtErr *errors.Error
	if stderrors.As(err, &rtErr) {
		out.Message = rtErr.Message
		if rtErr.Suggestion != "" {
			out.Suggestion = rtErr.Suggestion
		}
	}
	return out
}
