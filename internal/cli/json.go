package cli

import (
	stderrors "errors"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rileyhilliard/rmon/internal/errors"
)

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigInvalid = "CONFIG_INVALID"
	ErrCodeHostNotFound  = "HOST_NOT_FOUND"
	ErrCodeSSHFailed     = "SSH_FAILED"
	ErrCodeCommandFailed = "COMMAND_FAILED"
	ErrCodeParseFailed   = "PARSE_FAILED"
	ErrCodeStoreFailed   = "STORE_FAILED"
	ErrCodeUnknown       = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

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

	var rmErr *errors.Error
	if stderrors.As(err, &rmErr) {
		return &JSONError{
			Code:       mapErrorCode(rmErr.Code, rmErr.Message),
			Message:    rmErr.Short(),
			Suggestion: rmErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: errors.OneLine(err),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		if strings.HasPrefix(message, "No host matches") || strings.HasSuffix(message, "not found") {
			return ErrCodeHostNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH:
		return ErrCodeSSHFailed
	case errors.ErrExec:
		return ErrCodeCommandFailed
	case errors.ErrParse:
		return ErrCodeParseFailed
	case errors.ErrStore:
		return ErrCodeStoreFailed
	}
	return ErrCodeUnknown
}
