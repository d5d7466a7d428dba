// internal/gateway/errors.go
package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// GenerationError wraps a failed backend call. The failure applies to this
// call only; retrying is always a user decision, never automatic.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("narrative generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// InvalidOutputError indicates the backend returned output that could not be
// parsed into the required structure during scenario extraction.
type InvalidOutputError struct {
	Output string
	Err    error
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("unusable generation output: %v", e.Err)
}

func (e *InvalidOutputError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is one of the gateway failures the
// controller handles through its recovery flow.
func IsRecoverable(err error) bool {
	var ge *GenerationError
	var ie *InvalidOutputError
	return errors.As(err, &ge) || errors.As(err, &ie)
}

// IsTransient classifies an error as likely transient based on its message.
// Connection and timeout failures are transient; auth and validation
// failures are not. Unknown errors default to transient. Used only to word
// the recovery hint shown to the user.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporary failure") {
		return true
	}

	if strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden") {
		return false
	}

	return true
}
