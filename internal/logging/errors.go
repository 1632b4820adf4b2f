package logging

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures.
type ErrorCode string

// ErrorCode constants for pipeline errors.
const (
	ErrSetup  ErrorCode = "SETUP_FAILED"
	ErrReload ErrorCode = "RELOAD_FAILED"
)

// Sentinel causes, matchable with errors.Is through *Error.
var (
	ErrAlreadyInstalled   = errors.New("logging pipeline already installed")
	ErrConsoleRequired    = errors.New("console sink is required")
	ErrJournalUnavailable = errors.New("systemd journal is not available")
	ErrHandleDetached     = errors.New("filter handle is not bound to an installed sink")
)

// Error represents a setup or reload failure of the logging pipeline.
type Error struct {
	Code    ErrorCode `json:"code"`
	Sink    string    `json:"sink,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`
}

func newSetupError(sink SinkKind, message string, cause error) *Error {
	return &Error{Code: ErrSetup, Sink: sink.String(), Message: message, Cause: cause}
}

func newReloadError(message string, cause error) *Error {
	return &Error{Code: ErrReload, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Sink != "" {
		prefix = fmt.Sprintf("[%s] %s sink", e.Code, e.Sink)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

// IsSetupError reports whether err is (or wraps) a pipeline setup failure.
func IsSetupError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.HasCode(ErrSetup)
}

// IsReloadError reports whether err is (or wraps) a filter reload failure.
func IsReloadError(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.HasCode(ErrReload)
}
