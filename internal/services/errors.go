package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrUnsupportedConverter = errors.New("unsupported converter")
	ErrToolUnavailable      = errors.New("tool unavailable")
	ErrToolFailed           = errors.New("tool failed")
	ErrTimeout              = errors.New("timeout")
	ErrValidation           = errors.New("validation error")
	ErrStorage              = errors.New("storage error")
	ErrConfiguration        = errors.New("configuration error")
)

// Error tags a failure with one of the sentinel markers above plus the
// component and operation that produced it. Message is the user-facing text
// persisted on failed jobs.
type Error struct {
	Marker    error
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. A nil marker is treated as a
// tool failure.
func Wrap(marker error, component, operation, message string, err error) error {
	if marker == nil {
		marker = ErrToolFailed
	}
	return &Error{
		Marker:    marker,
		Component: strings.TrimSpace(component),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// Details summarizes a failure for persistence and display.
type Details struct {
	Kind      string
	Component string
	Operation string
	Message   string
}

// ErrorDetails classifies err and extracts the innermost user-facing message.
func ErrorDetails(err error) Details {
	if err == nil {
		return Details{}
	}
	details := Details{Kind: Kind(err)}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Component = svcErr.Component
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

// FailureMessage returns the text stored in a failed job record. It is never
// empty for a non-nil error.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	message := ErrorDetails(err).Message
	if strings.TrimSpace(message) == "" {
		return "conversion failed"
	}
	return message
}

// Kind maps err onto the stable taxonomy name used in logs and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnsupportedConverter):
		return "unsupported_converter"
	case errors.Is(err, ErrToolUnavailable):
		return "tool_unavailable"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrToolFailed):
		return "tool_failed"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component != "" {
		parts = append(parts, component)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
