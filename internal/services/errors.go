package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// serviceError carries the stage context alongside the classification marker
// so Details can recover the bare human message later.
type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *serviceError) Error() string {
	text := e.marker.Error() + ": " + buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		text += ": " + e.cause.Error()
	}
	return text
}

func (e *serviceError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.marker, e.cause}
	}
	return []error{e.marker}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// IsTransient reports whether an error is worth retrying against the same
// backend. Timeouts count as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// IsPermanent reports whether retrying the same backend cannot help.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound)
}

// ErrorDetails is the presentation-friendly decomposition of a wrapped error.
type ErrorDetails struct {
	Marker    error
	Label     string
	Stage     string
	Operation string
	Message   string
	Cause     error
}

var markerLabels = []struct {
	marker error
	label  string
}{
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrNotFound, "not found"},
	{ErrExternalTool, "external tool"},
	{ErrTimeout, "timeout"},
	{ErrTransient, "transient"},
}

// Details extracts the classification marker, the stage context, and the bare
// human-readable message from an error produced by Wrap. The failing stage is
// persisted separately, so Message never repeats it. Unwrapped errors come
// back with a nil marker and their full text.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Message: err.Error()}
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.stage
		details.Operation = svcErr.operation
		details.Message = svcErr.message
		details.Cause = svcErr.cause
		if details.Message == "" && svcErr.cause != nil {
			details.Message = svcErr.cause.Error()
		}
	}
	for _, entry := range markerLabels {
		if errors.Is(err, entry.marker) {
			details.Marker = entry.marker
			details.Label = entry.label
			break
		}
	}
	if svcErr == nil && details.Marker != nil {
		prefix := details.Marker.Error() + ": "
		details.Message = strings.TrimPrefix(details.Message, prefix)
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
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
