package engine

import (
	"errors"
	"fmt"
)

// ResolutionHandle is an opaque remediation token owned by the platform. It is
// handed to an external UI flow and never inspected here.
type ResolutionHandle any

// PlatformError is the failure value an engine reports through a callback.
//
// Message is optional: the empty string means the engine supplied none.
// Resolution is only meaningful together with ResolutionRequired.
type PlatformError struct {
	Code       StatusCode
	Message    string
	Resolution ResolutionHandle
}

// NewPlatformError builds a PlatformError without a resolution handle.
func NewPlatformError(code StatusCode, message string) *PlatformError {
	return &PlatformError{Code: code, Message: message}
}

// NewResolutionError builds a ResolutionRequired failure carrying handle.
func NewResolutionError(handle ResolutionHandle, message string) *PlatformError {
	return &PlatformError{Code: ResolutionRequired, Message: message, Resolution: handle}
}

// Error formats the error as "<NAME>(<code>)" or "<NAME>(<code>): <message>".
func (e *PlatformError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("%s(%d)", e.Code, int(e.Code))
	}
	return fmt.Sprintf("%s(%d): %s", e.Code, int(e.Code), e.Message)
}

// HasMessage reports whether the engine supplied a diagnostic message.
func (e *PlatformError) HasMessage() bool {
	return e != nil && e.Message != ""
}

// AsPlatformError finds the first *PlatformError in err's chain.
func AsPlatformError(err error) (*PlatformError, bool) {
	var pe *PlatformError
	if errors.As(err, &pe) && pe != nil {
		return pe, true
	}
	return nil, false
}

// CodeOf returns the status code carried by err, if any.
func CodeOf(err error) (StatusCode, bool) {
	pe, ok := AsPlatformError(err)
	if !ok {
		return 0, false
	}
	return pe.Code, true
}
