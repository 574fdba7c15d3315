package exposure

import (
	"context"
	"errors"

	"github.com/example/exposure-bridge/internal/engine"
)

// Disposition is what a caller is expected to do with a result.
type Disposition int

const (
	// DispositionNone means the operation succeeded.
	DispositionNone Disposition = iota
	// DispositionRetry means the same request may be issued again later.
	DispositionRetry
	// DispositionResolve means the resolution handle must be presented to the
	// user before the request is retried.
	DispositionResolve
)

func (d Disposition) String() string {
	switch d {
	case DispositionNone:
		return "none"
	case DispositionRetry:
		return "retry"
	case DispositionResolve:
		return "resolve"
	default:
		return "unknown"
	}
}

// Outcome labels shared by the result variants.
const (
	OutcomeEnabled            = "enabled"
	OutcomeDisabled           = "disabled"
	OutcomeUnavailable        = "unavailable"
	OutcomeResolutionRequired = "resolution_required"
	OutcomeRequireConsent     = "require_consent"
	OutcomeSuccess            = "success"
	OutcomeFailedDiskIO       = "failed_disk_io"
	OutcomeUnknownError       = "unknown_error"
	OutcomeNoSummary          = "no_summary"
)

// Result is implemented by every variant of every operation.
type Result interface {
	Outcome() string
	Disposition() Disposition
}

// StatusResult is returned by GetStatus. The variants are StatusEnabled,
// StatusDisabled, StatusUnavailable and StatusUnknownError.
type StatusResult interface {
	Result
	statusResult()
}

type StatusEnabled struct{}

type StatusDisabled struct{}

// StatusUnavailable reports that the engine is not connected. Code is the
// refined status code when the diagnostic message carried one.
type StatusUnavailable struct {
	Code engine.StatusCode
}

type StatusUnknownError struct {
	Cause error
}

func (StatusEnabled) statusResult()      {}
func (StatusDisabled) statusResult()     {}
func (StatusUnavailable) statusResult()  {}
func (StatusUnknownError) statusResult() {}

func (StatusEnabled) Outcome() string      { return OutcomeEnabled }
func (StatusDisabled) Outcome() string     { return OutcomeDisabled }
func (StatusUnavailable) Outcome() string  { return OutcomeUnavailable }
func (StatusUnknownError) Outcome() string { return OutcomeUnknownError }

func (StatusEnabled) Disposition() Disposition      { return DispositionNone }
func (StatusDisabled) Disposition() Disposition     { return DispositionNone }
func (StatusUnavailable) Disposition() Disposition  { return DispositionRetry }
func (StatusUnknownError) Disposition() Disposition { return DispositionRetry }

// EnableResult is returned by Enable. The variants are EnableEnabled,
// EnableResolutionRequired and EnableUnknownError.
type EnableResult interface {
	Result
	enableResult()
}

type EnableEnabled struct{}

// EnableResolutionRequired carries the handle the user must act on before
// Enable can succeed.
type EnableResolutionRequired struct {
	Handle engine.ResolutionHandle
}

type EnableUnknownError struct {
	Cause error
}

func (EnableEnabled) enableResult()            {}
func (EnableResolutionRequired) enableResult() {}
func (EnableUnknownError) enableResult()       {}

func (EnableEnabled) Outcome() string            { return OutcomeEnabled }
func (EnableResolutionRequired) Outcome() string { return OutcomeResolutionRequired }
func (EnableUnknownError) Outcome() string       { return OutcomeUnknownError }

func (EnableEnabled) Disposition() Disposition            { return DispositionNone }
func (EnableResolutionRequired) Disposition() Disposition { return DispositionResolve }
func (EnableUnknownError) Disposition() Disposition       { return DispositionRetry }

// DisableResult is returned by Disable. The variants are DisableDisabled and
// DisableUnknownError.
type DisableResult interface {
	Result
	disableResult()
}

type DisableDisabled struct{}

type DisableUnknownError struct {
	Cause error
}

func (DisableDisabled) disableResult()     {}
func (DisableUnknownError) disableResult() {}

func (DisableDisabled) Outcome() string     { return OutcomeDisabled }
func (DisableUnknownError) Outcome() string { return OutcomeUnknownError }

func (DisableDisabled) Disposition() Disposition     { return DispositionNone }
func (DisableUnknownError) Disposition() Disposition { return DispositionRetry }

// KeyHistoryResult is returned by GetKeyHistory. The variants are
// KeyHistorySuccess, KeyHistoryRequireConsent and KeyHistoryUnknownError.
type KeyHistoryResult interface {
	Result
	keyHistoryResult()
}

// KeyHistorySuccess holds the keys exactly as the engine returned them.
type KeyHistorySuccess struct {
	Keys []engine.TemporaryExposureKey
}

// KeyHistoryRequireConsent carries the consent handle to present to the user.
type KeyHistoryRequireConsent struct {
	Handle engine.ResolutionHandle
}

type KeyHistoryUnknownError struct {
	Cause error
}

func (KeyHistorySuccess) keyHistoryResult()        {}
func (KeyHistoryRequireConsent) keyHistoryResult() {}
func (KeyHistoryUnknownError) keyHistoryResult()   {}

func (KeyHistorySuccess) Outcome() string        { return OutcomeSuccess }
func (KeyHistoryRequireConsent) Outcome() string { return OutcomeRequireConsent }
func (KeyHistoryUnknownError) Outcome() string   { return OutcomeUnknownError }

func (KeyHistorySuccess) Disposition() Disposition        { return DispositionNone }
func (KeyHistoryRequireConsent) Disposition() Disposition { return DispositionResolve }
func (KeyHistoryUnknownError) Disposition() Disposition   { return DispositionRetry }

// DiagnosisKeysResult is returned by ProvideDiagnosisKeys. The variants are
// DiagnosisKeysSuccess, DiagnosisKeysFailedDiskIO and DiagnosisKeysUnknownError.
type DiagnosisKeysResult interface {
	Result
	diagnosisKeysResult()
}

type DiagnosisKeysSuccess struct{}

// DiagnosisKeysFailedDiskIO means the engine could not read or store the key
// files. The files are left in place so the same request can be retried.
type DiagnosisKeysFailedDiskIO struct{}

// DiagnosisKeysUnknownError carries an unclassified failure. When Cause is a
// context error the caller stopped waiting while the engine call was still
// running: ownership of the files has not returned, and they are deleted if
// the engine later succeeds.
type DiagnosisKeysUnknownError struct {
	Cause error
}

// FilesReturned reports whether the caller owns the key files again.
func (e DiagnosisKeysUnknownError) FilesReturned() bool {
	return !errors.Is(e.Cause, context.Canceled) && !errors.Is(e.Cause, context.DeadlineExceeded)
}

func (DiagnosisKeysSuccess) diagnosisKeysResult()      {}
func (DiagnosisKeysFailedDiskIO) diagnosisKeysResult() {}
func (DiagnosisKeysUnknownError) diagnosisKeysResult() {}

func (DiagnosisKeysSuccess) Outcome() string      { return OutcomeSuccess }
func (DiagnosisKeysFailedDiskIO) Outcome() string { return OutcomeFailedDiskIO }
func (DiagnosisKeysUnknownError) Outcome() string { return OutcomeUnknownError }

func (DiagnosisKeysSuccess) Disposition() Disposition      { return DispositionNone }
func (DiagnosisKeysFailedDiskIO) Disposition() Disposition { return DispositionRetry }
func (DiagnosisKeysUnknownError) Disposition() Disposition { return DispositionRetry }

// CauseOf returns the failure carried by an unknown-error variant, or nil.
func CauseOf(r Result) error {
	switch v := r.(type) {
	case StatusUnknownError:
		return v.Cause
	case EnableUnknownError:
		return v.Cause
	case DisableUnknownError:
		return v.Cause
	case KeyHistoryUnknownError:
		return v.Cause
	case DiagnosisKeysUnknownError:
		return v.Cause
	default:
		return nil
	}
}

// HandleOf returns the resolution handle carried by a resolution variant.
func HandleOf(r Result) (engine.ResolutionHandle, bool) {
	switch v := r.(type) {
	case EnableResolutionRequired:
		return v.Handle, true
	case KeyHistoryRequireConsent:
		return v.Handle, true
	default:
		return nil, false
	}
}
