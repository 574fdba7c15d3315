package exposure

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/exposure-bridge/internal/engine"
	"github.com/example/exposure-bridge/internal/keyfile"
	"github.com/example/exposure-bridge/internal/outcome"
)

const instrumentationName = "github.com/example/exposure-bridge/internal/exposure"

// Operation names one adapter operation in logs, spans and outcome events.
type Operation string

const (
	OpGetStatus            Operation = "get_status"
	OpEnable               Operation = "enable"
	OpDisable              Operation = "disable"
	OpGetKeyHistory        Operation = "get_key_history"
	OpProvideDiagnosisKeys Operation = "provide_diagnosis_keys"
	OpGetSummary           Operation = "get_summary"
)

// ErrMissingResolution is wrapped by the panic raised when the engine reports
// RESOLUTION_REQUIRED without a resolution handle.
var ErrMissingResolution = errors.New("exposure: resolution required without a resolution handle")

// Option modifies adapter behaviour.
type Option func(*Adapter)

// WithRefiner replaces the status code refiner used by GetStatus.
func WithRefiner(r *Refiner) Option {
	return func(a *Adapter) {
		if r != nil {
			a.refiner = r
		}
	}
}

// WithSink sends an outcome event for every completed call.
func WithSink(sink outcome.Sink) Option {
	return func(a *Adapter) {
		if sink != nil {
			a.sink = sink
		}
	}
}

// WithTracer overrides the tracer. Defaults to the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(a *Adapter) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithMeter overrides the meter. Defaults to the global meter provider.
func WithMeter(m metric.Meter) Option {
	return func(a *Adapter) {
		if m != nil {
			a.meter = m
		}
	}
}

// WithFileDeleteConcurrency bounds parallel key file deletion.
func WithFileDeleteConcurrency(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.deleteConcurrency = n
		}
	}
}

// WithClock overrides the clock used for event timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// Adapter turns the callback-based engine into blocking calls that return
// typed results. It holds no state between calls and never retries.
type Adapter struct {
	engine engine.Engine
	logger zerolog.Logger

	refiner           *Refiner
	sink              outcome.Sink
	tracer            trace.Tracer
	meter             metric.Meter
	outcomes          metric.Int64Counter
	deleteConcurrency int
	now               func() time.Time
}

// NewAdapter constructs an adapter over eng.
func NewAdapter(eng engine.Engine, logger zerolog.Logger, opts ...Option) (*Adapter, error) {
	if eng == nil {
		return nil, errors.New("exposure adapter: engine dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	a := &Adapter{
		engine:            eng,
		logger:            logger,
		refiner:           defaultRefiner,
		sink:              outcome.NopSink{},
		tracer:            otel.Tracer(instrumentationName),
		meter:             otel.Meter(instrumentationName),
		deleteConcurrency: keyfile.DefaultDeleteConcurrency,
		now:               time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	counter, err := a.meter.Int64Counter("exposure.outcomes",
		metric.WithDescription("Classified results of exposure engine calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("exposure adapter: create outcome counter: %w", err)
	}
	a.outcomes = counter
	return a, nil
}

// GetStatus reports whether exposure notifications are enabled. An
// API_NOT_CONNECTED failure yields StatusUnavailable with the refined code.
func (a *Adapter) GetStatus(ctx context.Context) StatusResult {
	c := a.begin(ctx, OpGetStatus)
	p := newPending(lateLogger[bool](c))
	a.engine.IsEnabled(p.callback(nil))

	var result StatusResult
	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		result = StatusUnknownError{Cause: err}
	case res.err != nil:
		c.fail(res.err)
		result = a.classifyStatus(c, res.err)
	case res.value:
		result = StatusEnabled{}
	default:
		result = StatusDisabled{}
	}
	c.finishResult(result)
	return result
}

func (a *Adapter) classifyStatus(c *call, err error) StatusResult {
	if code, ok := engine.CodeOf(err); ok && code == engine.APINotConnected {
		refined := a.refiner.Refine(err)
		c.refined = &refined
		return StatusUnavailable{Code: refined}
	}
	return StatusUnknownError{Cause: err}
}

// Enable starts exposure notifications.
//
// When the engine asks for a resolution the returned EnableResolutionRequired
// carries its handle. A RESOLUTION_REQUIRED failure without a handle breaks
// the engine contract and panics with an error wrapping ErrMissingResolution.
func (a *Adapter) Enable(ctx context.Context) EnableResult {
	c := a.begin(ctx, OpEnable)
	p := newPending(lateLogger[struct{}](c))
	a.engine.Start(p.callback(nil))

	var result EnableResult
	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		result = EnableUnknownError{Cause: err}
	case res.err != nil:
		c.fail(res.err)
		if pe, ok := engine.AsPlatformError(res.err); ok && pe.Code == engine.ResolutionRequired {
			result = EnableResolutionRequired{Handle: c.requireHandle(pe, res.err)}
		} else {
			result = EnableUnknownError{Cause: res.err}
		}
	default:
		result = EnableEnabled{}
	}
	c.finishResult(result)
	return result
}

// Disable stops exposure notifications. Every failure is unclassified.
func (a *Adapter) Disable(ctx context.Context) DisableResult {
	c := a.begin(ctx, OpDisable)
	p := newPending(lateLogger[struct{}](c))
	a.engine.Stop(p.callback(nil))

	var result DisableResult
	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		result = DisableUnknownError{Cause: err}
	case res.err != nil:
		c.fail(res.err)
		result = DisableUnknownError{Cause: res.err}
	default:
		result = DisableDisabled{}
	}
	c.finishResult(result)
	return result
}

// GetKeyHistory fetches this device's temporary exposure keys. The same
// missing-handle contract as Enable applies to KeyHistoryRequireConsent.
func (a *Adapter) GetKeyHistory(ctx context.Context) KeyHistoryResult {
	c := a.begin(ctx, OpGetKeyHistory)
	p := newPending(lateLogger[[]engine.TemporaryExposureKey](c))
	a.engine.TemporaryExposureKeyHistory(p.callback(nil))

	var result KeyHistoryResult
	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		result = KeyHistoryUnknownError{Cause: err}
	case res.err != nil:
		c.fail(res.err)
		if pe, ok := engine.AsPlatformError(res.err); ok && pe.Code == engine.ResolutionRequired {
			result = KeyHistoryRequireConsent{Handle: c.requireHandle(pe, res.err)}
		} else {
			result = KeyHistoryUnknownError{Cause: res.err}
		}
	default:
		result = KeyHistorySuccess{Keys: res.value}
	}
	c.finishResult(result)
	return result
}

// ProvideDiagnosisKeys submits key files for matching.
//
// The files belong to the adapter until the call completes. On success every
// file is deleted once, from the engine's completion, before the result is
// delivered; deletion failures are logged and ignored. On failure the files
// are left untouched for the caller to retry or clean up.
func (a *Adapter) ProvideDiagnosisKeys(ctx context.Context, files []keyfile.File, cfg engine.Configuration, token string) DiagnosisKeysResult {
	c := a.begin(ctx, OpProvideDiagnosisKeys)
	c.logger = c.logger.With().Int("files", len(files)).Str("token", token).Logger()
	p := newPending(lateLogger[struct{}](c))
	a.engine.ProvideDiagnosisKeys(files, cfg, token, p.callback(func(struct{}) {
		a.deleteFiles(c, files)
	}))

	var result DiagnosisKeysResult
	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		result = DiagnosisKeysUnknownError{Cause: err}
	case res.err != nil:
		c.fail(res.err)
		if code, ok := engine.CodeOf(res.err); ok && code == engine.FailedDiskIO {
			result = DiagnosisKeysFailedDiskIO{}
		} else {
			result = DiagnosisKeysUnknownError{Cause: res.err}
		}
	default:
		result = DiagnosisKeysSuccess{}
	}
	c.finishResult(result)
	return result
}

func (a *Adapter) deleteFiles(c *call, files []keyfile.File) {
	if err := keyfile.DeleteAll(files, a.deleteConcurrency); err != nil {
		c.logger.Warn().Err(err).Msg("failed to delete diagnosis key files")
		return
	}
	c.logger.Debug().Int("deleted", len(files)).Msg("diagnosis key files deleted")
}

// GetSummary fetches the exposure summary for token. Any failure yields nil:
// the only remedy at this call site is to retry or give up.
func (a *Adapter) GetSummary(ctx context.Context, token string) *engine.Summary {
	c := a.begin(ctx, OpGetSummary)
	c.logger = c.logger.With().Str("token", token).Logger()
	p := newPending(lateLogger[*engine.Summary](c))
	a.engine.GetExposureSummary(token, p.callback(nil))

	res, err := p.wait(ctx)
	switch {
	case err != nil:
		c.abandoned(err)
		c.finish(OutcomeNoSummary, DispositionRetry, err)
		return nil
	case res.err != nil:
		c.fail(res.err)
		c.finish(OutcomeNoSummary, DispositionRetry, res.err)
		return nil
	case res.value == nil:
		c.finish(OutcomeNoSummary, DispositionRetry, nil)
		return nil
	}
	c.finish(OutcomeSuccess, DispositionNone, nil)
	return res.value
}
