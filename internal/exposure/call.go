package exposure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/exposure-bridge/internal/engine"
	"github.com/example/exposure-bridge/internal/outcome"
)

var (
	attrOperation   = attribute.Key("exposure.operation")
	attrOutcome     = attribute.Key("exposure.outcome")
	attrCallID      = attribute.Key("exposure.call_id")
	attrStatusCode  = attribute.Key("exposure.status_code")
	attrRefinedCode = attribute.Key("exposure.refined_code")
)

// call tracks one adapter operation from dispatch to classification.
type call struct {
	a       *Adapter
	ctx     context.Context
	op      Operation
	id      string
	span    trace.Span
	logger  zerolog.Logger
	started time.Time

	status  *engine.StatusCode
	refined *engine.StatusCode
}

func (a *Adapter) begin(ctx context.Context, op Operation) *call {
	id := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, "exposure."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrOperation.String(string(op)), attrCallID.String(id)),
	)
	return &call{
		a:       a,
		ctx:     ctx,
		op:      op,
		id:      id,
		span:    span,
		logger:  a.logger.With().Str("operation", string(op)).Str("call_id", id).Logger(),
		started: a.now(),
	}
}

// fail logs an engine failure before it is classified.
func (c *call) fail(err error) {
	ev := c.logger.Warn().Err(err)
	if code, ok := engine.CodeOf(err); ok {
		c.status = &code
		ev = ev.Int("status_code", int(code)).Str("status", code.String())
	}
	ev.Msg("exposure engine call failed")
	c.span.RecordError(err)
}

func (c *call) abandoned(err error) {
	c.logger.Warn().Err(err).Msg("stopped waiting for exposure engine")
	c.span.RecordError(err)
}

// requireHandle returns the resolution handle of pe or panics.
func (c *call) requireHandle(pe *engine.PlatformError, cause error) engine.ResolutionHandle {
	if pe.Resolution != nil {
		return pe.Resolution
	}
	err := fmt.Errorf("%w: %s: %w", ErrMissingResolution, c.op, cause)
	c.logger.Error().Err(err).Msg("exposure engine broke the resolution contract")
	c.span.RecordError(err)
	c.span.SetStatus(otelcodes.Error, err.Error())
	c.span.End()
	panic(err)
}

func (c *call) finishResult(r Result) {
	c.finish(r.Outcome(), r.Disposition(), CauseOf(r))
}

// finish closes the span, counts the outcome and emits the outcome event.
// Sink failures are logged and never change the result.
func (c *call) finish(label string, disposition Disposition, cause error) {
	elapsed := c.a.now().Sub(c.started)

	attrs := []attribute.KeyValue{attrOutcome.String(label)}
	if c.status != nil {
		attrs = append(attrs, attrStatusCode.Int(int(*c.status)))
	}
	if c.refined != nil {
		attrs = append(attrs, attrRefinedCode.Int(int(*c.refined)))
	}
	c.span.SetAttributes(attrs...)
	switch {
	case cause != nil:
		c.span.SetStatus(otelcodes.Error, cause.Error())
	case disposition != DispositionNone:
		c.span.SetStatus(otelcodes.Error, label)
	default:
		c.span.SetStatus(otelcodes.Ok, "")
	}
	c.span.End()

	ctx := context.WithoutCancel(c.ctx)
	c.a.outcomes.Add(ctx, 1, metric.WithAttributes(
		attrOperation.String(string(c.op)),
		attrOutcome.String(label),
	))

	event := outcome.Event{
		ID:          uuid.NewString(),
		CallID:      c.id,
		Operation:   string(c.op),
		Outcome:     label,
		Disposition: disposition.String(),
		DurationMs:  elapsed.Milliseconds(),
		Timestamp:   c.started.UTC(),
	}
	if c.status != nil {
		event.StatusCode = outcome.IntPtr(int(*c.status))
	}
	if c.refined != nil {
		event.RefinedCode = outcome.IntPtr(int(*c.refined))
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := c.a.sink.Record(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("outcome", label).Msg("failed to record outcome event")
	}

	c.logger.Debug().
		Str("outcome", label).
		Str("disposition", disposition.String()).
		Dur("elapsed", elapsed).
		Msg("exposure call classified")
}

// lateLogger reports completions that arrive after the first one.
func lateLogger[T any](c *call) func(completion[T]) {
	return func(late completion[T]) {
		ev := c.logger.Debug().Bool("failure", late.err != nil)
		if late.err != nil {
			ev = ev.AnErr("late_error", late.err)
		}
		ev.Msg("ignoring repeated engine completion")
	}
}
