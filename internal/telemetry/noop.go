package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// discard backs all three no-op constructors below. It carries no state, so
// one empty type can satisfy Logger, Metrics, and Tracer at once instead of
// three separate structs — there is nothing for any of them to remember.
type discard struct{}

// NewNoopLogger constructs a Logger that discards all log messages.
// Use this for testing or when logging is not required.
func NewNoopLogger() Logger { return discard{} }

// NewNoopMetrics constructs a Metrics recorder that discards all metrics.
// Use this for testing or when metrics are not required.
func NewNoopMetrics() Metrics { return discard{} }

// NewNoopTracer constructs a Tracer that creates no-op spans.
// Use this for testing or when tracing is not required.
func NewNoopTracer() Tracer { return discard{} }

func (discard) Debug(context.Context, string, ...any) {}
func (discard) Info(context.Context, string, ...any)  {}
func (discard) Warn(context.Context, string, ...any)  {}
func (discard) Error(context.Context, string, ...any) {}

func (discard) IncCounter(string, float64, ...string)        {}
func (discard) RecordTimer(string, time.Duration, ...string) {}
func (discard) RecordGauge(string, float64, ...string)       {}

// Start hands back the same context and a span that absorbs every call
// silently — there's no provider underneath to attach the span to.
func (discard) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, Span) {
	return ctx, inertSpan
}

func (discard) Span(context.Context) Span { return inertSpan }

// inertSpan is the single Span value every discard tracer hands out; since
// it holds no state, one package-level instance covers every call site.
var inertSpan Span = voidSpan{}

type voidSpan struct{}

func (voidSpan) End(...trace.SpanEndOption)              {}
func (voidSpan) AddEvent(string, ...any)                 {}
func (voidSpan) SetStatus(codes.Code, string)            {}
func (voidSpan) RecordError(error, ...trace.EventOption) {}
