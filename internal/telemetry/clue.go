package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
)

// ClueLogger delegates to goa.design/clue/log. It carries no state of its
// own: formatting and debug level are read off the context clue.Context
// installs, so every call site just needs one shared zero-value instance.
type ClueLogger struct{}

// NewClueLogger constructs a Logger backed by goa.design/clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	log.Debug(ctx, fields(msg, keyvals)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	log.Info(ctx, fields(msg, keyvals)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	log.Warn(ctx, fields(msg, append(keyvals, "severity", "warning"))...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	log.Error(ctx, nil, fields(msg, keyvals)...)
}

// fields renders a message plus k1, v1, k2, v2, ... pairs as clue Fielders.
// A dangling final key is paired with nil rather than dropped — a caller
// that forgot a value still gets to see the key in the log line.
func fields(msg string, keyvals []any) []log.Fielder {
	out := make([]log.Fielder, 0, len(keyvals)/2+1)
	out = append(out, log.KV{K: "msg", V: msg})
	for i := 0; i < len(keyvals); i += 2 {
		k, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var v any
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		out = append(out, log.KV{K: k, V: v})
	}
	return out
}

// instrumentKind selects which OTEL instrument backs a ClueMetrics call.
// OTEL's synchronous API has no gauge, so RecordGauge rides a histogram
// under a distinct instrument name — kindGauge exists to keep that choice
// in one place rather than repeated per call site.
type instrumentKind int

const (
	kindCounter instrumentKind = iota
	kindTimer
	kindGauge
)

// ClueMetrics records runtime instrumentation through the global OTEL
// MeterProvider. ConfigureOpenTelemetry installs only a TracerProvider, so
// unless a MeterProvider is installed elsewhere, OTEL's default no-op meter
// receives the recordings.
type ClueMetrics struct {
	meter metric.Meter
}

// NewClueMetrics constructs a Metrics recorder bound to the named meter.
func NewClueMetrics() Metrics {
	return &ClueMetrics{meter: otel.Meter("docuqa-agent")}
}

func (m *ClueMetrics) IncCounter(name string, value float64, tags ...string) {
	m.record(kindCounter, name, value, tags)
}

func (m *ClueMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	m.record(kindTimer, name, duration.Seconds(), tags)
}

func (m *ClueMetrics) RecordGauge(name string, value float64, tags ...string) {
	m.record(kindGauge, name, value, tags)
}

func (m *ClueMetrics) record(kind instrumentKind, name string, value float64, tags []string) {
	instrumentName := name
	if kind == kindGauge {
		instrumentName = name + "_gauge"
	}
	if kind == kindCounter {
		counter, err := m.meter.Float64Counter(instrumentName)
		if err != nil {
			return
		}
		counter.Add(context.Background(), value, metric.WithAttributes(tagPairs(tags)...))
		return
	}
	histogram, err := m.meter.Float64Histogram(instrumentName)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), value, metric.WithAttributes(tagPairs(tags)...))
}

// tagPairs turns k1, v1, k2, v2, ... metric dimension tags into attributes.
// An odd tag out is paired with "" rather than discarded.
func tagPairs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		v := ""
		if i+1 < len(tags) {
			v = tags[i+1]
		}
		attrs = append(attrs, attribute.String(tags[i], v))
	}
	return attrs
}

// ClueTracer starts spans through the global OTEL TracerProvider (configure
// it via ConfigureOpenTelemetry before use).
type ClueTracer struct {
	tracer trace.Tracer
}

// NewClueTracer constructs a Tracer bound to the named tracer.
func NewClueTracer() Tracer {
	return &ClueTracer{tracer: otel.Tracer("docuqa-agent")}
}

func (t *ClueTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, clueSpan{span}
}

func (t *ClueTracer) Span(ctx context.Context) Span {
	return clueSpan{trace.SpanFromContext(ctx)}
}

// clueSpan adapts an OTEL span to the Span interface. It's a plain value
// type (not a pointer) since trace.Span is already a reference handle.
type clueSpan struct {
	span trace.Span
}

func (s clueSpan) End(opts ...trace.SpanEndOption) {
	s.span.End(opts...)
}

func (s clueSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s clueSpan) RecordError(err error, opts ...trace.EventOption) {
	s.span.RecordError(err, opts...)
}

// AddEvent attaches a named event to the span. attrs follows the same
// k1, v1, k2, v2, ... convention as Logger and is typed per value so ints,
// floats, and bools keep their native attribute kind instead of collapsing
// to strings.
func (s clueSpan) AddEvent(name string, attrs ...any) {
	s.span.AddEvent(name, trace.WithAttributes(eventAttrs(attrs)...))
}

func eventAttrs(keyvals []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		var val any
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		out = append(out, attributeOf(key, val))
	}
	return out
}

func attributeOf(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, "")
	}
}
