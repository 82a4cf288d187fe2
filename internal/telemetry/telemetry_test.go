package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopLogger_NeverPanics(t *testing.T) {
	ctx := context.Background()
	l := NewNoopLogger()
	assert.NotPanics(t, func() {
		l.Debug(ctx, "debug", "k", "v")
		l.Info(ctx, "info")
		l.Warn(ctx, "warn", "k", 1)
		l.Error(ctx, "error", "err", errors.New("boom"))
	})
}

func TestNoopMetrics_NeverPanics(t *testing.T) {
	m := NewNoopMetrics()
	assert.NotPanics(t, func() {
		m.IncCounter("c", 1, "tag", "v")
		m.RecordTimer("t", time.Second)
		m.RecordGauge("g", 3.2)
	})
}

func TestNoopTracer_ReturnsUsableSpan(t *testing.T) {
	ctx := context.Background()
	tr := NewNoopTracer()
	newCtx, span := tr.Start(ctx, "op")
	assert.Equal(t, ctx, newCtx)
	assert.NotPanics(t, func() {
		span.AddEvent("ev")
		span.RecordError(errors.New("boom"))
		span.End()
	})
	assert.NotNil(t, tr.Span(ctx))
}
