package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	assert.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	assert.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("stored")
	assert.Equal(t, 1, logs.FilterMessage("stored").Len())

	// Missing logger yields a usable no-op.
	assert.NotPanics(t, func() { FromContext(context.Background()).Info("dropped") })
	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())

	// Wrong value type under the key is ignored.
	bad := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(bad))
}

func TestFromContextOr(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fallback := zap.New(core)

	FromContextOr(context.Background(), fallback).Info("fallback used")
	assert.Equal(t, 1, logs.FilterMessage("fallback used").Len())

	stored := zap.NewNop()
	ctx := WithContext(context.Background(), stored)
	assert.Same(t, stored, FromContextOr(ctx, fallback))
}

func TestWithRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-123")
	assert.Same(t, l, FromContext(ctx))

	l.Info("hello")
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithWebhookID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-1")
	ctx, l = WithWebhookID(ctx, l, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043")
	assert.Same(t, l, FromContext(ctx))

	FromContext(ctx).Info("chained")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043", fields["webhook_id"])
}

func TestWithTraceContext(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithTraceContext(context.Background(), base))

	core, logs := observer.New(zapcore.InfoLevel)
	WithTraceContext(spanContext(t), zap.New(core)).Info("traced")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestContextLogger(t *testing.T) {
	t.Run("adds trace ids at every level", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		cl := WithLogger(spanContext(t), zap.New(core))

		cl.Debug("d")
		cl.Info("i")
		cl.Warn("w")
		cl.Error("e")

		assert.Equal(t, 4, logs.Len())
		for _, entry := range logs.All() {
			assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry.ContextMap()["trace_id"])
		}
	})

	t.Run("WithLogger overrides stored logger", func(t *testing.T) {
		storedCore, stored := observer.New(zapcore.InfoLevel)
		ownCore, own := observer.New(zapcore.InfoLevel)
		ctx := WithContext(context.Background(), zap.New(storedCore))

		WithLogger(ctx, zap.New(ownCore)).Info("mine")

		assert.Equal(t, 0, stored.Len())
		assert.Equal(t, 1, own.Len())
	})

	t.Run("With chains fields", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		cl := WithLogger(context.Background(), zap.New(core)).
			With(zap.Int64("order_id", 7)).
			With(zap.String("stage", "activation"))

		cl.Info("chained")

		fields := logs.All()[0].ContextMap()
		assert.EqualValues(t, 7, fields["order_id"])
		assert.Equal(t, "activation", fields["stage"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		cl := WithLogger(context.Background(), nil)
		assert.NotPanics(t, func() {
			cl.Info("x")
			cl.With(zap.String("k", "v")).Warn("y")
			cl.Debug("z")
		})
	})
}
