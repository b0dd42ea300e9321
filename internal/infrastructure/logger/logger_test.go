package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestNew_FileOutputAndTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devis.log")
	core, recorded := observer.New(zapcore.InfoLevel)

	l, err := New(&Config{Level: "info", Format: "json", Output: path}, core)
	require.NoError(t, err)
	l.Info("Quote created", zap.String("number", "DEV-2025-0001"))
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Quote created"`)
	assert.Contains(t, string(data), `"number":"DEV-2025-0001"`)
	assert.NotContains(t, string(data), "hidden")

	assert.Equal(t, 1, recorded.FilterMessage("Quote created").Len())
}

func TestNew_StaticFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devis.log")

	l, err := New(&Config{Level: "info", Format: "json", Output: path, Service: "btp-devis", Env: "production"})
	require.NoError(t, err)
	l.Info("Server starting")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"btp-devis"`)
	assert.Contains(t, string(data), `"env":"production"`)
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "devis.log")})
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))

	ctx, reqLogger := WithRequestID(context.Background(), base, "req-42")
	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Same(t, reqLogger, FromContext(ctx))

	ctx = WithQuoteNumber(ctx, "DEV-2025-0007")
	assert.Equal(t, "DEV-2025-0007", GetQuoteNumber(ctx))

	L(ctx).Info("rendered")
	entries := recorded.FilterMessage("rendered").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "DEV-2025-0007", fields["quote_number"])
	assert.NotContains(t, fields, "trace_id")
}

func TestL_AddsTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tp := trace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(WithContext(context.Background(), zap.New(core)), "op")
	defer span.End()

	L(ctx).Info("traced")
	entries := recorded.FilterMessage("traced").All()
	require.Len(t, entries, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0].ContextMap()["trace_id"])
	assert.Equal(t, GetTraceID(ctx), entries[0].ContextMap()["trace_id"])
}
