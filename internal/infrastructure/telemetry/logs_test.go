package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newExportCore(level zapcore.Level) (*exportCore, *observer.ObservedLogs) {
	inner, logs := observer.New(zapcore.DebugLevel)
	mask := make(map[string]struct{})
	for _, f := range ClientDataFields {
		mask[f] = struct{}{}
	}
	return &exportCore{Core: inner, minLevel: level, mask: mask}, logs
}

func TestExportCore_RedactsClientData(t *testing.T) {
	core, logs := newExportCore(zapcore.InfoLevel)
	log := zap.New(core)

	log.Info("Quote emailed",
		zap.Int64("quote_id", 12),
		zap.String("client_email", "marie.dupont@example.fr"),
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["client_email"])
	assert.Equal(t, int64(12), fields["quote_id"])
}

func TestExportCore_RedactsWithFields(t *testing.T) {
	core, logs := newExportCore(zapcore.InfoLevel)
	log := zap.New(core).With(zap.String("signer_ip", "192.0.2.1"))

	log.Info("Quote signed", zap.String("number", "DEV-2025-0003"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, redacted, fields["signer_ip"])
	assert.Equal(t, "DEV-2025-0003", fields["number"])
}

func TestExportCore_DropsBelowLevel(t *testing.T) {
	core, logs := newExportCore(zapcore.WarnLevel)
	log := zap.New(core)

	log.Info("Quote number allocated")
	log.Warn("Archive upload failed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Archive upload failed", logs.All()[0].Message)
}

func TestExportCore_LeavesCallerFieldsUntouched(t *testing.T) {
	core, _ := newExportCore(zapcore.InfoLevel)
	in := []zapcore.Field{zap.String("client_phone", "0601020304")}

	out := core.redact(in)

	assert.Equal(t, "0601020304", in[0].String)
	assert.Equal(t, redacted, out[0].String)
}

func TestNewZapOTELCore_DisabledIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.Enabled())
	assert.NoError(t, lp.Shutdown(context.Background()))

	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "btp-devis", LoggerProvider: lp})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}
