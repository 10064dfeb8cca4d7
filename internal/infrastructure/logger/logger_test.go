package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigs(t *testing.T) {
	assert.Equal(t, "console", DefaultConfig().Format)
	assert.Equal(t, "json", ProductionConfig().Format)
	assert.NotEmpty(t, ProductionConfig().TimeFormat)
}

func TestNew(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		l, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "accounting.log")
		l, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		l.Info("entry posted", zap.String("entry_number", "202403-0000000001"))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"entry_number":"202403-0000000001"`)
	})

	t.Run("unwritable file output fails", func(t *testing.T) {
		_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		assert.Error(t, err)
	})

	t.Run("tees into extra core", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "error", Output: "stderr"}, WithCore(core), WithCore(nil))
		require.NoError(t, err)

		l.Info("rule not found")
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "rule not found", recorded.All()[0].Message)
	})
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestFromContext(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	t.Run("enriches with request, organization and trace ids", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		}))
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithOrganizationID(ctx, "org-1")

		FromContext(ctx, base).Info("posted")

		entry := recorded.TakeAll()[0]
		fields := entry.ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "org-1", fields["organization_id"])
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
		assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	})

	t.Run("prefers the attached logger", func(t *testing.T) {
		ctx := WithContext(context.Background(), base.With(zap.String("component", "outbox")))
		FromContext(ctx, zap.NewNop()).Info("tick")

		entries := recorded.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "outbox", entries[0].ContextMap()["component"])
	})

	t.Run("nil base without attachment is a no-op logger", func(t *testing.T) {
		assert.NotPanics(t, func() { FromContext(context.Background(), nil).Info("ignored") })
	})
}

func TestSync_IgnoresTerminalErrors(t *testing.T) {
	l, err := New(&Config{Output: "stdout"})
	require.NoError(t, err)
	err = Sync(l)
	if err != nil {
		assert.False(t, strings.Contains(err.Error(), "inappropriate ioctl"))
	}
}
