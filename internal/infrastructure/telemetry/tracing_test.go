package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartServiceSpan(t *testing.T) {
	recorder := setupTestTracer(t)

	ctx, span := StartServiceSpan(context.Background(), "accounting_integration", "on_payment_completed",
		SpanAttrSourceID, "abc", SpanAttrEntriesPosted, 2)
	assert.NotEmpty(t, GetTraceID(ctx))
	assert.NotEmpty(t, GetSpanID(ctx))
	SetAttributes(span, SpanAttrEntriesSkipped, 1, "ignored-odd-key")
	AddEvent(span, "entry_posted", SpanAttrEntryNumber, "202407-0000000001")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "accounting_integration.on_payment_completed", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "abc", attrs[SpanAttrSourceID])
	assert.Equal(t, "2", attrs[SpanAttrEntriesPosted])
	assert.Equal(t, "1", attrs[SpanAttrEntriesSkipped])
	require.Len(t, spans[0].Events(), 1)
}

func TestRecordError(t *testing.T) {
	recorder := setupTestTracer(t)

	_, span := StartSpan(context.Background(), "journal_entry.post")
	RecordError(span, errors.New("journal unbalanced"))
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "journal unbalanced", spans[0].Status().Description)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))
}
