package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewError(t *testing.T) {
	assert := require.New(t)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")

	cause := errors.New("permission denied")
	err := NewError(span, "failed to upload %s: %w", "a.txt", cause)
	span.End()

	assert.EqualError(err, "failed to upload a.txt: permission denied")
	assert.ErrorIs(err, cause)

	spans := recorder.Ended()
	assert.Len(spans, 1)
	assert.Equal(codes.Error, spans[0].Status().Code)
	assert.Len(spans[0].Events(), 1)
}

func TestNewErrorNilSpan(t *testing.T) {
	cause := errors.New("boom")

	err := NewError(nil, "failed: %w", cause)
	require.ErrorIs(t, err, cause)
	require.ErrorContains(t, err, "span is nil")
}

func TestNewProviderNoop(t *testing.T) {
	ctx := context.Background()

	tp, err := NewProvider(ctx, "noop", "github.com/buildkite/gcstool", "test")
	require.NoError(t, err)
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	_, span := Start(ctx, "op")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
