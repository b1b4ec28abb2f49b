package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestWithBuildIDAndStage(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")
	ctx = WithStage(ctx, "render")

	lc := GetContext(ctx)
	assert.Equal(t, "build-123", lc.BuildID)
	assert.Equal(t, "render", lc.Stage)

	parent := WithBuildID(context.Background(), "build-123")
	_ = WithStage(parent, "inject")
	assert.Empty(t, GetContext(parent).Stage)
}

func TestAttrsEmpty(t *testing.T) {
	assert.Empty(t, Attrs(context.Background()))
}

func TestLoggerCarriesTraceID(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithBuildID(ctx, "b-9")

	var buf bytes.Buffer
	Logger(ctx, slog.New(slog.NewJSONHandler(&buf, nil))).Info("Stage complete")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "b-9", rec["build_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.NotContains(t, rec, "stage")
}
