package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	return trace.ContextWithSpanContext(t.Context(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
}

func TestTraceContextHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(newTraceContextHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(spanContext(t), "with span")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", record["trace_id"])
	require.Equal(t, "00f067aa0ba902b7", record["span_id"])

	buf.Reset()
	logger.InfoContext(t.Context(), "without span")
	require.NotContains(t, buf.String(), "trace_id")
}

// Instrument mutates process-wide state, so these tests do not run in parallel.
func TestInstrument(t *testing.T) {
	prevLogger := slog.Default()
	prevPropagator := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		slog.SetDefault(prevLogger)
		otel.SetTextMapPropagator(prevPropagator)
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		shutdown, err := Instrument(t.Context(), Options{Level: slog.LevelInfo, Format: "json", Output: &buf})
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, shutdown(context.Background())) })

		slog.DebugContext(t.Context(), "hidden")
		slog.InfoContext(spanContext(t), "shown")

		require.NotContains(t, buf.String(), "hidden")
		require.Contains(t, buf.String(), `"msg":"shown"`)
		require.Contains(t, buf.String(), `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)

		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(spanContext(t), carrier)
		require.NotEmpty(t, carrier.Get("traceparent"))
	})

	t.Run("stdout exporter", func(t *testing.T) {
		var console, exported bytes.Buffer
		shutdown, err := Instrument(t.Context(), Options{
			Level:          slog.LevelWarn,
			Format:         "text",
			Exporter:       ExporterStdout,
			Output:         &console,
			ExporterOutput: &exported,
		})
		require.NoError(t, err)

		logger := slog.Default().With("component", "test")
		logger.InfoContext(t.Context(), "detail")
		logger.WarnContext(t.Context(), "problem")
		require.NoError(t, shutdown(context.Background()))

		require.Contains(t, console.String(), "problem")
		require.Contains(t, console.String(), "component=test")
		require.NotContains(t, console.String(), "detail")

		require.Contains(t, exported.String(), "problem")
		require.Contains(t, exported.String(), "component")
		require.NotContains(t, exported.String(), "detail")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := Instrument(t.Context(), Options{Format: "xml"})
		require.ErrorContains(t, err, "unsupported log format")
	})

	t.Run("invalid exporter", func(t *testing.T) {
		_, err := Instrument(t.Context(), Options{Exporter: "zipkin"})
		require.ErrorContains(t, err, "unsupported log exporter")
	})
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	require.Less(t, severity(slog.LevelDebug), severity(slog.LevelInfo))
	require.Less(t, severity(slog.LevelInfo), severity(slog.LevelWarn))
	require.Less(t, severity(slog.LevelWarn), severity(slog.LevelError))
}
