package telemetry

import (
	"context"
	"testing"

	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// useSpanRecorder installs a recording global tracer provider for one test
func useSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.5,
		ServiceName:       "fiscal-ledger",
		LogExportEnabled:  true,
	}, "")
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.True(t, cfg.LogExportEnabled)

	cfg = ConfigFrom(config.TelemetryConfig{LogExportEnabled: true}, "1.4.0")
	assert.False(t, cfg.LogExportEnabled, "log export requires telemetry")
	assert.Equal(t, "1.4.0", cfg.ServiceVersion)
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	providers, err := Setup(ctx, Config{ServiceName: "fiscal-ledger"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, providers.Tracer.IsEnabled())
	assert.False(t, providers.Meter.IsEnabled())
	assert.False(t, providers.Logs.IsEnabled())
	assert.NotNil(t, providers.Tracer.Tracer("test"))
	assert.NotNil(t, providers.Meter.Meter("test"))
	assert.Equal(t, zapcore.NewNopCore(), providers.Logs.ZapCore("fiscal", zapcore.InfoLevel))
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}

func TestTracingHelpers(t *testing.T) {
	recorder := useSpanRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "event", "handle")
	assert.NotEmpty(t, GetTraceID(ctx))
	RecordError(span, assert.AnError)
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "event.handle", ended[0].Name())
	assert.Equal(t, "Error", ended[0].Status().Code.String())
	assert.Len(t, ended[0].Events(), 1)

	assert.Empty(t, GetTraceID(context.Background()))
}
