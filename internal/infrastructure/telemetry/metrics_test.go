package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestCounterAndHistogram(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := NewMeterProviderWithReader(reader, zap.NewNop())
	defer mp.Shutdown(context.Background())
	meter := mp.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, "http_server_request_total", "requests", "{request}")
	require.NoError(t, err)
	counter.Inc(ctx, AttrHTTPMethod.String("GET"))
	counter.Inc(ctx, AttrHTTPMethod.String("GET"))

	hist, err := NewHistogram(meter, HistogramOpts{
		Name:       "http_server_request_duration_seconds",
		Unit:       "s",
		Boundaries: HTTPDurationBuckets,
	})
	require.NoError(t, err)
	hist.RecordDuration(ctx, 30*time.Millisecond, AttrHTTPRoute.String("/api/v1/fiscal/declarations"))

	data := collect(t, reader)
	sum, ok := data["http_server_request_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	h, ok := data["http_server_request_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, h.DataPoints, 1)
	assert.Equal(t, uint64(1), h.DataPoints[0].Count)
	assert.Equal(t, HTTPDurationBuckets, h.DataPoints[0].Bounds)
}
