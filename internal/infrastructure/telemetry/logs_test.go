package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type memoryExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.records))
	for i, r := range e.records {
		out[i] = r.Body().AsString()
	}
	return out
}

func TestLoggerProvider_ZapCore(t *testing.T) {
	exporter := &memoryExporter{}
	lp := NewLoggerProviderWithProcessor(sdklog.NewSimpleProcessor(exporter), zap.NewNop())
	defer lp.Shutdown(context.Background())
	require.True(t, lp.IsEnabled())

	logger := zap.New(lp.ZapCore("fiscal", zapcore.InfoLevel)).With(zap.String("tenant_id", "t1"))
	logger.Debug("dropped below the minimum level")
	logger.Info("sales book synced")
	logger.Error("declaration filing failed")

	assert.Equal(t, []string{"sales book synced", "declaration filing failed"}, exporter.bodies())
}

func TestLevelFilterCore(t *testing.T) {
	core := &levelFilterCore{Core: zapcore.NewNopCore(), minLevel: zapcore.WarnLevel}
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	withFields := core.With([]zapcore.Field{zap.String("k", "v")})
	assert.Equal(t, zapcore.WarnLevel, withFields.(*levelFilterCore).minLevel)
}
