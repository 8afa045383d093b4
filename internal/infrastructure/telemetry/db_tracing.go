package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/fiscal/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	LogFullSQL      bool          // include bound variables in spans
	SlowQueryThresh time.Duration // queries above this are flagged on their span
	DBName          string
}

// DBTracingConfigFrom maps the telemetry and database sections
func DBTracingConfigFrom(tel config.TelemetryConfig, db config.DatabaseConfig) DBTracingConfig {
	return DBTracingConfig{
		LogFullSQL:      tel.DBLogFullSQL,
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          db.DBName,
	}
}

// DBTracingPlugin is a gorm.Plugin that installs otelgorm and annotates its
// spans with table, row count and slow query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
}

// NewDBTracingPlugin creates the plugin
func NewDBTracingPlugin(cfg DBTracingConfig) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg}
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "fiscal:db_tracing"
}

// Initialize implements gorm.Plugin
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBName)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("db_timing:before_create", markStart),
		cb.Query().Before("gorm:query").Register("db_timing:before_query", markStart),
		cb.Update().Before("gorm:update").Register("db_timing:before_update", markStart),
		cb.Delete().Before("gorm:delete").Register("db_timing:before_delete", markStart),
		cb.Row().Before("gorm:row").Register("db_timing:before_row", markStart),
		cb.Raw().Before("gorm:raw").Register("db_timing:before_raw", markStart),
		cb.Create().After("gorm:create").Register("db_timing:after_create", p.annotate),
		cb.Query().After("gorm:query").Register("db_timing:after_query", p.annotate),
		cb.Update().After("gorm:update").Register("db_timing:after_update", p.annotate),
		cb.Delete().After("gorm:delete").Register("db_timing:after_delete", p.annotate),
		cb.Row().After("gorm:row").Register("db_timing:after_row", p.annotate),
		cb.Raw().After("gorm:raw").Register("db_timing:after_raw", p.annotate),
	)
}

type contextKey string

const queryStartTimeKey contextKey = "db_query_start_time"

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) annotate(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)
