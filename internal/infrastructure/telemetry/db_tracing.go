package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig configures the gorm tracing plugin.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound variables in db.statement
	SlowQueryThresh time.Duration // default 200ms
	DBName          string
}

// DefaultDBTracingConfig returns the default database tracing configuration.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "accounting",
	}
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db and marks spans of queries slower
// than the threshold with db.slow_query.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := slowQueryCallback(cfg.SlowQueryThresh)

	cb := db.Callback()
	steps := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("accounting_timing:before_create", before) },
		func() error { return cb.Query().Before("gorm:query").Register("accounting_timing:before_query", before) },
		func() error { return cb.Update().Before("gorm:update").Register("accounting_timing:before_update", before) },
		func() error { return cb.Delete().Before("gorm:delete").Register("accounting_timing:before_delete", before) },
		func() error { return cb.Row().Before("gorm:row").Register("accounting_timing:before_row", before) },
		func() error { return cb.Raw().Before("gorm:raw").Register("accounting_timing:before_raw", before) },
		func() error { return cb.Create().After("gorm:create").Register("accounting_timing:after_create", after) },
		func() error { return cb.Query().After("gorm:query").Register("accounting_timing:after_query", after) },
		func() error { return cb.Update().After("gorm:update").Register("accounting_timing:after_update", after) },
		func() error { return cb.Delete().After("gorm:delete").Register("accounting_timing:after_delete", after) },
		func() error { return cb.Row().After("gorm:row").Register("accounting_timing:after_row", after) },
		func() error { return cb.Raw().After("gorm:raw").Register("accounting_timing:after_raw", after) },
	}
	for _, register := range steps {
		if err := register(); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		ctx := tx.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if tx.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
		}
		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			RecordError(span, tx.Error)
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
