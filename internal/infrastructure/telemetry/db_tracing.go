package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans
	SlowQueryThresh time.Duration // queries slower than this are flagged on the span
	DBSystem        string
}

// DefaultDBTracingConfig returns tracing disabled with a 200ms slow threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type startTimeKey struct{ name string }

var tracingStartKey = startTimeKey{"db_tracing"}

// gormOps lists the gorm callback processors and their core callback names
var gormOps = []struct {
	op   string
	core string
}{
	{"create", "gorm:create"},
	{"query", "gorm:query"},
	{"update", "gorm:update"},
	{"delete", "gorm:delete"},
	{"row", "gorm:row"},
	{"raw", "gorm:raw"},
}

// RegisterOtelGorm installs otelgorm and a callback that flags slow queries
// and marks failed statements on the active span.
func RegisterOtelGorm(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = DefaultDBTracingConfig().DBSystem
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) { markStart(tx, tracingStartKey) }
	after := func(tx *gorm.DB) { annotateSpan(tx, cfg.SlowQueryThresh) }
	if err := registerAround(db, "otel_slow_query", before, after); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markStart(db *gorm.DB, key startTimeKey) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, key, time.Now())
}

func elapsedSince(db *gorm.DB, key startTimeKey) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(key).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

func annotateSpan(db *gorm.DB, slow time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
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
	if elapsed, ok := elapsedSince(db, tracingStartKey); ok && elapsed > slow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", slow.Milliseconds()),
		))
	}
}

// registerAround registers before and after callbacks named prefix:before_<op>
// and prefix:after_<op> around every core gorm callback.
func registerAround(db *gorm.DB, prefix string, before, after func(*gorm.DB)) error {
	for _, o := range gormOps {
		if err := registerOne(db, prefix, o.op, o.core, before, after); err != nil {
			return err
		}
	}
	return nil
}

func registerOne(db *gorm.DB, prefix, op, core string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	beforeName, afterName := prefix+":before_"+op, prefix+":after_"+op
	var err error
	switch op {
	case "create":
		if err = cb.Create().Before(core).Register(beforeName, before); err == nil {
			err = cb.Create().After(core).Register(afterName, after)
		}
	case "query":
		if err = cb.Query().Before(core).Register(beforeName, before); err == nil {
			err = cb.Query().After(core).Register(afterName, after)
		}
	case "update":
		if err = cb.Update().Before(core).Register(beforeName, before); err == nil {
			err = cb.Update().After(core).Register(afterName, after)
		}
	case "delete":
		if err = cb.Delete().Before(core).Register(beforeName, before); err == nil {
			err = cb.Delete().After(core).Register(afterName, after)
		}
	case "row":
		if err = cb.Row().Before(core).Register(beforeName, before); err == nil {
			err = cb.Row().After(core).Register(afterName, after)
		}
	case "raw":
		if err = cb.Raw().Before(core).Register(beforeName, before); err == nil {
			err = cb.Raw().After(core).Register(afterName, after)
		}
	}
	return err
}
