package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

var metricsStartKey = startTimeKey{"db_metrics"}

// DBMetrics records query counts and durations via gorm callbacks and
// reports connection pool stats through observable gauges.
type DBMetrics struct {
	queryTotal     metric.Int64Counter
	queryDuration  metric.Float64Histogram
	slowQueryTotal metric.Int64Counter
	registration   metric.Registration
	config         DBMetricsConfig
	logger         *zap.Logger
}

// NewDBMetrics creates the instruments and registers pool gauges for sqlDB.
// sqlDB may be nil, in which case no pool stats are reported.
func NewDBMetrics(meter metric.Meter, sqlDB *sql.DB, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBMetricsConfig().SlowQueryThreshold
	}

	queryTotal, err := meter.Int64Counter("db_query_total",
		metric.WithDescription("Total database queries by operation and outcome"),
		metric.WithUnit("{query}"))
	if err != nil {
		return nil, err
	}
	queryDuration, err := meter.Float64Histogram("db_query_duration_seconds",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...))
	if err != nil {
		return nil, err
	}
	slowQueryTotal, err := meter.Int64Counter("db_slow_query_total",
		metric.WithDescription("Queries slower than the configured threshold"),
		metric.WithUnit("{query}"))
	if err != nil {
		return nil, err
	}

	m := &DBMetrics{
		queryTotal:     queryTotal,
		queryDuration:  queryDuration,
		slowQueryTotal: slowQueryTotal,
		config:         cfg,
		logger:         logger,
	}
	if sqlDB != nil {
		if err := m.observePool(meter, sqlDB); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *DBMetrics) observePool(meter metric.Meter, sqlDB *sql.DB) error {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(attribute.String("state", "in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, maxConns, waits)
	return err
}

// RegisterCallbacks hooks the query instruments into db
func (m *DBMetrics) RegisterCallbacks(db *gorm.DB) error {
	if !m.config.Enabled {
		return nil
	}
	for _, o := range gormOps {
		op := o.op
		before := func(tx *gorm.DB) { markStart(tx, metricsStartKey) }
		after := func(tx *gorm.DB) { m.record(tx, op) }
		if err := registerOne(db, "db_metrics", op, o.core, before, after); err != nil {
			return err
		}
	}
	m.logger.Info("Database metrics enabled", zap.Duration("slow_query_threshold", m.config.SlowQueryThreshold))
	return nil
}

func (m *DBMetrics) record(db *gorm.DB, op string) {
	elapsed, ok := elapsedSince(db, metricsStartKey)
	if !ok {
		return
	}
	ctx := db.Statement.Context
	outcome := "success"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		outcome = "error"
	}
	opAttr := attribute.String("operation", op)
	tableAttr := attribute.String("table", db.Statement.Table)
	attrs := metric.WithAttributes(opAttr, tableAttr)
	m.queryTotal.Add(ctx, 1, metric.WithAttributes(opAttr, tableAttr, attribute.String("outcome", outcome)))
	m.queryDuration.Record(ctx, elapsed.Seconds(), attrs)
	if elapsed > m.config.SlowQueryThreshold {
		m.slowQueryTotal.Add(ctx, 1, attrs)
	}
}

// Stop unregisters the pool gauges
func (m *DBMetrics) Stop() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
