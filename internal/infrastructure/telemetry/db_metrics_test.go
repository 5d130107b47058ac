package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&widget{}))
	return db
}

func TestDBMetrics_RecordsQueries(t *testing.T) {
	reader, provider := newTestMeter(t)
	db := openTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := NewDBMetrics(provider.Meter("db"), sqlDB, DBMetricsConfig{Enabled: true, SlowQueryThreshold: time.Hour}, nil)
	require.NoError(t, err)
	defer func() { _ = m.Stop() }()
	require.NoError(t, m.RegisterCallbacks(db))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "a"}).Error)
	require.NoError(t, db.WithContext(ctx).Create(&widget{Name: "b"}).Error)
	var got []widget
	require.NoError(t, db.WithContext(ctx).Find(&got).Error)
	require.Len(t, got, 2)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumFor(t, data["db_query_total"],
		attribute.String("operation", "create"), attribute.String("table", "widgets"), attribute.String("outcome", "success")))
	assert.Equal(t, int64(1), sumFor(t, data["db_query_total"],
		attribute.String("operation", "query"), attribute.String("table", "widgets"), attribute.String("outcome", "success")))
	_, hasSlow := data["db_slow_query_total"]
	assert.False(t, hasSlow)

	assert.Equal(t, int64(1), gaugeValue(t, data["db_pool_connections_max"]))
	_, ok := data["db_query_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestDBMetrics_Disabled(t *testing.T) {
	reader, provider := newTestMeter(t)
	db := openTestDB(t)

	m, err := NewDBMetrics(provider.Meter("db"), nil, DBMetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterCallbacks(db))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	_, recorded := collect(t, reader)["db_query_total"]
	assert.False(t, recorded)
	assert.NoError(t, m.Stop())
}
