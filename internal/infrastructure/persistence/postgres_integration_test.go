//go:build integration

package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/migration"
	"github.com/larder/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupPostgres starts a container, applies the embedded migrations and
// returns a gorm handle. Run with: go test -tags integration ./...
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("larder_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	status, err := migration.StatusOf(m, migrations.FS)
	require.NoError(t, err)
	assert.Empty(t, status.Pending)
	assert.False(t, status.Dirty)
	return db
}

func TestPostgres_LedgerRoundTrip(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	scope := NewGormTransactionScope(db)
	kitchen := uuid.New()

	var itemID uuid.UUID
	err := scope.Execute(ctx, func(repos inventory.Repositories) error {
		item, err := inventory.NewInventoryItem(ctx, repos.Items, inventory.NewItemParams{
			SKU:              "FLOUR-01",
			Name:             "Flour",
			Category:         "Dry Goods",
			Unit:             "kg",
			ReorderThreshold: dec("5"),
			MaxStockLevel:    dec("20"),
			LeadTimeDays:     3,
			TrackExpiration:  true,
			CostingMethod:    inventory.CostingMethodFIFO,
		}, testNow)
		if err != nil {
			return err
		}
		itemID = item.ID
		if err := repos.Items.Save(ctx, item); err != nil {
			return err
		}
		level := inventory.NewStockLevel(inventory.NewStockKey(item.ID, kitchen), testNow)
		level.CurrentQuantity = dec("12.5")
		level.IncrementVersion()
		return repos.Levels.Save(ctx, level)
	})
	require.NoError(t, err)

	repos := NewGormRepositories(db)
	found, err := repos.Items.FindBySku(ctx, "flour-01")
	require.NoError(t, err)
	assert.Equal(t, itemID, found.ID)

	level, err := repos.Levels.Find(ctx, inventory.NewStockKey(itemID, kitchen))
	require.NoError(t, err)
	assert.True(t, level.CurrentQuantity.Equal(dec("12.5")))

	t.Run("failed scope rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos inventory.Repositories) error {
			lvl, err := repos.Levels.Find(ctx, inventory.NewStockKey(itemID, kitchen))
			if err != nil {
				return err
			}
			lvl.CurrentQuantity = dec("0")
			lvl.IncrementVersion()
			if err := repos.Levels.Save(ctx, lvl); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		again, err := repos.Levels.Find(ctx, inventory.NewStockKey(itemID, kitchen))
		require.NoError(t, err)
		assert.True(t, again.CurrentQuantity.Equal(dec("12.5")))
		assert.Equal(t, level.Version, again.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		fresh, err := repos.Levels.Find(ctx, inventory.NewStockKey(itemID, kitchen))
		require.NoError(t, err)
		stale := *fresh

		fresh.CurrentQuantity = dec("10")
		fresh.IncrementVersion()
		require.NoError(t, repos.Levels.Save(ctx, fresh))

		stale.CurrentQuantity = dec("1")
		stale.IncrementVersion()
		assert.ErrorIs(t, repos.Levels.Save(ctx, &stale), shared.ErrConcurrencyConflict)
	})

	t.Run("migrations roll back cleanly", func(t *testing.T) {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, m.Down())
		version, _, err := m.Version()
		require.NoError(t, err)
		assert.Zero(t, version)
	})
}
