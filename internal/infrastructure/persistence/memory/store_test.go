package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestStockLevelRepository_Versioning(t *testing.T) {
	ctx := context.Background()
	repo := NewStockLevelRepository()
	key := inventory.NewStockKey(uuid.New(), uuid.New())

	level := inventory.NewStockLevel(key, now)
	assert.ErrorIs(t, repo.Save(ctx, level), shared.ErrInvalidState)

	level.IncrementVersion()
	require.NoError(t, repo.Save(ctx, level))

	t.Run("second insert conflicts", func(t *testing.T) {
		other := inventory.NewStockLevel(key, now)
		other.IncrementVersion()
		assert.ErrorIs(t, repo.Save(ctx, other), shared.ErrConcurrencyConflict)
	})

	t.Run("stale update conflicts", func(t *testing.T) {
		a, err := repo.Find(ctx, key)
		require.NoError(t, err)
		b, err := repo.Find(ctx, key)
		require.NoError(t, err)

		a.CurrentQuantity = decimal.NewFromInt(5)
		a.IncrementVersion()
		require.NoError(t, repo.Save(ctx, a))

		b.CurrentQuantity = decimal.NewFromInt(7)
		b.IncrementVersion()
		assert.ErrorIs(t, repo.Save(ctx, b), shared.ErrConcurrencyConflict)

		stored, err := repo.Find(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
		assert.True(t, stored.CurrentQuantity.Equal(decimal.NewFromInt(5)))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := repo.Find(ctx, inventory.NewStockKey(uuid.New(), key.LocationID))
		assert.ErrorIs(t, err, inventory.ErrStockLevelNotFound)
	})

	levels, err := repo.FindByLocation(ctx, key.LocationID)
	require.NoError(t, err)
	assert.Len(t, levels, 1)
}

func TestBatchRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRepository()
	itemID, locationID := uuid.New(), uuid.New()
	batch, err := inventory.NewBatch(inventory.NewBatchParams{
		ItemID:         itemID,
		LocationID:     locationID,
		BatchNumber:    "B1",
		ReceivedDate:   now,
		ExpirationDate: now.AddDate(0, 0, 5),
		Quantity:       decimal.NewFromInt(4),
		UnitCost:       decimal.NewFromInt(2),
	}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, batch))

	found, err := repo.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	found.RemainingQuantity = decimal.Zero

	again, err := repo.FindByNumber(ctx, itemID, "B1")
	require.NoError(t, err)
	assert.True(t, again.RemainingQuantity.Equal(decimal.NewFromInt(4)))

	dup, err := inventory.NewBatch(inventory.NewBatchParams{
		ItemID:         itemID,
		LocationID:     locationID,
		BatchNumber:    "B1",
		ReceivedDate:   now,
		ExpirationDate: now.AddDate(0, 0, 5),
		Quantity:       decimal.NewFromInt(1),
	}, now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, dup), inventory.ErrDuplicateBatchNumber)

	remaining, err := repo.FindAll(ctx, inventory.BatchFilter{ItemID: &itemID, OnlyRemaining: true})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestTransactionRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()
	itemID, locationID := uuid.New(), uuid.New()

	receipt := func(date time.Time, cost string, ref string) *inventory.Transaction {
		unitCost := decimal.RequireFromString(cost)
		tx, err := inventory.NewTransaction(inventory.NewTransactionParams{
			Type:                  inventory.TransactionTypeReceive,
			Date:                  date,
			DestinationLocationID: &locationID,
			Reference:             ref,
			Items:                 []inventory.TransactionItem{{ItemID: itemID, Quantity: decimal.NewFromInt(1), UnitCost: &unitCost}},
		}, now)
		require.NoError(t, err)
		tx.Items[0].Status = inventory.LineStatusCommitted
		committed := now
		tx.CommittedAt = &committed
		require.NoError(t, repo.Save(ctx, tx))
		return tx
	}

	old := receipt(now.AddDate(0, 0, -3), "1.00", "PO-1")
	recent := receipt(now.AddDate(0, 0, -1), "1.50", "PO-2")

	cost, found, err := repo.LatestReceiptCost(ctx, itemID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, cost.Equal(decimal.RequireFromString("1.50")))

	_, found, err = repo.LatestReceiptCost(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, found)

	since, err := repo.FindSince(ctx, old.Date)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, recent.ID, since[0].ID)

	none, err := repo.FindSince(ctx, now.AddDate(0, 0, -7), inventory.TransactionTypeConsume)
	require.NoError(t, err)
	assert.Empty(t, none)

	byRef, err := repo.FindByReference(ctx, "PO-1")
	require.NoError(t, err)
	assert.Equal(t, old.ID, byRef.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, inventory.ErrTransactionNotFound)
}

func TestLocationDirectoryAndVendorCatalog(t *testing.T) {
	ctx := context.Background()
	kitchen := uuid.New()
	locations := NewLocationDirectory(kitchen)
	ok, err := locations.Exists(ctx, kitchen)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = locations.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	vendors := NewVendorCatalog()
	itemID := uuid.New()
	_, err = vendors.GetPreferredVendor(ctx, itemID)
	assert.ErrorIs(t, err, inventory.ErrVendorNotFound)

	vendor := inventory.Vendor{ID: uuid.New(), Name: "Grain Co"}
	vendors.AddVendor(vendor)
	vendors.SetPrice(vendor.ID, itemID, decimal.NewFromInt(3), true)

	preferred, err := vendors.GetPreferredVendor(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, vendor.Name, preferred.Name)
	cost, err := vendors.UnitCost(ctx, vendor.ID, itemID)
	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.NewFromInt(3)))
}

func TestItemRepository_FindAllSorting(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository()
	add := func(sku, name, category string, created time.Time) {
		item := &inventory.InventoryItem{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(created),
			SKU:               sku,
			Name:              name,
			Category:          category,
			IsActive:          true,
		}
		require.NoError(t, repo.Save(ctx, item))
	}
	add("C-OIL", "olive oil", "oils", now)
	add("A-SALT", "sea salt", "spices", now.Add(time.Hour))
	add("B-FLOUR", "bread flour", "dry goods", now.Add(-time.Hour))

	tests := []struct {
		name     string
		filter   inventory.ItemFilter
		expected []string
	}{
		{"default by sku", inventory.ItemFilter{}, []string{"A-SALT", "B-FLOUR", "C-OIL"}},
		{"sku descending", inventory.ItemFilter{SortDesc: true}, []string{"C-OIL", "B-FLOUR", "A-SALT"}},
		{"by name", inventory.ItemFilter{SortBy: inventory.ItemSortName}, []string{"B-FLOUR", "C-OIL", "A-SALT"}},
		{"newest first", inventory.ItemFilter{SortBy: inventory.ItemSortCreatedAt, SortDesc: true}, []string{"A-SALT", "C-OIL", "B-FLOUR"}},
		{"unknown key sorts by sku", inventory.ItemFilter{SortBy: "cost"}, []string{"A-SALT", "B-FLOUR", "C-OIL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.FindAll(ctx, tt.filter)
			require.NoError(t, err)
			skus := make([]string, len(items))
			for i := range items {
				skus[i] = items[i].SKU
			}
			assert.Equal(t, tt.expected, skus)
		})
	}
}

func TestStore_ExecuteRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	failed := errors.New("boom")

	tests := []struct {
		name        string
		fnErr       error
		wantCurrent int64
		wantLots    int
	}{
		{"error restores earlier state", failed, 4, 0},
		{"conflict restores earlier state", shared.ErrConcurrencyConflict, 4, 0},
		{"success keeps writes", nil, 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			key := inventory.NewStockKey(uuid.New(), uuid.New())
			level := inventory.NewStockLevel(key, now)
			level.CurrentQuantity = decimal.NewFromInt(4)
			level.IncrementVersion()
			require.NoError(t, store.Levels.Save(ctx, level))

			err := store.Execute(ctx, func(repos inventory.Repositories) error {
				stored, err := repos.Levels.Find(ctx, key)
				require.NoError(t, err)
				stored.CurrentQuantity = decimal.NewFromInt(9)
				stored.IncrementVersion()
				require.NoError(t, repos.Levels.Save(ctx, stored))

				lot, err := inventory.NewBatch(inventory.NewBatchParams{
					ItemID:         key.ItemID,
					LocationID:     key.LocationID,
					BatchNumber:    "B1",
					ReceivedDate:   now,
					ExpirationDate: now.AddDate(0, 0, 5),
					Quantity:       decimal.NewFromInt(5),
				}, now)
				require.NoError(t, err)
				require.NoError(t, repos.Batches.Save(ctx, lot))
				return tt.fnErr
			})
			assert.ErrorIs(t, err, tt.fnErr)

			stored, err := store.Levels.Find(ctx, key)
			require.NoError(t, err)
			assert.True(t, stored.CurrentQuantity.Equal(decimal.NewFromInt(tt.wantCurrent)))
			lots, err := store.Batches.FindAll(ctx, inventory.BatchFilter{ItemID: &key.ItemID})
			require.NoError(t, err)
			assert.Len(t, lots, tt.wantLots)
		})
	}
}
