package inventory_test

import (
	"testing"

	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReconciler_Check(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	oil := f.item(t, itemShape{sku: "OIL"})
	f.receive(t, oil, f.kitchen, lotSpec{qty: 4, cost: "1.00"})
	reconciler := inventory.NewReconciler(f.store.Items, f.store.Levels, f.store.Batches, f.clock, zaptest.NewLogger(t))

	report, err := reconciler.Check(f.ctx, inventory.ReconciliationFilter{})
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	// untracked items have no lots to compare
	assert.Equal(t, 1, report.CheckedKeys)
	assert.Equal(t, start, report.CheckedAt)

	// A raw ledger increase bypasses the lots.
	_, err = f.ledger.IncreaseQuantity(f.ctx, flour.ID, f.kitchen, decimal.NewFromInt(3))
	require.NoError(t, err)

	report, err = reconciler.Check(f.ctx, inventory.ReconciliationFilter{})
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, flour.ID, d.ItemID)
	assert.Equal(t, f.kitchen, d.LocationID)
	assert.Equal(t, flour.SKU, d.SKU)
	assertDecimal(t, "13", d.StockQuantity)
	assertDecimal(t, "10", d.BatchQuantity)
	assertDecimal(t, "3", d.Difference)

	t.Run("location filter", func(t *testing.T) {
		report, err := reconciler.Check(f.ctx, inventory.ReconciliationFilter{LocationID: &f.pantry})
		require.NoError(t, err)
		assert.True(t, report.Consistent())
		assert.Zero(t, report.CheckedKeys)
	})

	t.Run("item filter", func(t *testing.T) {
		report, err := reconciler.Check(f.ctx, inventory.ReconciliationFilter{ItemID: &oil.ID})
		require.NoError(t, err)
		assert.True(t, report.Consistent())
	})

	t.Run("lots above the counted stock", func(t *testing.T) {
		_, err := f.ledger.SetAbsoluteQuantity(f.ctx, flour.ID, f.kitchen, decimal.NewFromInt(10))
		require.NoError(t, err)
		f.receive(t, flour, f.pantry, lotSpec{number: "B3", qty: 2, cost: "1.00", expiresIn: 5})
		_, err = f.ledger.SetAbsoluteQuantity(f.ctx, flour.ID, f.pantry, decimal.Zero)
		require.NoError(t, err)

		report, err := reconciler.Check(f.ctx, inventory.ReconciliationFilter{ItemID: &flour.ID})
		require.NoError(t, err)
		require.Len(t, report.Discrepancies, 1)
		assert.Equal(t, f.pantry, report.Discrepancies[0].LocationID)
		assertDecimal(t, "-2", report.Discrepancies[0].Difference)
	})
}
