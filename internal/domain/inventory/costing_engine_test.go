package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostingEngine_AverageCost(t *testing.T) {
	f := newFixture(t)
	item := stockTwoLots(t, f, inventory.CostingMethodWeightedAverage)

	average, err := f.costing.AverageCost(f.ctx, item.ID)
	require.NoError(t, err)
	assertDecimal(t, "3", average)

	stored, err := f.store.Items.GetItem(f.ctx, item.ID)
	require.NoError(t, err)
	assertDecimal(t, "3", stored.AverageCost)
	assertDecimal(t, "4", stored.LastCost)

	cost, err := f.costing.ConsumptionCost(f.ctx, stored, decimal.NewFromInt(4), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, inventory.CostingMethodWeightedAverage, cost.Method)
	assertDecimal(t, "12", cost.Total)
}

func TestCostingEngine_ConsumptionCostByMethod(t *testing.T) {
	tests := []struct {
		method inventory.CostingMethod
		total  string
	}{
		{inventory.CostingMethodFIFO, "18"},
		{inventory.CostingMethodLIFO, "24"},
		{inventory.CostingMethodFEFO, "24"},
		{inventory.CostingMethodWeightedAverage, "21"},
		{inventory.CostingMethodLastPurchasePrice, "28"},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			f := newFixture(t)
			item := stockTwoLots(t, f, tt.method)

			cost, err := f.costing.ConsumptionCost(f.ctx, item, decimal.NewFromInt(7), &f.kitchen, nil)
			require.NoError(t, err)
			assertDecimal(t, tt.total, cost.Total)
			assert.True(t, cost.UncostedQuantity.IsZero())
		})
	}
}

func TestCostingEngine_ExplicitAllocations(t *testing.T) {
	f := newFixture(t)
	item := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	lots := f.lots(t, item.ID)

	cost, err := f.costing.ConsumptionCost(f.ctx, item, decimal.NewFromInt(8), nil, []inventory.Allocation{
		{Batch: &lots[1], Quantity: decimal.NewFromInt(5)},
		{Batch: &lots[0], Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	require.Len(t, cost.PerLot, 2)
	assert.Equal(t, lots[1].ID, cost.PerLot[0].BatchID)
	assertDecimal(t, "22", cost.Total)
	assertDecimal(t, "2", cost.UncostedQuantity)
}

func TestCostingEngine_MovingAverageForUntrackedItems(t *testing.T) {
	f := newFixture(t)
	oil := f.item(t, itemShape{sku: "OIL", method: inventory.CostingMethodFIFO})

	f.receive(t, oil, f.kitchen, lotSpec{qty: 10, cost: "2.00", daysAgo: 5})
	f.receive(t, oil, f.pantry, lotSpec{qty: 10, cost: "4.00", daysAgo: 4})

	average, err := f.costing.AverageCost(f.ctx, oil.ID)
	require.NoError(t, err)
	assertDecimal(t, "3", average)

	stored, err := f.store.Items.GetItem(f.ctx, oil.ID)
	require.NoError(t, err)
	// Lot methods fall back to the average when there are no lots.
	cost, err := f.costing.ConsumptionCost(f.ctx, stored, decimal.NewFromInt(5), &f.kitchen, nil)
	require.NoError(t, err)
	assert.Equal(t, inventory.CostingMethodWeightedAverage, cost.Method)
	assertDecimal(t, "15", cost.Total)

	latest, err := f.costing.LatestCost(f.ctx, oil.ID)
	require.NoError(t, err)
	assertDecimal(t, "4", latest)
}

func TestCostingEngine_InventoryValue(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	oil := f.item(t, itemShape{sku: "OIL"})
	f.receive(t, oil, f.pantry, lotSpec{qty: 4, cost: "2.50", daysAgo: 8})

	t.Run("current value", func(t *testing.T) {
		values, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{})
		require.NoError(t, err)
		assert.True(t, values[flour.ID].Equals(valueobject.MustNewMoney(dec("30"), valueobject.DefaultCurrency)))
		assertDecimal(t, "10", values[oil.ID].Amount())
	})

	t.Run("location filter", func(t *testing.T) {
		values, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{LocationID: &f.pantry})
		require.NoError(t, err)
		assert.True(t, values[flour.ID].IsZero())
		assertDecimal(t, "10", values[oil.ID].Amount())
	})

	t.Run("as of a past date rebuilds lots", func(t *testing.T) {
		f.consume(t, flour, f.kitchen, 6, 3)
		f.process(t, inventory.NewTransactionParams{
			Type:                  inventory.TransactionTypeTransfer,
			Date:                  f.clock.Now().AddDate(0, 0, -2),
			SourceLocationID:      &f.kitchen,
			DestinationLocationID: &f.pantry,
			Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(2)}},
		})

		now, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{})
		require.NoError(t, err)
		// B1 gone, 4 of B2 left at 4.00
		assertDecimal(t, "16", now[flour.ID].Amount())

		asOf := f.clock.Now().AddDate(0, 0, -4)
		before, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{AsOf: &asOf})
		require.NoError(t, err)
		assertDecimal(t, "30", before[flour.ID].Amount())

		atPantry, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{AsOf: &asOf, LocationID: &f.pantry})
		require.NoError(t, err)
		assertDecimal(t, "0", atPantry[flour.ID].Amount())

		beforeAnyLot := f.clock.Now().AddDate(0, 0, -8)
		early, err := f.costing.InventoryValue(f.ctx, inventory.ValuationFilter{AsOf: &beforeAnyLot})
		require.NoError(t, err)
		assertDecimal(t, "10", early[flour.ID].Amount())
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := f.costing.AverageCost(f.ctx, uuid.New())
		assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	})
}
