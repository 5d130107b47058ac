package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanningEngine_GenerateReorderSuggestions(t *testing.T) {
	f := newFixture(t)
	rice := f.item(t, itemShape{sku: "RICE", threshold: 5, max: 20})
	f.receive(t, rice, f.kitchen, lotSpec{qty: 10, cost: "2.00", daysAgo: 10})
	f.consume(t, rice, f.kitchen, 6, 2)

	beans := f.item(t, itemShape{sku: "BEANS", threshold: 3})
	f.receive(t, beans, f.kitchen, lotSpec{qty: 2, cost: "1.00", daysAgo: 10})
	f.consume(t, beans, f.kitchen, 2, 1)

	salt := f.item(t, itemShape{sku: "SALT", threshold: 1})
	f.receive(t, salt, f.kitchen, lotSpec{qty: 10, cost: "0.50", daysAgo: 10})

	retired := f.item(t, itemShape{sku: "RETIRED", threshold: 5})
	f.receive(t, retired, f.kitchen, lotSpec{qty: 1, cost: "1.00", daysAgo: 10})
	retired, err := f.store.Items.GetItem(f.ctx, retired.ID)
	require.NoError(t, err)
	retired.Deactivate(f.clock.Now())
	require.NoError(t, f.store.Items.Save(f.ctx, retired))

	vendor := inventory.Vendor{ID: uuid.New(), Name: "Grain Co"}
	f.vendors.AddVendor(vendor)
	f.vendors.SetPrice(vendor.ID, rice.ID, dec("2.50"), true)

	suggestions, err := f.planning().GenerateReorderSuggestions(f.ctx, f.kitchen, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	first := suggestions[0]
	assert.Equal(t, "BEANS", first.SKU)
	assert.Equal(t, inventory.UrgencyOutOfStock, first.Urgency)
	assertDecimal(t, "4", first.SuggestedQuantity)
	assert.Nil(t, first.Vendor)
	assertDecimal(t, "1", first.UnitCost)

	second := suggestions[1]
	assert.Equal(t, "RICE", second.SKU)
	assert.Equal(t, inventory.UrgencyBelowThreshold, second.Urgency)
	assertDecimal(t, "4", second.Available)
	assertDecimal(t, "0.2", second.AverageDailyUsage)
	assertDecimal(t, "16", second.SuggestedQuantity)
	require.NotNil(t, second.Vendor)
	assert.Equal(t, "Grain Co", second.Vendor.Name)
	assertDecimal(t, "40", second.EstimatedCost.Amount())

	t.Run("category filter", func(t *testing.T) {
		suggestions, err := f.planning().GenerateReorderSuggestions(f.ctx, f.kitchen, []string{"frozen"})
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})

	t.Run("other location", func(t *testing.T) {
		suggestions, err := f.planning().GenerateReorderSuggestions(f.ctx, f.pantry, nil)
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})
}

func TestPlanningEngine_LeadTimeDemandSizesOrder(t *testing.T) {
	f := newFixture(t)
	oil := f.item(t, itemShape{sku: "OIL", threshold: 10, leadDays: 14})
	f.receive(t, oil, f.kitchen, lotSpec{qty: 40, cost: "1.00", daysAgo: 25})
	f.consume(t, oil, f.kitchen, 30, 5)

	suggestions, err := f.planning().GenerateReorderSuggestions(f.ctx, f.kitchen, nil)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	// 1/day over 14 days is 14, less the 10 on hand
	assertDecimal(t, "4", suggestions[0].SuggestedQuantity)
	assertDecimal(t, "1", suggestions[0].AverageDailyUsage)
}

func TestPlanningEngine_CalculateReorderPoints(t *testing.T) {
	f := newFixture(t)
	oil := f.item(t, itemShape{sku: "OIL", threshold: 4, leadDays: 10})
	f.receive(t, oil, f.kitchen, lotSpec{qty: 45, cost: "1.00", daysAgo: 45})
	f.consume(t, oil, f.kitchen, 5, 40)
	f.consume(t, oil, f.kitchen, 30, 10)
	idle := f.item(t, itemShape{sku: "IDLE", leadDays: 3})

	points, err := f.planning().CalculateReorderPoints(f.ctx, []uuid.UUID{oil.ID, idle.ID}, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)

	byID := make(map[uuid.UUID]inventory.ReorderPoint)
	for _, p := range points {
		byID[p.ItemID] = p
	}
	point := byID[oil.ID]
	assertDecimal(t, "1", point.AverageDailyUsage)
	assertDecimal(t, "5", point.SafetyStock)
	assertDecimal(t, "15", point.ReorderPoint)
	assertDecimal(t, "4", point.CurrentThreshold)

	assert.True(t, byID[idle.ID].ReorderPoint.IsZero())

	t.Run("location filter", func(t *testing.T) {
		points, err := f.planning().CalculateReorderPoints(f.ctx, []uuid.UUID{oil.ID}, &f.pantry)
		require.NoError(t, err)
		require.Len(t, points, 1)
		assert.True(t, points[0].ReorderPoint.IsZero())
	})
}

func TestPlanningEngine_CalculateTurnover(t *testing.T) {
	f := newFixture(t)
	rice := f.item(t, itemShape{sku: "RICE"})
	f.receive(t, rice, f.kitchen, lotSpec{qty: 24, cost: "1.00", daysAgo: 10})
	f.consume(t, rice, f.kitchen, 6, 5)
	f.consume(t, rice, f.kitchen, 14, 2)
	planning := f.planning()

	t.Run("window up to now", func(t *testing.T) {
		results, err := planning.CalculateTurnover(f.ctx, []uuid.UUID{rice.ID}, nil, inventory.TurnoverWindow{
			Start: f.clock.Now().AddDate(0, 0, -15),
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		r := results[0]
		assertDecimal(t, "0", r.OpeningQuantity)
		assertDecimal(t, "4", r.ClosingQuantity)
		assertDecimal(t, "20", r.Consumed)
		assertDecimal(t, "2", r.AverageInventory)
		assertDecimal(t, "10", r.Turnover)
		assertDecimal(t, "1.5", r.DaysOnHand)
	})

	t.Run("window ending in the past", func(t *testing.T) {
		results, err := planning.CalculateTurnover(f.ctx, []uuid.UUID{rice.ID}, nil, inventory.TurnoverWindow{
			Start: f.clock.Now().AddDate(0, 0, -15),
			End:   f.clock.Now().AddDate(0, 0, -3),
		})
		require.NoError(t, err)
		r := results[0]
		assertDecimal(t, "18", r.ClosingQuantity)
		assertDecimal(t, "6", r.Consumed)
		assertDecimal(t, "0.6667", r.Turnover)
	})

	t.Run("nothing on hand", func(t *testing.T) {
		other := f.item(t, itemShape{sku: "OTHER"})
		results, err := planning.CalculateTurnover(f.ctx, []uuid.UUID{other.ID}, nil, inventory.TurnoverWindow{
			Start: f.clock.Now().AddDate(0, 0, -15),
		})
		require.NoError(t, err)
		assert.True(t, results[0].Turnover.IsZero())
		assert.True(t, results[0].DaysOnHand.IsZero())
	})

	t.Run("empty window", func(t *testing.T) {
		_, err := planning.CalculateTurnover(f.ctx, nil, nil, inventory.TurnoverWindow{
			Start: f.clock.Now(),
			End:   f.clock.Now(),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}
