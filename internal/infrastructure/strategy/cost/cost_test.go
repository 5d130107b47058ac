package cost

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func layer(qty int64, cost string, received, expires int) strategy.CostLayer {
	return strategy.CostLayer{
		BatchID:        uuid.New(),
		Quantity:       decimal.NewFromInt(qty),
		UnitCost:       decimal.RequireFromString(cost),
		ReceivedDate:   day0.AddDate(0, 0, received),
		ExpirationDate: day0.AddDate(0, 0, expires),
	}
}

func TestStrategyIdentity(t *testing.T) {
	tests := []struct {
		s      strategy.CostCalculationStrategy
		name   string
		method strategy.CostMethod
	}{
		{NewFIFOCostStrategy(), "fifo", strategy.CostMethodFIFO},
		{NewLIFOCostStrategy(), "lifo", strategy.CostMethodLIFO},
		{NewFEFOCostStrategy(), "fefo", strategy.CostMethodFEFO},
		{NewWeightedAverageCostStrategy(), "weighted_average", strategy.CostMethodWeightedAverage},
		{NewLastPurchasePriceCostStrategy(), "last_purchase_price", strategy.CostMethodLastPurchasePrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.s.Name())
			assert.Equal(t, strategy.StrategyTypeCost, tt.s.Type())
			assert.Equal(t, tt.method, tt.s.Method())
			assert.NotEmpty(t, tt.s.Description())
		})
	}
}

func TestLayerWalks(t *testing.T) {
	ctx := context.Background()
	// old/cheap expires last, new/dear expires first
	old := layer(5, "2.00", 1, 30)
	recent := layer(5, "4.00", 3, 10)
	layers := []strategy.CostLayer{recent, old}

	tests := []struct {
		name  string
		s     strategy.CostCalculationStrategy
		qty   int64
		total string
		first uuid.UUID
	}{
		{"fifo takes the oldest", NewFIFOCostStrategy(), 7, "18.00", old.BatchID},
		{"lifo takes the newest", NewLIFOCostStrategy(), 7, "24.00", recent.BatchID},
		{"fefo takes the soonest expiry", NewFEFOCostStrategy(), 7, "24.00", recent.BatchID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.s.CalculateCost(ctx, strategy.CostContext{Quantity: decimal.NewFromInt(tt.qty)}, layers)
			require.NoError(t, err)
			require.Len(t, result.Lines, 2)
			assert.Equal(t, tt.first, result.Lines[0].BatchID)
			assert.True(t, result.TotalCost.Equal(decimal.RequireFromString(tt.total)), "got %s", result.TotalCost)
			assert.True(t, result.UncostedQty.IsZero())
		})
	}

	t.Run("walk reports uncosted quantity", func(t *testing.T) {
		result, err := NewFIFOCostStrategy().CalculateCost(ctx, strategy.CostContext{Quantity: decimal.NewFromInt(12)}, layers)
		require.NoError(t, err)
		assert.True(t, result.TotalCost.Equal(decimal.NewFromInt(30)))
		assert.True(t, result.UncostedQty.Equal(decimal.NewFromInt(2)))
		assert.True(t, result.UnitCost.Equal(decimal.NewFromInt(3)))
	})

	t.Run("no layers costs nothing", func(t *testing.T) {
		result, err := NewFIFOCostStrategy().CalculateCost(ctx, strategy.CostContext{Quantity: decimal.NewFromInt(4)}, nil)
		require.NoError(t, err)
		assert.True(t, result.TotalCost.IsZero())
		assert.True(t, result.UncostedQty.Equal(decimal.NewFromInt(4)))
	})
}

func TestWeightedAverageCostStrategy(t *testing.T) {
	s := NewWeightedAverageCostStrategy()
	ctx := context.Background()

	t.Run("average of layers", func(t *testing.T) {
		layers := []strategy.CostLayer{layer(5, "2.00", 1, 9), layer(5, "4.00", 2, 9)}
		result, err := s.CalculateCost(ctx, strategy.CostContext{Quantity: decimal.NewFromInt(4)}, layers)
		require.NoError(t, err)
		assert.True(t, result.UnitCost.Equal(decimal.NewFromInt(3)))
		assert.True(t, result.TotalCost.Equal(decimal.NewFromInt(12)))
		require.Len(t, result.Lines, 1)
		assert.Equal(t, uuid.Nil, result.Lines[0].BatchID)
	})

	t.Run("context average without layers", func(t *testing.T) {
		result, err := s.CalculateCost(ctx, strategy.CostContext{
			Quantity:    decimal.NewFromInt(2),
			AverageCost: decimal.RequireFromString("1.25"),
		}, nil)
		require.NoError(t, err)
		assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("2.5")))
	})
}

func TestLastPurchasePriceCostStrategy(t *testing.T) {
	result, err := NewLastPurchasePriceCostStrategy().CalculateCost(context.Background(), strategy.CostContext{
		Quantity:   decimal.NewFromInt(3),
		LatestCost: decimal.RequireFromString("4.50"),
	}, []strategy.CostLayer{layer(10, "1.00", 1, 9)})
	require.NoError(t, err)
	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("13.5")))
	assert.True(t, result.UnitCost.Equal(decimal.RequireFromString("4.5")))
}

func TestNonPositiveQuantity(t *testing.T) {
	strategies := []strategy.CostCalculationStrategy{
		NewFIFOCostStrategy(), NewLIFOCostStrategy(), NewFEFOCostStrategy(),
		NewWeightedAverageCostStrategy(), NewLastPurchasePriceCostStrategy(),
	}
	for _, s := range strategies {
		t.Run(s.Name(), func(t *testing.T) {
			_, err := s.CalculateCost(context.Background(), strategy.CostContext{Quantity: decimal.Zero}, nil)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}
