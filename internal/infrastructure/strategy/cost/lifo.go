package cost

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// LIFOCostStrategy implements Last-In-First-Out cost calculation
type LIFOCostStrategy struct {
	strategy.BaseStrategy
}

// NewLIFOCostStrategy creates a new LIFO cost strategy
func NewLIFOCostStrategy() *LIFOCostStrategy {
	return &LIFOCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"lifo",
			strategy.StrategyTypeCost,
			"Last-In-First-Out cost calculation, newest receipts first",
		),
	}
}

// Method returns the costing method
func (s *LIFOCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodLIFO
}

// CalculateCost walks the layers in LIFO order
func (s *LIFOCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	layers []strategy.CostLayer,
) (strategy.CostResult, error) {
	if err := validateQuantity(costCtx); err != nil {
		return strategy.CostResult{}, err
	}
	return walkLayers(strategy.CostMethodLIFO, costCtx.Quantity, layers, func(a, b strategy.CostLayer) bool {
		return a.ReceivedDate.After(b.ReceivedDate)
	}), nil
}
