package cost

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// FIFOCostStrategy implements First-In-First-Out cost calculation
type FIFOCostStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOCostStrategy creates a new FIFO cost strategy
func NewFIFOCostStrategy() *FIFOCostStrategy {
	return &FIFOCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo",
			strategy.StrategyTypeCost,
			"First-In-First-Out cost calculation, oldest receipts first",
		),
	}
}

// Method returns the costing method
func (s *FIFOCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodFIFO
}

// CalculateCost walks the layers in FIFO order
func (s *FIFOCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	layers []strategy.CostLayer,
) (strategy.CostResult, error) {
	if err := validateQuantity(costCtx); err != nil {
		return strategy.CostResult{}, err
	}
	return walkLayers(strategy.CostMethodFIFO, costCtx.Quantity, layers, func(a, b strategy.CostLayer) bool {
		return a.ReceivedDate.Before(b.ReceivedDate)
	}), nil
}
