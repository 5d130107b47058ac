package cost

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// FEFOCostStrategy prices consumption from the lots that expire first,
// matching the lots FEFO selection actually draws down
type FEFOCostStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOCostStrategy creates a new FEFO cost strategy
func NewFEFOCostStrategy() *FEFOCostStrategy {
	return &FEFOCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fefo",
			strategy.StrategyTypeCost,
			"First-Expired-First-Out cost calculation, soonest expiry first",
		),
	}
}

// Method returns the costing method
func (s *FEFOCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodFEFO
}

// CalculateCost walks the layers by expiration date
func (s *FEFOCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	layers []strategy.CostLayer,
) (strategy.CostResult, error) {
	if err := validateQuantity(costCtx); err != nil {
		return strategy.CostResult{}, err
	}
	return walkLayers(strategy.CostMethodFEFO, costCtx.Quantity, layers, func(a, b strategy.CostLayer) bool {
		if !a.ExpirationDate.Equal(b.ExpirationDate) {
			return a.ExpirationDate.Before(b.ExpirationDate)
		}
		return a.ReceivedDate.Before(b.ReceivedDate)
	}), nil
}
