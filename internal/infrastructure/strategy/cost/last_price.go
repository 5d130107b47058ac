package cost

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// LastPurchasePriceCostStrategy prices every unit at the latest receipt cost
type LastPurchasePriceCostStrategy struct {
	strategy.BaseStrategy
}

// NewLastPurchasePriceCostStrategy creates a new last purchase price cost strategy
func NewLastPurchasePriceCostStrategy() *LastPurchasePriceCostStrategy {
	return &LastPurchasePriceCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"last_purchase_price",
			strategy.StrategyTypeCost,
			"Latest receipt unit cost",
		),
	}
}

// Method returns the costing method
func (s *LastPurchasePriceCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodLastPurchasePrice
}

// CalculateCost prices the quantity at the latest cost; layers are ignored
func (s *LastPurchasePriceCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	layers []strategy.CostLayer,
) (strategy.CostResult, error) {
	if err := validateQuantity(costCtx); err != nil {
		return strategy.CostResult{}, err
	}
	return flatCost(strategy.CostMethodLastPurchasePrice, costCtx.Quantity, costCtx.LatestCost), nil
}
