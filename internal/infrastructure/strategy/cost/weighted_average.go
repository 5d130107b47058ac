package cost

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// WeightedAverageCostStrategy prices every unit at Σ(unitCost×qty)/Σqty of
// the layers on hand. Without layers it uses the average from the context,
// which is how untracked items keep their moving average.
type WeightedAverageCostStrategy struct {
	strategy.BaseStrategy
}

// NewWeightedAverageCostStrategy creates a new weighted average cost strategy
func NewWeightedAverageCostStrategy() *WeightedAverageCostStrategy {
	return &WeightedAverageCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"weighted_average",
			strategy.StrategyTypeCost,
			"Weighted average cost over stock on hand",
		),
	}
}

// Method returns the costing method
func (s *WeightedAverageCostStrategy) Method() strategy.CostMethod {
	return strategy.CostMethodWeightedAverage
}

// CalculateCost prices the quantity at the weighted average
func (s *WeightedAverageCostStrategy) CalculateCost(
	ctx context.Context,
	costCtx strategy.CostContext,
	layers []strategy.CostLayer,
) (strategy.CostResult, error) {
	if err := validateQuantity(costCtx); err != nil {
		return strategy.CostResult{}, err
	}
	average := costCtx.AverageCost
	if len(layers) > 0 {
		average = strategy.WeightedAverageCost(layers)
	}
	return flatCost(strategy.CostMethodWeightedAverage, costCtx.Quantity, average), nil
}
