package strategy

import (
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/larder/backend/internal/infrastructure/strategy/batch"
	"github.com/larder/backend/internal/infrastructure/strategy/cost"
)

// NewRegistryWithDefaults creates a registry with every built-in cost and
// batch strategy registered. FEFO is the default for both types.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	costStrategies := []strategy.CostCalculationStrategy{
		cost.NewFIFOCostStrategy(),
		cost.NewLIFOCostStrategy(),
		cost.NewFEFOCostStrategy(),
		cost.NewWeightedAverageCostStrategy(),
		cost.NewLastPurchasePriceCostStrategy(),
	}
	for _, s := range costStrategies {
		if err := r.RegisterCostStrategy(s); err != nil {
			return nil, err
		}
	}

	batchStrategies := []strategy.BatchSelectionStrategy{
		batch.NewFIFOBatchStrategy(),
		batch.NewLIFOBatchStrategy(),
		batch.NewFEFOBatchStrategy(),
		batch.NewSpecifiedBatchStrategy(),
	}
	for _, s := range batchStrategies {
		if err := r.RegisterBatchStrategy(s); err != nil {
			return nil, err
		}
	}

	if err := r.SetDefault(strategy.StrategyTypeCost, string(strategy.CostMethodFEFO)); err != nil {
		return nil, err
	}
	if err := r.SetDefault(strategy.StrategyTypeBatch, "fefo"); err != nil {
		return nil, err
	}
	return r, nil
}

// MustNewRegistryWithDefaults is NewRegistryWithDefaults for wiring code and
// tests; the built-in set cannot conflict
func MustNewRegistryWithDefaults() *StrategyRegistry {
	r, err := NewRegistryWithDefaults()
	if err != nil {
		panic(err)
	}
	return r
}
