package batch

import (
	"context"
	"fmt"

	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
)

// SpecifiedBatchStrategy takes only the lots the caller names, in that order
type SpecifiedBatchStrategy struct {
	strategy.BaseStrategy
}

// NewSpecifiedBatchStrategy creates a new specified batch strategy
func NewSpecifiedBatchStrategy() *SpecifiedBatchStrategy {
	return &SpecifiedBatchStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"specified",
			strategy.StrategyTypeBatch,
			"Explicit lot list - selects only the given lots in the given order",
		),
	}
}

// Order keeps the input order of lots with stock left
func (s *SpecifiedBatchStrategy) Order(batches []strategy.Batch) []strategy.Batch {
	return filterAvailableBatches(batches)
}

// SelectBatches walks the explicit lots in the order given
func (s *SpecifiedBatchStrategy) SelectBatches(
	ctx context.Context,
	selCtx strategy.BatchSelectionContext,
	batches []strategy.Batch,
) (strategy.BatchSelectionResult, error) {
	if len(selCtx.ExplicitBatchIDs) == 0 {
		return strategy.BatchSelectionResult{}, fmt.Errorf("%w: specified batch selection needs batch ids", shared.ErrInvalidInput)
	}
	return selectFromBatches(restrictToExplicit(batches, selCtx.ExplicitBatchIDs), selCtx.Quantity)
}

// ConsidersExpiry returns false as the caller chooses the lots
func (s *SpecifiedBatchStrategy) ConsidersExpiry() bool {
	return false
}
