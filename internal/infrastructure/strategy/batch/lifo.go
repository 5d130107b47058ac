package batch

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// LIFOBatchStrategy implements Last In First Out batch selection
type LIFOBatchStrategy struct {
	strategy.BaseStrategy
}

// NewLIFOBatchStrategy creates a new LIFO batch strategy
func NewLIFOBatchStrategy() *LIFOBatchStrategy {
	return &LIFOBatchStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"lifo",
			strategy.StrategyTypeBatch,
			"Last In First Out - selects lots by received date (newest first)",
		),
	}
}

// Order sorts lots by received date descending
func (s *LIFOBatchStrategy) Order(batches []strategy.Batch) []strategy.Batch {
	return sortedBy(batches, func(a, b strategy.Batch) bool {
		return a.ReceivedDate.After(b.ReceivedDate)
	})
}

// SelectBatches selects lots in LIFO order
func (s *LIFOBatchStrategy) SelectBatches(
	ctx context.Context,
	selCtx strategy.BatchSelectionContext,
	batches []strategy.Batch,
) (strategy.BatchSelectionResult, error) {
	return selectOrdered(selCtx, batches, s.Order)
}

// ConsidersExpiry returns false as LIFO doesn't consider expiry dates
func (s *LIFOBatchStrategy) ConsidersExpiry() bool {
	return false
}
