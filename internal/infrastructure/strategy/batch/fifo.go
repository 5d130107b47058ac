package batch

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// FIFOBatchStrategy implements First In First Out batch selection.
// Lots are taken by received date, oldest first.
type FIFOBatchStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOBatchStrategy creates a new FIFO batch strategy
func NewFIFOBatchStrategy() *FIFOBatchStrategy {
	return &FIFOBatchStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo",
			strategy.StrategyTypeBatch,
			"First In First Out - selects lots by received date (oldest first)",
		),
	}
}

// Order sorts lots by received date ascending
func (s *FIFOBatchStrategy) Order(batches []strategy.Batch) []strategy.Batch {
	return sortedBy(batches, func(a, b strategy.Batch) bool {
		return a.ReceivedDate.Before(b.ReceivedDate)
	})
}

// SelectBatches selects lots in FIFO order
func (s *FIFOBatchStrategy) SelectBatches(
	ctx context.Context,
	selCtx strategy.BatchSelectionContext,
	batches []strategy.Batch,
) (strategy.BatchSelectionResult, error) {
	return selectOrdered(selCtx, batches, s.Order)
}

// ConsidersExpiry returns false as FIFO doesn't consider expiry dates
func (s *FIFOBatchStrategy) ConsidersExpiry() bool {
	return false
}
