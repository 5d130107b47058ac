package batch

import (
	"context"

	"github.com/larder/backend/internal/domain/shared/strategy"
)

// FEFOBatchStrategy implements First Expired First Out batch selection.
// Expired lots are not skipped: they are taken first, and a lot past its date
// is the caller's to write off.
type FEFOBatchStrategy struct {
	strategy.BaseStrategy
}

// NewFEFOBatchStrategy creates a new FEFO batch strategy
func NewFEFOBatchStrategy() *FEFOBatchStrategy {
	return &FEFOBatchStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fefo",
			strategy.StrategyTypeBatch,
			"First Expired First Out - selects lots by expiration date (soonest first)",
		),
	}
}

// Order sorts lots by expiration date, then received date
func (s *FEFOBatchStrategy) Order(batches []strategy.Batch) []strategy.Batch {
	return sortedBy(batches, func(a, b strategy.Batch) bool {
		if !a.ExpirationDate.Equal(b.ExpirationDate) {
			return a.ExpirationDate.Before(b.ExpirationDate)
		}
		return a.ReceivedDate.Before(b.ReceivedDate)
	})
}

// SelectBatches selects lots in FEFO order
func (s *FEFOBatchStrategy) SelectBatches(
	ctx context.Context,
	selCtx strategy.BatchSelectionContext,
	batches []strategy.Batch,
) (strategy.BatchSelectionResult, error) {
	return selectOrdered(selCtx, batches, s.Order)
}

// ConsidersExpiry returns true as FEFO orders by expiration
func (s *FEFOBatchStrategy) ConsidersExpiry() bool {
	return true
}
