package batch

import (
	"sort"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// filterAvailableBatches keeps lots with stock left, without touching the input
func filterAvailableBatches(batches []strategy.Batch) []strategy.Batch {
	filtered := make([]strategy.Batch, 0, len(batches))
	for _, b := range batches {
		if b.Remaining.IsPositive() {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

// sortedBy returns the available lots ordered by less; ties keep input order
func sortedBy(batches []strategy.Batch, less func(a, b strategy.Batch) bool) []strategy.Batch {
	ordered := filterAvailableBatches(batches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j])
	})
	return ordered
}

// restrictToExplicit keeps the listed lots in the listed order
func restrictToExplicit(batches []strategy.Batch, ids []uuid.UUID) []strategy.Batch {
	byID := make(map[uuid.UUID]strategy.Batch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	result := make([]strategy.Batch, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if b, ok := byID[id]; ok && b.Remaining.IsPositive() {
			result = append(result, b)
		}
	}
	return result
}

// selectFromBatches walks ordered lots greedily, taking min(remaining, still needed)
func selectFromBatches(batches []strategy.Batch, quantity decimal.Decimal) (strategy.BatchSelectionResult, error) {
	remainingQty := quantity
	selections := make([]strategy.BatchSelection, 0)
	totalQty := decimal.Zero

	for _, batch := range batches {
		if !remainingQty.IsPositive() {
			break
		}

		selectedQty := decimal.Min(remainingQty, batch.Remaining)
		selections = append(selections, strategy.BatchSelection{
			BatchID:        batch.ID,
			BatchNumber:    batch.BatchNumber,
			Quantity:       selectedQty,
			UnitCost:       batch.UnitCost,
			ExpirationDate: batch.ExpirationDate,
		})

		remainingQty = remainingQty.Sub(selectedQty)
		totalQty = totalQty.Add(selectedQty)
	}

	return strategy.BatchSelectionResult{
		Selections:   selections,
		TotalQty:     totalQty,
		ShortfallQty: decimal.Max(decimal.Zero, remainingQty),
	}, nil
}

// selectOrdered applies explicit ids when present, the given order otherwise
func selectOrdered(selCtx strategy.BatchSelectionContext, batches []strategy.Batch, order func([]strategy.Batch) []strategy.Batch) (strategy.BatchSelectionResult, error) {
	if len(selCtx.ExplicitBatchIDs) > 0 {
		return selectFromBatches(restrictToExplicit(batches, selCtx.ExplicitBatchIDs), selCtx.Quantity)
	}
	return selectFromBatches(order(batches), selCtx.Quantity)
}
