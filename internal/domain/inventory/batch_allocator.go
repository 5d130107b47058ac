package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// Batch selection strategy names, as registered in the strategy registry
const (
	BatchStrategyFIFO      = "fifo"
	BatchStrategyLIFO      = "lifo"
	BatchStrategyFEFO      = "fefo"
	BatchStrategySpecified = "specified"
)

// BatchStrategyProvider resolves batch selection strategies by name
type BatchStrategyProvider interface {
	GetBatchStrategy(name string) (strategy.BatchSelectionStrategy, error)
}

// BatchStrategyName maps a costing method to its lot ordering.
// Anything that does not name an order consumes first-expired first.
func BatchStrategyName(method CostingMethod) string {
	switch method {
	case CostingMethodFIFO:
		return BatchStrategyFIFO
	case CostingMethodLIFO:
		return BatchStrategyLIFO
	default:
		return BatchStrategyFEFO
	}
}

// Allocation is a quantity to take from one lot
type Allocation struct {
	Batch    *Batch
	Quantity decimal.Decimal
}

// AllocationPlan is the answer to TrySelect
type AllocationPlan struct {
	Success     bool
	Allocations []Allocation
	Requested   decimal.Decimal
	Allocated   decimal.Decimal
	Unfulfilled decimal.Decimal
}

// BatchClassification partitions lots with stock left by expiration
type BatchClassification struct {
	Expired      []Batch
	ExpiringSoon []Batch
	Active       []Batch
}

// BatchAllocator decides which lots satisfy a consumption. It never changes
// a lot; the TransactionProcessor applies the plan.
type BatchAllocator struct {
	batches    BatchRepository
	strategies BatchStrategyProvider
}

// NewBatchAllocator creates an allocator
func NewBatchAllocator(batches BatchRepository, strategies BatchStrategyProvider) *BatchAllocator {
	return &BatchAllocator{
		batches:    batches,
		strategies: strategies,
	}
}

// SelectForConsumption returns the ordered (lot, qty) pairs covering as much
// of qty as the eligible lots allow. Explicit ids restrict selection to
// those lots, in that order.
func (a *BatchAllocator) SelectForConsumption(ctx context.Context, item *InventoryItem, qty decimal.Decimal, locationID uuid.UUID, explicitBatchIDs []uuid.UUID) ([]Allocation, error) {
	plan, err := a.TrySelect(ctx, item, qty, locationID, explicitBatchIDs)
	if err != nil {
		return nil, err
	}
	return plan.Allocations, nil
}

// TrySelect plans a consumption without changing anything.
// Success is true iff the plan covers qty in full.
func (a *BatchAllocator) TrySelect(ctx context.Context, item *InventoryItem, qty decimal.Decimal, locationID uuid.UUID, explicitBatchIDs []uuid.UUID) (AllocationPlan, error) {
	if item == nil {
		return AllocationPlan{}, fmt.Errorf("%w: item is required", ErrInvalidItem)
	}
	if !qty.IsPositive() {
		return AllocationPlan{}, fmt.Errorf("%w: allocation of %s", ErrInvalidTransactionQuantity, qty)
	}
	if !item.TrackExpiration {
		return AllocationPlan{Success: true, Requested: qty, Allocated: decimal.Zero, Unfulfilled: decimal.Zero}, nil
	}

	itemID := item.ID
	candidates, err := a.batches.FindAll(ctx, BatchFilter{ItemID: &itemID, LocationID: &locationID, OnlyRemaining: true})
	if err != nil {
		return AllocationPlan{}, fmt.Errorf("failed to load batches: %w", err)
	}
	return a.plan(ctx, item, qty, candidates, explicitBatchIDs)
}

// plan walks candidates with the strategy chosen by the item or explicit ids
func (a *BatchAllocator) plan(ctx context.Context, item *InventoryItem, qty decimal.Decimal, candidates []Batch, explicitBatchIDs []uuid.UUID) (AllocationPlan, error) {
	name := BatchStrategyName(item.CostingMethod)
	if len(explicitBatchIDs) > 0 {
		name = BatchStrategySpecified
	}
	s, err := a.strategies.GetBatchStrategy(name)
	if err != nil {
		return AllocationPlan{}, err
	}

	byID := make(map[uuid.UUID]*Batch, len(candidates))
	views := make([]strategy.Batch, 0, len(candidates))
	for i := range candidates {
		b := &candidates[i]
		if b.ItemID != item.ID || !b.HasRemaining() {
			continue
		}
		byID[b.ID] = b
		views = append(views, b.toStrategyBatch())
	}

	result, err := s.SelectBatches(ctx, strategy.BatchSelectionContext{
		Quantity:         qty,
		ExplicitBatchIDs: explicitBatchIDs,
	}, views)
	if err != nil {
		return AllocationPlan{}, err
	}

	allocations := make([]Allocation, 0, len(result.Selections))
	for _, sel := range result.Selections {
		b, ok := byID[sel.BatchID]
		if !ok {
			continue
		}
		allocations = append(allocations, Allocation{Batch: b, Quantity: sel.Quantity})
	}
	return AllocationPlan{
		Success:     !result.ShortfallQty.IsPositive(),
		Allocations: allocations,
		Requested:   qty,
		Allocated:   result.TotalQty,
		Unfulfilled: result.ShortfallQty,
	}, nil
}

// Classify partitions lots with stock left into expired, expiring within
// windowDays of now, and active. Each group is ordered by expiration.
func (a *BatchAllocator) Classify(batches []Batch, now time.Time, windowDays int) BatchClassification {
	return ClassifyBatches(batches, now, windowDays)
}

// ClassifyBatches is Classify without an allocator
func ClassifyBatches(batches []Batch, now time.Time, windowDays int) BatchClassification {
	result := BatchClassification{
		Expired:      make([]Batch, 0),
		ExpiringSoon: make([]Batch, 0),
		Active:       make([]Batch, 0),
	}
	for _, b := range batches {
		if !b.HasRemaining() {
			continue
		}
		switch {
		case b.IsExpired(now):
			result.Expired = append(result.Expired, b)
		case b.ExpiresWithin(now, windowDays):
			result.ExpiringSoon = append(result.ExpiringSoon, b)
		default:
			result.Active = append(result.Active, b)
		}
	}
	for _, group := range [][]Batch{result.Expired, result.ExpiringSoon, result.Active} {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ExpirationDate.Before(group[j].ExpirationDate)
		})
	}
	return result
}

// TotalAllocated sums allocation quantities
func TotalAllocated(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Quantity)
	}
	return total
}
