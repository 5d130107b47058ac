package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is the strategy-facing view of a lot
type Batch struct {
	ID             uuid.UUID
	BatchNumber    string
	Remaining      decimal.Decimal
	UnitCost       decimal.Decimal
	ReceivedDate   time.Time
	ExpirationDate time.Time
}

// BatchSelection is the quantity taken from one lot
type BatchSelection struct {
	BatchID        uuid.UUID
	BatchNumber    string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	ExpirationDate time.Time
}

// BatchSelectionContext provides context for batch selection
type BatchSelectionContext struct {
	Quantity decimal.Decimal
	// ExplicitBatchIDs, when set, restricts selection to these lots in this order
	ExplicitBatchIDs []uuid.UUID
}

// BatchSelectionResult contains the result of batch selection
type BatchSelectionResult struct {
	Selections   []BatchSelection
	TotalQty     decimal.Decimal
	ShortfallQty decimal.Decimal
}

// BatchSelectionStrategy orders lots and walks them to cover a quantity
type BatchSelectionStrategy interface {
	Strategy
	// Order returns a sorted copy of batches in consumption order
	Order(batches []Batch) []Batch
	// SelectBatches selects lots for consumption based on strategy rules
	SelectBatches(ctx context.Context, selCtx BatchSelectionContext, batches []Batch) (BatchSelectionResult, error)
	// ConsidersExpiry returns true if the ordering looks at expiration dates
	ConsidersExpiry() bool
}
