package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
)

// Batch is a received lot of one item: one cost, one expiration date, one
// location at a time.
type Batch struct {
	shared.BaseEntity
	ItemID            uuid.UUID
	LocationID        uuid.UUID
	BatchNumber       string
	ReceivedDate      time.Time
	ExpirationDate    time.Time
	InitialQuantity   decimal.Decimal
	RemainingQuantity decimal.Decimal
	UnitCost          decimal.Decimal
	VendorID          *uuid.UUID
	PurchaseOrderID   string
	// ParentBatchID is set on lots split off by a partial transfer
	ParentBatchID *uuid.UUID
}

// NewBatchParams carries the input for NewBatch
type NewBatchParams struct {
	ItemID          uuid.UUID
	LocationID      uuid.UUID
	BatchNumber     string
	ReceivedDate    time.Time
	ExpirationDate  time.Time
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	VendorID        *uuid.UUID
	PurchaseOrderID string
}

// NewBatch validates params and creates a lot with remaining = initial
func NewBatch(p NewBatchParams, now time.Time) (*Batch, error) {
	if p.ItemID == uuid.Nil || p.LocationID == uuid.Nil {
		return nil, fmt.Errorf("%w: item and location are required", ErrInvalidBatch)
	}
	number := strings.TrimSpace(p.BatchNumber)
	if number == "" {
		return nil, fmt.Errorf("%w: batch number cannot be empty", ErrInvalidBatch)
	}
	if !p.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: batch quantity must be positive", ErrInvalidTransactionQuantity)
	}
	if p.UnitCost.IsNegative() {
		return nil, ErrInvalidUnitCost
	}
	if p.ExpirationDate.IsZero() {
		return nil, ErrMissingExpirationDate
	}
	if !p.ExpirationDate.After(p.ReceivedDate) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrInvalidExpirationDate,
			p.ExpirationDate.Format(time.DateOnly), p.ReceivedDate.Format(time.DateOnly))
	}

	return &Batch{
		BaseEntity:        shared.NewBaseEntity(now),
		ItemID:            p.ItemID,
		LocationID:        p.LocationID,
		BatchNumber:       number,
		ReceivedDate:      p.ReceivedDate,
		ExpirationDate:    p.ExpirationDate,
		InitialQuantity:   p.Quantity,
		RemainingQuantity: p.Quantity,
		UnitCost:          p.UnitCost,
		VendorID:          p.VendorID,
		PurchaseOrderID:   p.PurchaseOrderID,
	}, nil
}

// HasRemaining returns true if anything is left in the lot
func (b *Batch) HasRemaining() bool {
	return b.RemainingQuantity.IsPositive()
}

// IsExpired returns true once now has reached the expiration date
func (b *Batch) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpirationDate)
}

// ExpiresWithin returns true if the lot expires within windowDays of now
func (b *Batch) ExpiresWithin(now time.Time, windowDays int) bool {
	return b.ExpirationDate.Before(now.AddDate(0, 0, windowDays))
}

// DaysUntilExpiry returns whole days until expiration, negative once expired
func (b *Batch) DaysUntilExpiry(now time.Time) int {
	return int(b.ExpirationDate.Sub(now).Hours() / 24)
}

// Value returns remaining × unit cost
func (b *Batch) Value() decimal.Decimal {
	return b.RemainingQuantity.Mul(b.UnitCost)
}

// OriginDate is when the lot came into being at all: the receipt date, or the
// split time for lots split off by a transfer.
func (b *Batch) OriginDate() time.Time {
	if b.ParentBatchID != nil {
		return b.CreatedAt
	}
	return b.ReceivedDate
}

// CheckInvariant verifies 0 <= remaining <= initial
func (b *Batch) CheckInvariant() error {
	if b.RemainingQuantity.IsNegative() || b.RemainingQuantity.GreaterThan(b.InitialQuantity) {
		return fmt.Errorf("batch %s remaining %s outside [0, %s]", b.BatchNumber, b.RemainingQuantity, b.InitialQuantity)
	}
	return nil
}

// consume takes up to qty and returns what was taken, clamped at remaining
func (b *Batch) consume(qty decimal.Decimal, now time.Time) (taken decimal.Decimal, clamped bool) {
	if !qty.IsPositive() {
		return decimal.Zero, false
	}
	if qty.GreaterThan(b.RemainingQuantity) {
		taken = b.RemainingQuantity
		clamped = true
	} else {
		taken = qty
	}
	b.RemainingQuantity = b.RemainingQuantity.Sub(taken)
	b.Touch(now)
	return taken, clamped
}

// moveTo relocates the whole lot, keeping its identity
func (b *Batch) moveTo(locationID uuid.UUID, now time.Time) {
	b.LocationID = locationID
	b.Touch(now)
}

// split carves qty off into a new lot at locationID with the same cost and dates
func (b *Batch) split(qty decimal.Decimal, locationID uuid.UUID, now time.Time) (*Batch, error) {
	if !qty.IsPositive() || !qty.LessThan(b.RemainingQuantity) {
		return nil, fmt.Errorf("%w: split quantity %s must be within remaining %s", ErrInvalidBatch, qty, b.RemainingQuantity)
	}
	parentID := b.ID
	child := &Batch{
		BaseEntity:        shared.NewBaseEntity(now),
		ItemID:            b.ItemID,
		LocationID:        locationID,
		ReceivedDate:      b.ReceivedDate,
		ExpirationDate:    b.ExpirationDate,
		InitialQuantity:   qty,
		RemainingQuantity: qty,
		UnitCost:          b.UnitCost,
		VendorID:          b.VendorID,
		PurchaseOrderID:   b.PurchaseOrderID,
		ParentBatchID:     &parentID,
	}
	child.BatchNumber = fmt.Sprintf("%s-S%s", b.BatchNumber, strings.ToUpper(child.ID.String()[:6]))
	b.RemainingQuantity = b.RemainingQuantity.Sub(qty)
	b.Touch(now)
	return child, nil
}

func (b *Batch) toStrategyBatch() strategy.Batch {
	return strategy.Batch{
		ID:             b.ID,
		BatchNumber:    b.BatchNumber,
		Remaining:      b.RemainingQuantity,
		UnitCost:       b.UnitCost,
		ReceivedDate:   b.ReceivedDate,
		ExpirationDate: b.ExpirationDate,
	}
}

func (b *Batch) toCostLayer() strategy.CostLayer {
	return strategy.CostLayer{
		BatchID:        b.ID,
		Quantity:       b.RemainingQuantity,
		UnitCost:       b.UnitCost,
		ReceivedDate:   b.ReceivedDate,
		ExpirationDate: b.ExpirationDate,
	}
}

// GenerateBatchNumber builds a lot number from the receipt date
func GenerateBatchNumber(receivedDate time.Time) string {
	return fmt.Sprintf("LOT-%s-%s", receivedDate.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
