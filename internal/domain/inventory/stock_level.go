package inventory

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockKey identifies a StockLevel and is the unit of mutual exclusion
type StockKey struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
}

// NewStockKey builds a key
func NewStockKey(itemID, locationID uuid.UUID) StockKey {
	return StockKey{ItemID: itemID, LocationID: locationID}
}

// String returns "item@location"
func (k StockKey) String() string {
	return k.ItemID.String() + "@" + k.LocationID.String()
}

// Less gives keys a total order so multi-key locking never deadlocks
func (k StockKey) Less(other StockKey) bool {
	if c := bytes.Compare(k.ItemID[:], other.ItemID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(k.LocationID[:], other.LocationID[:]) < 0
}

// StockLevel is the quantity on hand and promised for one item at one location.
// Only the StockLedger mutates it.
type StockLevel struct {
	ItemID           uuid.UUID
	LocationID       uuid.UUID
	CurrentQuantity  decimal.Decimal
	ReservedQuantity decimal.Decimal
	// Version is 0 until first persisted
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewStockLevel creates an empty, not yet persisted level
func NewStockLevel(key StockKey, now time.Time) *StockLevel {
	return &StockLevel{
		ItemID:           key.ItemID,
		LocationID:       key.LocationID,
		CurrentQuantity:  decimal.Zero,
		ReservedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Key returns the level's key
func (s *StockLevel) Key() StockKey {
	return StockKey{ItemID: s.ItemID, LocationID: s.LocationID}
}

// Available returns current - reserved, never below zero
func (s *StockLevel) Available() decimal.Decimal {
	available := s.CurrentQuantity.Sub(s.ReservedQuantity)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// IsNew reports whether the level has never been saved
func (s *StockLevel) IsNew() bool {
	return s.Version == 0
}

// GetVersion returns the optimistic lock version
func (s *StockLevel) GetVersion() int {
	return s.Version
}

// IncrementVersion bumps the optimistic lock version
func (s *StockLevel) IncrementVersion() {
	s.Version++
}

// CheckInvariant verifies 0 <= reserved <= current
func (s *StockLevel) CheckInvariant() error {
	if s.CurrentQuantity.IsNegative() || s.ReservedQuantity.IsNegative() {
		return fmt.Errorf("stock level %s has negative quantity", s.Key())
	}
	if s.ReservedQuantity.GreaterThan(s.CurrentQuantity) {
		return fmt.Errorf("stock level %s reserves %s of %s", s.Key(), s.ReservedQuantity, s.CurrentQuantity)
	}
	return nil
}

func (s *StockLevel) increase(qty decimal.Decimal) {
	s.CurrentQuantity = s.CurrentQuantity.Add(qty)
}

// decrease removes up to qty and returns what was actually removed
func (s *StockLevel) decrease(qty decimal.Decimal) (applied decimal.Decimal, clamped bool) {
	if qty.GreaterThan(s.CurrentQuantity) {
		applied = s.CurrentQuantity
		s.CurrentQuantity = decimal.Zero
		return applied, true
	}
	s.CurrentQuantity = s.CurrentQuantity.Sub(qty)
	return qty, false
}

func (s *StockLevel) reserve(qty decimal.Decimal) bool {
	if s.Available().LessThan(qty) {
		return false
	}
	s.ReservedQuantity = s.ReservedQuantity.Add(qty)
	return true
}

func (s *StockLevel) release(qty decimal.Decimal) bool {
	if qty.GreaterThan(s.ReservedQuantity) {
		return false
	}
	s.ReservedQuantity = s.ReservedQuantity.Sub(qty)
	return true
}

// setAbsolute overwrites current and returns the signed variance
func (s *StockLevel) setAbsolute(qty decimal.Decimal) decimal.Decimal {
	variance := qty.Sub(s.CurrentQuantity)
	s.CurrentQuantity = qty
	return variance
}

// trimReserved caps reserved at current and returns how much was cut
func (s *StockLevel) trimReserved() decimal.Decimal {
	if s.ReservedQuantity.LessThanOrEqual(s.CurrentQuantity) {
		return decimal.Zero
	}
	cut := s.ReservedQuantity.Sub(s.CurrentQuantity)
	s.ReservedQuantity = s.CurrentQuantity
	return cut
}
