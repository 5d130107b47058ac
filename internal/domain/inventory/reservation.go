package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus tracks whether a reservation still holds stock
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "ACTIVE"
	ReservationStatusReleased ReservationStatus = "RELEASED"
)

// Reservation is a named hold against a StockLevel's reserved quantity
type Reservation struct {
	ID         uuid.UUID
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Quantity   decimal.Decimal
	Reference  string
	Status     ReservationStatus
	CreatedAt  time.Time
	ReleasedAt *time.Time
}

// NewReservation creates an active reservation
func NewReservation(key StockKey, qty decimal.Decimal, reference string, now time.Time) (*Reservation, error) {
	if key.ItemID == uuid.Nil || key.LocationID == uuid.Nil {
		return nil, fmt.Errorf("%w: reservation needs item and location", ErrInvalidItem)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: reservation quantity %s", ErrNonPositiveQuantity, qty)
	}
	return &Reservation{
		ID:         uuid.New(),
		ItemID:     key.ItemID,
		LocationID: key.LocationID,
		Quantity:   qty,
		Reference:  strings.TrimSpace(reference),
		Status:     ReservationStatusActive,
		CreatedAt:  now,
	}, nil
}

// Key returns the stock key the reservation holds against
func (r *Reservation) Key() StockKey {
	return StockKey{ItemID: r.ItemID, LocationID: r.LocationID}
}

// IsActive returns true while the reservation holds stock
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

func (r *Reservation) markReleased(now time.Time) error {
	if !r.IsActive() {
		return fmt.Errorf("%w: %s", ErrReservationNotActive, r.ID)
	}
	r.Status = ReservationStatusReleased
	r.ReleasedAt = &now
	return nil
}
