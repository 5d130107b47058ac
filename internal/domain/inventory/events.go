package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind tags an Event's payload
type EventKind string

const (
	EventKindItemLowStock               EventKind = "ItemLowStock"
	EventKindOutOfStock                 EventKind = "OutOfStock"
	EventKindStockReserved              EventKind = "StockReserved"
	EventKindStockReleased              EventKind = "StockReleased"
	EventKindInsufficientStockAvailable EventKind = "InsufficientStockAvailable"
	EventKindBatchConsumed              EventKind = "BatchConsumed"
	EventKindBatchExpired               EventKind = "BatchExpired"
	EventKindBatchExpiringSoon          EventKind = "BatchExpiringSoon"
	EventKindTransactionCompleted       EventKind = "TransactionCompleted"
)

// EventPayload is implemented only by the payload types in this file
type EventPayload interface {
	Kind() EventKind
}

// Event is a tagged union: Kind says which payload type Payload holds
type Event struct {
	ID         uuid.UUID    `json:"id"`
	Kind       EventKind    `json:"kind"`
	OccurredAt time.Time    `json:"occurred_at"`
	ItemID     uuid.UUID    `json:"item_id"`
	LocationID uuid.UUID    `json:"location_id"`
	Payload    EventPayload `json:"payload"`
}

// NewEvent wraps a payload for an item/location
func NewEvent(payload EventPayload, key StockKey, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       payload.Kind(),
		OccurredAt: now,
		ItemID:     key.ItemID,
		LocationID: key.LocationID,
		Payload:    payload,
	}
}

// ItemLowStockPayload fires when available falls to or below the reorder threshold
type ItemLowStockPayload struct {
	Available        decimal.Decimal `json:"available"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
}

// OutOfStockPayload fires when available reaches zero
type OutOfStockPayload struct {
	Current  decimal.Decimal `json:"current"`
	Reserved decimal.Decimal `json:"reserved"`
}

// StockReservedPayload fires after a successful reservation
type StockReservedPayload struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	Reference     string          `json:"reference"`
	Quantity      decimal.Decimal `json:"quantity"`
	Available     decimal.Decimal `json:"available"`
}

// StockReleasedPayload fires after a reservation is released
type StockReleasedPayload struct {
	ReservationID uuid.UUID       `json:"reservation_id"`
	Reference     string          `json:"reference"`
	Quantity      decimal.Decimal `json:"quantity"`
	Available     decimal.Decimal `json:"available"`
}

// InsufficientStockPayload fires when a reservation or line cannot be covered
type InsufficientStockPayload struct {
	Operation     string          `json:"operation"`
	Requested     decimal.Decimal `json:"requested"`
	Available     decimal.Decimal `json:"available"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	LineNo        int             `json:"line_no,omitempty"`
}

// BatchConsumedPayload fires for each lot drawn down by consumption or waste
type BatchConsumedPayload struct {
	BatchID       uuid.UUID       `json:"batch_id"`
	BatchNumber   string          `json:"batch_number"`
	Quantity      decimal.Decimal `json:"quantity"`
	Remaining     decimal.Decimal `json:"remaining"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Wasted        bool            `json:"wasted"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// BatchExpiredPayload fires when a lot with stock left has expired
type BatchExpiredPayload struct {
	BatchID        uuid.UUID       `json:"batch_id"`
	BatchNumber    string          `json:"batch_number"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// BatchExpiringSoonPayload fires when a lot expires inside the warning window
type BatchExpiringSoonPayload struct {
	BatchID        uuid.UUID       `json:"batch_id"`
	BatchNumber    string          `json:"batch_number"`
	ExpirationDate time.Time       `json:"expiration_date"`
	Remaining      decimal.Decimal `json:"remaining"`
	DaysLeft       int             `json:"days_left"`
}

// TransactionCompletedPayload summarizes a processed transaction
type TransactionCompletedPayload struct {
	TransactionID    uuid.UUID       `json:"transaction_id"`
	Type             TransactionType `json:"type"`
	Reference        string          `json:"reference,omitempty"`
	CommittedLines   int             `json:"committed_lines"`
	UnavailableLines int             `json:"unavailable_lines"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	WasteCost        decimal.Decimal `json:"waste_cost"`
}

func (ItemLowStockPayload) Kind() EventKind         { return EventKindItemLowStock }
func (OutOfStockPayload) Kind() EventKind           { return EventKindOutOfStock }
func (StockReservedPayload) Kind() EventKind        { return EventKindStockReserved }
func (StockReleasedPayload) Kind() EventKind        { return EventKindStockReleased }
func (InsufficientStockPayload) Kind() EventKind    { return EventKindInsufficientStockAvailable }
func (BatchConsumedPayload) Kind() EventKind        { return EventKindBatchConsumed }
func (BatchExpiredPayload) Kind() EventKind         { return EventKindBatchExpired }
func (BatchExpiringSoonPayload) Kind() EventKind    { return EventKindBatchExpiringSoon }
func (TransactionCompletedPayload) Kind() EventKind { return EventKindTransactionCompleted }

// eventPayloadFactories is the registration table used to decode payloads.
// Adding an event kind means adding a line here.
var eventPayloadFactories = map[EventKind]func() EventPayload{
	EventKindItemLowStock:               func() EventPayload { return &ItemLowStockPayload{} },
	EventKindOutOfStock:                 func() EventPayload { return &OutOfStockPayload{} },
	EventKindStockReserved:              func() EventPayload { return &StockReservedPayload{} },
	EventKindStockReleased:              func() EventPayload { return &StockReleasedPayload{} },
	EventKindInsufficientStockAvailable: func() EventPayload { return &InsufficientStockPayload{} },
	EventKindBatchConsumed:              func() EventPayload { return &BatchConsumedPayload{} },
	EventKindBatchExpired:               func() EventPayload { return &BatchExpiredPayload{} },
	EventKindBatchExpiringSoon:          func() EventPayload { return &BatchExpiringSoonPayload{} },
	EventKindTransactionCompleted:       func() EventPayload { return &TransactionCompletedPayload{} },
}

// NewPayload returns an empty payload pointer for kind, ready to unmarshal into
func NewPayload(kind EventKind) (EventPayload, error) {
	factory, ok := eventPayloadFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unregistered event kind %q", kind)
	}
	return factory(), nil
}

// RegisteredEventKinds lists every kind in the registration table
func RegisteredEventKinds() []EventKind {
	kinds := make([]EventKind, 0, len(eventPayloadFactories))
	for kind := range eventPayloadFactories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
