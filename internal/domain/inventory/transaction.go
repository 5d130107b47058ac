package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a stock movement
type TransactionType string

const (
	TransactionTypeReceive    TransactionType = "RECEIVE"
	TransactionTypeConsume    TransactionType = "CONSUME"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	TransactionTypeWaste      TransactionType = "WASTE"
)

// IsValid returns true if the type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceive, TransactionTypeConsume, TransactionTypeTransfer,
		TransactionTypeAdjustment, TransactionTypeWaste:
		return true
	}
	return false
}

// String returns the string representation
func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType parses a type name, case-insensitively
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
	}
	return t, nil
}

// unitCostRule says whether a line may or must carry a unit cost
type unitCostRule int

const (
	unitCostOptional unitCostRule = iota
	unitCostRequired
	unitCostForbidden
)

var unitCostRules = map[TransactionType]unitCostRule{
	TransactionTypeReceive:    unitCostRequired,
	TransactionTypeConsume:    unitCostForbidden,
	TransactionTypeTransfer:   unitCostForbidden,
	TransactionTypeAdjustment: unitCostOptional,
	TransactionTypeWaste:      unitCostForbidden,
}

// LineStatus is the outcome of one transaction line
type LineStatus string

const (
	LineStatusPending     LineStatus = "PENDING"
	LineStatusCommitted   LineStatus = "COMMITTED"
	LineStatusUnavailable LineStatus = "UNAVAILABLE"
)

// MovementKind describes what happened to a lot
type MovementKind string

const (
	MovementReceived MovementKind = "RECEIVED"
	MovementConsumed MovementKind = "CONSUMED"
	MovementWasted   MovementKind = "WASTED"
	MovementMoved    MovementKind = "MOVED"
	MovementSplit    MovementKind = "SPLIT"
	MovementAdjusted MovementKind = "ADJUSTED"
)

// ReducesRemaining reports whether the movement lowered the lot's remaining quantity
func (k MovementKind) ReducesRemaining() bool {
	return k == MovementConsumed || k == MovementWasted || k == MovementSplit || k == MovementAdjusted
}

// LotMovement records one lot touched by a line
type LotMovement struct {
	Kind           MovementKind    `json:"kind"`
	BatchID        uuid.UUID       `json:"batch_id"`
	BatchNumber    string          `json:"batch_number"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	FromLocationID uuid.UUID       `json:"from_location_id"`
	ToLocationID   uuid.UUID       `json:"to_location_id"`
	ChildBatchID   *uuid.UUID      `json:"child_batch_id,omitempty"`
}

// TransactionItem is one line. The input fields are set by the caller; the
// outcome fields are filled in when the transaction is processed.
type TransactionItem struct {
	LineNo          int
	ItemID          uuid.UUID
	Quantity        decimal.Decimal
	LocationID      uuid.UUID
	BatchID         *uuid.UUID
	UnitCost        *decimal.Decimal
	BatchNumber     string
	ExpirationDate  *time.Time
	VendorID        *uuid.UUID
	PurchaseOrderID string
	Reason          string

	Status              LineStatus
	Movements           []LotMovement
	PreviousQuantity    *decimal.Decimal
	Variance            *decimal.Decimal
	LineCost            decimal.Decimal
	UnallocatedQuantity decimal.Decimal
	AvailableQuantity   decimal.Decimal
}

// Transaction is an immutable, once committed, record of a stock movement
type Transaction struct {
	ID                    uuid.UUID
	Type                  TransactionType
	Date                  time.Time
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
	Reference             string
	Reason                string
	Notes                 string
	Items                 []TransactionItem
	CreatedAt             time.Time
	CommittedAt           *time.Time
}

// NewTransactionParams carries the input for NewTransaction
type NewTransactionParams struct {
	Type                  TransactionType
	Date                  time.Time
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
	Reference             string
	Reason                string
	Notes                 string
	Items                 []TransactionItem
}

// NewTransaction builds and validates a transaction. Lines without a location
// take the one implied by the type.
func NewTransaction(p NewTransactionParams, now time.Time) (*Transaction, error) {
	date := p.Date
	if date.IsZero() {
		date = now
	}
	items := make([]TransactionItem, len(p.Items))
	copy(items, p.Items)

	tx := &Transaction{
		ID:                    uuid.New(),
		Type:                  p.Type,
		Date:                  date,
		SourceLocationID:      p.SourceLocationID,
		DestinationLocationID: p.DestinationLocationID,
		Reference:             strings.TrimSpace(p.Reference),
		Reason:                strings.TrimSpace(p.Reason),
		Notes:                 p.Notes,
		Items:                 items,
		CreatedAt:             now,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// IsCommitted returns true once the transaction has been applied
func (t *Transaction) IsCommitted() bool {
	return t.CommittedAt != nil
}

// Validate checks structure only; it never looks at stock.
// It also normalizes line numbers, statuses and line locations.
func (t *Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTransactionType, t.Type)
	}
	if len(t.Items) == 0 {
		return ErrEmptyTransaction
	}
	if err := t.validateLocations(); err != nil {
		return err
	}

	rule := unitCostRules[t.Type]
	for i := range t.Items {
		line := &t.Items[i]
		line.LineNo = i + 1
		if line.Status == "" {
			line.Status = LineStatusPending
		}
		if line.ItemID == uuid.Nil {
			return fmt.Errorf("%w: line %d has no item", ErrInvalidItem, line.LineNo)
		}
		if err := t.validateQuantity(line); err != nil {
			return err
		}
		if err := validateUnitCost(rule, line); err != nil {
			return err
		}
		if err := t.resolveLineLocation(line); err != nil {
			return err
		}
		if t.Type == TransactionTypeWaste && t.Reason == "" && strings.TrimSpace(line.Reason) == "" {
			return fmt.Errorf("%w: line %d", ErrReasonRequired, line.LineNo)
		}
	}
	return nil
}

func (t *Transaction) validateLocations() error {
	switch t.Type {
	case TransactionTypeReceive:
		if isNilID(t.DestinationLocationID) {
			return ErrMissingDestinationLocation
		}
	case TransactionTypeConsume, TransactionTypeWaste:
		if isNilID(t.SourceLocationID) {
			return ErrMissingSourceLocation
		}
	case TransactionTypeTransfer:
		if isNilID(t.DestinationLocationID) {
			return ErrMissingDestinationLocation
		}
		if isNilID(t.SourceLocationID) {
			return ErrMissingSourceLocation
		}
		if *t.SourceLocationID == *t.DestinationLocationID {
			return ErrInvalidTransferRoute
		}
	}
	return nil
}

func (t *Transaction) validateQuantity(line *TransactionItem) error {
	// An adjustment line is a counted total, so zero is a valid count.
	if t.Type == TransactionTypeAdjustment {
		if line.Quantity.IsNegative() {
			return fmt.Errorf("%w: line %d counted %s", ErrInvalidTransactionQuantity, line.LineNo, line.Quantity)
		}
		return nil
	}
	if !line.Quantity.IsPositive() {
		return fmt.Errorf("%w: line %d has %s", ErrInvalidTransactionQuantity, line.LineNo, line.Quantity)
	}
	return nil
}

func validateUnitCost(rule unitCostRule, line *TransactionItem) error {
	switch rule {
	case unitCostRequired:
		if line.UnitCost == nil {
			return fmt.Errorf("%w: line %d requires a unit cost", ErrInvalidUnitCost, line.LineNo)
		}
	case unitCostForbidden:
		if line.UnitCost != nil {
			return fmt.Errorf("%w: line %d must not carry a unit cost", ErrInvalidUnitCost, line.LineNo)
		}
	}
	if line.UnitCost != nil && line.UnitCost.IsNegative() {
		return fmt.Errorf("%w: line %d has negative unit cost", ErrInvalidUnitCost, line.LineNo)
	}
	return nil
}

func (t *Transaction) resolveLineLocation(line *TransactionItem) error {
	switch t.Type {
	case TransactionTypeReceive:
		line.LocationID = *t.DestinationLocationID
	case TransactionTypeConsume, TransactionTypeWaste, TransactionTypeTransfer:
		line.LocationID = *t.SourceLocationID
	case TransactionTypeAdjustment:
		if line.LocationID != uuid.Nil {
			return nil
		}
		switch {
		case !isNilID(t.SourceLocationID):
			line.LocationID = *t.SourceLocationID
		case !isNilID(t.DestinationLocationID):
			line.LocationID = *t.DestinationLocationID
		default:
			return fmt.Errorf("%w: adjustment line %d has no location", ErrMissingSourceLocation, line.LineNo)
		}
	}
	return nil
}

// LocationIDs returns every location the transaction touches
func (t *Transaction) LocationIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, 2)
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if t.SourceLocationID != nil {
		add(*t.SourceLocationID)
	}
	if t.DestinationLocationID != nil {
		add(*t.DestinationLocationID)
	}
	for _, line := range t.Items {
		add(line.LocationID)
	}
	return ids
}

// CommittedLines returns lines applied in full
func (t *Transaction) CommittedLines() []TransactionItem {
	return t.linesWithStatus(LineStatusCommitted)
}

// UnavailableLines returns lines skipped for lack of stock
func (t *Transaction) UnavailableLines() []TransactionItem {
	return t.linesWithStatus(LineStatusUnavailable)
}

func (t *Transaction) linesWithStatus(status LineStatus) []TransactionItem {
	lines := make([]TransactionItem, 0, len(t.Items))
	for _, line := range t.Items {
		if line.Status == status {
			lines = append(lines, line)
		}
	}
	return lines
}

func isNilID(id *uuid.UUID) bool {
	return id == nil || *id == uuid.Nil
}
