package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemCatalog is the read side of the item store
type ItemCatalog interface {
	// GetItem returns ErrItemNotFound if no item has id
	GetItem(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	// FindBySku returns ErrItemNotFound if no item has sku
	FindBySku(ctx context.Context, sku string) (*InventoryItem, error)
}

// Sort keys accepted by ItemFilter.SortBy. Anything else sorts by SKU.
const (
	ItemSortSKU       = "sku"
	ItemSortName      = "name"
	ItemSortCategory  = "category"
	ItemSortCreatedAt = "created_at"
)

// ItemFilter narrows FindAll
type ItemFilter struct {
	IDs        []uuid.UUID
	Categories []string
	ActiveOnly bool
	SortBy     string
	SortDesc   bool
}

// ItemRepository persists items
type ItemRepository interface {
	ItemCatalog
	FindAll(ctx context.Context, filter ItemFilter) ([]InventoryItem, error)
	Save(ctx context.Context, item *InventoryItem) error
}

// Vendor is the slice of vendor data planning needs
type Vendor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// VendorCatalog is consulted only by the PlanningEngine
type VendorCatalog interface {
	// GetPreferredVendor returns ErrVendorNotFound if the item has none
	GetPreferredVendor(ctx context.Context, itemID uuid.UUID) (*Vendor, error)
	// UnitCost returns ErrVendorNotFound if the vendor does not sell the item
	UnitCost(ctx context.Context, vendorID, itemID uuid.UUID) (decimal.Decimal, error)
}

// LocationDirectory validates location references
type LocationDirectory interface {
	Exists(ctx context.Context, locationID uuid.UUID) (bool, error)
}

// EventSink receives events. Publish must not block on delivery and has no
// error path; sinks log their own failures.
type EventSink interface {
	Publish(ctx context.Context, events ...Event)
}

// StockLevelRepository persists stock levels
type StockLevelRepository interface {
	// Find returns ErrStockLevelNotFound if the key has never been stocked
	Find(ctx context.Context, key StockKey) (*StockLevel, error)
	// Save inserts a level with Version 1 or updates one whose stored
	// version is Version-1, failing with shared.ErrConcurrencyConflict otherwise
	Save(ctx context.Context, level *StockLevel) error
	FindByLocation(ctx context.Context, locationID uuid.UUID) ([]StockLevel, error)
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]StockLevel, error)
	FindAll(ctx context.Context) ([]StockLevel, error)
}

// BatchFilter narrows FindAll
type BatchFilter struct {
	ItemID        *uuid.UUID
	LocationID    *uuid.UUID
	OnlyRemaining bool
}

// BatchRepository persists lots
type BatchRepository interface {
	// FindByID returns ErrBatchNotFound if no lot has id
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	// FindByNumber returns ErrBatchNotFound if the item has no lot with number
	FindByNumber(ctx context.Context, itemID uuid.UUID, number string) (*Batch, error)
	FindAll(ctx context.Context, filter BatchFilter) ([]Batch, error)
	Save(ctx context.Context, batch *Batch) error
}

// TransactionRepository stores the committed transaction log
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	// FindByID returns ErrTransactionNotFound if no transaction has id
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// FindByReference returns ErrTransactionNotFound if nothing carries reference
	FindByReference(ctx context.Context, reference string) (*Transaction, error)
	// FindSince returns transactions dated strictly after since, oldest first.
	// No types means all types.
	FindSince(ctx context.Context, since time.Time, types ...TransactionType) ([]Transaction, error)
	// LatestReceiptCost returns the unit cost of the most recent receive line for the item
	LatestReceiptCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, bool, error)
}

// ReservationRepository persists reservations
type ReservationRepository interface {
	// FindByID returns ErrReservationNotFound if no reservation has id
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindActive(ctx context.Context, key StockKey) ([]Reservation, error)
	Save(ctx context.Context, reservation *Reservation) error
}

// Repositories bundles the stores a unit of work writes through
type Repositories struct {
	Items        ItemRepository
	Levels       StockLevelRepository
	Batches      BatchRepository
	Transactions TransactionRepository
	Reservations ReservationRepository
}

// TransactionScope runs fn against repositories that commit or roll back
// together
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}
