package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate root.
type InventoryItemModel struct {
	AggregateModel
	SKU                string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_inventory_items_sku"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Category           string          `gorm:"type:varchar(100);index"`
	Unit               string          `gorm:"type:varchar(20);not null"`
	ReorderThreshold   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinStockLevel      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaxStockLevel      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LeadTimeDays       int             `gorm:"not null;default:0"`
	TrackExpiration    bool            `gorm:"not null;default:false"`
	CostingMethod      string          `gorm:"type:varchar(32);not null"`
	AverageCost        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastCost           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive           bool            `gorm:"not null;default:true"`
	PreferredVendorID  *uuid.UUID      `gorm:"type:uuid"`
	AlternativeItemIDs []uuid.UUID     `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// ToDomain converts the persistence model to a domain InventoryItem entity.
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	return &inventory.InventoryItem{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		SKU:                m.SKU,
		Name:               m.Name,
		Category:           m.Category,
		Unit:               m.Unit,
		ReorderThreshold:   m.ReorderThreshold,
		MinStockLevel:      m.MinStockLevel,
		MaxStockLevel:      m.MaxStockLevel,
		LeadTimeDays:       m.LeadTimeDays,
		TrackExpiration:    m.TrackExpiration,
		CostingMethod:      inventory.CostingMethod(m.CostingMethod),
		AverageCost:        m.AverageCost,
		LastCost:           m.LastCost,
		IsActive:           m.IsActive,
		PreferredVendorID:  m.PreferredVendorID,
		AlternativeItemIDs: m.AlternativeItemIDs,
	}
}

// FromDomain populates the persistence model from a domain InventoryItem entity.
func (m *InventoryItemModel) FromDomain(i *inventory.InventoryItem) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.SKU = i.SKU
	m.Name = i.Name
	m.Category = i.Category
	m.Unit = i.Unit
	m.ReorderThreshold = i.ReorderThreshold
	m.MinStockLevel = i.MinStockLevel
	m.MaxStockLevel = i.MaxStockLevel
	m.LeadTimeDays = i.LeadTimeDays
	m.TrackExpiration = i.TrackExpiration
	m.CostingMethod = string(i.CostingMethod)
	m.AverageCost = i.AverageCost
	m.LastCost = i.LastCost
	m.IsActive = i.IsActive
	m.PreferredVendorID = i.PreferredVendorID
	m.AlternativeItemIDs = i.AlternativeItemIDs
}

// InventoryItemModelFromDomain creates a new persistence model from a domain InventoryItem entity.
func InventoryItemModelFromDomain(i *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{}
	m.FromDomain(i)
	return m
}

// StockLevelModel is keyed by (item, location) and versioned for optimistic locking.
type StockLevelModel struct {
	ItemID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LocationID       uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	CurrentQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Version          int             `gorm:"not null;default:1"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// ToDomain converts the persistence model to a domain StockLevel.
func (m *StockLevelModel) ToDomain() *inventory.StockLevel {
	return &inventory.StockLevel{
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		CurrentQuantity:  m.CurrentQuantity,
		ReservedQuantity: m.ReservedQuantity,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// StockLevelModelFromDomain creates a new persistence model from a domain StockLevel.
func StockLevelModelFromDomain(s *inventory.StockLevel) *StockLevelModel {
	return &StockLevelModel{
		ItemID:           s.ItemID,
		LocationID:       s.LocationID,
		CurrentQuantity:  s.CurrentQuantity,
		ReservedQuantity: s.ReservedQuantity,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// BatchModel is the persistence model for a lot.
type BatchModel struct {
	BaseModel
	ItemID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batches_item_number,priority:1;index:idx_batches_item_location,priority:1"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_item_location,priority:2"`
	BatchNumber       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_batches_item_number,priority:2"`
	ReceivedDate      time.Time       `gorm:"not null"`
	ExpirationDate    time.Time       `gorm:"not null;index"`
	InitialQuantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	VendorID          *uuid.UUID      `gorm:"type:uuid"`
	PurchaseOrderID   string          `gorm:"type:varchar(64)"`
	ParentBatchID     *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (BatchModel) TableName() string {
	return "batches"
}

// ToDomain converts the persistence model to a domain Batch.
func (m *BatchModel) ToDomain() *inventory.Batch {
	return &inventory.Batch{
		BaseEntity:        m.BaseModel.ToDomain(),
		ItemID:            m.ItemID,
		LocationID:        m.LocationID,
		BatchNumber:       m.BatchNumber,
		ReceivedDate:      m.ReceivedDate,
		ExpirationDate:    m.ExpirationDate,
		InitialQuantity:   m.InitialQuantity,
		RemainingQuantity: m.RemainingQuantity,
		UnitCost:          m.UnitCost,
		VendorID:          m.VendorID,
		PurchaseOrderID:   m.PurchaseOrderID,
		ParentBatchID:     m.ParentBatchID,
	}
}

// BatchModelFromDomain creates a new persistence model from a domain Batch.
func BatchModelFromDomain(b *inventory.Batch) *BatchModel {
	m := &BatchModel{
		ItemID:            b.ItemID,
		LocationID:        b.LocationID,
		BatchNumber:       b.BatchNumber,
		ReceivedDate:      b.ReceivedDate,
		ExpirationDate:    b.ExpirationDate,
		InitialQuantity:   b.InitialQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		VendorID:          b.VendorID,
		PurchaseOrderID:   b.PurchaseOrderID,
		ParentBatchID:     b.ParentBatchID,
	}
	m.FromDomainBaseEntity(b.BaseEntity)
	return m
}

// InventoryTransactionModel is the persistence model for a committed transaction.
// Lines are stored in their own table.
type InventoryTransactionModel struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Type                  string     `gorm:"type:varchar(20);not null;index:idx_inventory_transactions_type_date,priority:1"`
	Date                  time.Time  `gorm:"not null;index:idx_inventory_transactions_type_date,priority:2"`
	SourceLocationID      *uuid.UUID `gorm:"type:uuid"`
	DestinationLocationID *uuid.UUID `gorm:"type:uuid"`
	Reference             string     `gorm:"type:varchar(100);index"`
	Reason                string     `gorm:"type:varchar(255)"`
	Notes                 string     `gorm:"type:text"`
	CreatedAt             time.Time  `gorm:"not null"`
	CommittedAt           *time.Time

	Lines []InventoryTransactionLineModel `gorm:"foreignKey:TransactionID;references:ID"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *InventoryTransactionModel) ToDomain() *inventory.Transaction {
	tx := &inventory.Transaction{
		ID:                    m.ID,
		Type:                  inventory.TransactionType(m.Type),
		Date:                  m.Date,
		SourceLocationID:      m.SourceLocationID,
		DestinationLocationID: m.DestinationLocationID,
		Reference:             m.Reference,
		Reason:                m.Reason,
		Notes:                 m.Notes,
		Items:                 make([]inventory.TransactionItem, len(m.Lines)),
		CreatedAt:             m.CreatedAt,
		CommittedAt:           m.CommittedAt,
	}
	for i := range m.Lines {
		tx.Items[i] = m.Lines[i].ToDomain()
	}
	return tx
}

// InventoryTransactionModelFromDomain creates a new persistence model from a domain Transaction.
func InventoryTransactionModelFromDomain(tx *inventory.Transaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{
		ID:                    tx.ID,
		Type:                  string(tx.Type),
		Date:                  tx.Date,
		SourceLocationID:      tx.SourceLocationID,
		DestinationLocationID: tx.DestinationLocationID,
		Reference:             tx.Reference,
		Reason:                tx.Reason,
		Notes:                 tx.Notes,
		CreatedAt:             tx.CreatedAt,
		CommittedAt:           tx.CommittedAt,
		Lines:                 make([]InventoryTransactionLineModel, len(tx.Items)),
	}
	for i := range tx.Items {
		m.Lines[i] = InventoryTransactionLineModelFromDomain(tx.ID, &tx.Items[i])
	}
	return m
}

// InventoryTransactionLineModel holds one line with its outcome.
type InventoryTransactionLineModel struct {
	TransactionID       uuid.UUID               `gorm:"type:uuid;primaryKey"`
	LineNo              int                     `gorm:"primaryKey;autoIncrement:false"`
	ItemID              uuid.UUID               `gorm:"type:uuid;not null;index"`
	Quantity            decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	LocationID          uuid.UUID               `gorm:"type:uuid;not null"`
	BatchID             *uuid.UUID              `gorm:"type:uuid"`
	UnitCost            *decimal.Decimal        `gorm:"type:decimal(18,4)"`
	BatchNumber         string                  `gorm:"type:varchar(64)"`
	ExpirationDate      *time.Time
	VendorID            *uuid.UUID              `gorm:"type:uuid"`
	PurchaseOrderID     string                  `gorm:"type:varchar(64)"`
	Reason              string                  `gorm:"type:varchar(255)"`
	Status              string                  `gorm:"type:varchar(20);not null"`
	Movements           []inventory.LotMovement `gorm:"type:jsonb;serializer:json"`
	PreviousQuantity    *decimal.Decimal        `gorm:"type:decimal(18,4)"`
	Variance            *decimal.Decimal        `gorm:"type:decimal(18,4)"`
	LineCost            decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	UnallocatedQuantity decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
	AvailableQuantity   decimal.Decimal         `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryTransactionLineModel) TableName() string {
	return "inventory_transaction_lines"
}

// ToDomain converts the persistence model to a domain TransactionItem.
func (m *InventoryTransactionLineModel) ToDomain() inventory.TransactionItem {
	return inventory.TransactionItem{
		LineNo:              m.LineNo,
		ItemID:              m.ItemID,
		Quantity:            m.Quantity,
		LocationID:          m.LocationID,
		BatchID:             m.BatchID,
		UnitCost:            m.UnitCost,
		BatchNumber:         m.BatchNumber,
		ExpirationDate:      m.ExpirationDate,
		VendorID:            m.VendorID,
		PurchaseOrderID:     m.PurchaseOrderID,
		Reason:              m.Reason,
		Status:              inventory.LineStatus(m.Status),
		Movements:           m.Movements,
		PreviousQuantity:    m.PreviousQuantity,
		Variance:            m.Variance,
		LineCost:            m.LineCost,
		UnallocatedQuantity: m.UnallocatedQuantity,
		AvailableQuantity:   m.AvailableQuantity,
	}
}

// InventoryTransactionLineModelFromDomain creates a line model for transaction txID.
func InventoryTransactionLineModelFromDomain(txID uuid.UUID, line *inventory.TransactionItem) InventoryTransactionLineModel {
	return InventoryTransactionLineModel{
		TransactionID:       txID,
		LineNo:              line.LineNo,
		ItemID:              line.ItemID,
		Quantity:            line.Quantity,
		LocationID:          line.LocationID,
		BatchID:             line.BatchID,
		UnitCost:            line.UnitCost,
		BatchNumber:         line.BatchNumber,
		ExpirationDate:      line.ExpirationDate,
		VendorID:            line.VendorID,
		PurchaseOrderID:     line.PurchaseOrderID,
		Reason:              line.Reason,
		Status:              string(line.Status),
		Movements:           line.Movements,
		PreviousQuantity:    line.PreviousQuantity,
		Variance:            line.Variance,
		LineCost:            line.LineCost,
		UnallocatedQuantity: line.UnallocatedQuantity,
		AvailableQuantity:   line.AvailableQuantity,
	}
}

// ReservationModel is the persistence model for a reservation.
type ReservationModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservations_key_status,priority:1"`
	LocationID uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservations_key_status,priority:2"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reference  string          `gorm:"type:varchar(100)"`
	Status     string          `gorm:"type:varchar(20);not null;index:idx_reservations_key_status,priority:3"`
	CreatedAt  time.Time       `gorm:"not null"`
	ReleasedAt *time.Time
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ToDomain converts the persistence model to a domain Reservation.
func (m *ReservationModel) ToDomain() *inventory.Reservation {
	return &inventory.Reservation{
		ID:         m.ID,
		ItemID:     m.ItemID,
		LocationID: m.LocationID,
		Quantity:   m.Quantity,
		Reference:  m.Reference,
		Status:     inventory.ReservationStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		ReleasedAt: m.ReleasedAt,
	}
}

// ReservationModelFromDomain creates a new persistence model from a domain Reservation.
func ReservationModelFromDomain(r *inventory.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:         r.ID,
		ItemID:     r.ItemID,
		LocationID: r.LocationID,
		Quantity:   r.Quantity,
		Reference:  r.Reference,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt,
		ReleasedAt: r.ReleasedAt,
	}
}

// LocationModel is a storage area such as a walk-in or a dry pantry.
type LocationModel struct {
	BaseModel
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (LocationModel) TableName() string {
	return "locations"
}

// VendorModel is a supplier of items.
type VendorModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ToDomain converts the persistence model to the planning view of a vendor.
func (m *VendorModel) ToDomain() *inventory.Vendor {
	return &inventory.Vendor{ID: m.ID, Name: m.Name}
}

// VendorItemModel is what a vendor charges for an item.
type VendorItemModel struct {
	VendorID  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemID    uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Preferred bool            `gorm:"not null;default:false"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VendorItemModel) TableName() string {
	return "vendor_items"
}

// All returns every model of the ledger schema, in dependency order.
func All() []any {
	return []any{
		&LocationModel{},
		&VendorModel{},
		&InventoryItemModel{},
		&VendorItemModel{},
		&StockLevelModel{},
		&BatchModel{},
		&InventoryTransactionModel{},
		&InventoryTransactionLineModel{},
		&ReservationModel{},
	}
}
