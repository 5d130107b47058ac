package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CreateItemCommand registers a new inventory item
type CreateItemCommand struct {
	SKU                string          `json:"sku" validate:"required,max=64"`
	Name               string          `json:"name" validate:"required,max=200"`
	Category           string          `json:"category" validate:"max=100"`
	Unit               string          `json:"unit" validate:"required,max=20"`
	ReorderThreshold   decimal.Decimal `json:"reorder_threshold"`
	MinStockLevel      decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel      decimal.Decimal `json:"max_stock_level"`
	LeadTimeDays       int             `json:"lead_time_days" validate:"gte=0"`
	TrackExpiration    bool            `json:"track_expiration"`
	CostingMethod      string          `json:"costing_method" validate:"omitempty,oneof=FIFO LIFO FEFO WEIGHTED_AVERAGE LAST_PURCHASE_PRICE"`
	PreferredVendorID  *uuid.UUID      `json:"preferred_vendor_id"`
	AlternativeItemIDs []uuid.UUID     `json:"alternative_item_ids"`
}

// UpdateReorderPolicyCommand replaces an item's planning thresholds
type UpdateReorderPolicyCommand struct {
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
	MinStockLevel    decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel    decimal.Decimal `json:"max_stock_level"`
	LeadTimeDays     int             `json:"lead_time_days" validate:"gte=0"`
}

// ItemResponse is an inventory item as returned to callers
type ItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	Unit               string          `json:"unit"`
	ReorderThreshold   decimal.Decimal `json:"reorder_threshold"`
	MinStockLevel      decimal.Decimal `json:"min_stock_level"`
	MaxStockLevel      decimal.Decimal `json:"max_stock_level"`
	LeadTimeDays       int             `json:"lead_time_days"`
	TrackExpiration    bool            `json:"track_expiration"`
	CostingMethod      string          `json:"costing_method"`
	AverageCost        decimal.Decimal `json:"average_cost"`
	LastCost           decimal.Decimal `json:"last_cost"`
	IsActive           bool            `json:"is_active"`
	PreferredVendorID  *uuid.UUID      `json:"preferred_vendor_id,omitempty"`
	AlternativeItemIDs []uuid.UUID     `json:"alternative_item_ids"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Version            int             `json:"version"`
}

// ToItemResponse converts a domain item
func ToItemResponse(item *inventory.InventoryItem) ItemResponse {
	alternatives := item.AlternativeItemIDs
	if alternatives == nil {
		alternatives = []uuid.UUID{}
	}
	return ItemResponse{
		ID:                 item.ID,
		SKU:                item.SKU,
		Name:               item.Name,
		Category:           item.Category,
		Unit:               item.Unit,
		ReorderThreshold:   item.ReorderThreshold,
		MinStockLevel:      item.MinStockLevel,
		MaxStockLevel:      item.MaxStockLevel,
		LeadTimeDays:       item.LeadTimeDays,
		TrackExpiration:    item.TrackExpiration,
		CostingMethod:      item.CostingMethod.String(),
		AverageCost:        item.AverageCost,
		LastCost:           item.LastCost,
		IsActive:           item.IsActive,
		PreferredVendorID:  item.PreferredVendorID,
		AlternativeItemIDs: alternatives,
		CreatedAt:          item.CreatedAt,
		UpdatedAt:          item.UpdatedAt,
		Version:            item.Version,
	}
}

// ItemListFilter narrows ListItems
type ItemListFilter struct {
	Categories []string
	ActiveOnly bool
	// SortBy is one of sku, name, category or created_at
	SortBy   string
	SortDesc bool
}

// TransactionLineCommand is one line of a submitted transaction
type TransactionLineCommand struct {
	ItemID          uuid.UUID        `json:"item_id" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	LocationID      *uuid.UUID       `json:"location_id"`
	BatchID         *uuid.UUID       `json:"batch_id"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
	BatchNumber     string           `json:"batch_number" validate:"max=64"`
	ExpirationDate  *time.Time       `json:"expiration_date"`
	VendorID        *uuid.UUID       `json:"vendor_id"`
	PurchaseOrderID string           `json:"purchase_order_id" validate:"max=64"`
	Reason          string           `json:"reason" validate:"max=255"`
}

// SubmitTransactionCommand describes a stock movement. A non-empty
// Reference makes the submission idempotent.
type SubmitTransactionCommand struct {
	Type                  string                   `json:"type" validate:"required,oneof=RECEIVE CONSUME TRANSFER ADJUSTMENT WASTE"`
	Date                  *time.Time               `json:"date"`
	SourceLocationID      *uuid.UUID               `json:"source_location_id"`
	DestinationLocationID *uuid.UUID               `json:"destination_location_id"`
	Reference             string                   `json:"reference" validate:"max=128"`
	Reason                string                   `json:"reason" validate:"max=255"`
	Notes                 string                   `json:"notes" validate:"max=1000"`
	Lines                 []TransactionLineCommand `json:"lines" validate:"required,min=1,dive"`
}

// LotMovementResponse is one lot touched by a line
type LotMovementResponse struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// TransactionLineResponse is a processed line
type TransactionLineResponse struct {
	LineNo              int                   `json:"line_no"`
	ItemID              uuid.UUID             `json:"item_id"`
	LocationID          uuid.UUID             `json:"location_id"`
	Quantity            decimal.Decimal       `json:"quantity"`
	Status              string                `json:"status"`
	LineCost            decimal.Decimal       `json:"line_cost"`
	AvailableQuantity   decimal.Decimal       `json:"available_quantity"`
	UnallocatedQuantity decimal.Decimal       `json:"unallocated_quantity"`
	PreviousQuantity    *decimal.Decimal      `json:"previous_quantity,omitempty"`
	Variance            *decimal.Decimal      `json:"variance,omitempty"`
	Movements           []LotMovementResponse `json:"movements"`
}

// TransactionResponse is a committed transaction and its outcome
type TransactionResponse struct {
	ID                    uuid.UUID                 `json:"id"`
	Type                  string                    `json:"type"`
	Date                  time.Time                 `json:"date"`
	SourceLocationID      *uuid.UUID                `json:"source_location_id,omitempty"`
	DestinationLocationID *uuid.UUID                `json:"destination_location_id,omitempty"`
	Reference             string                    `json:"reference,omitempty"`
	Reason                string                    `json:"reason,omitempty"`
	CommittedAt           *time.Time                `json:"committed_at"`
	Lines                 []TransactionLineResponse `json:"lines"`
	CommittedLines        int                       `json:"committed_lines"`
	UnavailableLines      int                       `json:"unavailable_lines"`
	TotalCost             decimal.Decimal           `json:"total_cost"`
	WasteCost             decimal.Decimal           `json:"waste_cost"`
	Success               bool                      `json:"success"`
	// Replayed is set when the reference was already committed and the
	// stored transaction is returned instead of applying it again
	Replayed bool `json:"replayed"`
}

// ToTransactionResponse converts a stored transaction
func ToTransactionResponse(tx *inventory.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                    tx.ID,
		Type:                  tx.Type.String(),
		Date:                  tx.Date,
		SourceLocationID:      tx.SourceLocationID,
		DestinationLocationID: tx.DestinationLocationID,
		Reference:             tx.Reference,
		Reason:                tx.Reason,
		CommittedAt:           tx.CommittedAt,
		Lines:                 make([]TransactionLineResponse, 0, len(tx.Items)),
		TotalCost:             decimal.Zero,
		WasteCost:             decimal.Zero,
	}
	for i := range tx.Items {
		line := &tx.Items[i]
		movements := make([]LotMovementResponse, 0, len(line.Movements))
		for _, m := range line.Movements {
			movements = append(movements, LotMovementResponse{
				BatchID:     m.BatchID,
				BatchNumber: m.BatchNumber,
				Kind:        string(m.Kind),
				Quantity:    m.Quantity,
				UnitCost:    m.UnitCost,
			})
		}
		resp.Lines = append(resp.Lines, TransactionLineResponse{
			LineNo:              line.LineNo,
			ItemID:              line.ItemID,
			LocationID:          line.LocationID,
			Quantity:            line.Quantity,
			Status:              string(line.Status),
			LineCost:            line.LineCost,
			AvailableQuantity:   line.AvailableQuantity,
			UnallocatedQuantity: line.UnallocatedQuantity,
			PreviousQuantity:    line.PreviousQuantity,
			Variance:            line.Variance,
			Movements:           movements,
		})
		switch line.Status {
		case inventory.LineStatusCommitted:
			resp.CommittedLines++
			resp.TotalCost = resp.TotalCost.Add(line.LineCost)
			if tx.Type == inventory.TransactionTypeWaste {
				resp.WasteCost = resp.WasteCost.Add(line.LineCost)
			}
		case inventory.LineStatusUnavailable:
			resp.UnavailableLines++
		}
	}
	resp.Success = resp.UnavailableLines == 0
	return resp
}

// fromResult converts a fresh processing result; the engine's totals win
// over the recomputed ones
func fromResult(result *inventory.TransactionResult) TransactionResponse {
	resp := ToTransactionResponse(result.Transaction)
	resp.TotalCost = result.TotalCost
	resp.WasteCost = result.WasteCost
	return resp
}

// ReserveCommand asks for a named hold on available stock
type ReserveCommand struct {
	ItemID     uuid.UUID       `json:"item_id" validate:"required"`
	LocationID uuid.UUID       `json:"location_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference" validate:"max=128"`
}

// ReservationResponse is a reservation plus the ledger outcome
type ReservationResponse struct {
	ID         *uuid.UUID      `json:"id,omitempty"`
	ItemID     uuid.UUID       `json:"item_id"`
	LocationID uuid.UUID       `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reference  string          `json:"reference,omitempty"`
	Status     string          `json:"status,omitempty"`
	Outcome    string          `json:"outcome"`
	Available  decimal.Decimal `json:"available"`
	Reserved   decimal.Decimal `json:"reserved"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
}

// ToReservationResponse converts a stored reservation without outcome
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	id, created := r.ID, r.CreatedAt
	return ReservationResponse{
		ID:         &id,
		ItemID:     r.ItemID,
		LocationID: r.LocationID,
		Quantity:   r.Quantity,
		Reference:  r.Reference,
		Status:     string(r.Status),
		CreatedAt:  &created,
		ReleasedAt: r.ReleasedAt,
	}
}

// StockLevelResponse is the ledger position of one key
type StockLevelResponse struct {
	ItemID           uuid.UUID       `json:"item_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Available        decimal.Decimal `json:"available"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToStockLevelResponse converts a stock level
func ToStockLevelResponse(level *inventory.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ItemID:           level.ItemID,
		LocationID:       level.LocationID,
		CurrentQuantity:  level.CurrentQuantity,
		ReservedQuantity: level.ReservedQuantity,
		Available:        level.Available(),
		UpdatedAt:        level.UpdatedAt,
		Version:          level.Version,
	}
}

// BatchResponse is a lot as returned to callers
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	ItemID            uuid.UUID       `json:"item_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	BatchNumber       string          `json:"batch_number"`
	ReceivedDate      time.Time       `json:"received_date"`
	ExpirationDate    time.Time       `json:"expiration_date"`
	InitialQuantity   decimal.Decimal `json:"initial_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	DaysUntilExpiry   int             `json:"days_until_expiry"`
}

// BatchClassificationResponse partitions lots with stock left
type BatchClassificationResponse struct {
	Expired      []BatchResponse `json:"expired"`
	ExpiringSoon []BatchResponse `json:"expiring_soon"`
	Active       []BatchResponse `json:"active"`
}

func toBatchResponses(batches []inventory.Batch, now time.Time) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		b := &batches[i]
		out = append(out, BatchResponse{
			ID:                b.ID,
			ItemID:            b.ItemID,
			LocationID:        b.LocationID,
			BatchNumber:       b.BatchNumber,
			ReceivedDate:      b.ReceivedDate,
			ExpirationDate:    b.ExpirationDate,
			InitialQuantity:   b.InitialQuantity,
			RemainingQuantity: b.RemainingQuantity,
			UnitCost:          b.UnitCost,
			DaysUntilExpiry:   b.DaysUntilExpiry(now),
		})
	}
	return out
}

// ValuationLine is the value of one item's stock
type ValuationLine struct {
	ItemID   uuid.UUID       `json:"item_id"`
	SKU      string          `json:"sku"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ValuationResponse values the filtered stock
type ValuationResponse struct {
	Items    []ValuationLine `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	AsOf     *time.Time      `json:"as_of,omitempty"`
}
