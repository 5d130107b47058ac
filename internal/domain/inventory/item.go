package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CostingMethod decides both lot consumption order and how consumption is priced
type CostingMethod string

const (
	CostingMethodFIFO              CostingMethod = "FIFO"
	CostingMethodLIFO              CostingMethod = "LIFO"
	CostingMethodFEFO              CostingMethod = "FEFO"
	CostingMethodWeightedAverage   CostingMethod = "WEIGHTED_AVERAGE"
	CostingMethodLastPurchasePrice CostingMethod = "LAST_PURCHASE_PRICE"
)

// DefaultCostingMethod is applied when an item is created without one
const DefaultCostingMethod = CostingMethodFEFO

// IsValid returns true if the method is one of the known methods
func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingMethodFIFO, CostingMethodLIFO, CostingMethodFEFO,
		CostingMethodWeightedAverage, CostingMethodLastPurchasePrice:
		return true
	}
	return false
}

// UsesLots returns true when consumption is priced lot by lot
func (m CostingMethod) UsesLots() bool {
	switch m {
	case CostingMethodFIFO, CostingMethodLIFO, CostingMethodFEFO:
		return true
	}
	return false
}

// String returns the string representation
func (m CostingMethod) String() string {
	return string(m)
}

// ParseCostingMethod parses a costing method name, case-insensitively
func ParseCostingMethod(s string) (CostingMethod, error) {
	m := CostingMethod(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" {
		return DefaultCostingMethod, nil
	}
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCostingMethod, s)
	}
	return m, nil
}

// InventoryItem is a catalog entry: what is stocked, how it is counted and costed.
// Quantities live in StockLevel, lots in Batch.
type InventoryItem struct {
	shared.BaseAggregateRoot
	SKU               string
	Name              string
	Category          string
	Unit              string
	ReorderThreshold  decimal.Decimal
	MinStockLevel     decimal.Decimal
	MaxStockLevel     decimal.Decimal
	LeadTimeDays      int
	TrackExpiration   bool
	CostingMethod     CostingMethod
	AverageCost       decimal.Decimal
	LastCost          decimal.Decimal
	IsActive          bool
	PreferredVendorID *uuid.UUID
	// AlternativeItemIDs are substitutes, resolved through the ItemCatalog
	AlternativeItemIDs []uuid.UUID
}

// NewItemParams carries the input for NewInventoryItem
type NewItemParams struct {
	SKU                string
	Name               string
	Category           string
	Unit               string
	ReorderThreshold   decimal.Decimal
	MinStockLevel      decimal.Decimal
	MaxStockLevel      decimal.Decimal
	LeadTimeDays       int
	TrackExpiration    bool
	CostingMethod      CostingMethod
	PreferredVendorID  *uuid.UUID
	AlternativeItemIDs []uuid.UUID
}

// NewInventoryItem validates params and creates a new item.
// SKU uniqueness is checked against the catalog before anything else.
func NewInventoryItem(ctx context.Context, catalog ItemCatalog, p NewItemParams, now time.Time) (*InventoryItem, error) {
	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: SKU cannot be empty", ErrInvalidItem)
	}
	existing, err := catalog.FindBySku(ctx, sku)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSKU, sku)
	case err != nil && !errors.Is(err, ErrItemNotFound):
		return nil, fmt.Errorf("failed to check SKU uniqueness: %w", err)
	}

	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidItem)
	}
	if strings.TrimSpace(p.Unit) == "" {
		return nil, fmt.Errorf("%w: unit of measure cannot be empty", ErrInvalidItem)
	}
	method := p.CostingMethod
	if method == "" {
		method = DefaultCostingMethod
	}
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCostingMethod, method)
	}

	item := &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		SKU:               sku,
		Name:              strings.TrimSpace(p.Name),
		Category:          strings.TrimSpace(p.Category),
		Unit:              strings.TrimSpace(p.Unit),
		TrackExpiration:   p.TrackExpiration,
		CostingMethod:     method,
		AverageCost:       decimal.Zero,
		LastCost:          decimal.Zero,
		IsActive:          true,
		PreferredVendorID: p.PreferredVendorID,
	}
	if err := item.SetReorderPolicy(p.ReorderThreshold, p.MinStockLevel, p.MaxStockLevel, p.LeadTimeDays, now); err != nil {
		return nil, err
	}
	for _, alt := range p.AlternativeItemIDs {
		if err := item.AddAlternative(alt, now); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// SetReorderPolicy replaces the planning thresholds
func (i *InventoryItem) SetReorderPolicy(threshold, minLevel, maxLevel decimal.Decimal, leadTimeDays int, now time.Time) error {
	if threshold.IsNegative() || minLevel.IsNegative() || maxLevel.IsNegative() {
		return fmt.Errorf("%w: stock thresholds cannot be negative", ErrInvalidItem)
	}
	if maxLevel.IsPositive() && maxLevel.LessThan(minLevel) {
		return fmt.Errorf("%w: max stock level cannot be below min stock level", ErrInvalidItem)
	}
	if leadTimeDays < 0 {
		return fmt.Errorf("%w: lead time cannot be negative", ErrInvalidItem)
	}
	i.ReorderThreshold = threshold
	i.MinStockLevel = minLevel
	i.MaxStockLevel = maxLevel
	i.LeadTimeDays = leadTimeDays
	i.Touch(now)
	return nil
}

// AddAlternative records a substitute item by id
func (i *InventoryItem) AddAlternative(itemID uuid.UUID, now time.Time) error {
	if itemID == uuid.Nil || itemID == i.ID {
		return fmt.Errorf("%w: invalid alternative item", ErrInvalidItem)
	}
	for _, existing := range i.AlternativeItemIDs {
		if existing == itemID {
			return nil
		}
	}
	i.AlternativeItemIDs = append(i.AlternativeItemIDs, itemID)
	i.Touch(now)
	return nil
}

// UpdateCosts stores recomputed average and last costs
func (i *InventoryItem) UpdateCosts(averageCost, lastCost decimal.Decimal, now time.Time) {
	i.AverageCost = averageCost.Round(4)
	i.LastCost = lastCost
	i.Touch(now)
	i.IncrementVersion()
}

// Deactivate stops the item from being received or suggested for reorder
func (i *InventoryItem) Deactivate(now time.Time) {
	i.IsActive = false
	i.Touch(now)
}

// Activate re-enables a deactivated item
func (i *InventoryItem) Activate(now time.Time) {
	i.IsActive = true
	i.Touch(now)
}

// IsLowStock returns true if available is at or below the reorder threshold
func (i *InventoryItem) IsLowStock(available decimal.Decimal) bool {
	return available.LessThanOrEqual(i.ReorderThreshold)
}

// InCategory reports whether the item matches any of categories; empty matches all
func (i *InventoryItem) InCategory(categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(c), i.Category) {
			return true
		}
	}
	return false
}
