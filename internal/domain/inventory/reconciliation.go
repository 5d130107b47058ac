package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconciliationFilter narrows a check to one item and/or one location
type ReconciliationFilter struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
}

// Discrepancy is a key where lot totals and the stock level disagree
type Discrepancy struct {
	ItemID        uuid.UUID       `json:"item_id"`
	LocationID    uuid.UUID       `json:"location_id"`
	SKU           string          `json:"sku"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	BatchQuantity decimal.Decimal `json:"batch_quantity"`
	// Difference is stock - batches
	Difference decimal.Decimal `json:"difference"`
}

// ReconciliationReport is the outcome of one check
type ReconciliationReport struct {
	CheckedKeys   int           `json:"checked_keys"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// Consistent returns true if no discrepancy was found
func (r *ReconciliationReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}

// Reconciler compares Σ batch remaining with current quantity for
// expiration-tracked items. It reports and never corrects.
type Reconciler struct {
	items   ItemCatalog
	levels  StockLevelRepository
	batches BatchRepository
	clock   shared.Clock
	logger  *zap.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(items ItemCatalog, levels StockLevelRepository, batches BatchRepository, clock shared.Clock, logger *zap.Logger) *Reconciler {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		items:   items,
		levels:  levels,
		batches: batches,
		clock:   clock,
		logger:  logger,
	}
}

// Check walks every stock level and lot matching filter
func (r *Reconciler) Check(ctx context.Context, filter ReconciliationFilter) (*ReconciliationReport, error) {
	stock, err := r.stockByKey(ctx, filter)
	if err != nil {
		return nil, err
	}
	lots, err := r.batches.FindAll(ctx, BatchFilter{ItemID: filter.ItemID, LocationID: filter.LocationID, OnlyRemaining: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	lotTotals := make(map[StockKey]decimal.Decimal)
	for _, b := range lots {
		key := NewStockKey(b.ItemID, b.LocationID)
		lotTotals[key] = lotTotals[key].Add(b.RemainingQuantity)
	}

	keys := make([]StockKey, 0, len(stock)+len(lotTotals))
	for key := range stock {
		keys = append(keys, key)
	}
	for key := range lotTotals {
		if _, ok := stock[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	report := &ReconciliationReport{
		Discrepancies: make([]Discrepancy, 0),
		CheckedAt:     r.clock.Now(),
	}
	items := make(map[uuid.UUID]*InventoryItem)
	for _, key := range keys {
		item, ok := items[key.ItemID]
		if !ok {
			item, err = r.items.GetItem(ctx, key.ItemID)
			if err != nil {
				if !errors.Is(err, ErrItemNotFound) {
					return nil, err
				}
				item = nil
			}
			items[key.ItemID] = item
		}
		if item == nil || !item.TrackExpiration {
			continue
		}

		report.CheckedKeys++
		onHand, inLots := stock[key], lotTotals[key]
		if onHand.Equal(inLots) {
			continue
		}
		d := Discrepancy{
			ItemID:        key.ItemID,
			LocationID:    key.LocationID,
			SKU:           item.SKU,
			StockQuantity: onHand,
			BatchQuantity: inLots,
			Difference:    onHand.Sub(inLots),
		}
		report.Discrepancies = append(report.Discrepancies, d)
		r.logger.Warn("Stock and batch totals disagree",
			zap.String("sku", d.SKU),
			zap.String("key", key.String()),
			zap.String("stock_quantity", d.StockQuantity.String()),
			zap.String("batch_quantity", d.BatchQuantity.String()),
		)
	}
	return report, nil
}

func (r *Reconciler) stockByKey(ctx context.Context, filter ReconciliationFilter) (map[StockKey]decimal.Decimal, error) {
	var (
		levels []StockLevel
		err    error
	)
	switch {
	case filter.ItemID != nil:
		levels, err = r.levels.FindByItem(ctx, *filter.ItemID)
	case filter.LocationID != nil:
		levels, err = r.levels.FindByLocation(ctx, *filter.LocationID)
	default:
		levels, err = r.levels.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}
	stock := make(map[StockKey]decimal.Decimal, len(levels))
	for _, level := range levels {
		if !atLocation(level.LocationID, filter.LocationID) {
			continue
		}
		stock[level.Key()] = level.CurrentQuantity
	}
	return stock, nil
}
