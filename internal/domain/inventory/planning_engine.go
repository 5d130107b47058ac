package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlanningConfig holds the planning heuristics
type PlanningConfig struct {
	// UsageLookbackDays is the window average daily usage is measured over
	UsageLookbackDays int
	// MinLeadTimeDays floors the lead time used to size orders
	MinLeadTimeDays int
	// SafetyFactor is safety stock as a share of lead-time demand
	SafetyFactor decimal.Decimal
}

// DefaultPlanningConfig returns 30 days lookback, a 7 day lead floor and 50% safety stock
func DefaultPlanningConfig() PlanningConfig {
	return PlanningConfig{
		UsageLookbackDays: 30,
		MinLeadTimeDays:   7,
		SafetyFactor:      decimal.NewFromFloat(0.5),
	}
}

// Urgency ranks reorder suggestions
type Urgency string

const (
	UrgencyOutOfStock     Urgency = "OUT_OF_STOCK"
	UrgencyBelowThreshold Urgency = "BELOW_THRESHOLD"
)

// ReorderSuggestion proposes a purchase for one item at one location
type ReorderSuggestion struct {
	ItemID            uuid.UUID         `json:"item_id"`
	SKU               string            `json:"sku"`
	Name              string            `json:"name"`
	LocationID        uuid.UUID         `json:"location_id"`
	Available         decimal.Decimal   `json:"available"`
	ReorderThreshold  decimal.Decimal   `json:"reorder_threshold"`
	AverageDailyUsage decimal.Decimal   `json:"average_daily_usage"`
	SuggestedQuantity decimal.Decimal   `json:"suggested_quantity"`
	Vendor            *Vendor           `json:"vendor,omitempty"`
	UnitCost          decimal.Decimal   `json:"unit_cost"`
	EstimatedCost     valueobject.Money `json:"estimated_cost"`
	Urgency           Urgency           `json:"urgency"`
}

// TurnoverWindow is the half-open interval (Start, End]
type TurnoverWindow struct {
	Start time.Time
	End   time.Time
}

// TurnoverResult is consumption over average inventory for one item
type TurnoverResult struct {
	ItemID           uuid.UUID       `json:"item_id"`
	SKU              string          `json:"sku"`
	Consumed         decimal.Decimal `json:"consumed"`
	OpeningQuantity  decimal.Decimal `json:"opening_quantity"`
	ClosingQuantity  decimal.Decimal `json:"closing_quantity"`
	AverageInventory decimal.Decimal `json:"average_inventory"`
	Turnover         decimal.Decimal `json:"turnover"`
	// DaysOnHand is window days / turnover; zero when nothing turned over
	DaysOnHand decimal.Decimal `json:"days_on_hand"`
}

// ReorderPoint is the stock level at which an item should be reordered
type ReorderPoint struct {
	ItemID            uuid.UUID       `json:"item_id"`
	SKU               string          `json:"sku"`
	AverageDailyUsage decimal.Decimal `json:"average_daily_usage"`
	LeadTimeDays      int             `json:"lead_time_days"`
	SafetyStock       decimal.Decimal `json:"safety_stock"`
	ReorderPoint      decimal.Decimal `json:"reorder_point"`
	CurrentThreshold  decimal.Decimal `json:"current_threshold"`
}

// PlanningEngine answers replenishment questions. It never writes.
type PlanningEngine struct {
	items        ItemRepository
	levels       StockLevelRepository
	transactions TransactionRepository
	vendors      VendorCatalog
	config       PlanningConfig
	currency     valueobject.Currency
	clock        shared.Clock
	logger       *zap.Logger
}

// PlanningEngineDeps groups the engine's collaborators. Vendors is optional.
type PlanningEngineDeps struct {
	Items        ItemRepository
	Levels       StockLevelRepository
	Transactions TransactionRepository
	Vendors      VendorCatalog
	Config       PlanningConfig
	Currency     valueobject.Currency
	Clock        shared.Clock
	Logger       *zap.Logger
}

// NewPlanningEngine creates a planning engine
func NewPlanningEngine(deps PlanningEngineDeps) *PlanningEngine {
	cfg := deps.Config
	defaults := DefaultPlanningConfig()
	if cfg.UsageLookbackDays <= 0 {
		cfg.UsageLookbackDays = defaults.UsageLookbackDays
	}
	if cfg.MinLeadTimeDays <= 0 {
		cfg.MinLeadTimeDays = defaults.MinLeadTimeDays
	}
	if cfg.SafetyFactor.IsNegative() {
		cfg.SafetyFactor = defaults.SafetyFactor
	}
	if deps.Currency == "" {
		deps.Currency = valueobject.DefaultCurrency
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &PlanningEngine{
		items:        deps.Items,
		levels:       deps.Levels,
		transactions: deps.Transactions,
		vendors:      deps.Vendors,
		config:       cfg,
		currency:     deps.Currency,
		clock:        deps.Clock,
		logger:       deps.Logger,
	}
}

// GenerateReorderSuggestions proposes orders for every stock level at
// locationID whose available quantity is at or below its item's threshold.
// Out-of-stock items come first.
func (e *PlanningEngine) GenerateReorderSuggestions(ctx context.Context, locationID uuid.UUID, categories []string) ([]ReorderSuggestion, error) {
	levels, err := e.levels.FindByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock levels: %w", err)
	}
	usage, err := e.dailyUsage(ctx, &locationID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]ReorderSuggestion, 0)
	for _, level := range levels {
		item, err := e.items.GetItem(ctx, level.ItemID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				e.logger.Warn("Stock level without item", zap.String("key", level.Key().String()))
				continue
			}
			return nil, err
		}
		if !item.IsActive || !item.InCategory(categories) {
			continue
		}
		available := level.Available()
		if !item.IsLowStock(available) {
			continue
		}

		suggestion, err := e.suggest(ctx, item, locationID, available, usage[item.ID])
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Urgency != suggestions[j].Urgency {
			return suggestions[i].Urgency == UrgencyOutOfStock
		}
		return suggestions[i].SKU < suggestions[j].SKU
	})
	return suggestions, nil
}

// suggest sizes the order as the largest of: refill to max, cover lead-time
// demand, and get back above the threshold
func (e *PlanningEngine) suggest(ctx context.Context, item *InventoryItem, locationID uuid.UUID, available, avgDaily decimal.Decimal) (ReorderSuggestion, error) {
	lead := item.LeadTimeDays
	if lead < e.config.MinLeadTimeDays {
		lead = e.config.MinLeadTimeDays
	}
	qty := decimal.Max(
		item.MaxStockLevel.Sub(available),
		avgDaily.Mul(decimal.NewFromInt(int64(lead))).Sub(available),
		item.ReorderThreshold.Sub(available).Add(decimal.NewFromInt(1)),
	).RoundCeil(2)

	vendor, unitCost, err := e.sourcing(ctx, item)
	if err != nil {
		return ReorderSuggestion{}, err
	}
	urgency := UrgencyBelowThreshold
	if available.IsZero() {
		urgency = UrgencyOutOfStock
	}
	return ReorderSuggestion{
		ItemID:            item.ID,
		SKU:               item.SKU,
		Name:              item.Name,
		LocationID:        locationID,
		Available:         available,
		ReorderThreshold:  item.ReorderThreshold,
		AverageDailyUsage: avgDaily,
		SuggestedQuantity: qty,
		Vendor:            vendor,
		UnitCost:          unitCost,
		EstimatedCost:     valueobject.MustNewMoney(qty.Mul(unitCost).Round(2), e.currency),
		Urgency:           urgency,
	}, nil
}

// sourcing picks the vendor and unit cost for an item. The catalog wins;
// the item's own preferred vendor and last cost are the fallback.
func (e *PlanningEngine) sourcing(ctx context.Context, item *InventoryItem) (*Vendor, decimal.Decimal, error) {
	var vendor *Vendor
	if e.vendors != nil {
		v, err := e.vendors.GetPreferredVendor(ctx, item.ID)
		switch {
		case err == nil:
			vendor = v
		case !errors.Is(err, ErrVendorNotFound):
			return nil, decimal.Zero, fmt.Errorf("failed to load preferred vendor: %w", err)
		}
	}
	if vendor == nil && item.PreferredVendorID != nil {
		vendor = &Vendor{ID: *item.PreferredVendorID}
	}
	if vendor == nil || e.vendors == nil {
		return vendor, item.LastCost, nil
	}

	cost, err := e.vendors.UnitCost(ctx, vendor.ID, item.ID)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			return vendor, item.LastCost, nil
		}
		return nil, decimal.Zero, fmt.Errorf("failed to load vendor cost: %w", err)
	}
	return vendor, cost, nil
}

// CalculateTurnover computes consumption / average inventory over window for
// itemIDs (all items when empty), at locationID or across all locations.
// Opening and closing quantities are rebuilt from the transaction log.
func (e *PlanningEngine) CalculateTurnover(ctx context.Context, itemIDs []uuid.UUID, locationID *uuid.UUID, window TurnoverWindow) ([]TurnoverResult, error) {
	if window.End.IsZero() {
		window.End = e.clock.Now()
	}
	if !window.End.After(window.Start) {
		return nil, fmt.Errorf("%w: turnover window must end after it starts", shared.ErrInvalidInput)
	}

	items, err := e.items.FindAll(ctx, ItemFilter{IDs: itemIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	txs, err := e.transactions.FindSince(ctx, window.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	windowDays := decimal.NewFromFloat(window.End.Sub(window.Start).Hours() / 24)
	results := make([]TurnoverResult, 0, len(items))
	for i := range items {
		item := &items[i]
		current, err := e.onHand(ctx, item.ID, locationID)
		if err != nil {
			return nil, err
		}

		afterStart, afterEnd, consumed := decimal.Zero, decimal.Zero, decimal.Zero
		for _, tx := range txs {
			delta := netChange(&tx, item.ID, locationID)
			afterStart = afterStart.Add(delta)
			if tx.Date.After(window.End) {
				afterEnd = afterEnd.Add(delta)
			} else if tx.Type == TransactionTypeConsume {
				consumed = consumed.Add(consumedQuantity(&tx, item.ID, locationID))
			}
		}

		opening := decimal.Max(decimal.Zero, current.Sub(afterStart))
		closing := decimal.Max(decimal.Zero, current.Sub(afterEnd))
		average := opening.Add(closing).Div(decimal.NewFromInt(2))
		result := TurnoverResult{
			ItemID:           item.ID,
			SKU:              item.SKU,
			Consumed:         consumed,
			OpeningQuantity:  opening,
			ClosingQuantity:  closing,
			AverageInventory: average,
			Turnover:         decimal.Zero,
			DaysOnHand:       decimal.Zero,
		}
		if average.IsPositive() {
			result.Turnover = consumed.Div(average).Round(4)
		}
		if result.Turnover.IsPositive() {
			result.DaysOnHand = windowDays.Div(result.Turnover).Round(2)
		}
		results = append(results, result)
	}
	return results, nil
}

// CalculateReorderPoints returns lead-time demand plus safety stock for
// itemIDs (all items when empty)
func (e *PlanningEngine) CalculateReorderPoints(ctx context.Context, itemIDs []uuid.UUID, locationID *uuid.UUID) ([]ReorderPoint, error) {
	items, err := e.items.FindAll(ctx, ItemFilter{IDs: itemIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	usage, err := e.dailyUsage(ctx, locationID)
	if err != nil {
		return nil, err
	}

	points := make([]ReorderPoint, 0, len(items))
	for i := range items {
		item := &items[i]
		avgDaily := usage[item.ID]
		leadDemand := avgDaily.Mul(decimal.NewFromInt(int64(item.LeadTimeDays)))
		safety := leadDemand.Mul(e.config.SafetyFactor)
		points = append(points, ReorderPoint{
			ItemID:            item.ID,
			SKU:               item.SKU,
			AverageDailyUsage: avgDaily,
			LeadTimeDays:      item.LeadTimeDays,
			SafetyStock:       safety.Round(4),
			ReorderPoint:      leadDemand.Add(safety).Round(4),
			CurrentThreshold:  item.ReorderThreshold,
		})
	}
	return points, nil
}

// dailyUsage returns consumed quantity per day over the lookback, per item
func (e *PlanningEngine) dailyUsage(ctx context.Context, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	since := e.clock.Now().AddDate(0, 0, -e.config.UsageLookbackDays)
	txs, err := e.transactions.FindSince(ctx, since, TransactionTypeConsume)
	if err != nil {
		return nil, fmt.Errorf("failed to load consumption: %w", err)
	}
	days := decimal.NewFromInt(int64(e.config.UsageLookbackDays))
	usage := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range txs {
		for _, line := range tx.Items {
			if line.Status != LineStatusCommitted || !atLocation(line.LocationID, locationID) {
				continue
			}
			usage[line.ItemID] = usage[line.ItemID].Add(line.Quantity)
		}
	}
	for id, total := range usage {
		usage[id] = total.Div(days).Round(4)
	}
	return usage, nil
}

func (e *PlanningEngine) onHand(ctx context.Context, itemID uuid.UUID, locationID *uuid.UUID) (decimal.Decimal, error) {
	levels, err := e.levels.FindByItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load stock levels: %w", err)
	}
	total := decimal.Zero
	for _, level := range levels {
		if atLocation(level.LocationID, locationID) {
			total = total.Add(level.CurrentQuantity)
		}
	}
	return total, nil
}

func atLocation(id uuid.UUID, filter *uuid.UUID) bool {
	return filter == nil || *filter == id
}

// netChange is how much tx changed the item's quantity at the location
// filter. A transfer nets to zero when no location is given.
func netChange(tx *Transaction, itemID uuid.UUID, locationID *uuid.UUID) decimal.Decimal {
	delta := decimal.Zero
	for _, line := range tx.Items {
		if line.ItemID != itemID || line.Status != LineStatusCommitted {
			continue
		}
		switch tx.Type {
		case TransactionTypeReceive:
			if atLocation(line.LocationID, locationID) {
				delta = delta.Add(line.Quantity)
			}
		case TransactionTypeConsume, TransactionTypeWaste:
			if atLocation(line.LocationID, locationID) {
				delta = delta.Sub(line.Quantity)
			}
		case TransactionTypeTransfer:
			if atLocation(line.LocationID, locationID) {
				delta = delta.Sub(line.Quantity)
			}
			if tx.DestinationLocationID != nil && atLocation(*tx.DestinationLocationID, locationID) {
				delta = delta.Add(line.Quantity)
			}
		case TransactionTypeAdjustment:
			if line.Variance != nil && atLocation(line.LocationID, locationID) {
				delta = delta.Add(*line.Variance)
			}
		}
	}
	return delta
}

func consumedQuantity(tx *Transaction, itemID uuid.UUID, locationID *uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, line := range tx.Items {
		if line.ItemID == itemID && line.Status == LineStatusCommitted && atLocation(line.LocationID, locationID) {
			total = total.Add(line.Quantity)
		}
	}
	return total
}
