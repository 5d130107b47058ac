package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/larder/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CostStrategyProvider resolves cost strategies by name
type CostStrategyProvider interface {
	GetCostStrategy(name string) (strategy.CostCalculationStrategy, error)
}

// CostStrategyName maps a costing method to its registered cost strategy
func CostStrategyName(method CostingMethod) string {
	switch method {
	case CostingMethodFIFO:
		return string(strategy.CostMethodFIFO)
	case CostingMethodLIFO:
		return string(strategy.CostMethodLIFO)
	case CostingMethodWeightedAverage:
		return string(strategy.CostMethodWeightedAverage)
	case CostingMethodLastPurchasePrice:
		return string(strategy.CostMethodLastPurchasePrice)
	default:
		return string(strategy.CostMethodFEFO)
	}
}

// LotCost is the cost of the part of a consumption taken from one lot.
// BatchID is uuid.Nil for costs not tied to a lot.
type LotCost struct {
	BatchID  uuid.UUID       `json:"batch_id"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Total    decimal.Decimal `json:"total"`
}

// ConsumptionCost is the priced result of a consumption
type ConsumptionCost struct {
	Method CostingMethod   `json:"method"`
	PerLot []LotCost       `json:"per_lot"`
	Total  decimal.Decimal `json:"total"`
	// UncostedQuantity is the part no lot could price
	UncostedQuantity decimal.Decimal `json:"uncosted_quantity"`
}

// ValuationFilter narrows InventoryValue. Nil/empty fields match everything.
type ValuationFilter struct {
	LocationID *uuid.UUID
	Category   string
	AsOf       *time.Time
}

// CostReceipt describes one receipt for the moving average of untracked items
type CostReceipt struct {
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	PriorQuantity decimal.Decimal
}

// CostingEngine prices consumption and values stock
type CostingEngine struct {
	items        ItemRepository
	batches      BatchRepository
	levels       StockLevelRepository
	transactions TransactionRepository
	strategies   CostStrategyProvider
	currency     valueobject.Currency
	clock        shared.Clock
	logger       *zap.Logger
}

// CostingEngineDeps groups the engine's collaborators
type CostingEngineDeps struct {
	Items        ItemRepository
	Batches      BatchRepository
	Levels       StockLevelRepository
	Transactions TransactionRepository
	Strategies   CostStrategyProvider
	Currency     valueobject.Currency
	Clock        shared.Clock
	Logger       *zap.Logger
}

// NewCostingEngine creates a costing engine
func NewCostingEngine(deps CostingEngineDeps) *CostingEngine {
	if deps.Currency == "" {
		deps.Currency = valueobject.DefaultCurrency
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &CostingEngine{
		items:        deps.Items,
		batches:      deps.Batches,
		levels:       deps.Levels,
		transactions: deps.Transactions,
		strategies:   deps.Strategies,
		currency:     deps.Currency,
		clock:        deps.Clock,
		logger:       deps.Logger,
	}
}

// Currency returns the valuation currency
func (e *CostingEngine) Currency() valueobject.Currency {
	return e.currency
}

// AverageCost returns Σ(unitCost×remaining)/Σremaining over the item's lots
// with stock left, or zero when there are none. Untracked items report their
// moving average.
func (e *CostingEngine) AverageCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	item, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.averageCostFor(ctx, item)
}

func (e *CostingEngine) averageCostFor(ctx context.Context, item *InventoryItem) (decimal.Decimal, error) {
	if !item.TrackExpiration {
		return item.AverageCost, nil
	}
	layers, err := e.layers(ctx, item.ID, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return strategy.WeightedAverageCost(layers), nil
}

// LatestCost returns the unit cost of the most recent receipt of the item, or zero
func (e *CostingEngine) LatestCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	cost, found, err := e.transactions.LatestReceiptCost(ctx, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load latest receipt cost: %w", err)
	}
	if !found {
		return decimal.Zero, nil
	}
	return cost, nil
}

// ConsumptionCost prices qty of item. An explicit allocation is priced lot by
// lot; otherwise the item's costing method decides. locationID limits lot
// methods to one location.
func (e *CostingEngine) ConsumptionCost(ctx context.Context, item *InventoryItem, qty decimal.Decimal, locationID *uuid.UUID, explicit []Allocation) (ConsumptionCost, error) {
	if item == nil {
		return ConsumptionCost{}, fmt.Errorf("%w: item is required", ErrInvalidItem)
	}
	if !qty.IsPositive() {
		return ConsumptionCost{}, fmt.Errorf("%w: cost of %s", ErrInvalidTransactionQuantity, qty)
	}
	if len(explicit) > 0 {
		return priceAllocations(item.CostingMethod, qty, explicit), nil
	}

	method := item.CostingMethod
	if !item.TrackExpiration && method.UsesLots() {
		method = CostingMethodWeightedAverage
	}

	var layers []strategy.CostLayer
	if method.UsesLots() {
		var err error
		if layers, err = e.layers(ctx, item.ID, locationID); err != nil {
			return ConsumptionCost{}, err
		}
	}
	average, err := e.averageCostFor(ctx, item)
	if err != nil {
		return ConsumptionCost{}, err
	}
	latest, err := e.LatestCost(ctx, item.ID)
	if err != nil {
		return ConsumptionCost{}, err
	}

	s, err := e.strategies.GetCostStrategy(CostStrategyName(method))
	if err != nil {
		return ConsumptionCost{}, err
	}
	result, err := s.CalculateCost(ctx, strategy.CostContext{
		Quantity:    qty,
		AverageCost: average,
		LatestCost:  latest,
	}, layers)
	if err != nil {
		return ConsumptionCost{}, fmt.Errorf("failed to calculate %s cost: %w", method, err)
	}

	cost := ConsumptionCost{
		Method:           method,
		PerLot:           make([]LotCost, 0, len(result.Lines)),
		Total:            result.TotalCost,
		UncostedQuantity: result.UncostedQty,
	}
	for _, line := range result.Lines {
		cost.PerLot = append(cost.PerLot, LotCost{
			BatchID:  line.BatchID,
			Quantity: line.Quantity,
			UnitCost: line.UnitCost,
			Total:    line.TotalCost,
		})
	}
	return cost, nil
}

func priceAllocations(method CostingMethod, qty decimal.Decimal, allocations []Allocation) ConsumptionCost {
	cost := ConsumptionCost{
		Method: method,
		PerLot: make([]LotCost, 0, len(allocations)),
		Total:  decimal.Zero,
	}
	allocated := decimal.Zero
	for _, a := range allocations {
		lineTotal := a.Quantity.Mul(a.Batch.UnitCost)
		cost.PerLot = append(cost.PerLot, LotCost{
			BatchID:  a.Batch.ID,
			Quantity: a.Quantity,
			UnitCost: a.Batch.UnitCost,
			Total:    lineTotal,
		})
		cost.Total = cost.Total.Add(lineTotal)
		allocated = allocated.Add(a.Quantity)
	}
	cost.UncostedQuantity = decimal.Max(decimal.Zero, qty.Sub(allocated))
	return cost
}

// InventoryValue values stock per item. Tracked items are valued lot by lot;
// with AsOf set each lot's remaining quantity and location are rebuilt from
// the transaction log. Untracked items are valued at average cost × current
// quantity.
func (e *CostingEngine) InventoryValue(ctx context.Context, filter ValuationFilter) (map[uuid.UUID]valueobject.Money, error) {
	itemFilter := ItemFilter{}
	if filter.Category != "" {
		itemFilter.Categories = []string{filter.Category}
	}
	items, err := e.items.FindAll(ctx, itemFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	var history *lotHistory
	if filter.AsOf != nil {
		txs, err := e.transactions.FindSince(ctx, *filter.AsOf)
		if err != nil {
			return nil, fmt.Errorf("failed to load transactions after %s: %w", filter.AsOf.Format(time.RFC3339), err)
		}
		history = newLotHistory(txs)
	}

	values := make(map[uuid.UUID]valueobject.Money, len(items))
	for i := range items {
		item := &items[i]
		var amount decimal.Decimal
		if item.TrackExpiration {
			amount, err = e.trackedValue(ctx, item, filter, history)
		} else {
			amount, err = e.untrackedValue(ctx, item, filter)
		}
		if err != nil {
			return nil, err
		}
		values[item.ID] = valueobject.MustNewMoney(amount.Round(4), e.currency)
	}
	return values, nil
}

func (e *CostingEngine) trackedValue(ctx context.Context, item *InventoryItem, filter ValuationFilter, history *lotHistory) (decimal.Decimal, error) {
	itemID := item.ID
	batchFilter := BatchFilter{ItemID: &itemID}
	if history == nil {
		batchFilter.LocationID = filter.LocationID
		batchFilter.OnlyRemaining = true
	}
	lots, err := e.batches.FindAll(ctx, batchFilter)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load batches for %s: %w", item.SKU, err)
	}

	total := decimal.Zero
	for i := range lots {
		lot := &lots[i]
		remaining := lot.RemainingQuantity
		location := lot.LocationID
		if history != nil {
			if lot.OriginDate().After(*filter.AsOf) {
				continue
			}
			remaining = remaining.Add(history.outflowAfter(lot.ID))
			location = history.locationAt(lot.ID, location)
			if filter.LocationID != nil && location != *filter.LocationID {
				continue
			}
		}
		total = total.Add(remaining.Mul(lot.UnitCost))
	}
	return total, nil
}

func (e *CostingEngine) untrackedValue(ctx context.Context, item *InventoryItem, filter ValuationFilter) (decimal.Decimal, error) {
	levels, err := e.levels.FindByItem(ctx, item.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load stock levels for %s: %w", item.SKU, err)
	}
	quantity := decimal.Zero
	for _, level := range levels {
		if filter.LocationID != nil && level.LocationID != *filter.LocationID {
			continue
		}
		quantity = quantity.Add(level.CurrentQuantity)
	}
	return quantity.Mul(item.AverageCost), nil
}

// RefreshItemCosts recomputes and stores the item's average and last cost.
// Receipts drive the moving average of untracked items, in order.
func (e *CostingEngine) RefreshItemCosts(ctx context.Context, itemID uuid.UUID, receipts ...CostReceipt) (*InventoryItem, error) {
	item, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	average := item.AverageCost
	if item.TrackExpiration {
		if average, err = e.averageCostFor(ctx, item); err != nil {
			return nil, err
		}
	} else {
		for _, r := range receipts {
			average = movingAverage(average, r)
		}
	}

	last := item.LastCost
	cost, found, err := e.transactions.LatestReceiptCost(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest receipt cost: %w", err)
	}
	if found {
		last = cost
	}

	item.UpdateCosts(average, last, e.clock.Now())
	if err := e.items.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save item costs: %w", err)
	}
	e.logger.Debug("Item costs refreshed",
		zap.String("item_id", item.ID.String()),
		zap.String("average_cost", item.AverageCost.String()),
		zap.String("last_cost", item.LastCost.String()),
	)
	return item, nil
}

// movingAverage folds one receipt into an average:
// (prior × avg + qty × cost) / (prior + qty)
func movingAverage(average decimal.Decimal, r CostReceipt) decimal.Decimal {
	prior := decimal.Max(decimal.Zero, r.PriorQuantity)
	total := prior.Add(r.Quantity)
	if prior.IsZero() || !total.IsPositive() {
		return r.UnitCost
	}
	return prior.Mul(average).Add(r.Quantity.Mul(r.UnitCost)).Div(total)
}

func (e *CostingEngine) layers(ctx context.Context, itemID uuid.UUID, locationID *uuid.UUID) ([]strategy.CostLayer, error) {
	lots, err := e.batches.FindAll(ctx, BatchFilter{ItemID: &itemID, LocationID: locationID, OnlyRemaining: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	layers := make([]strategy.CostLayer, 0, len(lots))
	for i := range lots {
		layers = append(layers, lots[i].toCostLayer())
	}
	return layers, nil
}

// lotHistory indexes lot movements that happened after a point in time
type lotHistory struct {
	outflow map[uuid.UUID]decimal.Decimal
	// firstMoveFrom is where a lot sat before its earliest later move
	firstMoveFrom map[uuid.UUID]uuid.UUID
}

// newLotHistory expects txs oldest first
func newLotHistory(txs []Transaction) *lotHistory {
	h := &lotHistory{
		outflow:       make(map[uuid.UUID]decimal.Decimal),
		firstMoveFrom: make(map[uuid.UUID]uuid.UUID),
	}
	for _, tx := range txs {
		for _, line := range tx.Items {
			if line.Status != LineStatusCommitted {
				continue
			}
			for _, m := range line.Movements {
				if m.Kind.ReducesRemaining() {
					h.outflow[m.BatchID] = h.outflow[m.BatchID].Add(m.Quantity)
				}
				if m.Kind == MovementMoved {
					if _, seen := h.firstMoveFrom[m.BatchID]; !seen {
						h.firstMoveFrom[m.BatchID] = m.FromLocationID
					}
				}
			}
		}
	}
	return h
}

func (h *lotHistory) outflowAfter(batchID uuid.UUID) decimal.Decimal {
	return h.outflow[batchID]
}

func (h *lotHistory) locationAt(batchID, current uuid.UUID) uuid.UUID {
	if from, ok := h.firstMoveFrom[batchID]; ok {
		return from
	}
	return current
}
