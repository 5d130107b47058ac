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
	"go.uber.org/zap"
)

// TransactionResult is what Process reports back. Shortages are results, not
// errors: lines that could not be covered are listed in UnavailableLines.
type TransactionResult struct {
	Transaction      *Transaction
	CommittedLines   []TransactionItem
	UnavailableLines []TransactionItem
	// TotalCost sums the cost of every committed line
	TotalCost decimal.Decimal
	WasteCost decimal.Decimal
	// Variances maps adjustment line numbers to new - previous
	Variances map[int]decimal.Decimal
}

// Success returns true if every line was committed
func (r *TransactionResult) Success() bool {
	return len(r.UnavailableLines) == 0
}

// ReservationRequest asks for a named hold on available stock
type ReservationRequest struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Quantity   decimal.Decimal
	Reference  string
}

// TransactionProcessorDeps groups the processor's collaborators.
// Locations and Sink are optional.
type TransactionProcessorDeps struct {
	Items        ItemRepository
	Ledger       *StockLedger
	Allocator    *BatchAllocator
	Costing      *CostingEngine
	Batches      BatchRepository
	Transactions TransactionRepository
	Locations    LocationDirectory
	Sink         EventSink
	Clock        shared.Clock
	Logger       *zap.Logger
}

// TransactionProcessor applies transactions to the ledger and lots and
// decides which events follow from the outcome
type TransactionProcessor struct {
	items        ItemRepository
	ledger       *StockLedger
	allocator    *BatchAllocator
	costing      *CostingEngine
	batches      BatchRepository
	transactions TransactionRepository
	locations    LocationDirectory
	sink         EventSink
	clock        shared.Clock
	logger       *zap.Logger
}

// NewTransactionProcessor creates a processor
func NewTransactionProcessor(deps TransactionProcessorDeps) *TransactionProcessor {
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &TransactionProcessor{
		items:        deps.Items,
		ledger:       deps.Ledger,
		allocator:    deps.Allocator,
		costing:      deps.Costing,
		batches:      deps.Batches,
		transactions: deps.Transactions,
		locations:    deps.Locations,
		sink:         deps.Sink,
		clock:        deps.Clock,
		logger:       deps.Logger,
	}
}

type discardSink struct{}

func (discardSink) Publish(context.Context, ...Event) {}

// processRun carries the state of one Process call
type processRun struct {
	tx        *Transaction
	items     map[uuid.UUID]*InventoryItem
	result    *TransactionResult
	events    []Event
	decreased map[StockKey]struct{}
	receipts  map[uuid.UUID][]CostReceipt
	touched   map[uuid.UUID]struct{}
}

func (r *processRun) emit(payload EventPayload, key StockKey, now time.Time) {
	r.events = append(r.events, NewEvent(payload, key, now))
}

// Process validates tx, applies it line by line and records it. Structural
// problems fail the whole transaction before anything changes; shortages mark
// single lines Unavailable and processing continues.
func (p *TransactionProcessor) Process(ctx context.Context, tx *Transaction) (*TransactionResult, error) {
	if tx == nil {
		return nil, ErrEmptyTransaction
	}
	if tx.IsCommitted() {
		return nil, fmt.Errorf("%w: %s", ErrTransactionCommitted, tx.ID)
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := p.checkLocations(ctx, tx); err != nil {
		return nil, err
	}
	items, err := p.loadItems(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := p.precheck(ctx, tx, items); err != nil {
		return nil, err
	}

	run := &processRun{
		tx:    tx,
		items: items,
		result: &TransactionResult{
			Transaction: tx,
			TotalCost:   decimal.Zero,
			WasteCost:   decimal.Zero,
			Variances:   make(map[int]decimal.Decimal),
		},
		decreased: make(map[StockKey]struct{}),
		receipts:  make(map[uuid.UUID][]CostReceipt),
		touched:   make(map[uuid.UUID]struct{}),
	}

	for i := range tx.Items {
		line := &tx.Items[i]
		item := items[line.ItemID]
		var err error
		switch tx.Type {
		case TransactionTypeReceive:
			err = p.receive(ctx, run, line, item)
		case TransactionTypeConsume:
			err = p.consume(ctx, run, line, item)
		case TransactionTypeTransfer:
			err = p.transfer(ctx, run, line, item)
		case TransactionTypeAdjustment:
			err = p.adjust(ctx, run, line, item)
		case TransactionTypeWaste:
			err = p.waste(ctx, run, line, item)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line.LineNo, err)
		}
		if line.Status == LineStatusCommitted {
			run.result.TotalCost = run.result.TotalCost.Add(line.LineCost)
			run.touched[line.ItemID] = struct{}{}
		}
	}

	now := p.clock.Now()
	tx.CommittedAt = &now
	if err := p.transactions.Save(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	for itemID := range run.touched {
		if _, err := p.costing.RefreshItemCosts(ctx, itemID, run.receipts[itemID]...); err != nil {
			return nil, err
		}
	}
	if err := p.evaluateThresholds(ctx, run); err != nil {
		return nil, err
	}

	run.result.CommittedLines = tx.CommittedLines()
	run.result.UnavailableLines = tx.UnavailableLines()
	txID := tx.ID
	run.events = append(run.events, Event{
		ID:         uuid.New(),
		Kind:       EventKindTransactionCompleted,
		OccurredAt: now,
		LocationID: primaryLocation(tx),
		Payload: TransactionCompletedPayload{
			TransactionID:    txID,
			Type:             tx.Type,
			Reference:        tx.Reference,
			CommittedLines:   len(run.result.CommittedLines),
			UnavailableLines: len(run.result.UnavailableLines),
			TotalCost:        run.result.TotalCost,
			WasteCost:        run.result.WasteCost,
		},
	})
	p.sink.Publish(ctx, run.events...)

	p.logger.Info("Transaction processed",
		zap.String("transaction_id", txID.String()),
		zap.String("type", tx.Type.String()),
		zap.String("reference", tx.Reference),
		zap.Int("committed_lines", len(run.result.CommittedLines)),
		zap.Int("unavailable_lines", len(run.result.UnavailableLines)),
		zap.String("total_cost", run.result.TotalCost.String()),
	)
	return run.result, nil
}

func primaryLocation(tx *Transaction) uuid.UUID {
	if !isNilID(tx.SourceLocationID) {
		return *tx.SourceLocationID
	}
	if !isNilID(tx.DestinationLocationID) {
		return *tx.DestinationLocationID
	}
	return uuid.Nil
}

func (p *TransactionProcessor) checkLocations(ctx context.Context, tx *Transaction) error {
	if p.locations == nil {
		return nil
	}
	for _, id := range tx.LocationIDs() {
		if err := p.checkLocation(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (p *TransactionProcessor) checkLocation(ctx context.Context, id uuid.UUID) error {
	if p.locations == nil {
		return nil
	}
	ok, err := p.locations.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check location %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}
	return nil
}

func (p *TransactionProcessor) loadItems(ctx context.Context, tx *Transaction) (map[uuid.UUID]*InventoryItem, error) {
	items := make(map[uuid.UUID]*InventoryItem)
	for _, line := range tx.Items {
		if _, ok := items[line.ItemID]; ok {
			continue
		}
		item, err := p.items.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		// Inactive items may still be counted or written off.
		if !item.IsActive && tx.Type != TransactionTypeAdjustment && tx.Type != TransactionTypeWaste {
			return nil, fmt.Errorf("%w: %s", ErrItemInactive, item.SKU)
		}
		items[item.ID] = item
	}
	return items, nil
}

// precheck runs the structural checks that need the item catalog or lots
func (p *TransactionProcessor) precheck(ctx context.Context, tx *Transaction, items map[uuid.UUID]*InventoryItem) error {
	numbers := make(map[uuid.UUID]map[string]struct{})
	for i := range tx.Items {
		line := &tx.Items[i]
		item := items[line.ItemID]

		switch tx.Type {
		case TransactionTypeReceive:
			if !item.TrackExpiration {
				continue
			}
			if line.ExpirationDate == nil || line.ExpirationDate.IsZero() {
				return fmt.Errorf("%w: line %d (%s)", ErrMissingExpirationDate, line.LineNo, item.SKU)
			}
			if !line.ExpirationDate.After(tx.Date) {
				return fmt.Errorf("%w: line %d", ErrInvalidExpirationDate, line.LineNo)
			}
			number := strings.TrimSpace(line.BatchNumber)
			if number == "" {
				continue
			}
			if numbers[item.ID] == nil {
				numbers[item.ID] = make(map[string]struct{})
			}
			if _, dup := numbers[item.ID][number]; dup {
				return fmt.Errorf("%w: %s repeated in transaction", ErrDuplicateBatchNumber, number)
			}
			numbers[item.ID][number] = struct{}{}
			_, err := p.batches.FindByNumber(ctx, item.ID, number)
			switch {
			case err == nil:
				return fmt.Errorf("%w: %s", ErrDuplicateBatchNumber, number)
			case !errors.Is(err, ErrBatchNotFound):
				return fmt.Errorf("failed to check batch number: %w", err)
			}

		case TransactionTypeWaste:
			if item.TrackExpiration && line.BatchID == nil {
				return fmt.Errorf("%w: waste line %d (%s)", ErrBatchRequired, line.LineNo, item.SKU)
			}
			if err := p.checkLineBatch(ctx, line); err != nil {
				return err
			}
			if strings.TrimSpace(line.Reason) == "" {
				line.Reason = tx.Reason
			}

		case TransactionTypeConsume, TransactionTypeTransfer:
			if err := p.checkLineBatch(ctx, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *TransactionProcessor) checkLineBatch(ctx context.Context, line *TransactionItem) error {
	if line.BatchID == nil {
		return nil
	}
	batch, err := p.batches.FindByID(ctx, *line.BatchID)
	if err != nil {
		return err
	}
	if batch.ItemID != line.ItemID || batch.LocationID != line.LocationID {
		return fmt.Errorf("%w: batch %s is not %s at line %d location", ErrInvalidBatch, batch.BatchNumber, line.ItemID, line.LineNo)
	}
	return nil
}

func explicitBatches(line *TransactionItem) []uuid.UUID {
	if line.BatchID == nil {
		return nil
	}
	return []uuid.UUID{*line.BatchID}
}

// namedLotShort reports whether a line pinned to a lot asks for more than the
// lot holds. Stock and lots must move together, so such a line is unavailable.
func namedLotShort(item *InventoryItem, line *TransactionItem, plan AllocationPlan) bool {
	return item.TrackExpiration && line.BatchID != nil && !plan.Success
}

func (p *TransactionProcessor) receive(ctx context.Context, run *processRun, line *TransactionItem, item *InventoryItem) error {
	key := NewStockKey(line.ItemID, line.LocationID)
	unitCost := *line.UnitCost

	var prior decimal.Decimal
	if !item.TrackExpiration {
		var err error
		if prior, err = p.ledger.ItemOnHand(ctx, item.ID); err != nil {
			return err
		}
	}

	return p.ledger.WithKeys(ctx, []StockKey{key}, func(ltx *LedgerTx) error {
		change, err := ltx.Increase(key, line.Quantity)
		if err != nil {
			return err
		}
		if item.TrackExpiration {
			number := strings.TrimSpace(line.BatchNumber)
			if number == "" {
				number = GenerateBatchNumber(run.tx.Date)
			}
			batch, err := NewBatch(NewBatchParams{
				ItemID:          item.ID,
				LocationID:      line.LocationID,
				BatchNumber:     number,
				ReceivedDate:    run.tx.Date,
				ExpirationDate:  *line.ExpirationDate,
				Quantity:        line.Quantity,
				UnitCost:        unitCost,
				VendorID:        line.VendorID,
				PurchaseOrderID: line.PurchaseOrderID,
			}, p.clock.Now())
			if err != nil {
				return err
			}
			if err := p.batches.Save(ctx, batch); err != nil {
				return fmt.Errorf("failed to save batch: %w", err)
			}
			line.BatchID = &batch.ID
			line.BatchNumber = batch.BatchNumber
			line.Movements = append(line.Movements, LotMovement{
				Kind:         MovementReceived,
				BatchID:      batch.ID,
				BatchNumber:  batch.BatchNumber,
				Quantity:     line.Quantity,
				UnitCost:     unitCost,
				ToLocationID: line.LocationID,
			})
		} else {
			run.receipts[item.ID] = append(run.receipts[item.ID], CostReceipt{
				Quantity:      line.Quantity,
				UnitCost:      unitCost,
				PriorQuantity: prior,
			})
		}

		previous := change.Previous
		line.PreviousQuantity = &previous
		line.LineCost = line.Quantity.Mul(unitCost)
		line.AvailableQuantity = change.Available()
		line.Status = LineStatusCommitted
		return nil
	})
}

func (p *TransactionProcessor) consume(ctx context.Context, run *processRun, line *TransactionItem, item *InventoryItem) error {
	key := NewStockKey(line.ItemID, line.LocationID)
	return p.ledger.WithKeys(ctx, []StockKey{key}, func(ltx *LedgerTx) error {
		level, err := ltx.Level(key)
		if err != nil {
			return err
		}
		if p.markUnavailable(run, line, level, "consume") {
			return nil
		}

		plan, err := p.allocator.TrySelect(ctx, item, line.Quantity, line.LocationID, explicitBatches(line))
		if err != nil {
			return err
		}
		if namedLotShort(item, line, plan) {
			p.unavailable(run, line, plan.Allocated, "consume")
			return nil
		}
		cost, err := p.lineCost(ctx, item, line, plan)
		if err != nil {
			return err
		}

		change, err := ltx.Decrease(key, line.Quantity)
		if err != nil {
			return err
		}
		if err := p.drawDown(ctx, run, line, plan.Allocations, MovementConsumed); err != nil {
			return err
		}
		p.noteUnallocated(line, item, plan)

		previous := change.Previous
		line.PreviousQuantity = &previous
		line.LineCost = cost
		line.AvailableQuantity = change.Available()
		line.Status = LineStatusCommitted
		run.decreased[key] = struct{}{}
		return nil
	})
}

func (p *TransactionProcessor) transfer(ctx context.Context, run *processRun, line *TransactionItem, item *InventoryItem) error {
	src := NewStockKey(line.ItemID, line.LocationID)
	dst := NewStockKey(line.ItemID, *run.tx.DestinationLocationID)
	return p.ledger.WithKeys(ctx, []StockKey{src, dst}, func(ltx *LedgerTx) error {
		level, err := ltx.Level(src)
		if err != nil {
			return err
		}
		if p.markUnavailable(run, line, level, "transfer") {
			return nil
		}

		plan, err := p.allocator.TrySelect(ctx, item, line.Quantity, src.LocationID, explicitBatches(line))
		if err != nil {
			return err
		}
		if namedLotShort(item, line, plan) {
			p.unavailable(run, line, plan.Allocated, "transfer")
			return nil
		}
		cost := line.Quantity.Mul(item.AverageCost)
		if item.TrackExpiration {
			cost = priceAllocations(item.CostingMethod, line.Quantity, plan.Allocations).Total
		}

		change, err := ltx.Decrease(src, line.Quantity)
		if err != nil {
			return err
		}
		if _, err := ltx.Increase(dst, line.Quantity); err != nil {
			return err
		}

		for _, a := range plan.Allocations {
			movement, err := p.relocate(ctx, run, a, dst.LocationID)
			if err != nil {
				return err
			}
			line.Movements = append(line.Movements, movement)
		}
		p.noteUnallocated(line, item, plan)

		previous := change.Previous
		line.PreviousQuantity = &previous
		line.LineCost = cost
		line.AvailableQuantity = change.Available()
		line.Status = LineStatusCommitted
		run.decreased[src] = struct{}{}
		return nil
	})
}

// relocate moves a fully taken lot in place and splits a partially taken one
func (p *TransactionProcessor) relocate(ctx context.Context, run *processRun, a Allocation, to uuid.UUID) (LotMovement, error) {
	batch := a.Batch
	from := batch.LocationID
	movement := LotMovement{
		BatchID:        batch.ID,
		BatchNumber:    batch.BatchNumber,
		Quantity:       a.Quantity,
		UnitCost:       batch.UnitCost,
		FromLocationID: from,
		ToLocationID:   to,
	}

	if a.Quantity.GreaterThanOrEqual(batch.RemainingQuantity) {
		batch.moveTo(to, p.clock.Now())
		if err := p.batches.Save(ctx, batch); err != nil {
			return LotMovement{}, fmt.Errorf("failed to save batch: %w", err)
		}
		movement.Kind = MovementMoved
		movement.Quantity = batch.RemainingQuantity
		return movement, nil
	}

	// The child's origin is the transfer date so as-of valuation sees it
	// appear exactly when the parent shrinks.
	child, err := batch.split(a.Quantity, to, run.tx.Date)
	if err != nil {
		return LotMovement{}, err
	}
	if err := p.batches.Save(ctx, batch); err != nil {
		return LotMovement{}, fmt.Errorf("failed to save batch: %w", err)
	}
	if err := p.batches.Save(ctx, child); err != nil {
		return LotMovement{}, fmt.Errorf("failed to save split batch: %w", err)
	}
	p.logger.Debug("Batch split on transfer",
		zap.String("batch_id", batch.ID.String()),
		zap.String("child_batch_id", child.ID.String()),
		zap.String("quantity", a.Quantity.String()),
	)
	childID := child.ID
	movement.Kind = MovementSplit
	movement.ChildBatchID = &childID
	return movement, nil
}

func (p *TransactionProcessor) adjust(ctx context.Context, run *processRun, line *TransactionItem, item *InventoryItem) error {
	key := NewStockKey(line.ItemID, line.LocationID)
	return p.ledger.WithKeys(ctx, []StockKey{key}, func(ltx *LedgerTx) error {
		change, err := ltx.SetAbsolute(key, line.Quantity)
		if err != nil {
			return err
		}
		variance := change.Variance

		// A lower count writes lots down in the item's consumption order;
		// a higher one leaves lots alone for reconciliation to report.
		if item.TrackExpiration && variance.IsNegative() {
			plan, err := p.allocator.TrySelect(ctx, item, variance.Neg(), line.LocationID, nil)
			if err != nil {
				return err
			}
			if err := p.drawDown(ctx, run, line, plan.Allocations, MovementAdjusted); err != nil {
				return err
			}
			p.noteUnallocated(line, item, plan)
		}

		unitCost := item.AverageCost
		if line.UnitCost != nil {
			unitCost = *line.UnitCost
		}
		previous := change.Previous
		line.PreviousQuantity = &previous
		line.Variance = &variance
		line.LineCost = variance.Mul(unitCost)
		line.AvailableQuantity = change.Available()
		line.Status = LineStatusCommitted
		run.result.Variances[line.LineNo] = variance
		if variance.IsNegative() {
			run.decreased[key] = struct{}{}
		}
		return nil
	})
}

func (p *TransactionProcessor) waste(ctx context.Context, run *processRun, line *TransactionItem, item *InventoryItem) error {
	key := NewStockKey(line.ItemID, line.LocationID)
	return p.ledger.WithKeys(ctx, []StockKey{key}, func(ltx *LedgerTx) error {
		level, err := ltx.Level(key)
		if err != nil {
			return err
		}
		if p.markUnavailable(run, line, level, "waste") {
			return nil
		}

		plan, err := p.allocator.TrySelect(ctx, item, line.Quantity, line.LocationID, explicitBatches(line))
		if err != nil {
			return err
		}
		if item.TrackExpiration && !plan.Success {
			p.unavailable(run, line, plan.Allocated, "waste")
			return nil
		}

		cost := line.Quantity.Mul(item.AverageCost)
		if item.TrackExpiration {
			cost = priceAllocations(item.CostingMethod, line.Quantity, plan.Allocations).Total
		}

		change, err := ltx.Decrease(key, line.Quantity)
		if err != nil {
			return err
		}
		if err := p.drawDown(ctx, run, line, plan.Allocations, MovementWasted); err != nil {
			return err
		}

		previous := change.Previous
		line.PreviousQuantity = &previous
		line.LineCost = cost
		line.AvailableQuantity = change.Available()
		line.Status = LineStatusCommitted
		run.result.WasteCost = run.result.WasteCost.Add(cost)
		run.decreased[key] = struct{}{}
		return nil
	})
}

// lineCost prices a consumption line. Lot methods and explicit lots are
// priced from the lots actually drawn; the rest go through the costing engine.
func (p *TransactionProcessor) lineCost(ctx context.Context, item *InventoryItem, line *TransactionItem, plan AllocationPlan) (decimal.Decimal, error) {
	if item.TrackExpiration && (line.BatchID != nil || item.CostingMethod.UsesLots()) {
		return priceAllocations(item.CostingMethod, line.Quantity, plan.Allocations).Total, nil
	}
	location := line.LocationID
	cost, err := p.costing.ConsumptionCost(ctx, item, line.Quantity, &location, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return cost.Total, nil
}

// markUnavailable flags the line when available stock cannot cover it
func (p *TransactionProcessor) markUnavailable(run *processRun, line *TransactionItem, level *StockLevel, operation string) bool {
	available := level.Available()
	if !available.LessThan(line.Quantity) {
		return false
	}
	p.unavailable(run, line, available, operation)
	return true
}

func (p *TransactionProcessor) unavailable(run *processRun, line *TransactionItem, available decimal.Decimal, operation string) {
	line.Status = LineStatusUnavailable
	line.AvailableQuantity = available
	txID := run.tx.ID
	run.emit(InsufficientStockPayload{
		Operation:     operation,
		Requested:     line.Quantity,
		Available:     available,
		TransactionID: &txID,
		LineNo:        line.LineNo,
	}, NewStockKey(line.ItemID, line.LocationID), p.clock.Now())
	p.logger.Info("Transaction line unavailable",
		zap.String("transaction_id", txID.String()),
		zap.Int("line_no", line.LineNo),
		zap.String("operation", operation),
		zap.String("requested", line.Quantity.String()),
		zap.String("available", available.String()),
	)
}

// drawDown decrements each allocated lot and records the movements
func (p *TransactionProcessor) drawDown(ctx context.Context, run *processRun, line *TransactionItem, allocations []Allocation, kind MovementKind) error {
	now := p.clock.Now()
	for _, a := range allocations {
		batch := a.Batch
		taken, clamped := batch.consume(a.Quantity, now)
		if clamped {
			p.logger.Warn("Batch decrement clamped at zero",
				zap.String("batch_id", batch.ID.String()),
				zap.String("requested", a.Quantity.String()),
				zap.String("taken", taken.String()),
			)
		}
		if err := batch.CheckInvariant(); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
		}
		if err := p.batches.Save(ctx, batch); err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		line.Movements = append(line.Movements, LotMovement{
			Kind:           kind,
			BatchID:        batch.ID,
			BatchNumber:    batch.BatchNumber,
			Quantity:       taken,
			UnitCost:       batch.UnitCost,
			FromLocationID: batch.LocationID,
		})
		if kind == MovementConsumed || kind == MovementWasted {
			run.emit(BatchConsumedPayload{
				BatchID:       batch.ID,
				BatchNumber:   batch.BatchNumber,
				Quantity:      taken,
				Remaining:     batch.RemainingQuantity,
				UnitCost:      batch.UnitCost,
				Wasted:        kind == MovementWasted,
				TransactionID: run.tx.ID,
			}, NewStockKey(batch.ItemID, batch.LocationID), now)
		}
	}
	return nil
}

// noteUnallocated records stock that no lot could back. This only happens
// when lots and stock levels have drifted apart.
func (p *TransactionProcessor) noteUnallocated(line *TransactionItem, item *InventoryItem, plan AllocationPlan) {
	if !item.TrackExpiration || !plan.Unfulfilled.IsPositive() {
		return
	}
	line.UnallocatedQuantity = plan.Unfulfilled
	p.logger.Warn("Stock not backed by batches",
		zap.String("item_id", item.ID.String()),
		zap.String("location_id", line.LocationID.String()),
		zap.Int("line_no", line.LineNo),
		zap.String("unallocated", plan.Unfulfilled.String()),
	)
}

func (p *TransactionProcessor) evaluateThresholds(ctx context.Context, run *processRun) error {
	now := p.clock.Now()
	for key := range run.decreased {
		event, err := p.thresholdEvent(ctx, run.items[key.ItemID], key, now)
		if err != nil {
			return err
		}
		if event != nil {
			run.events = append(run.events, *event)
		}
	}
	return nil
}

// thresholdEvent returns OutOfStock at zero available, ItemLowStock at or
// below the reorder threshold, nil otherwise
func (p *TransactionProcessor) thresholdEvent(ctx context.Context, item *InventoryItem, key StockKey, now time.Time) (*Event, error) {
	level, err := p.ledger.GetStockLevel(ctx, key.ItemID, key.LocationID)
	if err != nil {
		if errors.Is(err, ErrStockLevelNotFound) {
			return nil, nil
		}
		return nil, err
	}
	available := level.Available()
	var payload EventPayload
	switch {
	case available.IsZero():
		payload = OutOfStockPayload{Current: level.CurrentQuantity, Reserved: level.ReservedQuantity}
	case item != nil && item.IsLowStock(available):
		payload = ItemLowStockPayload{Available: available, ReorderThreshold: item.ReorderThreshold}
	default:
		return nil, nil
	}
	event := NewEvent(payload, key, now)
	return &event, nil
}

// Reserve places a named reservation. A shortage returns a nil reservation,
// the ReserveResult explaining it, and no error.
func (p *TransactionProcessor) Reserve(ctx context.Context, req ReservationRequest) (*Reservation, ReserveResult, error) {
	item, err := p.items.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, ReserveResult{}, err
	}
	if err := p.checkLocation(ctx, req.LocationID); err != nil {
		return nil, ReserveResult{}, err
	}

	key := NewStockKey(req.ItemID, req.LocationID)
	reservation, result, err := p.ledger.PlaceReservation(ctx, req.ItemID, req.LocationID, req.Quantity, req.Reference)
	if err != nil {
		return nil, result, err
	}
	now := p.clock.Now()
	if !result.OK() {
		p.sink.Publish(ctx, NewEvent(InsufficientStockPayload{
			Operation: "reserve",
			Requested: req.Quantity,
			Available: result.Available,
		}, key, now))
		p.logger.Info("Reservation refused",
			zap.String("key", key.String()),
			zap.String("requested", req.Quantity.String()),
			zap.String("available", result.Available.String()),
		)
		return nil, result, nil
	}

	events := []Event{NewEvent(StockReservedPayload{
		ReservationID: reservation.ID,
		Reference:     reservation.Reference,
		Quantity:      reservation.Quantity,
		Available:     result.Available,
	}, key, now)}
	threshold, err := p.thresholdEvent(ctx, item, key, now)
	if err != nil {
		return nil, result, err
	}
	if threshold != nil {
		events = append(events, *threshold)
	}
	p.sink.Publish(ctx, events...)
	return reservation, result, nil
}

// Release releases a reservation by id
func (p *TransactionProcessor) Release(ctx context.Context, reservationID uuid.UUID) (*Reservation, ReleaseResult, error) {
	reservation, result, err := p.ledger.ReleaseReservation(ctx, reservationID)
	if err != nil {
		return nil, result, err
	}
	p.sink.Publish(ctx, NewEvent(StockReleasedPayload{
		ReservationID: reservation.ID,
		Reference:     reservation.Reference,
		Quantity:      reservation.Quantity,
		Available:     result.Available,
	}, reservation.Key(), p.clock.Now()))
	return reservation, result, nil
}
