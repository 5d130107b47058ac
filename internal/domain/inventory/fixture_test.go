package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/infrastructure/persistence/memory"
	infrastrategy "github.com/larder/backend/internal/infrastructure/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	clock     *shared.FixedClock
	store     *memory.Store
	locations *memory.LocationDirectory
	vendors   *memory.VendorCatalog
	events    *inventory.EventBuffer
	ledger    *inventory.StockLedger
	allocator *inventory.BatchAllocator
	costing   *inventory.CostingEngine
	processor *inventory.TransactionProcessor
	kitchen   uuid.UUID
	pantry    uuid.UUID
}

func newFixture(t *testing.T, opts ...inventory.LedgerOption) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		ctx:     context.Background(),
		clock:   shared.NewFixedClock(start),
		store:   memory.NewStore(),
		vendors: memory.NewVendorCatalog(),
		events:  inventory.NewEventBuffer(),
		kitchen: uuid.New(),
		pantry:  uuid.New(),
	}
	f.locations = memory.NewLocationDirectory(f.kitchen, f.pantry)
	registry := infrastrategy.MustNewRegistryWithDefaults()

	opts = append([]inventory.LedgerOption{inventory.WithReservations(f.store.Reservations)}, opts...)
	f.ledger = inventory.NewStockLedger(f.store.Levels, inventory.NewKeyLocker(), f.clock, logger, opts...)
	f.allocator = inventory.NewBatchAllocator(f.store.Batches, registry)
	f.costing = inventory.NewCostingEngine(inventory.CostingEngineDeps{
		Items:        f.store.Items,
		Batches:      f.store.Batches,
		Levels:       f.store.Levels,
		Transactions: f.store.Transactions,
		Strategies:   registry,
		Clock:        f.clock,
		Logger:       logger,
	})
	f.processor = inventory.NewTransactionProcessor(inventory.TransactionProcessorDeps{
		Items:        f.store.Items,
		Ledger:       f.ledger,
		Allocator:    f.allocator,
		Costing:      f.costing,
		Batches:      f.store.Batches,
		Transactions: f.store.Transactions,
		Locations:    f.locations,
		Sink:         f.events,
		Clock:        f.clock,
		Logger:       logger,
	})
	return f
}

func (f *fixture) planning() *inventory.PlanningEngine {
	return inventory.NewPlanningEngine(inventory.PlanningEngineDeps{
		Items:        f.store.Items,
		Levels:       f.store.Levels,
		Transactions: f.store.Transactions,
		Vendors:      f.vendors,
		Clock:        f.clock,
	})
}

type itemShape struct {
	sku       string
	tracked   bool
	method    inventory.CostingMethod
	threshold int64
	max       int64
	leadDays  int
}

func (f *fixture) item(t *testing.T, shape itemShape) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(f.ctx, f.store.Items, inventory.NewItemParams{
		SKU:              shape.sku,
		Name:             shape.sku,
		Category:         "dry",
		Unit:             "kg",
		ReorderThreshold: decimal.NewFromInt(shape.threshold),
		MaxStockLevel:    decimal.NewFromInt(shape.max),
		LeadTimeDays:     shape.leadDays,
		TrackExpiration:  shape.tracked,
		CostingMethod:    shape.method,
	}, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Items.Save(f.ctx, item))
	return item
}

type lotSpec struct {
	number    string
	qty       int64
	cost      string
	daysAgo   int
	expiresIn int
}

// receive books one receipt line dated daysAgo before the clock
func (f *fixture) receive(t *testing.T, item *inventory.InventoryItem, location uuid.UUID, lot lotSpec) *inventory.TransactionResult {
	t.Helper()
	date := f.clock.Now().AddDate(0, 0, -lot.daysAgo)
	line := inventory.TransactionItem{
		ItemID:      item.ID,
		Quantity:    decimal.NewFromInt(lot.qty),
		UnitCost:    decPtr(lot.cost),
		BatchNumber: lot.number,
	}
	if item.TrackExpiration {
		expires := f.clock.Now().AddDate(0, 0, lot.expiresIn)
		line.ExpirationDate = &expires
	}
	return f.process(t, inventory.NewTransactionParams{
		Type:                  inventory.TransactionTypeReceive,
		Date:                  date,
		DestinationLocationID: &location,
		Items:                 []inventory.TransactionItem{line},
	})
}

func (f *fixture) consume(t *testing.T, item *inventory.InventoryItem, location uuid.UUID, qty int64, daysAgo int) *inventory.TransactionResult {
	t.Helper()
	return f.process(t, inventory.NewTransactionParams{
		Type:             inventory.TransactionTypeConsume,
		Date:             f.clock.Now().AddDate(0, 0, -daysAgo),
		SourceLocationID: &location,
		Items: []inventory.TransactionItem{{
			ItemID:   item.ID,
			Quantity: decimal.NewFromInt(qty),
		}},
	})
}

func (f *fixture) process(t *testing.T, p inventory.NewTransactionParams) *inventory.TransactionResult {
	t.Helper()
	tx, err := inventory.NewTransaction(p, f.clock.Now())
	require.NoError(t, err)
	result, err := f.processor.Process(f.ctx, tx)
	require.NoError(t, err)
	return result
}

func (f *fixture) level(t *testing.T, itemID, locationID uuid.UUID) *inventory.StockLevel {
	t.Helper()
	level, err := f.ledger.GetStockLevel(f.ctx, itemID, locationID)
	require.NoError(t, err)
	return level
}

func (f *fixture) lots(t *testing.T, itemID uuid.UUID) []inventory.Batch {
	t.Helper()
	lots, err := f.store.Batches.FindAll(f.ctx, inventory.BatchFilter{ItemID: &itemID})
	require.NoError(t, err)
	return lots
}

func eventsOf(events []inventory.Event, kind inventory.EventKind) []inventory.Event {
	out := make([]inventory.Event, 0)
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual, msgAndArgs)
}
