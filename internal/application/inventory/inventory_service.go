package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/valueobject"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultConflictRetries is how often a unit of work is retried after an
	// optimistic lock conflict when no budget is configured
	DefaultConflictRetries = 3
	// DefaultIdempotencyTTL is how long a submitted reference stays claimed
	DefaultIdempotencyTTL = 24 * time.Hour

	serviceName = "InventoryService"
)

// ErrDuplicateReference is returned while another submission with the same
// reference is still in flight
var ErrDuplicateReference = shared.NewDomainError("DUPLICATE_REFERENCE", "A transaction with this reference is already being processed")

// StrategyProvider resolves both lot selection and cost strategies
type StrategyProvider interface {
	inventory.BatchStrategyProvider
	inventory.CostStrategyProvider
}

// InventoryServiceDeps groups the service's collaborators.
// Locations, Vendors, Sink, Idempotency and Metrics are optional.
type InventoryServiceDeps struct {
	Scope      inventory.TransactionScope
	Reads      inventory.Repositories
	Locations  inventory.LocationDirectory
	Vendors    inventory.VendorCatalog
	Locker     *inventory.KeyLocker
	Strategies StrategyProvider
	Policy     inventory.QuantityPolicy
	Clock      shared.Clock
	Sink       inventory.EventSink
	Metrics    *telemetry.LedgerMetrics
	Currency   valueobject.Currency
	Planning   inventory.PlanningConfig
	Logger     *zap.Logger

	Idempotency      shared.IdempotencyStore
	IdempotencyTTL   time.Duration
	ConflictRetries  int
	ExpiryWindowDays int
}

// InventoryService coordinates units of work over the ledger: it opens a
// scope, runs the domain engines inside it, retries on version conflicts and
// delivers events only after commit
type InventoryService struct {
	scope      inventory.TransactionScope
	reads      inventory.Repositories
	locations  inventory.LocationDirectory
	vendors    inventory.VendorCatalog
	locker     *inventory.KeyLocker
	strategies StrategyProvider
	policy     inventory.QuantityPolicy
	clock      shared.Clock
	sink       inventory.EventSink
	metrics    *telemetry.LedgerMetrics
	currency   valueobject.Currency
	planning   *inventory.PlanningEngine
	reconciler *inventory.Reconciler
	expiry     *inventory.ExpiryMonitor
	validate   *validator.Validate
	logger     *zap.Logger

	idempotency      shared.IdempotencyStore
	idempotencyTTL   time.Duration
	conflictRetries  int
	expiryWindowDays int
}

// engines is the set of domain services bound to one scope's repositories
type engines struct {
	ledger    *inventory.StockLedger
	allocator *inventory.BatchAllocator
	costing   *inventory.CostingEngine
	processor *inventory.TransactionProcessor
}

type discardSink struct{}

func (discardSink) Publish(context.Context, ...inventory.Event) {}

// NewInventoryService creates a new InventoryService
func NewInventoryService(deps InventoryServiceDeps) *InventoryService {
	if deps.Locker == nil {
		deps.Locker = inventory.NewKeyLocker()
	}
	if deps.Clock == nil {
		deps.Clock = shared.SystemClock{}
	}
	if deps.Sink == nil {
		deps.Sink = discardSink{}
	}
	if deps.Currency == "" {
		deps.Currency = valueobject.DefaultCurrency
	}
	if deps.Policy == (inventory.QuantityPolicy{}) {
		deps.Policy = inventory.DefaultQuantityPolicy()
	}
	if deps.Planning.UsageLookbackDays == 0 {
		deps.Planning = inventory.DefaultPlanningConfig()
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = DefaultIdempotencyTTL
	}
	if deps.ConflictRetries <= 0 {
		deps.ConflictRetries = DefaultConflictRetries
	}
	if deps.ExpiryWindowDays <= 0 {
		deps.ExpiryWindowDays = inventory.DefaultExpiryWindowDays
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &InventoryService{
		scope:            deps.Scope,
		reads:            deps.Reads,
		locations:        deps.Locations,
		vendors:          deps.Vendors,
		locker:           deps.Locker,
		strategies:       deps.Strategies,
		policy:           deps.Policy,
		clock:            deps.Clock,
		sink:             deps.Sink,
		metrics:          deps.Metrics,
		currency:         deps.Currency,
		validate:         validator.New(),
		logger:           deps.Logger,
		idempotency:      deps.Idempotency,
		idempotencyTTL:   deps.IdempotencyTTL,
		conflictRetries:  deps.ConflictRetries,
		expiryWindowDays: deps.ExpiryWindowDays,
	}
	s.planning = inventory.NewPlanningEngine(inventory.PlanningEngineDeps{
		Items:        deps.Reads.Items,
		Levels:       deps.Reads.Levels,
		Transactions: deps.Reads.Transactions,
		Vendors:      deps.Vendors,
		Config:       deps.Planning,
		Currency:     deps.Currency,
		Clock:        deps.Clock,
		Logger:       deps.Logger.Named("planning"),
	})
	s.reconciler = inventory.NewReconciler(deps.Reads.Items, deps.Reads.Levels, deps.Reads.Batches, deps.Clock, deps.Logger.Named("reconciler"))
	s.expiry = inventory.NewExpiryMonitor(deps.Reads.Batches, deps.Sink, deps.Clock, deps.Logger.Named("expiry"), deps.ExpiryWindowDays)
	return s
}

// bind builds the domain engines over repos. Events go to sink.
func (s *InventoryService) bind(repos inventory.Repositories, sink inventory.EventSink) *engines {
	ledger := inventory.NewStockLedger(repos.Levels, s.locker, s.clock, s.logger.Named("ledger"),
		inventory.WithQuantityPolicy(s.policy),
		inventory.WithReservations(repos.Reservations),
		inventory.WithClampObserver(s.observeClamp),
	)
	allocator := inventory.NewBatchAllocator(repos.Batches, s.strategies)
	costing := inventory.NewCostingEngine(inventory.CostingEngineDeps{
		Items:        repos.Items,
		Batches:      repos.Batches,
		Levels:       repos.Levels,
		Transactions: repos.Transactions,
		Strategies:   s.strategies,
		Currency:     s.currency,
		Clock:        s.clock,
		Logger:       s.logger.Named("costing"),
	})
	processor := inventory.NewTransactionProcessor(inventory.TransactionProcessorDeps{
		Items:        repos.Items,
		Ledger:       ledger,
		Allocator:    allocator,
		Costing:      costing,
		Batches:      repos.Batches,
		Transactions: repos.Transactions,
		Locations:    s.locations,
		Sink:         sink,
		Clock:        s.clock,
		Logger:       s.logger.Named("processor"),
	})
	return &engines{
		ledger:    ledger,
		allocator: allocator,
		costing:   costing,
		processor: processor,
	}
}

func (s *InventoryService) observeClamp(key inventory.StockKey, requested, applied decimal.Decimal) {
	s.metrics.RecordClamp(context.Background())
	s.logger.Warn("Decrement clamped to current quantity",
		zap.String("key", key.String()),
		logger.Quantity("requested", requested),
		logger.Quantity("applied", applied),
	)
}

// unitOfWork runs fn inside a scope, retrying the whole scope when a
// versioned save lost a race. Each attempt gets a fresh event buffer; the
// buffer of the successful attempt is delivered after commit.
func (s *InventoryService) unitOfWork(ctx context.Context, fn func(e *engines, repos inventory.Repositories) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.conflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		buffer := inventory.NewEventBuffer()
		err := s.scope.Execute(ctx, func(repos inventory.Repositories) error {
			return fn(s.bind(repos, buffer), repos)
		})
		if err == nil {
			if n := buffer.FlushTo(ctx, s.sink); n > 0 {
				s.metrics.RecordEventsPublished(ctx, n)
			}
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		lastErr = err
		s.metrics.RecordConflictRetry(ctx)
		logger.L(ctx).Debug("Retrying unit of work after version conflict", zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("gave up after %d retries: %w", s.conflictRetries, lastErr)
}

func (s *InventoryService) validateCommand(cmd any) error {
	if err := s.validate.Struct(cmd); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", shared.ErrInvalidInput, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// CreateItem registers a new item
func (s *InventoryService) CreateItem(ctx context.Context, cmd CreateItemCommand) (*ItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "CreateItem")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if err = s.validateCommand(cmd); err != nil {
		return nil, err
	}
	var created *inventory.InventoryItem
	err = s.unitOfWork(ctx, func(_ *engines, repos inventory.Repositories) error {
		item, err := inventory.NewInventoryItem(ctx, repos.Items, inventory.NewItemParams{
			SKU:                cmd.SKU,
			Name:               cmd.Name,
			Category:           cmd.Category,
			Unit:               cmd.Unit,
			ReorderThreshold:   cmd.ReorderThreshold,
			MinStockLevel:      cmd.MinStockLevel,
			MaxStockLevel:      cmd.MaxStockLevel,
			LeadTimeDays:       cmd.LeadTimeDays,
			TrackExpiration:    cmd.TrackExpiration,
			CostingMethod:      inventory.CostingMethod(cmd.CostingMethod),
			PreferredVendorID:  cmd.PreferredVendorID,
			AlternativeItemIDs: cmd.AlternativeItemIDs,
		}, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Items.Save(ctx, item); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Inventory item created", logger.ItemID(created.ID), zap.String("sku", created.SKU))
	resp := ToItemResponse(created)
	return &resp, nil
}

// GetItem returns an item by id
func (s *InventoryService) GetItem(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.reads.Items.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// GetItemBySku returns an item by SKU
func (s *InventoryService) GetItemBySku(ctx context.Context, sku string) (*ItemResponse, error) {
	item, err := s.reads.Items.FindBySku(ctx, sku)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// ListItems returns the items matching filter
func (s *InventoryService) ListItems(ctx context.Context, filter ItemListFilter) ([]ItemResponse, error) {
	items, err := s.reads.Items.FindAll(ctx, inventory.ItemFilter{
		Categories: filter.Categories,
		ActiveOnly: filter.ActiveOnly,
		SortBy:     filter.SortBy,
		SortDesc:   filter.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, ToItemResponse(&items[i]))
	}
	return out, nil
}

// UpdateReorderPolicy replaces an item's planning thresholds
func (s *InventoryService) UpdateReorderPolicy(ctx context.Context, id uuid.UUID, cmd UpdateReorderPolicyCommand) (*ItemResponse, error) {
	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}
	return s.mutateItem(ctx, id, func(item *inventory.InventoryItem, now time.Time) error {
		return item.SetReorderPolicy(cmd.ReorderThreshold, cmd.MinStockLevel, cmd.MaxStockLevel, cmd.LeadTimeDays, now)
	})
}

// AddAlternative links a substitute item
func (s *InventoryService) AddAlternative(ctx context.Context, id, alternativeID uuid.UUID) (*ItemResponse, error) {
	if _, err := s.reads.Items.GetItem(ctx, alternativeID); err != nil {
		return nil, err
	}
	return s.mutateItem(ctx, id, func(item *inventory.InventoryItem, now time.Time) error {
		return item.AddAlternative(alternativeID, now)
	})
}

// SetItemActive activates or deactivates an item
func (s *InventoryService) SetItemActive(ctx context.Context, id uuid.UUID, active bool) (*ItemResponse, error) {
	return s.mutateItem(ctx, id, func(item *inventory.InventoryItem, now time.Time) error {
		if active {
			item.Activate(now)
		} else {
			item.Deactivate(now)
		}
		return nil
	})
}

func (s *InventoryService) mutateItem(ctx context.Context, id uuid.UUID, fn func(item *inventory.InventoryItem, now time.Time) error) (*ItemResponse, error) {
	var updated *inventory.InventoryItem
	err := s.unitOfWork(ctx, func(_ *engines, repos inventory.Repositories) error {
		item, err := repos.Items.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(item, s.clock.Now()); err != nil {
			return err
		}
		if err := repos.Items.Save(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(updated)
	return &resp, nil
}

// GetStockLevel returns the ledger position of one key. A key that has never
// been stocked reads as zero.
func (s *InventoryService) GetStockLevel(ctx context.Context, itemID, locationID uuid.UUID) (*StockLevelResponse, error) {
	if _, err := s.reads.Items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	level, err := s.bind(s.reads, nil).ledger.GetStockLevel(ctx, itemID, locationID)
	if errors.Is(err, inventory.ErrStockLevelNotFound) {
		level, err = inventory.NewStockLevel(inventory.NewStockKey(itemID, locationID), s.clock.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	resp := ToStockLevelResponse(level)
	return &resp, nil
}

// GetAvailable returns current - reserved for one key
func (s *InventoryService) GetAvailable(ctx context.Context, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	return s.bind(s.reads, nil).ledger.GetAvailable(ctx, itemID, locationID)
}

// ListStockLevels returns the levels of one item, one location, or all keys
func (s *InventoryService) ListStockLevels(ctx context.Context, itemID, locationID *uuid.UUID) ([]StockLevelResponse, error) {
	var (
		levels []inventory.StockLevel
		err    error
	)
	switch {
	case itemID != nil:
		levels, err = s.reads.Levels.FindByItem(ctx, *itemID)
	case locationID != nil:
		levels, err = s.reads.Levels.FindByLocation(ctx, *locationID)
	default:
		levels, err = s.reads.Levels.FindAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	out := make([]StockLevelResponse, 0, len(levels))
	for i := range levels {
		if locationID != nil && levels[i].LocationID != *locationID {
			continue
		}
		out = append(out, ToStockLevelResponse(&levels[i]))
	}
	return out, nil
}
