package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuantityChange reports what a ledger mutation did to one stock level
type QuantityChange struct {
	Key      StockKey
	Previous decimal.Decimal
	Current  decimal.Decimal
	Reserved decimal.Decimal
	// Applied is the quantity actually added or removed
	Applied decimal.Decimal
	// Variance is Current - Previous, signed
	Variance decimal.Decimal
	// Ignored is true when the policy turned the call into a no-op
	Ignored bool
	// Clamped is true when a decrease was cut at zero
	Clamped bool
	// ReservedTrimmed is how much reservation was cut to keep reserved <= current
	ReservedTrimmed decimal.Decimal
}

// Available returns current - reserved after the change, floored at zero
func (c QuantityChange) Available() decimal.Decimal {
	a := c.Current.Sub(c.Reserved)
	if a.IsNegative() {
		return decimal.Zero
	}
	return a
}

// ReserveOutcome is the result of a reservation attempt
type ReserveOutcome string

const (
	ReserveOK           ReserveOutcome = "OK"
	ReserveInsufficient ReserveOutcome = "INSUFFICIENT"
)

// ReserveResult carries the outcome and the quantities after the attempt
type ReserveResult struct {
	Outcome   ReserveOutcome
	Requested decimal.Decimal
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// OK returns true if the reservation was applied
func (r ReserveResult) OK() bool {
	return r.Outcome == ReserveOK
}

// ReleaseOutcome is the result of a release attempt
type ReleaseOutcome string

const (
	ReleaseOK        ReleaseOutcome = "OK"
	ReleaseExcessive ReleaseOutcome = "EXCESSIVE"
)

// ReleaseResult carries the outcome and the quantities after the attempt
type ReleaseResult struct {
	Outcome   ReleaseOutcome
	Requested decimal.Decimal
	Available decimal.Decimal
	Reserved  decimal.Decimal
}

// OK returns true if the release was applied
func (r ReleaseResult) OK() bool {
	return r.Outcome == ReleaseOK
}

// StockLedger owns (item, location) -> {current, reserved}. Every mutation
// runs under the key's lock, so operations on one key are linearizable while
// different keys proceed in parallel.
type StockLedger struct {
	levels       StockLevelRepository
	reservations ReservationRepository
	locks        *KeyLocker
	policy       QuantityPolicy
	onClamp      ClampObserver
	clock        shared.Clock
	logger       *zap.Logger
}

// ClampObserver is told about every decrease cut at zero
type ClampObserver func(key StockKey, requested, applied decimal.Decimal)

// LedgerOption configures a StockLedger
type LedgerOption func(*StockLedger)

// WithQuantityPolicy overrides the default quantity policy
func WithQuantityPolicy(policy QuantityPolicy) LedgerOption {
	return func(l *StockLedger) {
		l.policy = policy
	}
}

// WithReservations enables PlaceReservation / ReleaseReservation
func WithReservations(repo ReservationRepository) LedgerOption {
	return func(l *StockLedger) {
		l.reservations = repo
	}
}

// WithClampObserver registers fn to run after a clamped decrease
func WithClampObserver(fn ClampObserver) LedgerOption {
	return func(l *StockLedger) {
		l.onClamp = fn
	}
}

// NewStockLedger creates a ledger. locks may be shared between ledgers built
// over different repositories for the same store.
func NewStockLedger(levels StockLevelRepository, locks *KeyLocker, clock shared.Clock, logger *zap.Logger, opts ...LedgerOption) *StockLedger {
	if locks == nil {
		locks = NewKeyLocker()
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &StockLedger{
		levels: levels,
		locks:  locks,
		policy: DefaultQuantityPolicy(),
		clock:  clock,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy returns the active quantity policy
func (l *StockLedger) Policy() QuantityPolicy {
	return l.policy
}

// GetStockLevel returns the stored level or ErrStockLevelNotFound
func (l *StockLedger) GetStockLevel(ctx context.Context, itemID, locationID uuid.UUID) (*StockLevel, error) {
	return l.levels.Find(ctx, NewStockKey(itemID, locationID))
}

// GetAvailable returns current - reserved; a never-stocked key has zero available
func (l *StockLedger) GetAvailable(ctx context.Context, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	level, err := l.levels.Find(ctx, NewStockKey(itemID, locationID))
	if err != nil {
		if errors.Is(err, ErrStockLevelNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return level.Available(), nil
}

// ItemOnHand sums current quantity of the item over every location
func (l *StockLedger) ItemOnHand(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	levels, err := l.levels.FindByItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load stock levels: %w", err)
	}
	total := decimal.Zero
	for _, level := range levels {
		total = total.Add(level.CurrentQuantity)
	}
	return total, nil
}

// IncreaseQuantity adds qty to current
func (l *StockLedger) IncreaseQuantity(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal) (QuantityChange, error) {
	key := NewStockKey(itemID, locationID)
	var change QuantityChange
	err := l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		change, err = tx.Increase(key, qty)
		return err
	})
	return change, err
}

// DecreaseQuantity removes qty from current, clamping at zero or rejecting per policy
func (l *StockLedger) DecreaseQuantity(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal) (QuantityChange, error) {
	key := NewStockKey(itemID, locationID)
	var change QuantityChange
	err := l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		change, err = tx.Decrease(key, qty)
		return err
	})
	return change, err
}

// Reserve holds qty of available stock, all or nothing
func (l *StockLedger) Reserve(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal) (ReserveResult, error) {
	key := NewStockKey(itemID, locationID)
	var result ReserveResult
	err := l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		result, err = tx.Reserve(key, qty)
		return err
	})
	return result, err
}

// Release returns qty of reserved stock to available
func (l *StockLedger) Release(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal) (ReleaseResult, error) {
	key := NewStockKey(itemID, locationID)
	var result ReleaseResult
	err := l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		result, err = tx.Release(key, qty)
		return err
	})
	return result, err
}

// SetAbsoluteQuantity overwrites current with a counted total
func (l *StockLedger) SetAbsoluteQuantity(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal) (QuantityChange, error) {
	key := NewStockKey(itemID, locationID)
	var change QuantityChange
	err := l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		change, err = tx.SetAbsolute(key, qty)
		return err
	})
	return change, err
}

// PlaceReservation reserves qty and records a Reservation for it.
// On a shortage the returned reservation is nil and the result says why.
func (l *StockLedger) PlaceReservation(ctx context.Context, itemID, locationID uuid.UUID, qty decimal.Decimal, reference string) (*Reservation, ReserveResult, error) {
	if l.reservations == nil {
		return nil, ReserveResult{}, fmt.Errorf("%w: ledger has no reservation store", shared.ErrInvalidState)
	}
	key := NewStockKey(itemID, locationID)
	reservation, err := NewReservation(key, qty, reference, l.clock.Now())
	if err != nil {
		return nil, ReserveResult{}, err
	}

	var result ReserveResult
	err = l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		var err error
		result, err = tx.Reserve(key, qty)
		if err != nil || !result.OK() {
			return err
		}
		return l.reservations.Save(ctx, reservation)
	})
	if err != nil || !result.OK() {
		return nil, result, err
	}
	return reservation, result, nil
}

// ReleaseReservation releases an active reservation by id
func (l *StockLedger) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (*Reservation, ReleaseResult, error) {
	if l.reservations == nil {
		return nil, ReleaseResult{}, fmt.Errorf("%w: ledger has no reservation store", shared.ErrInvalidState)
	}
	reservation, err := l.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, ReleaseResult{}, err
	}
	if !reservation.IsActive() {
		return nil, ReleaseResult{}, fmt.Errorf("%w: %s", ErrReservationNotActive, reservationID)
	}

	key := reservation.Key()
	var result ReleaseResult
	err = l.WithKeys(ctx, []StockKey{key}, func(tx *LedgerTx) error {
		level, err := tx.Level(key)
		if err != nil {
			return err
		}
		// Reservations trimmed by a shrinking count release only what is left.
		qty := decimal.Min(reservation.Quantity, level.ReservedQuantity)
		if qty.IsPositive() {
			result, err = tx.Release(key, qty)
			if err != nil {
				return err
			}
		} else {
			result = ReleaseResult{Outcome: ReleaseOK, Requested: qty, Available: level.Available(), Reserved: level.ReservedQuantity}
		}
		if err := reservation.markReleased(l.clock.Now()); err != nil {
			return err
		}
		return l.reservations.Save(ctx, reservation)
	})
	if err != nil {
		return nil, result, err
	}
	return reservation, result, nil
}

// WithKeys runs fn while holding the locks of every key. fn may only touch
// those keys through tx.
func (l *StockLedger) WithKeys(ctx context.Context, keys []StockKey, fn func(tx *LedgerTx) error) error {
	unlock := l.locks.Lock(keys...)
	defer unlock()

	held := make(map[StockKey]struct{}, len(keys))
	for _, k := range keys {
		held[k] = struct{}{}
	}
	tx := &LedgerTx{ledger: l, ctx: ctx, held: held, levels: make(map[StockKey]*StockLevel, len(keys))}
	return fn(tx)
}

// LedgerTx is the view of the ledger inside WithKeys
type LedgerTx struct {
	ledger *StockLedger
	ctx    context.Context
	held   map[StockKey]struct{}
	levels map[StockKey]*StockLevel
}

// Level returns the level for key, creating an unsaved empty one if needed
func (tx *LedgerTx) Level(key StockKey) (*StockLevel, error) {
	if _, ok := tx.held[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotLocked, key)
	}
	if level, ok := tx.levels[key]; ok {
		return level, nil
	}
	level, err := tx.ledger.levels.Find(tx.ctx, key)
	if err != nil {
		if !errors.Is(err, ErrStockLevelNotFound) {
			return nil, fmt.Errorf("failed to load stock level %s: %w", key, err)
		}
		level = NewStockLevel(key, tx.ledger.clock.Now())
	}
	tx.levels[key] = level
	return level, nil
}

// Increase adds qty to current
func (tx *LedgerTx) Increase(key StockKey, qty decimal.Decimal) (QuantityChange, error) {
	level, err := tx.Level(key)
	if err != nil {
		return QuantityChange{}, err
	}
	if skip, err := tx.checkPositive("increase", key, qty); skip || err != nil {
		return tx.unchanged(level), err
	}
	previous := level.CurrentQuantity
	level.increase(qty)
	if err := tx.save(level); err != nil {
		return QuantityChange{}, err
	}
	return tx.changed(level, previous, qty, false, decimal.Zero), nil
}

// Decrease removes qty from current under the over-decrement policy
func (tx *LedgerTx) Decrease(key StockKey, qty decimal.Decimal) (QuantityChange, error) {
	level, err := tx.Level(key)
	if err != nil {
		return QuantityChange{}, err
	}
	if skip, err := tx.checkPositive("decrease", key, qty); skip || err != nil {
		return tx.unchanged(level), err
	}
	if qty.GreaterThan(level.CurrentQuantity) && tx.ledger.policy.OverDecrement == OverDecrementReject {
		return tx.unchanged(level), fmt.Errorf("%w: %s requested, %s on hand at %s",
			ErrQuantityExceedsStock, qty, level.CurrentQuantity, key)
	}

	previous := level.CurrentQuantity
	applied, clamped := level.decrease(qty)
	if clamped {
		tx.ledger.logger.Warn("Decrease clamped at zero",
			zap.String("key", key.String()),
			zap.String("requested", qty.String()),
			zap.String("applied", applied.String()),
		)
		if tx.ledger.onClamp != nil {
			tx.ledger.onClamp(key, qty, applied)
		}
	}
	trimmed := tx.trim(level)
	if err := tx.save(level); err != nil {
		return QuantityChange{}, err
	}
	return tx.changed(level, previous, applied, clamped, trimmed), nil
}

// Reserve holds qty if available covers it; never partially
func (tx *LedgerTx) Reserve(key StockKey, qty decimal.Decimal) (ReserveResult, error) {
	level, err := tx.Level(key)
	if err != nil {
		return ReserveResult{}, err
	}
	if skip, err := tx.checkPositive("reserve", key, qty); skip || err != nil {
		return ReserveResult{Outcome: ReserveOK, Requested: qty, Available: level.Available(), Reserved: level.ReservedQuantity}, err
	}
	if !level.reserve(qty) {
		return ReserveResult{
			Outcome:   ReserveInsufficient,
			Requested: qty,
			Available: level.Available(),
			Reserved:  level.ReservedQuantity,
		}, nil
	}
	if err := tx.save(level); err != nil {
		return ReserveResult{}, err
	}
	return ReserveResult{Outcome: ReserveOK, Requested: qty, Available: level.Available(), Reserved: level.ReservedQuantity}, nil
}

// Release frees qty of reserved stock; more than is reserved is refused
func (tx *LedgerTx) Release(key StockKey, qty decimal.Decimal) (ReleaseResult, error) {
	level, err := tx.Level(key)
	if err != nil {
		return ReleaseResult{}, err
	}
	if skip, err := tx.checkPositive("release", key, qty); skip || err != nil {
		return ReleaseResult{Outcome: ReleaseOK, Requested: qty, Available: level.Available(), Reserved: level.ReservedQuantity}, err
	}
	if !level.release(qty) {
		return ReleaseResult{
			Outcome:   ReleaseExcessive,
			Requested: qty,
			Available: level.Available(),
			Reserved:  level.ReservedQuantity,
		}, nil
	}
	if err := tx.save(level); err != nil {
		return ReleaseResult{}, err
	}
	return ReleaseResult{Outcome: ReleaseOK, Requested: qty, Available: level.Available(), Reserved: level.ReservedQuantity}, nil
}

// SetAbsolute overwrites current with a counted total. Reserved is kept
// unless the count falls below it.
func (tx *LedgerTx) SetAbsolute(key StockKey, qty decimal.Decimal) (QuantityChange, error) {
	level, err := tx.Level(key)
	if err != nil {
		return QuantityChange{}, err
	}
	if qty.IsNegative() {
		return tx.unchanged(level), fmt.Errorf("%w: counted %s", ErrInvalidTransactionQuantity, qty)
	}
	previous := level.CurrentQuantity
	variance := level.setAbsolute(qty)
	trimmed := tx.trim(level)
	if err := tx.save(level); err != nil {
		return QuantityChange{}, err
	}
	return tx.changed(level, previous, variance.Abs(), false, trimmed), nil
}

func (tx *LedgerTx) checkPositive(op string, key StockKey, qty decimal.Decimal) (skip bool, err error) {
	if qty.IsPositive() {
		return false, nil
	}
	if tx.ledger.policy.NonPositive == NonPositiveReject {
		return true, fmt.Errorf("%w: %s %s at %s", ErrNonPositiveQuantity, op, qty, key)
	}
	tx.ledger.logger.Warn("Ignoring non-positive ledger quantity",
		zap.String("operation", op),
		zap.String("key", key.String()),
		zap.String("quantity", qty.String()),
	)
	return true, nil
}

func (tx *LedgerTx) trim(level *StockLevel) decimal.Decimal {
	trimmed := level.trimReserved()
	if trimmed.IsPositive() {
		tx.ledger.logger.Warn("Reserved quantity trimmed to current",
			zap.String("key", level.Key().String()),
			zap.String("trimmed", trimmed.String()),
			zap.String("current", level.CurrentQuantity.String()),
		)
	}
	return trimmed
}

func (tx *LedgerTx) save(level *StockLevel) error {
	if err := level.CheckInvariant(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	level.IncrementVersion()
	level.UpdatedAt = tx.ledger.clock.Now()
	if err := tx.ledger.levels.Save(tx.ctx, level); err != nil {
		// Drop the cached copy; its version no longer matches the store.
		delete(tx.levels, level.Key())
		return err
	}
	return nil
}

func (tx *LedgerTx) unchanged(level *StockLevel) QuantityChange {
	return QuantityChange{
		Key:      level.Key(),
		Previous: level.CurrentQuantity,
		Current:  level.CurrentQuantity,
		Reserved: level.ReservedQuantity,
		Applied:  decimal.Zero,
		Variance: decimal.Zero,
		Ignored:  true,
	}
}

func (tx *LedgerTx) changed(level *StockLevel, previous, applied decimal.Decimal, clamped bool, trimmed decimal.Decimal) QuantityChange {
	return QuantityChange{
		Key:             level.Key(),
		Previous:        previous,
		Current:         level.CurrentQuantity,
		Reserved:        level.ReservedQuantity,
		Applied:         applied,
		Variance:        level.CurrentQuantity.Sub(previous),
		Clamped:         clamped,
		ReservedTrimmed: trimmed,
	}
}
