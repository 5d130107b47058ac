package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName is the instrumentation scope of ledger metrics
const LedgerMeterName = "github.com/larder/backend/inventory"

// StockSnapshot is what the stock gauges report on each collection
type StockSnapshot struct {
	Keys         int64
	BelowReorder int64
	Reservations int64
}

// StockSnapshotFunc produces a StockSnapshot on demand
type StockSnapshotFunc func(ctx context.Context) (StockSnapshot, error)

// LedgerMetrics holds the inventory ledger instruments. A nil *LedgerMetrics
// is valid and records nothing.
type LedgerMetrics struct {
	transactions    metric.Int64Counter
	lines           metric.Int64Counter
	duration        metric.Float64Histogram
	reservations    metric.Int64Counter
	clamps          metric.Int64Counter
	conflictRetries metric.Int64Counter
	discrepancies   metric.Int64Counter
	expiryEvents    metric.Int64Counter
	eventsPublished metric.Int64Counter
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	m := &LedgerMetrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.transactions, "inventory_transactions_total", "Submitted transactions by type and outcome", "{transaction}"},
		{&m.lines, "inventory_transaction_lines_total", "Transaction lines by type and final status", "{line}"},
		{&m.reservations, "inventory_reservations_total", "Reserve and release calls by outcome", "{reservation}"},
		{&m.clamps, "inventory_decrement_clamps_total", "Decrements clamped to the quantity on hand", "{decrement}"},
		{&m.conflictRetries, "inventory_conflict_retries_total", "Units of work retried after a version conflict", "{retry}"},
		{&m.discrepancies, "inventory_reconciliation_discrepancies_total", "Discrepancies found by reconciliation", "{discrepancy}"},
		{&m.expiryEvents, "inventory_expiry_events_total", "Expiry events published by classification", "{event}"},
		{&m.eventsPublished, "inventory_events_published_total", "Domain events delivered to the sink", "{event}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	duration, err := meter.Float64Histogram("inventory_transaction_duration_seconds",
		metric.WithDescription("Time to process one transaction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...))
	if err != nil {
		return nil, err
	}
	m.duration = duration
	return m, nil
}

// RecordTransaction counts one processed transaction and its duration
func (m *LedgerMetrics) RecordTransaction(ctx context.Context, txType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	typeAttr := attribute.String("type", txType)
	m.transactions.Add(ctx, 1, metric.WithAttributes(typeAttr, attribute.String("outcome", outcome)))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(typeAttr))
}

// RecordLines counts n lines that ended in status
func (m *LedgerMetrics) RecordLines(ctx context.Context, txType, status string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.lines.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("type", txType),
		attribute.String("status", status),
	))
}

// RecordReservation counts a reserve or release call
func (m *LedgerMetrics) RecordReservation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.reservations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordClamp counts one clamped decrement
func (m *LedgerMetrics) RecordClamp(ctx context.Context) {
	if m == nil {
		return
	}
	m.clamps.Add(ctx, 1)
}

// RecordConflictRetry counts one retried unit of work
func (m *LedgerMetrics) RecordConflictRetry(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflictRetries.Add(ctx, 1)
}

// RecordDiscrepancies counts discrepancies from one reconciliation run
func (m *LedgerMetrics) RecordDiscrepancies(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.discrepancies.Add(ctx, int64(n))
}

// RecordExpiryEvents counts n expiry events of one classification
func (m *LedgerMetrics) RecordExpiryEvents(ctx context.Context, classification string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.expiryEvents.Add(ctx, int64(n), metric.WithAttributes(attribute.String("classification", classification)))
}

// RecordEventsPublished counts events handed to the sink
func (m *LedgerMetrics) RecordEventsPublished(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsPublished.Add(ctx, int64(n))
}

// ObserveStock registers gauges backed by fn. Unregister the returned
// registration on shutdown.
func ObserveStock(meter metric.Meter, fn StockSnapshotFunc) (metric.Registration, error) {
	keys, err := meter.Int64ObservableGauge("inventory_stock_keys",
		metric.WithDescription("Tracked (item, location) stock levels"), metric.WithUnit("{key}"))
	if err != nil {
		return nil, err
	}
	below, err := meter.Int64ObservableGauge("inventory_stock_below_reorder",
		metric.WithDescription("Items whose total stock is at or below the reorder point"), metric.WithUnit("{item}"))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64ObservableGauge("inventory_reservations_active",
		metric.WithDescription("Active reservations"), metric.WithUnit("{reservation}"))
	if err != nil {
		return nil, err
	}
	return meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		snap, err := fn(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(keys, snap.Keys)
		o.ObserveInt64(below, snap.BelowReorder)
		o.ObserveInt64(active, snap.Reservations)
		return nil
	}, keys, below, active)
}
