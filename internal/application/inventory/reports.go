package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
)

// BatchListFilter narrows ListBatches and ClassifyBatches
type BatchListFilter struct {
	ItemID        *uuid.UUID
	LocationID    *uuid.UUID
	OnlyRemaining bool
}

// ListBatches returns lots matching filter
func (s *InventoryService) ListBatches(ctx context.Context, filter BatchListFilter) ([]BatchResponse, error) {
	batches, err := s.reads.Batches.FindAll(ctx, inventory.BatchFilter{
		ItemID:        filter.ItemID,
		LocationID:    filter.LocationID,
		OnlyRemaining: filter.OnlyRemaining,
	})
	if err != nil {
		return nil, err
	}
	return toBatchResponses(batches, s.clock.Now()), nil
}

// ClassifyBatches partitions lots with stock left into expired, expiring
// within windowDays and active. windowDays <= 0 uses the configured window.
func (s *InventoryService) ClassifyBatches(ctx context.Context, filter BatchListFilter, windowDays int) (*BatchClassificationResponse, error) {
	if windowDays <= 0 {
		windowDays = s.expiryWindowDays
	}
	batches, err := s.reads.Batches.FindAll(ctx, inventory.BatchFilter{
		ItemID:        filter.ItemID,
		LocationID:    filter.LocationID,
		OnlyRemaining: true,
	})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	c := inventory.ClassifyBatches(batches, now, windowDays)
	return &BatchClassificationResponse{
		Expired:      toBatchResponses(c.Expired, now),
		ExpiringSoon: toBatchResponses(c.ExpiringSoon, now),
		Active:       toBatchResponses(c.Active, now),
	}, nil
}

// InventoryValue values stock per item and in total
func (s *InventoryService) InventoryValue(ctx context.Context, locationID *uuid.UUID, category string, asOf *time.Time) (*ValuationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "InventoryValue")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	values, err := s.bind(s.reads, nil).costing.InventoryValue(ctx, inventory.ValuationFilter{
		LocationID: locationID,
		Category:   category,
		AsOf:       asOf,
	})
	if err != nil {
		return nil, err
	}
	resp := &ValuationResponse{
		Items:    make([]ValuationLine, 0, len(values)),
		Total:    decimal.Zero,
		Currency: string(s.currency),
		AsOf:     asOf,
	}
	for itemID, money := range values {
		line := ValuationLine{
			ItemID:   itemID,
			Amount:   money.Amount(),
			Currency: string(money.Currency()),
		}
		item, lookupErr := s.reads.Items.GetItem(ctx, itemID)
		if lookupErr == nil {
			line.SKU = item.SKU
		}
		resp.Items = append(resp.Items, line)
		resp.Total = resp.Total.Add(money.Amount())
	}
	sort.Slice(resp.Items, func(i, j int) bool {
		if resp.Items[i].SKU != resp.Items[j].SKU {
			return resp.Items[i].SKU < resp.Items[j].SKU
		}
		return resp.Items[i].ItemID.String() < resp.Items[j].ItemID.String()
	})
	return resp, nil
}

// GenerateReorderSuggestions lists items at locationID whose available stock
// is at or below their reorder threshold
func (s *InventoryService) GenerateReorderSuggestions(ctx context.Context, locationID uuid.UUID, categories []string) ([]inventory.ReorderSuggestion, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "GenerateReorderSuggestions", telemetry.LocationAttr(locationID))
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if s.locations != nil {
		var ok bool
		ok, err = s.locations.Exists(ctx, locationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			err = inventory.ErrLocationNotFound
			return nil, err
		}
	}
	suggestions, err := s.planning.GenerateReorderSuggestions(ctx, locationID, categories)
	return suggestions, err
}

// CalculateTurnover reports consumption over average inventory per item
func (s *InventoryService) CalculateTurnover(ctx context.Context, itemIDs []uuid.UUID, locationID *uuid.UUID, start, end time.Time) ([]inventory.TurnoverResult, error) {
	return s.planning.CalculateTurnover(ctx, itemIDs, locationID, inventory.TurnoverWindow{Start: start, End: end})
}

// CalculateReorderPoints derives reorder points from recent usage
func (s *InventoryService) CalculateReorderPoints(ctx context.Context, itemIDs []uuid.UUID, locationID *uuid.UUID) ([]inventory.ReorderPoint, error) {
	return s.planning.CalculateReorderPoints(ctx, itemIDs, locationID)
}

// Reconcile compares lot totals with stock levels. It reports and never corrects.
func (s *InventoryService) Reconcile(ctx context.Context, itemID, locationID *uuid.UUID) (*inventory.ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Reconcile")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	report, err := s.reconciler.Check(ctx, inventory.ReconciliationFilter{ItemID: itemID, LocationID: locationID})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDiscrepancies(ctx, len(report.Discrepancies))
	return report, nil
}

// ScanExpiry classifies lots and publishes expiry events for lots not
// announced yet
func (s *InventoryService) ScanExpiry(ctx context.Context) (inventory.ExpiryScanResult, error) {
	result, err := s.expiry.Scan(ctx)
	if err != nil {
		return result, err
	}
	s.metrics.RecordExpiryEvents(ctx, "expired", len(result.Classification.Expired))
	s.metrics.RecordExpiryEvents(ctx, "expiring_soon", len(result.Classification.ExpiringSoon))
	if result.Published > 0 {
		s.metrics.RecordEventsPublished(ctx, result.Published)
	}
	return result, nil
}

// StockSnapshot summarizes the ledger for the stock gauges
func (s *InventoryService) StockSnapshot(ctx context.Context) (telemetry.StockSnapshot, error) {
	levels, err := s.reads.Levels.FindAll(ctx)
	if err != nil {
		return telemetry.StockSnapshot{}, err
	}
	snapshot := telemetry.StockSnapshot{Keys: int64(len(levels))}
	items := make(map[uuid.UUID]*inventory.InventoryItem)
	for i := range levels {
		level := &levels[i]
		item, ok := items[level.ItemID]
		if !ok {
			item, err = s.reads.Items.GetItem(ctx, level.ItemID)
			if err != nil && !errors.Is(err, inventory.ErrItemNotFound) {
				return telemetry.StockSnapshot{}, err
			}
			items[level.ItemID] = item
		}
		if item != nil && item.IsActive && item.IsLowStock(level.Available()) {
			snapshot.BelowReorder++
		}
		if level.ReservedQuantity.IsPositive() {
			active, err := s.reads.Reservations.FindActive(ctx, level.Key())
			if err != nil {
				return telemetry.StockSnapshot{}, err
			}
			snapshot.Reservations += int64(len(active))
		}
	}
	return snapshot, nil
}
