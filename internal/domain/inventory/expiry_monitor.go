package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultExpiryWindowDays is how far ahead a lot counts as expiring soon
const DefaultExpiryWindowDays = 3

// ExpiryScanResult is the outcome of one scan
type ExpiryScanResult struct {
	Classification BatchClassification
	// Published counts events sent; lots are announced once per kind
	Published int
}

// ExpiryMonitor announces lots that expired or are about to
type ExpiryMonitor struct {
	batches    BatchRepository
	sink       EventSink
	clock      shared.Clock
	logger     *zap.Logger
	windowDays int

	mu       sync.Mutex
	notified map[uuid.UUID]EventKind
}

// NewExpiryMonitor creates a monitor; windowDays <= 0 uses the default
func NewExpiryMonitor(batches BatchRepository, sink EventSink, clock shared.Clock, logger *zap.Logger, windowDays int) *ExpiryMonitor {
	if sink == nil {
		sink = discardSink{}
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if windowDays <= 0 {
		windowDays = DefaultExpiryWindowDays
	}
	return &ExpiryMonitor{
		batches:    batches,
		sink:       sink,
		clock:      clock,
		logger:     logger,
		windowDays: windowDays,
		notified:   make(map[uuid.UUID]EventKind),
	}
}

// Scan classifies every lot with stock left and publishes BatchExpired and
// BatchExpiringSoon for lots not announced yet
func (m *ExpiryMonitor) Scan(ctx context.Context) (ExpiryScanResult, error) {
	lots, err := m.batches.FindAll(ctx, BatchFilter{OnlyRemaining: true})
	if err != nil {
		return ExpiryScanResult{}, fmt.Errorf("failed to load batches: %w", err)
	}
	now := m.clock.Now()
	classification := ClassifyBatches(lots, now, m.windowDays)

	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]Event, 0)
	for _, b := range classification.Expired {
		if m.notified[b.ID] == EventKindBatchExpired {
			continue
		}
		m.notified[b.ID] = EventKindBatchExpired
		events = append(events, NewEvent(BatchExpiredPayload{
			BatchID:        b.ID,
			BatchNumber:    b.BatchNumber,
			ExpirationDate: b.ExpirationDate,
			Remaining:      b.RemainingQuantity,
		}, NewStockKey(b.ItemID, b.LocationID), now))
	}
	for _, b := range classification.ExpiringSoon {
		if _, seen := m.notified[b.ID]; seen {
			continue
		}
		m.notified[b.ID] = EventKindBatchExpiringSoon
		events = append(events, NewEvent(BatchExpiringSoonPayload{
			BatchID:        b.ID,
			BatchNumber:    b.BatchNumber,
			ExpirationDate: b.ExpirationDate,
			Remaining:      b.RemainingQuantity,
			DaysLeft:       b.DaysUntilExpiry(now),
		}, NewStockKey(b.ItemID, b.LocationID), now))
	}

	// Forget lots that ran out so the map tracks live lots only.
	live := make(map[uuid.UUID]struct{}, len(lots))
	for _, b := range lots {
		live[b.ID] = struct{}{}
	}
	for id := range m.notified {
		if _, ok := live[id]; !ok {
			delete(m.notified, id)
		}
	}

	if len(events) > 0 {
		m.sink.Publish(ctx, events...)
		m.logger.Info("Expiry scan published events",
			zap.Int("expired", len(classification.Expired)),
			zap.Int("expiring_soon", len(classification.ExpiringSoon)),
			zap.Int("published", len(events)),
		)
	}
	return ExpiryScanResult{Classification: classification, Published: len(events)}, nil
}
