package inventory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaintenanceConfig holds configuration for the background maintenance loop
type MaintenanceConfig struct {
	Interval time.Duration
	// RunOnStart runs one pass immediately instead of waiting a full interval
	RunOnStart bool
}

// DefaultMaintenanceConfig returns a 15 minute interval
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// MaintenanceStats summarizes one maintenance pass
type MaintenanceStats struct {
	CheckedKeys     int       `json:"checked_keys"`
	Discrepancies   int       `json:"discrepancies"`
	Expired         int       `json:"expired"`
	ExpiringSoon    int       `json:"expiring_soon"`
	EventsPublished int       `json:"events_published"`
	Failed          bool      `json:"failed"`
	RanAt           time.Time `json:"ran_at"`
}

// MaintenanceService periodically reconciles lots against stock levels and
// scans for expiring lots
type MaintenanceService struct {
	service *InventoryService
	config  MaintenanceConfig
	logger  *zap.Logger

	mu     sync.Mutex
	last   *MaintenanceStats
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(service *InventoryService, config MaintenanceConfig, logger *zap.Logger) *MaintenanceService {
	if config.Interval <= 0 {
		config.Interval = DefaultMaintenanceConfig().Interval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// Start starts the background loop
func (m *MaintenanceService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.loop(ctx)

	m.logger.Info("maintenance loop started", zap.Duration("interval", m.config.Interval))
	return nil
}

// Stop gracefully stops the loop
func (m *MaintenanceService) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("maintenance loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastRun returns the stats of the most recent pass, or nil
func (m *MaintenanceService) LastRun() *MaintenanceStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	stats := *m.last
	return &stats
}

func (m *MaintenanceService) loop(ctx context.Context) {
	defer m.wg.Done()

	if m.config.RunOnStart {
		m.RunOnce(ctx)
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

// RunOnce runs one reconciliation and one expiry scan. A failing step is
// logged and does not stop the other.
func (m *MaintenanceService) RunOnce(ctx context.Context) MaintenanceStats {
	stats := MaintenanceStats{RanAt: m.service.clock.Now()}

	report, err := m.service.Reconcile(ctx, nil, nil)
	if err != nil {
		stats.Failed = true
		m.logger.Error("Reconciliation failed", zap.Error(err))
	} else {
		stats.CheckedKeys = report.CheckedKeys
		stats.Discrepancies = len(report.Discrepancies)
		if !report.Consistent() {
			m.logger.Warn("Reconciliation found discrepancies",
				zap.Int("checked", report.CheckedKeys),
				zap.Int("discrepancies", stats.Discrepancies),
			)
		}
	}

	scan, err := m.service.ScanExpiry(ctx)
	if err != nil {
		stats.Failed = true
		m.logger.Error("Expiry scan failed", zap.Error(err))
	} else {
		stats.Expired = len(scan.Classification.Expired)
		stats.ExpiringSoon = len(scan.Classification.ExpiringSoon)
		stats.EventsPublished = scan.Published
	}

	m.logger.Debug("Maintenance pass completed",
		zap.Int("checked_keys", stats.CheckedKeys),
		zap.Int("discrepancies", stats.Discrepancies),
		zap.Int("expired", stats.Expired),
		zap.Int("expiring_soon", stats.ExpiringSoon),
		zap.Int("events_published", stats.EventsPublished),
	)

	m.mu.Lock()
	m.last = &stats
	m.mu.Unlock()
	return stats
}
