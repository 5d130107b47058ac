package event

import (
	"context"

	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogHandler writes every event to the log. Stock alerts are logged at warn.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a LogHandler
func NewLogHandler(l *zap.Logger) *LogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogHandler{logger: l}
}

// Name returns "log"
func (h *LogHandler) Name() string { return "log" }

// Handle logs the event
func (h *LogHandler) Handle(ctx context.Context, e inventory.Event) error {
	level := zapcore.InfoLevel
	switch e.Kind {
	case inventory.EventKindItemLowStock,
		inventory.EventKindOutOfStock,
		inventory.EventKindInsufficientStockAvailable,
		inventory.EventKindBatchExpired:
		level = zapcore.WarnLevel
	}
	if ce := h.logger.Check(level, "Inventory event"); ce != nil {
		ce.Write(
			zap.String("event_id", e.ID.String()),
			zap.String("event_kind", string(e.Kind)),
			logger.ItemID(e.ItemID),
			logger.LocationID(e.LocationID),
			zap.Any("payload", e.Payload),
			zap.String("request_id", logger.GetRequestID(ctx)),
		)
	}
	return nil
}
