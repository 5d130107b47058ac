package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Transaction outcomes as reported to metrics
const (
	outcomeSuccess  = "success"
	outcomePartial  = "partial"
	outcomeReplayed = "replayed"
	outcomeError    = "error"
)

// SubmitTransaction applies a stock movement in one unit of work.
//
// A reference that was already committed returns the stored transaction with
// Replayed set. A reference still in flight fails with ErrDuplicateReference.
// Lines that could not be covered are reported, not returned as errors.
func (s *InventoryService) SubmitTransaction(ctx context.Context, cmd SubmitTransactionCommand) (*TransactionResponse, error) {
	cmd.Type = strings.ToUpper(strings.TrimSpace(cmd.Type))
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "SubmitTransaction",
		telemetry.TransactionTypeAttr(cmd.Type),
		telemetry.ReferenceAttr(cmd.Reference),
	)
	started := s.clock.Now()
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if err = s.validateCommand(cmd); err != nil {
		return nil, err
	}
	params, err := s.transactionParams(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.L(ctx).With(zap.String("transaction_type", cmd.Type))
	if params.Reference != "" {
		ctx, log = logger.WithReference(ctx, log, params.Reference)
	}

	id := uuid.New()
	if params.Reference != "" {
		replay, claimed, claimErr := s.claimReference(ctx, params.Reference, id)
		if claimErr != nil {
			err = claimErr
			return nil, err
		}
		if replay != nil {
			s.metrics.RecordTransaction(ctx, cmd.Type, outcomeReplayed, 0)
			log.Info("Transaction reference replayed", logger.TransactionID(replay.ID))
			return replay, nil
		}
		if claimed {
			defer func() {
				if err != nil {
					s.forgetReference(ctx, params.Reference)
				}
			}()
		}
	}

	var result *inventory.TransactionResult
	err = s.unitOfWork(ctx, func(e *engines, _ inventory.Repositories) error {
		tx, err := inventory.NewTransaction(params, s.clock.Now())
		if err != nil {
			return err
		}
		tx.ID = id
		result, err = e.processor.Process(ctx, tx)
		return err
	})
	elapsed := s.clock.Now().Sub(started)
	if err != nil {
		s.metrics.RecordTransaction(ctx, cmd.Type, outcomeError, elapsed)
		log.Warn("Transaction rejected", zap.Error(err))
		return nil, err
	}

	outcome := outcomeSuccess
	if !result.Success() {
		outcome = outcomePartial
	}
	s.metrics.RecordTransaction(ctx, cmd.Type, outcome, elapsed)
	s.metrics.RecordLines(ctx, cmd.Type, string(inventory.LineStatusCommitted), len(result.CommittedLines))
	s.metrics.RecordLines(ctx, cmd.Type, string(inventory.LineStatusUnavailable), len(result.UnavailableLines))
	log.Info("Transaction committed",
		logger.TransactionID(id),
		zap.Int("committed_lines", len(result.CommittedLines)),
		zap.Int("unavailable_lines", len(result.UnavailableLines)),
		zap.String("total_cost", result.TotalCost.String()),
	)
	resp := fromResult(result)
	return &resp, nil
}

func (s *InventoryService) transactionParams(cmd SubmitTransactionCommand) (inventory.NewTransactionParams, error) {
	txType, err := inventory.ParseTransactionType(cmd.Type)
	if err != nil {
		return inventory.NewTransactionParams{}, err
	}
	var date time.Time
	if cmd.Date != nil {
		date = *cmd.Date
	}
	lines := make([]inventory.TransactionItem, 0, len(cmd.Lines))
	for i, l := range cmd.Lines {
		line := inventory.TransactionItem{
			LineNo:          i + 1,
			ItemID:          l.ItemID,
			Quantity:        l.Quantity,
			BatchID:         l.BatchID,
			UnitCost:        l.UnitCost,
			BatchNumber:     l.BatchNumber,
			ExpirationDate:  l.ExpirationDate,
			VendorID:        l.VendorID,
			PurchaseOrderID: l.PurchaseOrderID,
			Reason:          l.Reason,
		}
		if l.LocationID != nil {
			line.LocationID = *l.LocationID
		}
		lines = append(lines, line)
	}
	return inventory.NewTransactionParams{
		Type:                  txType,
		Date:                  date,
		SourceLocationID:      cmd.SourceLocationID,
		DestinationLocationID: cmd.DestinationLocationID,
		Reference:             cmd.Reference,
		Reason:                cmd.Reason,
		Notes:                 cmd.Notes,
		Items:                 lines,
	}, nil
}

// claimReference returns the stored transaction if reference was committed
// before, or claims it for id. claimed is false when no store is configured.
func (s *InventoryService) claimReference(ctx context.Context, reference string, id uuid.UUID) (*TransactionResponse, bool, error) {
	stored, err := s.replay(ctx, reference)
	if stored != nil || err != nil {
		return stored, false, err
	}
	if s.idempotency == nil {
		return nil, false, nil
	}
	ok, err := s.idempotency.Claim(ctx, reference, id.String(), s.idempotencyTTL)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return nil, true, nil
	}
	// Someone else holds the claim; it may have committed in the meantime.
	stored, err = s.replay(ctx, reference)
	if stored != nil || err != nil {
		return stored, false, err
	}
	return nil, false, ErrDuplicateReference
}

func (s *InventoryService) replay(ctx context.Context, reference string) (*TransactionResponse, error) {
	stored, err := s.reads.Transactions.FindByReference(ctx, reference)
	if errors.Is(err, inventory.ErrTransactionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(stored)
	resp.Replayed = true
	return &resp, nil
}

func (s *InventoryService) forgetReference(ctx context.Context, reference string) {
	if err := s.idempotency.Forget(context.WithoutCancel(ctx), reference); err != nil {
		logger.L(ctx).Warn("Failed to release transaction reference", logger.Reference(reference), zap.Error(err))
	}
}

// GetTransaction returns a committed transaction by id
func (s *InventoryService) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.reads.Transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// ListTransactions returns transactions dated after since, oldest first
func (s *InventoryService) ListTransactions(ctx context.Context, since time.Time, types ...string) ([]TransactionResponse, error) {
	parsed := make([]inventory.TransactionType, 0, len(types))
	for _, t := range types {
		txType, err := inventory.ParseTransactionType(t)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, txType)
	}
	txs, err := s.reads.Transactions.FindSince(ctx, since, parsed...)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		out = append(out, ToTransactionResponse(&txs[i]))
	}
	return out, nil
}

// Reserve places a named hold on available stock. A shortage is reported in
// the response Outcome with a nil ID, not as an error.
func (s *InventoryService) Reserve(ctx context.Context, cmd ReserveCommand) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "Reserve",
		telemetry.ItemAttr(cmd.ItemID),
		telemetry.LocationAttr(cmd.LocationID),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	if err = s.validateCommand(cmd); err != nil {
		return nil, err
	}
	var (
		reservation *inventory.Reservation
		result      inventory.ReserveResult
	)
	err = s.unitOfWork(ctx, func(e *engines, _ inventory.Repositories) error {
		var err error
		reservation, result, err = e.processor.Reserve(ctx, inventory.ReservationRequest{
			ItemID:     cmd.ItemID,
			LocationID: cmd.LocationID,
			Quantity:   cmd.Quantity,
			Reference:  cmd.Reference,
		})
		return err
	})
	if err != nil {
		s.metrics.RecordReservation(ctx, "reserve", outcomeError)
		return nil, err
	}
	s.metrics.RecordReservation(ctx, "reserve", string(result.Outcome))

	resp := ReservationResponse{
		ItemID:     cmd.ItemID,
		LocationID: cmd.LocationID,
		Quantity:   cmd.Quantity,
		Reference:  cmd.Reference,
	}
	if reservation != nil {
		resp = ToReservationResponse(reservation)
	}
	resp.Outcome = string(result.Outcome)
	resp.Available = result.Available
	resp.Reserved = result.Reserved
	logger.L(ctx).Info("Reservation processed",
		logger.ItemID(cmd.ItemID),
		logger.LocationID(cmd.LocationID),
		zap.String("outcome", resp.Outcome),
	)
	return &resp, nil
}

// ReleaseReservation releases an active reservation by id
func (s *InventoryService) ReleaseReservation(ctx context.Context, id uuid.UUID) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "ReleaseReservation")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		reservation *inventory.Reservation
		result      inventory.ReleaseResult
	)
	err = s.unitOfWork(ctx, func(e *engines, _ inventory.Repositories) error {
		var err error
		reservation, result, err = e.processor.Release(ctx, id)
		return err
	})
	if err != nil {
		s.metrics.RecordReservation(ctx, "release", outcomeError)
		return nil, err
	}
	s.metrics.RecordReservation(ctx, "release", string(result.Outcome))

	resp := ToReservationResponse(reservation)
	resp.Outcome = string(result.Outcome)
	resp.Available = result.Available
	resp.Reserved = result.Reserved
	return &resp, nil
}

// GetReservation returns a reservation by id
func (s *InventoryService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationResponse, error) {
	reservation, err := s.reads.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToReservationResponse(reservation)
	return &resp, nil
}

// ListActiveReservations returns the active reservations on one key
func (s *InventoryService) ListActiveReservations(ctx context.Context, itemID, locationID uuid.UUID) ([]ReservationResponse, error) {
	reservations, err := s.reads.Reservations.FindActive(ctx, inventory.NewStockKey(itemID, locationID))
	if err != nil {
		return nil, err
	}
	out := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, ToReservationResponse(&reservations[i]))
	}
	return out, nil
}
