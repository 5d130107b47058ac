package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionProcessor_ReserveConsumeRelease(t *testing.T) {
	f := newFixture(t)
	rice := f.item(t, itemShape{sku: "RICE", threshold: 2})
	f.receive(t, rice, f.kitchen, lotSpec{qty: 10, cost: "2.00"})
	assertDecimal(t, "10", f.level(t, rice.ID, f.kitchen).CurrentQuantity)
	f.events.Reset()

	reservation, reserved, err := f.processor.Reserve(f.ctx, inventory.ReservationRequest{
		ItemID:     rice.ID,
		LocationID: f.kitchen,
		Quantity:   decimal.NewFromInt(4),
		Reference:  "ORDER-1",
	})
	require.NoError(t, err)
	require.NotNil(t, reservation)
	assert.True(t, reserved.OK())
	assertDecimal(t, "6", reserved.Available)
	assert.Len(t, eventsOf(f.events.Events(), inventory.EventKindStockReserved), 1)
	f.events.Reset()

	result := f.consume(t, rice, f.kitchen, 6, 0)
	assert.True(t, result.Success())
	assertDecimal(t, "12", result.TotalCost)
	level := f.level(t, rice.ID, f.kitchen)
	assertDecimal(t, "4", level.CurrentQuantity)
	assertDecimal(t, "4", level.ReservedQuantity)
	outOfStock := eventsOf(f.events.Events(), inventory.EventKindOutOfStock)
	require.Len(t, outOfStock, 1)
	assert.Equal(t, rice.ID, outOfStock[0].ItemID)
	f.events.Reset()

	result = f.consume(t, rice, f.kitchen, 1, 0)
	assert.False(t, result.Success())
	require.Len(t, result.UnavailableLines, 1)
	assert.Empty(t, result.CommittedLines)
	assert.True(t, result.UnavailableLines[0].AvailableQuantity.IsZero())
	insufficient := eventsOf(f.events.Events(), inventory.EventKindInsufficientStockAvailable)
	require.Len(t, insufficient, 1)
	payload := insufficient[0].Payload.(inventory.InsufficientStockPayload)
	assert.Equal(t, "consume", payload.Operation)
	assert.Equal(t, result.Transaction.ID, *payload.TransactionID)
	completed := eventsOf(f.events.Events(), inventory.EventKindTransactionCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 1, completed[0].Payload.(inventory.TransactionCompletedPayload).UnavailableLines)
	assertDecimal(t, "4", f.level(t, rice.ID, f.kitchen).CurrentQuantity)
	f.events.Reset()

	released, release, err := f.processor.Release(f.ctx, reservation.ID)
	require.NoError(t, err)
	assert.True(t, release.OK())
	assert.False(t, released.IsActive())
	assertDecimal(t, "4", release.Available)
	assert.Len(t, eventsOf(f.events.Events(), inventory.EventKindStockReleased), 1)

	_, _, err = f.processor.Release(f.ctx, reservation.ID)
	assert.ErrorIs(t, err, inventory.ErrReservationNotActive)
}

func TestTransactionProcessor_ReceiveReserveConsumeReleaseTrackedLot(t *testing.T) {
	f := newFixture(t)
	beef := f.item(t, itemShape{sku: "BEEF", tracked: true, method: inventory.CostingMethodFEFO})
	f.receive(t, beef, f.kitchen, lotSpec{number: "B1", qty: 100, cost: "2.00", expiresIn: 10})
	assertDecimal(t, "100", f.level(t, beef.ID, f.kitchen).Available())

	reservation, reserved, err := f.processor.Reserve(f.ctx, inventory.ReservationRequest{
		ItemID:     beef.ID,
		LocationID: f.kitchen,
		Quantity:   decimal.NewFromInt(30),
		Reference:  "BANQUET-7",
	})
	require.NoError(t, err)
	require.True(t, reserved.OK())
	level := f.level(t, beef.ID, f.kitchen)
	assertDecimal(t, "70", level.Available())
	assertDecimal(t, "30", level.ReservedQuantity)

	result := f.consume(t, beef, f.kitchen, 50, 0)
	require.True(t, result.Success())
	line := result.CommittedLines[0]
	require.Len(t, line.Movements, 1)
	assert.Equal(t, "B1", line.Movements[0].BatchNumber)
	assertDecimal(t, "50", line.Movements[0].Quantity)
	assertDecimal(t, "100", result.TotalCost)

	lots := f.lots(t, beef.ID)
	require.Len(t, lots, 1)
	assertDecimal(t, "50", lots[0].RemainingQuantity)
	level = f.level(t, beef.ID, f.kitchen)
	assertDecimal(t, "50", level.CurrentQuantity)
	assertDecimal(t, "30", level.ReservedQuantity)
	assertDecimal(t, "20", level.Available())

	_, released, err := f.processor.Release(f.ctx, reservation.ID)
	require.NoError(t, err)
	require.True(t, released.OK())
	level = f.level(t, beef.ID, f.kitchen)
	assertDecimal(t, "50", level.Available())
	assertDecimal(t, "0", level.ReservedQuantity)
}

func TestTransactionProcessor_ReserveShortage(t *testing.T) {
	f := newFixture(t)
	rice := f.item(t, itemShape{sku: "RICE"})
	f.receive(t, rice, f.kitchen, lotSpec{qty: 3, cost: "1.00"})
	f.events.Reset()

	reservation, result, err := f.processor.Reserve(f.ctx, inventory.ReservationRequest{
		ItemID:     rice.ID,
		LocationID: f.kitchen,
		Quantity:   decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Nil(t, reservation)
	assert.Equal(t, inventory.ReserveInsufficient, result.Outcome)
	insufficient := eventsOf(f.events.Events(), inventory.EventKindInsufficientStockAvailable)
	require.Len(t, insufficient, 1)
	assert.Equal(t, "reserve", insufficient[0].Payload.(inventory.InsufficientStockPayload).Operation)

	_, _, err = f.processor.Reserve(f.ctx, inventory.ReservationRequest{
		ItemID:     rice.ID,
		LocationID: uuid.New(),
		Quantity:   decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, inventory.ErrLocationNotFound)
}

func TestTransactionProcessor_ConsumeDrawsLots(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	f.events.Reset()

	result := f.consume(t, flour, f.kitchen, 7, 0)
	assertDecimal(t, "18", result.TotalCost)
	require.Len(t, result.CommittedLines, 1)
	line := result.CommittedLines[0]
	assertDecimal(t, "10", *line.PreviousQuantity)
	require.Len(t, line.Movements, 2)
	assert.Equal(t, inventory.MovementConsumed, line.Movements[0].Kind)
	assert.Equal(t, "B1", line.Movements[0].BatchNumber)

	lots := f.lots(t, flour.ID)
	assertDecimal(t, "0", lots[0].RemainingQuantity)
	assertDecimal(t, "3", lots[1].RemainingQuantity)
	assert.Len(t, eventsOf(f.events.Events(), inventory.EventKindBatchConsumed), 2)

	t.Run("explicit lot", func(t *testing.T) {
		b2 := lots[1].ID
		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeConsume,
			SourceLocationID: &f.kitchen,
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(2), BatchID: &b2}},
		})
		assertDecimal(t, "8", result.TotalCost)
		assertDecimal(t, "1", f.lots(t, flour.ID)[1].RemainingQuantity)
	})

	t.Run("lot at another location", func(t *testing.T) {
		b2 := lots[1].ID
		tx, err := inventory.NewTransaction(inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeConsume,
			SourceLocationID: &f.pantry,
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), BatchID: &b2}},
		}, f.clock.Now())
		require.NoError(t, err)
		_, err = f.processor.Process(f.ctx, tx)
		assert.ErrorIs(t, err, inventory.ErrInvalidBatch)
	})
}

func TestTransactionProcessor_NamedLotCannotCoverLine(t *testing.T) {
	for _, txType := range []inventory.TransactionType{inventory.TransactionTypeConsume, inventory.TransactionTypeTransfer} {
		t.Run(string(txType), func(t *testing.T) {
			f := newFixture(t)
			flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
			b1, err := f.store.Batches.FindByNumber(f.ctx, flour.ID, "B1")
			require.NoError(t, err)
			f.events.Reset()

			params := inventory.NewTransactionParams{
				Type:             txType,
				SourceLocationID: &f.kitchen,
				Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(8), BatchID: &b1.ID}},
			}
			if txType == inventory.TransactionTypeTransfer {
				params.DestinationLocationID = &f.pantry
			}
			result := f.process(t, params)

			assert.False(t, result.Success())
			assert.Empty(t, result.CommittedLines)
			require.Len(t, result.UnavailableLines, 1)
			assertDecimal(t, "5", result.UnavailableLines[0].AvailableQuantity)
			assert.True(t, result.TotalCost.IsZero())
			assert.Len(t, eventsOf(f.events.Events(), inventory.EventKindInsufficientStockAvailable), 1)

			assertDecimal(t, "10", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
			total := decimal.Zero
			for _, lot := range f.lots(t, flour.ID) {
				assert.Equal(t, f.kitchen, lot.LocationID)
				total = total.Add(lot.RemainingQuantity)
			}
			assertDecimal(t, "10", total)
		})
	}
}

func TestTransactionProcessor_PartialTransaction(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	oil := f.item(t, itemShape{sku: "OIL"})

	result := f.process(t, inventory.NewTransactionParams{
		Type:             inventory.TransactionTypeConsume,
		SourceLocationID: &f.kitchen,
		Items: []inventory.TransactionItem{
			{ItemID: flour.ID, Quantity: decimal.NewFromInt(3)},
			{ItemID: oil.ID, Quantity: decimal.NewFromInt(1)},
			{ItemID: flour.ID, Quantity: decimal.NewFromInt(50)},
		},
	})
	assert.False(t, result.Success())
	require.Len(t, result.CommittedLines, 1)
	require.Len(t, result.UnavailableLines, 2)
	assert.Equal(t, 2, result.UnavailableLines[0].LineNo)
	assertDecimal(t, "7", result.UnavailableLines[1].AvailableQuantity)
	assertDecimal(t, "7", f.level(t, flour.ID, f.kitchen).CurrentQuantity)

	stored, err := f.store.Transactions.FindByID(f.ctx, result.Transaction.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCommitted())
	assert.Equal(t, inventory.LineStatusUnavailable, stored.Items[2].Status)
}

func TestTransactionProcessor_LowStockEvent(t *testing.T) {
	f := newFixture(t)
	rice := f.item(t, itemShape{sku: "RICE", threshold: 5})
	f.receive(t, rice, f.kitchen, lotSpec{qty: 10, cost: "1.00"})
	assert.Empty(t, eventsOf(f.events.Events(), inventory.EventKindItemLowStock))

	f.consume(t, rice, f.kitchen, 6, 0)
	low := eventsOf(f.events.Events(), inventory.EventKindItemLowStock)
	require.Len(t, low, 1)
	payload := low[0].Payload.(inventory.ItemLowStockPayload)
	assertDecimal(t, "4", payload.Available)
	assertDecimal(t, "5", payload.ReorderThreshold)
}

func TestTransactionProcessor_Adjustment(t *testing.T) {
	t.Run("higher count", func(t *testing.T) {
		f := newFixture(t)
		rice := f.item(t, itemShape{sku: "RICE"})
		f.receive(t, rice, f.kitchen, lotSpec{qty: 8, cost: "2.00"})

		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeAdjustment,
			SourceLocationID: &f.kitchen,
			Reason:           "stock count",
			Items:            []inventory.TransactionItem{{ItemID: rice.ID, Quantity: decimal.NewFromInt(12)}},
		})
		assertDecimal(t, "4", result.Variances[1])
		assertDecimal(t, "8", result.TotalCost)
		assertDecimal(t, "12", f.level(t, rice.ID, f.kitchen).CurrentQuantity)
	})

	t.Run("lower count draws lots down", func(t *testing.T) {
		f := newFixture(t)
		flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)

		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeAdjustment,
			SourceLocationID: &f.kitchen,
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(7)}},
		})
		assertDecimal(t, "-3", result.Variances[1])
		line := result.CommittedLines[0]
		require.Len(t, line.Movements, 1)
		assert.Equal(t, inventory.MovementAdjusted, line.Movements[0].Kind)

		lots := f.lots(t, flour.ID)
		assertDecimal(t, "2", lots[0].RemainingQuantity)
		assertDecimal(t, "5", lots[1].RemainingQuantity)
	})

	t.Run("count at a new location", func(t *testing.T) {
		f := newFixture(t)
		rice := f.item(t, itemShape{sku: "RICE"})

		result := f.process(t, inventory.NewTransactionParams{
			Type:                  inventory.TransactionTypeAdjustment,
			DestinationLocationID: &f.pantry,
			Items:                 []inventory.TransactionItem{{ItemID: rice.ID, Quantity: decimal.NewFromInt(3), UnitCost: decPtr("1.50")}},
		})
		assertDecimal(t, "3", result.Variances[1])
		assertDecimal(t, "4.5", result.TotalCost)
		assertDecimal(t, "3", f.level(t, rice.ID, f.pantry).CurrentQuantity)
	})
}

func TestTransactionProcessor_Transfer(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	transfer := func(qty int64) *inventory.TransactionResult {
		return f.process(t, inventory.NewTransactionParams{
			Type:                  inventory.TransactionTypeTransfer,
			SourceLocationID:      &f.kitchen,
			DestinationLocationID: &f.pantry,
			Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(qty)}},
		})
	}

	t.Run("whole lot moves in place", func(t *testing.T) {
		result := transfer(5)
		assertDecimal(t, "10", result.TotalCost)
		line := result.CommittedLines[0]
		require.Len(t, line.Movements, 1)
		assert.Equal(t, inventory.MovementMoved, line.Movements[0].Kind)
		assert.Equal(t, f.pantry, line.Movements[0].ToLocationID)

		b1, err := f.store.Batches.FindByNumber(f.ctx, flour.ID, "B1")
		require.NoError(t, err)
		assert.Equal(t, f.pantry, b1.LocationID)
		assertDecimal(t, "5", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
		assertDecimal(t, "5", f.level(t, flour.ID, f.pantry).CurrentQuantity)
	})

	t.Run("partial lot splits", func(t *testing.T) {
		result := transfer(3)
		line := result.CommittedLines[0]
		require.Len(t, line.Movements, 1)
		movement := line.Movements[0]
		assert.Equal(t, inventory.MovementSplit, movement.Kind)
		require.NotNil(t, movement.ChildBatchID)

		b2, err := f.store.Batches.FindByNumber(f.ctx, flour.ID, "B2")
		require.NoError(t, err)
		assertDecimal(t, "2", b2.RemainingQuantity)
		assert.Equal(t, f.kitchen, b2.LocationID)

		child, err := f.store.Batches.FindByID(f.ctx, *movement.ChildBatchID)
		require.NoError(t, err)
		assert.Equal(t, f.pantry, child.LocationID)
		assert.Equal(t, b2.ExpirationDate, child.ExpirationDate)
		require.NotNil(t, child.ParentBatchID)
		assert.Equal(t, b2.ID, *child.ParentBatchID)
		assertDecimal(t, "3", child.RemainingQuantity)

		assertDecimal(t, "2", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
		assertDecimal(t, "8", f.level(t, flour.ID, f.pantry).CurrentQuantity)
	})

	t.Run("more than available", func(t *testing.T) {
		result := transfer(3)
		assert.False(t, result.Success())
		assertDecimal(t, "8", f.level(t, flour.ID, f.pantry).CurrentQuantity)
	})
}

func TestTransactionProcessor_Waste(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	b2 := f.lots(t, flour.ID)[1].ID

	t.Run("tracked item needs a lot", func(t *testing.T) {
		tx, err := inventory.NewTransaction(inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeWaste,
			SourceLocationID: &f.kitchen,
			Reason:           "spoiled",
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1)}},
		}, f.clock.Now())
		require.NoError(t, err)
		_, err = f.processor.Process(f.ctx, tx)
		assert.ErrorIs(t, err, inventory.ErrBatchRequired)
	})

	t.Run("write off part of a lot", func(t *testing.T) {
		f.events.Reset()
		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeWaste,
			SourceLocationID: &f.kitchen,
			Reason:           "spoiled",
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(2), BatchID: &b2}},
		})
		assertDecimal(t, "8", result.WasteCost)
		assert.Equal(t, "spoiled", result.CommittedLines[0].Reason)
		consumed := eventsOf(f.events.Events(), inventory.EventKindBatchConsumed)
		require.Len(t, consumed, 1)
		assert.True(t, consumed[0].Payload.(inventory.BatchConsumedPayload).Wasted)
		assertDecimal(t, "3", f.lots(t, flour.ID)[1].RemainingQuantity)
		assertDecimal(t, "8", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
	})

	t.Run("more than the lot holds", func(t *testing.T) {
		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeWaste,
			SourceLocationID: &f.kitchen,
			Reason:           "spoiled",
			Items:            []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(4), BatchID: &b2}},
		})
		require.Len(t, result.UnavailableLines, 1)
		assertDecimal(t, "3", result.UnavailableLines[0].AvailableQuantity)
		assertDecimal(t, "8", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
	})
}

func TestNewTransaction_Validation(t *testing.T) {
	kitchen, pantry := uuid.New(), uuid.New()
	itemID := uuid.New()
	line := inventory.TransactionItem{ItemID: itemID, Quantity: decimal.NewFromInt(1)}
	costed := line
	costed.UnitCost = decPtr("1.00")

	tests := []struct {
		name   string
		params inventory.NewTransactionParams
		err    error
	}{
		{"unknown type", inventory.NewTransactionParams{Type: "GIFT", SourceLocationID: &kitchen, Items: []inventory.TransactionItem{line}}, inventory.ErrUnknownTransactionType},
		{"no lines", inventory.NewTransactionParams{Type: inventory.TransactionTypeConsume, SourceLocationID: &kitchen}, inventory.ErrEmptyTransaction},
		{"receive without destination", inventory.NewTransactionParams{Type: inventory.TransactionTypeReceive, Items: []inventory.TransactionItem{costed}}, inventory.ErrMissingDestinationLocation},
		{"consume without source", inventory.NewTransactionParams{Type: inventory.TransactionTypeConsume, Items: []inventory.TransactionItem{line}}, inventory.ErrMissingSourceLocation},
		{"receive without cost", inventory.NewTransactionParams{Type: inventory.TransactionTypeReceive, DestinationLocationID: &kitchen, Items: []inventory.TransactionItem{line}}, inventory.ErrInvalidUnitCost},
		{"consume with cost", inventory.NewTransactionParams{Type: inventory.TransactionTypeConsume, SourceLocationID: &kitchen, Items: []inventory.TransactionItem{costed}}, inventory.ErrInvalidUnitCost},
		{"transfer to itself", inventory.NewTransactionParams{Type: inventory.TransactionTypeTransfer, SourceLocationID: &kitchen, DestinationLocationID: &kitchen, Items: []inventory.TransactionItem{line}}, inventory.ErrInvalidTransferRoute},
		{"zero quantity", inventory.NewTransactionParams{Type: inventory.TransactionTypeConsume, SourceLocationID: &kitchen, Items: []inventory.TransactionItem{{ItemID: itemID}}}, inventory.ErrInvalidTransactionQuantity},
		{"negative count", inventory.NewTransactionParams{Type: inventory.TransactionTypeAdjustment, SourceLocationID: &kitchen, Items: []inventory.TransactionItem{{ItemID: itemID, Quantity: decimal.NewFromInt(-1)}}}, inventory.ErrInvalidTransactionQuantity},
		{"waste without reason", inventory.NewTransactionParams{Type: inventory.TransactionTypeWaste, SourceLocationID: &kitchen, Items: []inventory.TransactionItem{line}}, inventory.ErrReasonRequired},
		{"line without item", inventory.NewTransactionParams{Type: inventory.TransactionTypeConsume, SourceLocationID: &kitchen, Items: []inventory.TransactionItem{{Quantity: decimal.NewFromInt(1)}}}, inventory.ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inventory.NewTransaction(tt.params, start)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("lines take the implied location", func(t *testing.T) {
		tx, err := inventory.NewTransaction(inventory.NewTransactionParams{
			Type:                  inventory.TransactionTypeTransfer,
			SourceLocationID:      &kitchen,
			DestinationLocationID: &pantry,
			Items:                 []inventory.TransactionItem{line, line},
		}, start)
		require.NoError(t, err)
		assert.Equal(t, start, tx.Date)
		assert.Equal(t, 2, tx.Items[1].LineNo)
		assert.Equal(t, kitchen, tx.Items[1].LocationID)
		assert.Equal(t, inventory.LineStatusPending, tx.Items[0].Status)
		assert.ElementsMatch(t, []uuid.UUID{kitchen, pantry}, tx.LocationIDs())
	})
}

func TestTransactionProcessor_RejectsStructuralProblems(t *testing.T) {
	f := newFixture(t)
	flour := stockTwoLots(t, f, inventory.CostingMethodFIFO)
	retired := f.item(t, itemShape{sku: "RETIRED"})
	retired.Deactivate(f.clock.Now())
	require.NoError(t, f.store.Items.Save(f.ctx, retired))

	nowhere := uuid.New()
	expires := f.clock.Now().AddDate(0, 0, 5)
	past := f.clock.Now().AddDate(0, 0, -1)

	tests := []struct {
		name   string
		params inventory.NewTransactionParams
		err    error
	}{
		{
			name: "unknown location",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &nowhere,
				Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1"), ExpirationDate: &expires}},
			},
			err: inventory.ErrLocationNotFound,
		},
		{
			name: "unknown item",
			params: inventory.NewTransactionParams{
				Type:             inventory.TransactionTypeConsume,
				SourceLocationID: &f.kitchen,
				Items:            []inventory.TransactionItem{{ItemID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
			},
			err: inventory.ErrItemNotFound,
		},
		{
			name: "inactive item",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &f.kitchen,
				Items:                 []inventory.TransactionItem{{ItemID: retired.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1")}},
			},
			err: inventory.ErrItemInactive,
		},
		{
			name: "tracked receipt without expiration",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &f.kitchen,
				Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1")}},
			},
			err: inventory.ErrMissingExpirationDate,
		},
		{
			name: "expiration before receipt",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &f.kitchen,
				Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1"), ExpirationDate: &past}},
			},
			err: inventory.ErrInvalidExpirationDate,
		},
		{
			name: "existing batch number",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &f.kitchen,
				Items:                 []inventory.TransactionItem{{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1"), ExpirationDate: &expires, BatchNumber: "B1"}},
			},
			err: inventory.ErrDuplicateBatchNumber,
		},
		{
			name: "batch number repeated in one receipt",
			params: inventory.NewTransactionParams{
				Type:                  inventory.TransactionTypeReceive,
				DestinationLocationID: &f.kitchen,
				Items: []inventory.TransactionItem{
					{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1"), ExpirationDate: &expires, BatchNumber: "B9"},
					{ItemID: flour.ID, Quantity: decimal.NewFromInt(1), UnitCost: decPtr("1"), ExpirationDate: &expires, BatchNumber: "B9"},
				},
			},
			err: inventory.ErrDuplicateBatchNumber,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := inventory.NewTransaction(tt.params, f.clock.Now())
			require.NoError(t, err)
			_, err = f.processor.Process(f.ctx, tx)
			assert.ErrorIs(t, err, tt.err)
			assertDecimal(t, "10", f.level(t, flour.ID, f.kitchen).CurrentQuantity)
			assert.Len(t, f.lots(t, flour.ID), 2)
		})
	}

	t.Run("inactive item can be counted", func(t *testing.T) {
		result := f.process(t, inventory.NewTransactionParams{
			Type:             inventory.TransactionTypeAdjustment,
			SourceLocationID: &f.kitchen,
			Items:            []inventory.TransactionItem{{ItemID: retired.ID, Quantity: decimal.NewFromInt(2)}},
		})
		assert.True(t, result.Success())
	})

	t.Run("processing twice", func(t *testing.T) {
		result := f.consume(t, flour, f.kitchen, 1, 0)
		_, err := f.processor.Process(f.ctx, result.Transaction)
		assert.ErrorIs(t, err, inventory.ErrTransactionCommitted)
	})

	t.Run("generated batch number", func(t *testing.T) {
		result := f.receive(t, flour, f.pantry, lotSpec{qty: 2, cost: "3.00", expiresIn: 4})
		line := result.CommittedLines[0]
		require.NotNil(t, line.BatchID)
		assert.Contains(t, line.BatchNumber, "LOT-20260310-")
	})
}
