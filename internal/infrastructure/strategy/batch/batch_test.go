package batch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/shared"
	"github.com/larder/backend/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func lot(number string, received, expires int, remaining int64) strategy.Batch {
	return strategy.Batch{
		ID:             uuid.New(),
		BatchNumber:    number,
		Remaining:      decimal.NewFromInt(remaining),
		UnitCost:       decimal.NewFromInt(2),
		ReceivedDate:   day0.AddDate(0, 0, received),
		ExpirationDate: day0.AddDate(0, 0, expires),
	}
}

func numbers(result strategy.BatchSelectionResult) []string {
	out := make([]string, 0, len(result.Selections))
	for _, s := range result.Selections {
		out = append(out, s.BatchNumber)
	}
	return out
}

func TestFIFOBatchStrategy_SelectBatches(t *testing.T) {
	s := NewFIFOBatchStrategy()
	ctx := context.Background()

	// B2 expires before B1, FIFO must not care
	b1 := lot("B1", 1, 20, 5)
	b2 := lot("B2", 3, 10, 5)

	t.Run("oldest receipt first with greedy walk", func(t *testing.T) {
		result, err := s.SelectBatches(ctx, strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(7)}, []strategy.Batch{b2, b1})
		require.NoError(t, err)

		require.Len(t, result.Selections, 2)
		assert.Equal(t, b1.ID, result.Selections[0].BatchID)
		assert.True(t, result.Selections[0].Quantity.Equal(decimal.NewFromInt(5)))
		assert.Equal(t, b2.ID, result.Selections[1].BatchID)
		assert.True(t, result.Selections[1].Quantity.Equal(decimal.NewFromInt(2)))
		assert.True(t, result.TotalQty.Equal(decimal.NewFromInt(7)))
		assert.True(t, result.ShortfallQty.IsZero())
	})

	t.Run("shortfall when lots run out", func(t *testing.T) {
		result, err := s.SelectBatches(ctx, strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(12)}, []strategy.Batch{b1, b2})
		require.NoError(t, err)
		assert.True(t, result.TotalQty.Equal(decimal.NewFromInt(10)))
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(2)))
	})

	t.Run("empty lots are skipped", func(t *testing.T) {
		empty := lot("B0", 0, 5, 0)
		result, err := s.SelectBatches(ctx, strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(1)}, []strategy.Batch{empty, b1})
		require.NoError(t, err)
		assert.Equal(t, []string{"B1"}, numbers(result))
	})

	assert.False(t, s.ConsidersExpiry())
	assert.Equal(t, "fifo", s.Name())
}

func TestLIFOBatchStrategy_SelectBatches(t *testing.T) {
	s := NewLIFOBatchStrategy()
	b1 := lot("B1", 1, 20, 5)
	b2 := lot("B2", 3, 10, 5)

	result, err := s.SelectBatches(context.Background(), strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(7)}, []strategy.Batch{b1, b2})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "B1"}, numbers(result))
	assert.True(t, result.Selections[1].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestFEFOBatchStrategy_SelectBatches(t *testing.T) {
	s := NewFEFOBatchStrategy()
	b1 := lot("B1", 1, 20, 5)
	b2 := lot("B2", 3, 10, 5)

	t.Run("soonest expiry first", func(t *testing.T) {
		result, err := s.SelectBatches(context.Background(), strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(7)}, []strategy.Batch{b1, b2})
		require.NoError(t, err)
		assert.Equal(t, []string{"B2", "B1"}, numbers(result))
		assert.True(t, result.Selections[0].Quantity.Equal(decimal.NewFromInt(5)))
	})

	t.Run("equal expiry falls back to receipt order", func(t *testing.T) {
		late := lot("L", 5, 10, 5)
		early := lot("E", 2, 10, 5)
		ordered := s.Order([]strategy.Batch{late, early})
		require.Len(t, ordered, 2)
		assert.Equal(t, "E", ordered[0].BatchNumber)
	})

	t.Run("order does not modify input", func(t *testing.T) {
		input := []strategy.Batch{b1, b2}
		_ = s.Order(input)
		assert.Equal(t, "B1", input[0].BatchNumber)
	})

	assert.True(t, s.ConsidersExpiry())
}

func TestExplicitBatchIDs(t *testing.T) {
	b1 := lot("B1", 1, 20, 5)
	b2 := lot("B2", 3, 10, 5)
	b3 := lot("B3", 4, 30, 0)

	tests := []struct {
		name     string
		s        strategy.BatchSelectionStrategy
		ids      []uuid.UUID
		qty      int64
		expected []string
		short    int64
	}{
		{"specified keeps given order", NewSpecifiedBatchStrategy(), []uuid.UUID{b2.ID, b1.ID}, 7, []string{"B2", "B1"}, 0},
		{"fifo honours explicit ids over its order", NewFIFOBatchStrategy(), []uuid.UUID{b2.ID}, 3, []string{"B2"}, 0},
		{"unknown and empty ids are dropped", NewSpecifiedBatchStrategy(), []uuid.UUID{uuid.New(), b3.ID, b1.ID}, 8, []string{"B1"}, 3},
		{"duplicate ids count once", NewSpecifiedBatchStrategy(), []uuid.UUID{b1.ID, b1.ID}, 8, []string{"B1"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.s.SelectBatches(context.Background(), strategy.BatchSelectionContext{
				Quantity:         decimal.NewFromInt(tt.qty),
				ExplicitBatchIDs: tt.ids,
			}, []strategy.Batch{b1, b2, b3})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, numbers(result))
			assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(tt.short)))
		})
	}

	t.Run("specified without ids is invalid", func(t *testing.T) {
		_, err := NewSpecifiedBatchStrategy().SelectBatches(context.Background(), strategy.BatchSelectionContext{Quantity: decimal.NewFromInt(1)}, []strategy.Batch{b1})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestSelectFromBatches_Conservation(t *testing.T) {
	batches := []strategy.Batch{lot("A", 1, 9, 3), lot("B", 2, 9, 4), lot("C", 3, 9, 6)}
	for _, requested := range []int64{1, 3, 7, 13, 20} {
		result, err := selectFromBatches(batches, decimal.NewFromInt(requested))
		require.NoError(t, err)

		sum := decimal.Zero
		for _, s := range result.Selections {
			sum = sum.Add(s.Quantity)
		}
		expected := decimal.Min(decimal.NewFromInt(requested), decimal.NewFromInt(13))
		assert.True(t, sum.Equal(expected), "requested %d", requested)
		assert.True(t, result.ShortfallQty.Equal(decimal.NewFromInt(requested).Sub(sum)), "requested %d", requested)
	}
}
