package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("valid money", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(12.5), USD)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(12.5)))
		assert.Equal(t, USD, m.Currency())
	})

	t.Run("empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "")
		assert.Error(t, err)
	})
}

func TestMoneyAdd(t *testing.T) {
	a := MustNewMoney(decimal.NewFromInt(10), USD)
	b := MustNewMoney(decimal.NewFromFloat(2.25), USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "12.25", sum.Amount().String())

	_, err = a.Add(MustNewMoney(decimal.NewFromInt(1), EUR))
	assert.Error(t, err)

	assert.Panics(t, func() {
		a.MustAdd(MustNewMoney(decimal.NewFromInt(1), EUR))
	})
}

func TestMoneyMultiplyAndRound(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("3.333"), USD)
	assert.Equal(t, "10", m.Multiply(decimal.NewFromInt(3)).Round(0).Amount().String())
	assert.Equal(t, "3.33", m.Round(2).Amount().String())
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "3.00 USD", MustNewMoney(decimal.NewFromInt(3), USD).String())
	assert.True(t, Zero(USD).IsZero())
	assert.False(t, Zero(USD).IsPositive())
}

func TestMoneyJSON(t *testing.T) {
	original := MustNewMoney(decimal.RequireFromString("99.95"), GBP)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.95","currency":"GBP"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equals(decoded))

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"x","currency":"GBP"}`), &decoded))
}
