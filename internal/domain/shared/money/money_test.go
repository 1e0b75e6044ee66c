package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1500, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", m.Currency)

	_, err = New(1500, "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	tests := []struct {
		amount  int64
		percent int
		want    int64
	}{
		{1000, 50, 500},
		{1001, 50, 501},  // 500.5 rounds up
		{999, 50, 500},   // 499.5 rounds up
		{333, 75, 250},   // 249.75 rounds up
		{100, 0, 0},
		{100, 100, 100},
	}
	for _, tt := range tests {
		got := Must(tt.amount, "EUR").Percent(tt.percent)
		assert.Equal(t, tt.want, got.Amount, "%d at %d%%", tt.amount, tt.percent)
		assert.Equal(t, "EUR", got.Currency)
	}
}

func TestSubAndClamp(t *testing.T) {
	total := Must(200, "EUR")
	fee := Must(250, "EUR")

	diff, err := total.Sub(fee)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), diff.Amount)
	assert.Equal(t, int64(0), diff.ClampNonNegative().Amount)
}

func TestCurrencyMismatch(t *testing.T) {
	_, err := Must(100, "EUR").Add(Must(100, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = Must(100, "EUR").Min(Must(100, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMin(t *testing.T) {
	smaller, err := Must(300, "EUR").Min(Must(750, "EUR"))
	require.NoError(t, err)
	assert.Equal(t, int64(300), smaller.Amount)
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.05 EUR", Must(1205, "EUR").String())
}
