package orderv1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFill(side Side, qty, price float64) Fill {
	return Fill{
		OrderID:   "ord-1",
		Symbol:    "BTCUSDT",
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}
}

func TestApplyFill(t *testing.T) {
	t.Run("opening fill creates position", func(t *testing.T) {
		pos, realized := ApplyFill(nil, newFill(SideBuy, 1, 50000))

		require.NotNil(t, pos)
		assert.Equal(t, SideBuy, pos.Side)
		assert.Equal(t, 1.0, pos.Quantity)
		assert.Equal(t, 50000.0, pos.AveragePrice)
		assert.Equal(t, 0.0, realized)
	})

	t.Run("same side accumulates at volume weighted average", func(t *testing.T) {
		pos, _ := ApplyFill(nil, newFill(SideBuy, 1, 50000))
		pos, realized := ApplyFill(pos, newFill(SideBuy, 1, 52000))

		require.NotNil(t, pos)
		assert.Equal(t, 2.0, pos.Quantity)
		assert.Equal(t, 51000.0, pos.AveragePrice)
		assert.Equal(t, 0.0, realized)
	})

	t.Run("partial close realizes pnl and keeps average", func(t *testing.T) {
		pos, _ := ApplyFill(nil, newFill(SideBuy, 2, 50000))
		pos, realized := ApplyFill(pos, newFill(SideSell, 1, 51000))

		require.NotNil(t, pos)
		assert.Equal(t, SideBuy, pos.Side)
		assert.Equal(t, 1.0, pos.Quantity)
		assert.Equal(t, 50000.0, pos.AveragePrice)
		assert.Equal(t, 1000.0, realized)
	})

	t.Run("exact close removes position", func(t *testing.T) {
		pos, _ := ApplyFill(nil, newFill(SideBuy, 2, 50000))
		pos, realized := ApplyFill(pos, newFill(SideSell, 2, 49000))

		assert.Nil(t, pos)
		assert.Equal(t, -2000.0, realized)
	})

	t.Run("flip opens remainder at fill price", func(t *testing.T) {
		pos, _ := ApplyFill(nil, newFill(SideBuy, 1, 50000))
		pos, realized := ApplyFill(pos, newFill(SideSell, 3, 51000))

		require.NotNil(t, pos)
		assert.Equal(t, SideSell, pos.Side)
		assert.Equal(t, 2.0, pos.Quantity)
		assert.Equal(t, 51000.0, pos.AveragePrice)
		assert.Equal(t, 1000.0, realized)
	})

	t.Run("short position realizes inverted pnl", func(t *testing.T) {
		pos, _ := ApplyFill(nil, newFill(SideSell, 1, 50000))
		pos, realized := ApplyFill(pos, newFill(SideBuy, 1, 49000))

		assert.Nil(t, pos)
		assert.Equal(t, 1000.0, realized)
	})
}

func TestPosition_UnrealizedPnL(t *testing.T) {
	long := &Position{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 2, AveragePrice: 50000}
	assert.Equal(t, 2000.0, long.UnrealizedPnL(51000))

	short := &Position{Symbol: "BTCUSDT", Side: SideSell, Quantity: 2, AveragePrice: 50000}
	assert.Equal(t, -2000.0, short.UnrealizedPnL(51000))
}
