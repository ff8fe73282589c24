package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
)

func queuedTrade(id, symbol string, priority int) *orderv1.TradeOrder {
	return &orderv1.TradeOrder{
		ID:       id,
		Symbol:   symbol,
		Side:     orderv1.SideBuy,
		Type:     orderv1.TypeMarket,
		Quantity: 1,
		Price:    100,
		Priority: priority,
		Status:   orderv1.TradePending,
	}
}

func drainIDs(q *tradeQueue) []string {
	var ids []string
	for {
		trade := q.pop()
		if trade == nil {
			return ids
		}
		ids = append(ids, trade.ID)
	}
}

func TestTradeQueue_Push(t *testing.T) {
	t.Run("higher priority drains first", func(t *testing.T) {
		q := newTradeQueue()
		q.push(queuedTrade("a", "BTCUSDT", 3))
		q.push(queuedTrade("b", "BTCUSDT", 7))
		q.push(queuedTrade("c", "BTCUSDT", 5))

		assert.Equal(t, []string{"b", "c", "a"}, drainIDs(q))
	})

	t.Run("equal priorities keep insertion order", func(t *testing.T) {
		// Priorities [5, 9, 5]: the 9 jumps ahead, the two 5s stay FIFO.
		q := newTradeQueue()
		q.push(queuedTrade("first-5", "BTCUSDT", 5))
		q.push(queuedTrade("the-9", "BTCUSDT", 9))
		q.push(queuedTrade("second-5", "BTCUSDT", 5))

		assert.Equal(t, []string{"the-9", "first-5", "second-5"}, drainIDs(q))
	})

	t.Run("long same band run stays strictly FIFO", func(t *testing.T) {
		q := newTradeQueue()
		want := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			id := string(rune('a' + i))
			q.push(queuedTrade(id, "BTCUSDT", 4))
			want = append(want, id)
		}
		assert.Equal(t, want, drainIDs(q))
	})
}

func TestTradeQueue_PopAtOrAbove(t *testing.T) {
	q := newTradeQueue()
	q.push(queuedTrade("low", "BTCUSDT", 3))
	q.push(queuedTrade("high", "BTCUSDT", 9))

	trade := q.popAtOrAbove(8)
	require.NotNil(t, trade)
	assert.Equal(t, "high", trade.ID)

	assert.Nil(t, q.popAtOrAbove(8))
	assert.Equal(t, 1, q.len())
}

func TestTradeQueue_Remove(t *testing.T) {
	q := newTradeQueue()
	q.push(queuedTrade("a", "BTCUSDT", 5))
	q.push(queuedTrade("b", "ETHUSDT", 5))

	removed := q.remove("a")
	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.ID)
	assert.Nil(t, q.remove("a"))
	assert.Equal(t, 1, q.len())
}

func TestTradeQueue_RemoveBySymbol(t *testing.T) {
	q := newTradeQueue()
	q.push(queuedTrade("a", "BTCUSDT", 5))
	q.push(queuedTrade("b", "ETHUSDT", 6))
	q.push(queuedTrade("c", "BTCUSDT", 7))

	t.Run("by symbol", func(t *testing.T) {
		removed := q.removeBySymbol("BTCUSDT")
		assert.Len(t, removed, 2)
		assert.Equal(t, 1, q.len())
	})

	t.Run("empty symbol removes everything", func(t *testing.T) {
		removed := q.removeBySymbol("")
		assert.Len(t, removed, 1)
		assert.Equal(t, 0, q.len())
	})
}

func TestTradeQueue_NotionalForSymbol(t *testing.T) {
	q := newTradeQueue()
	q.push(queuedTrade("a", "BTCUSDT", 5))
	q.push(queuedTrade("b", "BTCUSDT", 5))
	q.push(queuedTrade("c", "ETHUSDT", 5))

	assert.Equal(t, 200.0, q.notionalForSymbol("BTCUSDT"))
	assert.Equal(t, 100.0, q.notionalForSymbol("ETHUSDT"))
	assert.Equal(t, 0.0, q.notionalForSymbol("XRPUSDT"))
}

func TestTradeQueue_CountAtOrAbove(t *testing.T) {
	q := newTradeQueue()
	q.push(queuedTrade("a", "BTCUSDT", 3))
	q.push(queuedTrade("b", "BTCUSDT", 8))
	q.push(queuedTrade("c", "BTCUSDT", 10))

	assert.Equal(t, 2, q.countAtOrAbove(8))
	assert.Equal(t, 3, q.countAtOrAbove(1))
	assert.Equal(t, 0, q.countAtOrAbove(11))
}
