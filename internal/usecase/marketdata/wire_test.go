package marketdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
)

func TestStreamName(t *testing.T) {
	assert.Equal(t, "btcusdt@trade", streamName(marketv1.StreamTrade, "BTCUSDT"))
	assert.Equal(t, "ethusdt@depth", streamName(marketv1.StreamDepth, "ETHUSDT"))
	assert.Equal(t, "btcusdt@ticker", streamName(marketv1.StreamTicker, "btcusdt"))
}

func TestKindFromStream(t *testing.T) {
	t.Run("known kinds", func(t *testing.T) {
		kind, ok := kindFromStream("btcusdt@trade")
		require.True(t, ok)
		assert.Equal(t, marketv1.StreamTrade, kind)

		kind, ok = kindFromStream("btcusdt@depth")
		require.True(t, ok)
		assert.Equal(t, marketv1.StreamDepth, kind)

		kind, ok = kindFromStream("btcusdt@ticker")
		require.True(t, ok)
		assert.Equal(t, marketv1.StreamTicker, kind)
	})

	t.Run("unknown or malformed", func(t *testing.T) {
		_, ok := kindFromStream("btcusdt@kline_1m")
		assert.False(t, ok)
		_, ok = kindFromStream("btcusdt")
		assert.False(t, ok)
		_, ok = kindFromStream("")
		assert.False(t, ok)
	})
}

func TestParseTrade(t *testing.T) {
	t.Run("decodes a trade frame", func(t *testing.T) {
		data := json.RawMessage(`{"s":"BTCUSDT","p":"50000.50","q":"0.25","m":true,"T":1724500000000}`)

		tick, err := parseTrade(data)
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", tick.Symbol)
		assert.Equal(t, 50000.50, tick.Price)
		assert.Equal(t, 0.25, tick.Quantity)
		assert.True(t, tick.BuyerMaker)
		assert.Equal(t, time.UnixMilli(1724500000000), tick.Timestamp)
	})

	t.Run("rejects a bad price", func(t *testing.T) {
		_, err := parseTrade(json.RawMessage(`{"s":"BTCUSDT","p":"nope","q":"1","T":0}`))
		assert.Error(t, err)
	})

	t.Run("rejects a bad quantity", func(t *testing.T) {
		_, err := parseTrade(json.RawMessage(`{"s":"BTCUSDT","p":"1","q":"","T":0}`))
		assert.Error(t, err)
	})
}

func TestParseDepth(t *testing.T) {
	t.Run("decodes book levels", func(t *testing.T) {
		data := json.RawMessage(`{"s":"BTCUSDT","b":[["50000","1.5"],["49999","2"]],"a":[["50001","0.5"]],"E":1724500000000}`)

		depth, err := parseDepth(data)
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", depth.Symbol)
		require.Len(t, depth.Bids, 2)
		assert.Equal(t, marketv1.BookLevel{Price: 50000, Quantity: 1.5}, depth.Bids[0])
		require.Len(t, depth.Asks, 1)
		assert.Equal(t, marketv1.BookLevel{Price: 50001, Quantity: 0.5}, depth.Asks[0])
	})

	t.Run("skips malformed level pairs", func(t *testing.T) {
		data := json.RawMessage(`{"s":"BTCUSDT","b":[["50000"]],"a":[],"E":0}`)

		depth, err := parseDepth(data)
		require.NoError(t, err)
		assert.Empty(t, depth.Bids)
	})

	t.Run("rejects unparseable levels", func(t *testing.T) {
		data := json.RawMessage(`{"s":"BTCUSDT","b":[["x","1"]],"a":[],"E":0}`)
		_, err := parseDepth(data)
		assert.Error(t, err)
	})
}

func TestParseTicker(t *testing.T) {
	t.Run("decodes a ticker frame", func(t *testing.T) {
		data := json.RawMessage(`{"s":"BTCUSDT","c":"50123.45","v":"12345.6","E":1724500000000}`)

		update, err := parseTicker(data)
		require.NoError(t, err)

		assert.Equal(t, "BTCUSDT", update.Symbol)
		assert.Equal(t, 50123.45, update.LastPrice)
		assert.Equal(t, 12345.6, update.Volume24h)
	})

	t.Run("rejects a bad last price", func(t *testing.T) {
		_, err := parseTicker(json.RawMessage(`{"s":"BTCUSDT","c":"","v":"1","E":0}`))
		assert.Error(t, err)
	})
}
