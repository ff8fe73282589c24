package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

var upgrader = websocket.Upgrader{}

func testChannelConfig(url string) config.MarketDataConfig {
	return config.MarketDataConfig{
		URL:                  url,
		ConnectTimeout:       time.Second,
		PingInterval:         time.Minute,
		PongTimeout:          time.Minute,
		ReconnectInterval:    5 * time.Millisecond,
		MaxReconnectInterval: 20 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}
}

func newTestChannel(t *testing.T, url string) *Channel {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	c := NewChannel(testChannelConfig(url), log)
	t.Cleanup(c.Close)
	return c
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitEvent(t *testing.T, c *Channel, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func TestChannel_DispatchesFrames(t *testing.T) {
	frames := make(chan string, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Consume the subscribe command, then feed frames.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()
	defer close(frames)

	c := newTestChannel(t, wsURL(srv))

	ticks := make(chan marketv1.Tick, 1)
	depths := make(chan marketv1.DepthSnapshot, 1)
	require.NoError(t, c.SubscribeTrades("BTCUSDT", func(tick marketv1.Tick) { ticks <- tick }))
	require.NoError(t, c.SubscribeDepth("BTCUSDT", func(d marketv1.DepthSnapshot) { depths <- d }))
	require.NoError(t, c.Connect(context.Background()))

	frames <- `{"stream":"btcusdt@trade","data":{"s":"BTCUSDT","p":"50000","q":"1","m":false,"T":1724500000000}}`
	frames <- `{"stream":"btcusdt@depth","data":{"s":"BTCUSDT","b":[["49999","2"]],"a":[["50001","1"]],"E":1724500000000}}`
	frames <- `{"stream":"btcusdt@kline_1m","data":{"s":"BTCUSDT"}}`

	select {
	case tick := <-ticks:
		assert.Equal(t, 50000.0, tick.Price)
		assert.Equal(t, 1.0, tick.Quantity)
		assert.False(t, tick.BuyerMaker)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trade tick")
	}

	select {
	case depth := <-depths:
		require.Len(t, depth.Bids, 1)
		assert.Equal(t, 49999.0, depth.Bids[0].Price)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for depth snapshot")
	}
}

func TestChannel_ReconnectsAfterDrop(t *testing.T) {
	var upgrades atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := upgrades.Add(1)
		if n == 1 {
			// Drop the first connection right away to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := newTestChannel(t, wsURL(srv))
	require.NoError(t, c.Connect(context.Background()))

	waitEvent(t, c, EventDisconnected)
	waitEvent(t, c, EventConnected)
	assert.GreaterOrEqual(t, upgrades.Load(), int32(2))
}

func TestChannel_MaxReconnectExceeded(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dials.Add(1) > 1 {
			// Refuse every reconnect.
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := newTestChannel(t, wsURL(srv))
	require.NoError(t, c.Connect(context.Background()))

	waitEvent(t, c, EventDisconnected)
	ev := waitEvent(t, c, EventMaxReconnectExceeded)

	// One initial dial plus exactly three refused attempts.
	assert.Equal(t, 3, ev.Attempts)
	assert.Equal(t, int32(4), dials.Load())
}

func TestChannel_TerminalEventSurvivesFullBuffer(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dials.Add(1) > 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := newTestChannel(t, wsURL(srv))

	// Saturate the event buffer before anything happens. Lifecycle noise may
	// be dropped, but the terminal event must still come through once the
	// consumer catches up.
	for i := 0; i < cap(c.events); i++ {
		c.events <- Event{Kind: EventDisconnected}
	}

	require.NoError(t, c.Connect(context.Background()))
	waitEvent(t, c, EventMaxReconnectExceeded)
}
