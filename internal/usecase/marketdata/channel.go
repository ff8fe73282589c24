package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// EventKind identifies a lifecycle event on the channel.
type EventKind string

const (
	// EventConnected is emitted after a successful (re)connect.
	EventConnected EventKind = "connected"
	// EventDisconnected is emitted when the transport drops and a reconnect
	// will be attempted.
	EventDisconnected EventKind = "disconnected"
	// EventMaxReconnectExceeded is terminal: reconnect attempts are exhausted
	// and the channel has stopped. An operator must act on it.
	EventMaxReconnectExceeded EventKind = "max_reconnect_exceeded"
)

// Event represents a lifecycle event surfaced to the operator loop.
type Event struct {
	Kind      EventKind
	Err       error
	Attempts  int
	Timestamp time.Time
}

// TradeHandler consumes decoded trade ticks.
type TradeHandler func(marketv1.Tick)

// DepthHandler consumes decoded depth snapshots.
type DepthHandler func(marketv1.DepthSnapshot)

// TickerHandler consumes decoded ticker updates.
type TickerHandler func(marketv1.TickerUpdate)

// Channel maintains a live subscription to the exchange trade/depth/ticker
// streams. It owns the reconnect/backoff discipline and a ping/pong
// keep-alive. Inbound messages are dispatched synchronously to registered
// handlers in arrival order; the channel does not buffer beyond the
// transport's own queue.
type Channel struct {
	cfg    config.MarketDataConfig
	logger logger.Interface
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subs      map[string]struct{} // stream name -> subscribed
	trade     map[string][]TradeHandler
	depth     map[string][]DepthHandler
	ticker    map[string][]TickerHandler
	nextCmdID int64

	events chan Event
	done   chan struct{}
	closed sync.Once
}

// NewChannel creates a market data channel. Connect must be called before
// any data flows.
func NewChannel(cfg config.MarketDataConfig, log logger.Interface) *Channel {
	return &Channel{
		cfg:    cfg,
		logger: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		subs:   make(map[string]struct{}),
		trade:  make(map[string][]TradeHandler),
		depth:  make(map[string][]DepthHandler),
		ticker: make(map[string][]TickerHandler),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

// Events returns the lifecycle event stream. The terminal
// MaxReconnectExceeded event always arrives here before the channel stops.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Connect dials the stream. On success the reconnect attempt counter is
// reset, the keep-alive heartbeat starts, and a supervisor goroutine owns the
// read loop plus any subsequent reconnects until ctx is done.
func (c *Channel) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return errors.NewTracer(string(errors.WebsocketConnectionError)).Wrap(err)
	}

	go c.supervise(ctx)
	return nil
}

// Close tears the channel down.
func (c *Channel) Close() {
	c.closed.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}

// SubscribeTrades registers a trade handler for symbol. Registration is
// idempotent at the protocol level: the subscribe command is sent at most
// once per stream, immediately when connected and again after reconnects.
func (c *Channel) SubscribeTrades(symbol string, handler TradeHandler) error {
	c.mu.Lock()
	c.trade[symbol] = append(c.trade[symbol], handler)
	c.mu.Unlock()
	return c.subscribe(marketv1.StreamTrade, symbol)
}

// SubscribeDepth registers a depth handler for symbol.
func (c *Channel) SubscribeDepth(symbol string, handler DepthHandler) error {
	c.mu.Lock()
	c.depth[symbol] = append(c.depth[symbol], handler)
	c.mu.Unlock()
	return c.subscribe(marketv1.StreamDepth, symbol)
}

// SubscribeTicker registers a ticker handler for symbol.
func (c *Channel) SubscribeTicker(symbol string, handler TickerHandler) error {
	c.mu.Lock()
	c.ticker[symbol] = append(c.ticker[symbol], handler)
	c.mu.Unlock()
	return c.subscribe(marketv1.StreamTicker, symbol)
}

func (c *Channel) subscribe(kind marketv1.StreamKind, symbol string) error {
	stream := streamName(kind, symbol)

	c.mu.Lock()
	if _, exists := c.subs[stream]; exists {
		c.mu.Unlock()
		return nil
	}
	c.subs[stream] = struct{}{}
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	if err := c.sendSubscribe([]string{stream}); err != nil {
		return errors.NewTracer(string(errors.WebsocketSubscribeError)).Wrap(err)
	}
	return nil
}

func (c *Channel) sendSubscribe(streams []string) error {
	if len(streams) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.nextCmdID++
	cmd := subscribeCommand{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     c.nextCmdID,
	}
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(cmd)
}

// dial opens the transport and resubscribes every registered stream.
func (c *Channel) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	streams := make([]string, 0, len(c.subs))
	for s := range c.subs {
		streams = append(streams, s)
	}
	c.mu.Unlock()

	if err := c.sendSubscribe(streams); err != nil {
		c.forceClose()
		return err
	}

	c.logger.Info("market data stream connected",
		logger.Field{Key: "url", Value: c.cfg.URL},
		logger.Field{Key: "streams", Value: len(streams)},
	)
	return nil
}

// supervise owns the read loop and the reconnect discipline. It exits when
// ctx is done, Close is called, or reconnect attempts are exhausted.
func (c *Channel) supervise(ctx context.Context) {
	attempts := 0

	for {
		readErr := c.consume(ctx)
		c.forceClose()

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		c.emit(Event{Kind: EventDisconnected, Err: readErr, Attempts: attempts, Timestamp: time.Now().UTC()})

		// Bounded backoff; exhaustion is fatal and must reach an operator.
		reconnected := false
		for attempts < c.cfg.MaxReconnectAttempts {
			attempts++
			wait := c.backoff(attempts)
			c.logger.Warn("market data stream disconnected, reconnecting",
				logger.Field{Key: "attempt", Value: attempts},
				logger.Field{Key: "backoff", Value: wait.String()},
			)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}

			if err := c.dial(ctx); err != nil {
				c.logger.Error(errors.NewTracer(string(errors.ErrTransientNetwork)).Wrap(err),
					logger.Field{Key: "attempt", Value: attempts},
				)
				continue
			}
			reconnected = true
			break
		}

		if !reconnected {
			// Terminal: never dropped on a full buffer, an operator must see it.
			select {
			case c.events <- Event{
				Kind:      EventMaxReconnectExceeded,
				Attempts:  attempts,
				Timestamp: time.Now().UTC(),
			}:
			case <-c.done:
			case <-ctx.Done():
			}
			return
		}

		attempts = 0
		c.emit(Event{Kind: EventConnected, Timestamp: time.Now().UTC()})
	}
}

// consume reads frames until the transport errors. Dispatch is synchronous so
// per-symbol arrival order is preserved.
func (c *Channel) consume(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.heartbeat(pingCtx, conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(message)
	}
}

// heartbeat sends a liveness probe every ping interval. A peer that stops
// answering trips the read deadline, which surfaces as a read error and a
// reconnect.
func (c *Channel) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("market data ping failed",
					logger.Field{Key: "error", Value: err.Error()},
				)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// dispatch decodes a frame and fans it out to the registered handlers for
// its stream, in arrival order.
func (c *Channel) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		// Not a stream frame (e.g. a subscribe ack): skip.
		return
	}
	if env.Stream == "" || len(env.Data) == 0 {
		return
	}

	kind, ok := kindFromStream(env.Stream)
	if !ok {
		return
	}

	switch kind {
	case marketv1.StreamTrade:
		tick, err := parseTrade(env.Data)
		if err != nil {
			c.logger.Warn("failed to decode trade frame",
				logger.Field{Key: "error", Value: err.Error()},
			)
			return
		}
		c.mu.Lock()
		handlers := c.trade[tick.Symbol]
		c.mu.Unlock()
		for _, h := range handlers {
			h(tick)
		}

	case marketv1.StreamDepth:
		depth, err := parseDepth(env.Data)
		if err != nil {
			c.logger.Warn("failed to decode depth frame",
				logger.Field{Key: "error", Value: err.Error()},
			)
			return
		}
		c.mu.Lock()
		handlers := c.depth[depth.Symbol]
		c.mu.Unlock()
		for _, h := range handlers {
			h(depth)
		}

	case marketv1.StreamTicker:
		update, err := parseTicker(env.Data)
		if err != nil {
			c.logger.Warn("failed to decode ticker frame",
				logger.Field{Key: "error", Value: err.Error()},
			)
			return
		}
		c.mu.Lock()
		handlers := c.ticker[update.Symbol]
		c.mu.Unlock()
		for _, h := range handlers {
			h(update)
		}
	}
}

func (c *Channel) forceClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}

// backoff doubles the reconnect interval per attempt up to the configured
// ceiling.
func (c *Channel) backoff(attempt int) time.Duration {
	wait := c.cfg.ReconnectInterval
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= c.cfg.MaxReconnectInterval {
			return c.cfg.MaxReconnectInterval
		}
	}
	return wait
}

func (c *Channel) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event channel full, dropping lifecycle event",
			logger.Field{Key: "kind", Value: string(ev.Kind)},
		)
	}
}
