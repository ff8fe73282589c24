package ordermanager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

type fakeGateway struct {
	mu sync.Mutex

	placeResp orderv1.PlaceOrderResponse
	placeErr  error
	placed    []orderv1.PlaceOrderRequest

	cancelErr map[string]error
	cancelled []string

	queryResp map[string]orderv1.PlaceOrderResponse
	queryErr  error

	nextID int
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (orderv1.PlaceOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed = append(g.placed, req)
	if g.placeErr != nil {
		return orderv1.PlaceOrderResponse{}, g.placeErr
	}
	resp := g.placeResp
	if resp.OrderID == "" {
		g.nextID++
		resp.OrderID = fmt.Sprintf("order-%d", g.nextID)
	}
	if resp.Status == "" {
		resp.Status = orderv1.StatusNew
	}
	return resp, nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.cancelErr[orderID]; ok {
		return err
	}
	g.cancelled = append(g.cancelled, orderID)
	return nil
}

func (g *fakeGateway) QueryOrder(ctx context.Context, symbol, orderID string) (orderv1.PlaceOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.queryErr != nil {
		return orderv1.PlaceOrderResponse{}, g.queryErr
	}
	if resp, ok := g.queryResp[orderID]; ok {
		return resp, nil
	}
	return orderv1.PlaceOrderResponse{OrderID: orderID, Status: orderv1.StatusNew}, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	orders []orderv1.Order
	fills  []orderv1.Fill
}

func (l *fakeLedger) PublishOrder(ctx context.Context, order orderv1.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, order)
	return nil
}

func (l *fakeLedger) PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills = append(l.fills, fill)
	return nil
}

func testManagerConfig() config.OrderManagerConfig {
	return config.OrderManagerConfig{
		MaxOpenPositions:    5,
		MaxPositionNotional: 1_000_000,
		DailyLossCeiling:    1000,
		PlaceTimeout:        time.Second,
	}
}

func newTestManager(t *testing.T, cfg config.OrderManagerConfig, gw *fakeGateway, ledger Ledger) *Manager {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	return New(cfg, log, gw, ledger)
}

func limitBuy(symbol string, qty, price float64) orderv1.PlaceOrderRequest {
	return orderv1.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     orderv1.SideBuy,
		Type:     orderv1.TypeLimit,
		Quantity: qty,
		Price:    price,
	}
}

func TestManager_PlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("records a new order from the gateway response", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)

		assert.Equal(t, orderv1.StatusNew, order.Status)
		assert.NotEmpty(t, order.ID)
		assert.NotEmpty(t, order.ClientOrderID)

		stored, ok := m.Order(order.ID)
		require.True(t, ok)
		assert.True(t, stored.IsWorking())
	})

	t.Run("immediate execution fills the order and opens a position", func(t *testing.T) {
		gw := &fakeGateway{placeResp: orderv1.PlaceOrderResponse{
			OrderID:     "order-1",
			Status:      orderv1.StatusFilled,
			ExecutedQty: 2,
			AvgPrice:    50000,
		}}
		ledger := &fakeLedger{}
		m := newTestManager(t, testManagerConfig(), gw, ledger)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 2, 50000))
		require.NoError(t, err)

		assert.Equal(t, orderv1.StatusFilled, order.Status)
		assert.Equal(t, 2.0, order.FilledQuantity)
		assert.Equal(t, 50000.0, order.AveragePrice)

		pos, ok := m.Position("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, orderv1.SideBuy, pos.Side)
		assert.Equal(t, 2.0, pos.Quantity)

		assert.Len(t, ledger.fills, 1)
		assert.Len(t, ledger.orders, 1)
	})

	t.Run("gateway failure is recorded as a rejected order", func(t *testing.T) {
		gw := &fakeGateway{placeErr: assert.AnError}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.Error(t, err)

		assert.Equal(t, orderv1.StatusRejected, order.Status)
		stored, ok := m.Order(order.ID)
		require.True(t, ok)
		assert.Equal(t, orderv1.StatusRejected, stored.Status)
		assert.Empty(t, m.WorkingOrders())
	})

	t.Run("invalid request never reaches the gateway", func(t *testing.T) {
		gw := &fakeGateway{}
		ledger := &fakeLedger{}
		m := newTestManager(t, testManagerConfig(), gw, ledger)

		rejected, err := m.PlaceOrder(ctx, orderv1.PlaceOrderRequest{Symbol: "BTCUSDT"})
		require.Error(t, err)
		assert.Empty(t, gw.placed)

		// The attempt is still recorded as a REJECTED order for audit.
		assert.Equal(t, orderv1.StatusRejected, rejected.Status)
		stored, ok := m.Order(rejected.ID)
		require.True(t, ok)
		assert.Equal(t, orderv1.StatusRejected, stored.Status)
		assert.NotEmpty(t, stored.Reason)
		assert.Len(t, ledger.orders, 1)
	})
}

func TestManager_RiskChecks(t *testing.T) {
	ctx := context.Background()

	fillAt := func(m *Manager, symbol string, side orderv1.Side, qty, price float64) {
		gw := m.gateway.(*fakeGateway)
		gw.mu.Lock()
		gw.placeResp = orderv1.PlaceOrderResponse{
			Status:      orderv1.StatusFilled,
			ExecutedQty: qty,
			AvgPrice:    price,
		}
		gw.mu.Unlock()
		_, err := m.PlaceOrder(ctx, orderv1.PlaceOrderRequest{
			Symbol: symbol, Side: side, Type: orderv1.TypeLimit, Quantity: qty, Price: price,
		})
		require.NoError(t, err)
	}

	t.Run("max open positions gates new symbols only", func(t *testing.T) {
		cfg := testManagerConfig()
		cfg.MaxOpenPositions = 1
		m := newTestManager(t, cfg, &fakeGateway{}, nil)

		fillAt(m, "BTCUSDT", orderv1.SideBuy, 1, 100)

		rejected, err := m.PlaceOrder(ctx, limitBuy("ETHUSDT", 1, 100))
		require.Error(t, err)

		// Risk rejections leave an auditable REJECTED order behind.
		assert.Equal(t, orderv1.StatusRejected, rejected.Status)
		stored, ok := m.Order(rejected.ID)
		require.True(t, ok)
		assert.Contains(t, stored.Reason, "max open positions")

		// Adding to the existing position is still allowed.
		_, err = m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 100))
		assert.NoError(t, err)
	})

	t.Run("position notional limit counts same-side exposure", func(t *testing.T) {
		cfg := testManagerConfig()
		cfg.MaxPositionNotional = 250
		m := newTestManager(t, cfg, &fakeGateway{}, nil)

		fillAt(m, "BTCUSDT", orderv1.SideBuy, 2, 100)

		_, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 100))
		require.Error(t, err)

		// A reducing order is not bounded by the open exposure.
		_, err = m.PlaceOrder(ctx, orderv1.PlaceOrderRequest{
			Symbol: "BTCUSDT", Side: orderv1.SideSell, Type: orderv1.TypeLimit, Quantity: 1, Price: 100,
		})
		assert.NoError(t, err)
	})

	t.Run("daily loss ceiling halts placement", func(t *testing.T) {
		cfg := testManagerConfig()
		cfg.DailyLossCeiling = 100
		m := newTestManager(t, cfg, &fakeGateway{}, nil)

		// Buy at 200, sell at 100: realized -100 hits the ceiling.
		fillAt(m, "BTCUSDT", orderv1.SideBuy, 1, 200)
		fillAt(m, "BTCUSDT", orderv1.SideSell, 1, 100)
		require.Equal(t, -100.0, m.DailyRealizedPnL())

		_, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 100))
		require.Error(t, err)

		m.ResetDailyPnL()
		_, err = m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 100))
		assert.NoError(t, err)
	})
}

func TestManager_HandleFill(t *testing.T) {
	ctx := context.Background()

	t.Run("partial then full fill", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 2, 50000))
		require.NoError(t, err)

		require.NoError(t, m.HandleFill(ctx, orderv1.Fill{
			OrderID: order.ID, Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, Price: 50000,
		}))
		partial, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusPartiallyFilled, partial.Status)

		require.NoError(t, m.HandleFill(ctx, orderv1.Fill{
			OrderID: order.ID, Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, Price: 50100,
		}))
		filled, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusFilled, filled.Status)
		assert.InDelta(t, 50050.0, filled.AveragePrice, 1e-9)

		pos, ok := m.Position("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, 2.0, pos.Quantity)
	})

	t.Run("closing fill realizes pnl and flattens the position", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		buy, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)
		require.NoError(t, m.HandleFill(ctx, orderv1.Fill{
			OrderID: buy.ID, Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, Price: 50000,
		}))

		sell, err := m.PlaceOrder(ctx, orderv1.PlaceOrderRequest{
			Symbol: "BTCUSDT", Side: orderv1.SideSell, Type: orderv1.TypeLimit, Quantity: 1, Price: 51000,
		})
		require.NoError(t, err)
		require.NoError(t, m.HandleFill(ctx, orderv1.Fill{
			OrderID: sell.ID, Symbol: "BTCUSDT", Side: orderv1.SideSell, Quantity: 1, Price: 51000,
		}))

		_, ok := m.Position("BTCUSDT")
		assert.False(t, ok)
		assert.Equal(t, 1000.0, m.DailyRealizedPnL())
	})

	t.Run("fill against a terminal order leaves the record untouched", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)
		require.NoError(t, m.HandleFill(ctx, orderv1.Fill{
			OrderID: order.ID, Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, Price: 50000,
		}))

		// A late duplicate fill is rejected without corrupting quantity,
		// average price, or the position.
		err = m.HandleFill(ctx, orderv1.Fill{
			OrderID: order.ID, Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, Price: 60000,
		})
		require.Error(t, err)

		got, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusFilled, got.Status)
		assert.Equal(t, 1.0, got.FilledQuantity)
		assert.Equal(t, 50000.0, got.AveragePrice)

		pos, ok := m.Position("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, 1.0, pos.Quantity)
	})

	t.Run("unknown order", func(t *testing.T) {
		m := newTestManager(t, testManagerConfig(), &fakeGateway{}, nil)
		err := m.HandleFill(ctx, orderv1.Fill{OrderID: "missing", Symbol: "BTCUSDT", Quantity: 1, Price: 1})
		assert.ErrorIs(t, err, orderv1.ErrOrderNotFound)
	})
}

func TestManager_CancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a working order", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)
		require.NoError(t, m.CancelOrder(ctx, order.ID))

		got, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusCanceled, got.Status)
		assert.Equal(t, []string{order.ID}, gw.cancelled)
	})

	t.Run("terminal order cannot be cancelled", func(t *testing.T) {
		gw := &fakeGateway{placeResp: orderv1.PlaceOrderResponse{
			OrderID: "order-1", Status: orderv1.StatusFilled, ExecutedQty: 1, AvgPrice: 50000,
		}}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)
		assert.Error(t, m.CancelOrder(ctx, order.ID))
	})

	t.Run("unknown order", func(t *testing.T) {
		m := newTestManager(t, testManagerConfig(), &fakeGateway{}, nil)
		assert.ErrorIs(t, m.CancelOrder(ctx, "missing"), orderv1.ErrOrderNotFound)
	})
}

func TestManager_KillSwitch(t *testing.T) {
	ctx := context.Background()

	gw := &fakeGateway{cancelErr: map[string]error{}}
	m := newTestManager(t, testManagerConfig(), gw, nil)

	ids := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	// One venue cancel fails; that order must stay working and the failure
	// must surface in the aggregated error.
	gw.mu.Lock()
	gw.cancelErr[ids[2]] = assert.AnError
	gw.mu.Unlock()

	err := m.KillSwitch(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ids[2])

	working := m.WorkingOrders()
	require.Len(t, working, 1)
	assert.Equal(t, ids[2], working[0].ID)

	for _, id := range []string{ids[0], ids[1], ids[3]} {
		got, _ := m.Order(id)
		assert.Equal(t, orderv1.StatusCanceled, got.Status)
	}
}

func TestManager_ReconcileOpenOrders(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a missed fill", func(t *testing.T) {
		gw := &fakeGateway{queryResp: map[string]orderv1.PlaceOrderResponse{}}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 2, 50000))
		require.NoError(t, err)

		gw.mu.Lock()
		gw.queryResp[order.ID] = orderv1.PlaceOrderResponse{
			OrderID: order.ID, Status: orderv1.StatusFilled, ExecutedQty: 2, AvgPrice: 50000,
		}
		gw.mu.Unlock()

		require.NoError(t, m.ReconcileOpenOrders(ctx))

		got, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusFilled, got.Status)
		assert.Equal(t, 2.0, got.FilledQuantity)

		pos, ok := m.Position("BTCUSDT")
		require.True(t, ok)
		assert.Equal(t, 2.0, pos.Quantity)
	})

	t.Run("applies a missed terminal status", func(t *testing.T) {
		gw := &fakeGateway{queryResp: map[string]orderv1.PlaceOrderResponse{}}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		order, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)

		gw.mu.Lock()
		gw.queryResp[order.ID] = orderv1.PlaceOrderResponse{
			OrderID: order.ID, Status: orderv1.StatusExpired,
		}
		gw.mu.Unlock()

		require.NoError(t, m.ReconcileOpenOrders(ctx))

		got, _ := m.Order(order.ID)
		assert.Equal(t, orderv1.StatusExpired, got.Status)
	})

	t.Run("query failures are aggregated", func(t *testing.T) {
		gw := &fakeGateway{}
		m := newTestManager(t, testManagerConfig(), gw, nil)

		_, err := m.PlaceOrder(ctx, limitBuy("BTCUSDT", 1, 50000))
		require.NoError(t, err)

		gw.mu.Lock()
		gw.queryErr = assert.AnError
		gw.mu.Unlock()

		assert.Error(t, m.ReconcileOpenOrders(ctx))
	})
}

func TestManager_Execute(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestManager(t, testManagerConfig(), gw, nil)

	trade := &orderv1.TradeOrder{
		ID:       "trade-1",
		Symbol:   "BTCUSDT",
		Side:     orderv1.SideBuy,
		Type:     orderv1.TypeLimit,
		Quantity: 1,
		Price:    50000,
		Priority: 5,
	}
	require.NoError(t, m.Execute(context.Background(), trade))

	require.Len(t, gw.placed, 1)
	assert.Equal(t, "trade-1", gw.placed[0].ClientOrderID)
	assert.Equal(t, "BTCUSDT", gw.placed[0].Symbol)
}
