package ordermanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/gateway"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Ledger records completed orders and realized fills. Implementations must be
// safe for concurrent use; a nil ledger disables recording.
type Ledger interface {
	PublishOrder(ctx context.Context, order orderv1.Order) error
	PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error
}

// Manager represents the order manager. It owns the execution-level order
// book, the per-symbol net positions, and the daily realized PnL, and is the
// only component that talks to the exchange gateway.
type Manager struct {
	cfg     config.OrderManagerConfig
	logger  logger.Interface
	gateway gateway.Gateway
	ledger  Ledger

	mu            sync.Mutex
	orders        map[string]*orderv1.Order
	positions     map[string]*orderv1.Position
	dailyRealized float64
}

// New creates an order manager. The ledger may be nil.
func New(cfg config.OrderManagerConfig, log logger.Interface, gw gateway.Gateway, ledger Ledger) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    log,
		gateway:   gw,
		ledger:    ledger,
		orders:    make(map[string]*orderv1.Order),
		positions: make(map[string]*orderv1.Position),
	}
}

// PlaceOrder validates the request, runs the risk checks, and places the
// order on the gateway. Any failure before or at the gateway is recorded
// locally as a REJECTED order so the book never loses track of an attempt.
func (m *Manager) PlaceOrder(ctx context.Context, req orderv1.PlaceOrderRequest) (orderv1.Order, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}

	if err := validateRequest(req); err != nil {
		return m.rejectLocally(ctx, req, err), err
	}
	if err := m.checkRisk(req); err != nil {
		return m.rejectLocally(ctx, req, err), err
	}

	placeCtx, cancel := context.WithTimeout(ctx, m.cfg.PlaceTimeout)
	defer cancel()

	now := time.Now().UTC()
	resp, err := m.gateway.PlaceOrder(placeCtx, req)
	if err != nil {
		rejected := m.rejectLocally(ctx, req, err)
		return rejected, errors.NewErrorDetails(
			"gateway rejected order: "+err.Error(),
			string(errors.ErrExecutionFailure),
			"",
		)
	}

	order := &orderv1.Order{
		ID:             resp.OrderID,
		ClientOrderID:  req.ClientOrderID,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Type:           req.Type,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Status:         orderv1.StatusNew,
		FilledQuantity: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	m.mu.Lock()
	m.orders[order.ID] = order
	m.mu.Unlock()

	m.logger.Info("order placed",
		logger.Field{Key: "order_id", Value: order.ID},
		logger.Field{Key: "symbol", Value: order.Symbol},
		logger.Field{Key: "side", Value: string(order.Side)},
		logger.Field{Key: "quantity", Value: order.Quantity},
	)

	if resp.ExecutedQty > 0 {
		fill := orderv1.Fill{
			OrderID:   order.ID,
			Symbol:    order.Symbol,
			Side:      order.Side,
			Quantity:  resp.ExecutedQty,
			Price:     resp.AvgPrice,
			Timestamp: now,
		}
		if err := m.HandleFill(ctx, fill); err != nil {
			return m.orderCopy(order.ID), err
		}
	} else if resp.Status != orderv1.StatusNew {
		if err := m.UpdateStatus(order.ID, resp.Status); err != nil {
			return m.orderCopy(order.ID), err
		}
	}

	return m.orderCopy(order.ID), nil
}

// HandleFill applies an execution to its order and to the symbol position.
// The order moves to PARTIALLY_FILLED or FILLED depending on the cumulative
// filled quantity.
func (m *Manager) HandleFill(ctx context.Context, fill orderv1.Fill) error {
	m.mu.Lock()

	order, ok := m.orders[fill.OrderID]
	if !ok {
		m.mu.Unlock()
		return orderv1.ErrOrderNotFound
	}

	newFilled := order.FilledQuantity + fill.Quantity
	target := orderv1.StatusPartiallyFilled
	if newFilled >= order.Quantity {
		target = orderv1.StatusFilled
	}

	// The transition guard runs before any mutation: a duplicate or late fill
	// against a terminal order must leave the record untouched.
	if err := order.Transition(target); err != nil {
		m.mu.Unlock()
		return err
	}

	if newFilled > 0 {
		order.AveragePrice = (order.AveragePrice*order.FilledQuantity + fill.Price*fill.Quantity) / newFilled
	}
	order.FilledQuantity = newFilled

	pos, realized := orderv1.ApplyFill(m.positions[fill.Symbol], fill)
	if pos == nil {
		delete(m.positions, fill.Symbol)
	} else {
		m.positions[fill.Symbol] = pos
	}
	m.dailyRealized += realized

	terminal := order.Status.IsTerminal()
	snapshot := *order
	m.mu.Unlock()

	m.logger.Info("fill applied",
		logger.Field{Key: "order_id", Value: fill.OrderID},
		logger.Field{Key: "symbol", Value: fill.Symbol},
		logger.Field{Key: "quantity", Value: fill.Quantity},
		logger.Field{Key: "price", Value: fill.Price},
		logger.Field{Key: "realized_pnl", Value: realized},
		logger.Field{Key: "status", Value: string(snapshot.Status)},
	)

	if m.ledger != nil {
		if err := m.ledger.PublishFill(ctx, fill, realized); err != nil {
			m.logger.Warn("ledger fill publish failed",
				logger.Field{Key: "order_id", Value: fill.OrderID},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	if terminal {
		m.record(ctx, snapshot)
	}
	return nil
}

// UpdateStatus moves an order into the given status, enforcing the state
// machine. Terminal orders never change again.
func (m *Manager) UpdateStatus(orderID string, status orderv1.Status) error {
	m.mu.Lock()

	order, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return orderv1.ErrOrderNotFound
	}
	if err := order.Transition(status); err != nil {
		m.mu.Unlock()
		return err
	}

	terminal := order.Status.IsTerminal()
	snapshot := *order
	m.mu.Unlock()

	if terminal {
		m.record(context.Background(), snapshot)
	}
	return nil
}

// CancelOrder cancels a working order on the gateway and marks it CANCELED.
func (m *Manager) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	order, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return orderv1.ErrOrderNotFound
	}
	if !order.IsWorking() {
		m.mu.Unlock()
		return errors.NewErrorDetails(
			fmt.Sprintf("order %s is not working (status %s)", orderID, order.Status),
			string(errors.GeneralValidationError),
			"order_id",
		)
	}
	symbol := order.Symbol
	m.mu.Unlock()

	if err := m.gateway.CancelOrder(ctx, symbol, orderID); err != nil {
		return errors.NewErrorDetails(
			"gateway cancel failed for order "+orderID+": "+err.Error(),
			string(errors.ErrExecutionFailure),
			"order_id",
		)
	}
	return m.UpdateStatus(orderID, orderv1.StatusCanceled)
}

// CancelAllOrders cancels every working order. Failures are aggregated; an
// order whose cancel fails stays working.
func (m *Manager) CancelAllOrders(ctx context.Context) error {
	working := m.WorkingOrders()
	base := errors.NewBaseError()

	for _, order := range working {
		if err := m.CancelOrder(ctx, order.ID); err != nil {
			base.AddErrorDetails(errors.NewErrorDetails(
				err.Error(),
				string(errors.ErrExecutionFailure),
				order.ID,
			))
		}
	}

	if len(base.GetDetails()) > 0 {
		return base
	}
	return nil
}

// KillSwitch cancels all working orders as fast as possible. Every per-order
// failure is surfaced in the returned error; a partial result is never
// reported as success.
func (m *Manager) KillSwitch(ctx context.Context) error {
	working := m.WorkingOrders()

	m.logger.Warn("kill switch engaged",
		logger.Field{Key: "working_orders", Value: len(working)},
	)

	base := errors.NewBaseError()
	cancelled := 0
	for _, order := range working {
		if err := m.CancelOrder(ctx, order.ID); err != nil {
			base.AddErrorDetails(errors.NewErrorDetails(
				"kill switch could not cancel order "+order.ID+": "+err.Error(),
				string(errors.ErrExecutionFailure),
				order.ID,
			))
			continue
		}
		cancelled++
	}

	m.logger.Warn("kill switch finished",
		logger.Field{Key: "cancelled", Value: cancelled},
		logger.Field{Key: "failed", Value: len(base.GetDetails())},
	)

	if len(base.GetDetails()) > 0 {
		return base
	}
	return nil
}

// ReconcileOpenOrders queries the gateway for every working order and applies
// missed fills and status changes. Orders the venue no longer knows are left
// untouched; the caller decides whether to cancel them.
func (m *Manager) ReconcileOpenOrders(ctx context.Context) error {
	working := m.WorkingOrders()
	base := errors.NewBaseError()

	for _, order := range working {
		resp, err := m.gateway.QueryOrder(ctx, order.Symbol, order.ID)
		if err != nil {
			base.AddErrorDetails(errors.NewErrorDetails(
				"failed to query order "+order.ID+": "+err.Error(),
				string(errors.ErrExecutionFailure),
				order.ID,
			))
			continue
		}

		if resp.ExecutedQty > order.FilledQuantity {
			fill := orderv1.Fill{
				OrderID:   order.ID,
				Symbol:    order.Symbol,
				Side:      order.Side,
				Quantity:  resp.ExecutedQty - order.FilledQuantity,
				Price:     resp.AvgPrice,
				Timestamp: time.Now().UTC(),
			}
			if err := m.HandleFill(ctx, fill); err != nil {
				base.AddErrorDetails(errors.NewErrorDetails(
					"failed to apply reconciled fill for "+order.ID+": "+err.Error(),
					string(errors.ErrExecutionFailure),
					order.ID,
				))
			}
			continue
		}

		if resp.Status != order.Status && resp.Status.IsTerminal() {
			if err := m.UpdateStatus(order.ID, resp.Status); err != nil {
				base.AddErrorDetails(errors.NewErrorDetails(
					"failed to apply reconciled status for "+order.ID+": "+err.Error(),
					string(errors.ErrExecutionFailure),
					order.ID,
				))
			}
		}
	}

	if len(base.GetDetails()) > 0 {
		return base
	}
	return nil
}

// Execute places an admitted trade. It adapts the orchestrator's trade intent
// to a gateway placement request.
func (m *Manager) Execute(ctx context.Context, trade *orderv1.TradeOrder) error {
	_, err := m.PlaceOrder(ctx, orderv1.PlaceOrderRequest{
		ClientOrderID: trade.ID,
		Symbol:        trade.Symbol,
		Side:          trade.Side,
		Type:          trade.Type,
		Quantity:      trade.Quantity,
		Price:         trade.Price,
	})
	return err
}

// Order returns a copy of the order with the given id.
func (m *Manager) Order(orderID string) (orderv1.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return orderv1.Order{}, false
	}
	return *order, true
}

// WorkingOrders returns copies of all orders that are live on the venue.
func (m *Manager) WorkingOrders() []orderv1.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var working []orderv1.Order
	for _, order := range m.orders {
		if order.IsWorking() {
			working = append(working, *order)
		}
	}
	return working
}

// Position returns a copy of the net position for the symbol.
func (m *Manager) Position(symbol string) (orderv1.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return orderv1.Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions.
func (m *Manager) Positions() []orderv1.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]orderv1.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	return out
}

// DailyRealizedPnL returns the realized PnL accumulated since the last reset.
func (m *Manager) DailyRealizedPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyRealized
}

// ResetDailyPnL zeroes the daily realized PnL. The reconciler calls this at
// midnight UTC.
func (m *Manager) ResetDailyPnL() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyRealized = 0
	m.logger.Info("daily realized pnl reset")
}

// rejectLocally records a REJECTED order for a placement attempt that failed
// on validation, risk, or at the gateway, keeping the attempt auditable.
func (m *Manager) rejectLocally(ctx context.Context, req orderv1.PlaceOrderRequest, cause error) orderv1.Order {
	now := time.Now().UTC()
	rejected := &orderv1.Order{
		ID:            req.ClientOrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        orderv1.StatusRejected,
		Reason:        cause.Error(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	m.mu.Lock()
	m.orders[rejected.ID] = rejected
	m.mu.Unlock()

	m.logger.Warn("order rejected",
		logger.Field{Key: "client_order_id", Value: req.ClientOrderID},
		logger.Field{Key: "symbol", Value: req.Symbol},
		logger.Field{Key: "reason", Value: cause.Error()},
	)
	m.record(ctx, *rejected)
	return *rejected
}

func (m *Manager) orderCopy(orderID string) orderv1.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[orderID]; ok {
		return *order
	}
	return orderv1.Order{}
}

func (m *Manager) record(ctx context.Context, order orderv1.Order) {
	if m.ledger == nil {
		return
	}
	if err := m.ledger.PublishOrder(ctx, order); err != nil {
		m.logger.Warn("ledger order publish failed",
			logger.Field{Key: "order_id", Value: order.ID},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// checkRisk enforces the position and loss limits before placement.
func (m *Manager) checkRisk(req orderv1.PlaceOrderRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dailyRealized <= -m.cfg.DailyLossCeiling {
		return errors.NewErrorDetails(
			fmt.Sprintf("daily loss ceiling reached: realized %.2f, ceiling %.2f", m.dailyRealized, m.cfg.DailyLossCeiling),
			string(errors.ErrRiskLimitExceeded),
			"daily_realized_pnl",
		)
	}

	pos, hasPos := m.positions[req.Symbol]
	if !hasPos && len(m.positions) >= m.cfg.MaxOpenPositions {
		return errors.NewErrorDetails(
			fmt.Sprintf("max open positions reached (%d)", m.cfg.MaxOpenPositions),
			string(errors.ErrRiskLimitExceeded),
			"symbol",
		)
	}

	// Only a same-side order can grow the position notional.
	projected := req.Price * req.Quantity
	if hasPos && pos.Side == req.Side {
		projected += pos.Notional()
	}
	if projected > m.cfg.MaxPositionNotional {
		return errors.NewErrorDetails(
			fmt.Sprintf("position notional limit exceeded for %s: projected %.2f > %.2f", req.Symbol, projected, m.cfg.MaxPositionNotional),
			string(errors.ErrRiskLimitExceeded),
			"notional",
		)
	}

	return nil
}

func validateRequest(req orderv1.PlaceOrderRequest) error {
	base := errors.NewBaseError()

	if req.Symbol == "" {
		base.AddErrorDetails(errors.NewErrorDetails(
			"symbol is required",
			string(errors.GeneralValidationError),
			"symbol",
		))
	}
	if req.Side != orderv1.SideBuy && req.Side != orderv1.SideSell {
		base.AddErrorDetails(errors.NewErrorDetails(
			"side must be BUY or SELL",
			string(errors.GeneralValidationError),
			"side",
		))
	}
	if req.Quantity <= 0 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"quantity must be positive",
			string(errors.GeneralValidationError),
			"quantity",
		))
	}
	if req.Type == orderv1.TypeLimit && req.Price <= 0 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"limit orders require a positive price",
			string(errors.GeneralValidationError),
			"price",
		))
	}

	if len(base.GetDetails()) > 0 {
		return base
	}
	return nil
}
