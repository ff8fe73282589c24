package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	alertv1 "github.com/tironinho/kronos-sub000/internal/domain/alert/v1"
	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/alerts"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Executor submits an admitted trade for execution. The order manager is the
// production implementation.
type Executor interface {
	Execute(ctx context.Context, trade *orderv1.TradeOrder) error
}

// Orchestrator represents the trade admission scheduler. Trades enter through
// AddTrade, wait in a priority queue, and are drained to the executor with a
// bound on concurrent executions. A trade reaches exactly one terminal status
// and keeps it.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	logger   logger.Interface
	executor Executor
	alerts   *alerts.Dispatcher

	mu       sync.Mutex
	queue    *tradeQueue
	trades   map[string]*orderv1.TradeOrder
	active   map[string]*orderv1.TradeOrder
	dailyCnt int

	wg sync.WaitGroup
}

// New creates a trade orchestrator.
func New(cfg config.OrchestratorConfig, log logger.Interface, executor Executor, dispatcher *alerts.Dispatcher) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		logger:   log,
		executor: executor,
		alerts:   dispatcher,
		queue:    newTradeQueue(),
		trades:   make(map[string]*orderv1.TradeOrder),
		active:   make(map[string]*orderv1.TradeOrder),
	}
}

// AddTrade validates the trade and admits it into the queue. A trade that
// fails validation, the daily trade gate, or the per-symbol risk gate is
// recorded as CANCELLED with the reason and never enqueued.
func (o *Orchestrator) AddTrade(trade *orderv1.TradeOrder) error {
	if trade.ID == "" {
		trade.ID = ulid.Make().String()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now().UTC()
	}
	trade.Status = orderv1.TradePending

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := validateTrade(trade); err != nil {
		o.reject(trade, "validation failed: "+err.Error())
		return err
	}

	if o.dailyCnt >= o.cfg.MaxDailyTrades {
		reason := fmt.Sprintf("daily trade limit reached (%d)", o.cfg.MaxDailyTrades)
		o.reject(trade, reason)
		o.alerts.Raise(alertv1.New(alertv1.TypeRiskLimit, alertv1.SeverityMedium, reason, trade.Symbol))
		return errors.NewErrorDetails(reason, string(errors.ErrRiskLimitExceeded), "")
	}

	pending := o.queue.notionalForSymbol(trade.Symbol) + o.activeNotionalLocked(trade.Symbol)
	if pending+trade.Notional() > o.cfg.RiskLimitPerSymbol {
		reason := fmt.Sprintf("risk limit exceeded for %s: pending %.2f + new %.2f > %.2f",
			trade.Symbol, pending, trade.Notional(), o.cfg.RiskLimitPerSymbol)
		o.reject(trade, reason)
		o.alerts.Raise(alertv1.New(alertv1.TypeRiskLimit, alertv1.SeverityHigh, reason, trade.Symbol))
		return errors.NewErrorDetails(reason, string(errors.ErrRiskLimitExceeded), "notional")
	}

	o.trades[trade.ID] = trade
	o.queue.push(trade)

	o.logger.Info("trade admitted",
		logger.Field{Key: "trade_id", Value: trade.ID},
		logger.Field{Key: "symbol", Value: trade.Symbol},
		logger.Field{Key: "side", Value: string(trade.Side)},
		logger.Field{Key: "priority", Value: trade.Priority},
		logger.Field{Key: "queue_len", Value: o.queue.len()},
	)

	if backlog := o.queue.countAtOrAbove(o.cfg.PriorityThreshold); backlog > o.cfg.HighPriorityBacklog {
		o.alerts.Raise(alertv1.New(
			alertv1.TypeHighPriority,
			alertv1.SeverityMedium,
			fmt.Sprintf("%d high priority trades waiting in queue", backlog),
			trade.Symbol,
		))
	}

	return nil
}

// Drain moves queued trades into execution until the concurrency bound is
// reached. Trades at or above the priority threshold always leave first; the
// rest follow in queue order.
func (o *Orchestrator) Drain(ctx context.Context) {
	o.mu.Lock()
	var drained []*orderv1.TradeOrder
	for len(o.active) < o.cfg.MaxConcurrentTrades {
		trade := o.queue.popAtOrAbove(o.cfg.PriorityThreshold)
		if trade == nil {
			trade = o.queue.pop()
		}
		if trade == nil {
			break
		}
		o.active[trade.ID] = trade
		drained = append(drained, trade)
	}
	o.mu.Unlock()

	for _, trade := range drained {
		o.wg.Add(1)
		go func(t *orderv1.TradeOrder) {
			defer o.wg.Done()
			o.execute(ctx, t)
		}(trade)
	}
}

// Run drains the queue on every tick until the context is cancelled, then
// waits for in-flight executions to settle.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.wg.Wait()
			return
		case <-ticker.C:
			o.Drain(ctx)
		}
	}
}

// CancelTrade cancels a queued or in-flight trade. A queued trade leaves the
// queue; an in-flight trade is marked CANCELLED and the executor's result is
// discarded when it settles. Cancelling a terminal trade is a no-op.
func (o *Orchestrator) CancelTrade(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	trade, ok := o.trades[id]
	if !ok {
		return orderv1.ErrOrderNotFound
	}
	if trade.Status.IsTerminal() {
		return nil
	}

	o.queue.remove(id)
	trade.Status = orderv1.TradeCancelled
	trade.Reason = "cancelled by request"

	if _, inFlight := o.active[id]; inFlight {
		o.logger.Info("in-flight trade cancelled",
			logger.Field{Key: "trade_id", Value: id},
			logger.Field{Key: "symbol", Value: trade.Symbol},
		)
		return nil
	}

	o.logger.Info("trade cancelled",
		logger.Field{Key: "trade_id", Value: id},
		logger.Field{Key: "symbol", Value: trade.Symbol},
	)
	return nil
}

// CancelAllTrades cancels every queued and in-flight trade for the symbol, or
// for all symbols when symbol is empty. In-flight trades are marked CANCELLED
// and their execution results discarded. It returns the number of trades
// cancelled.
func (o *Orchestrator) CancelAllTrades(symbol string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := o.queue.removeBySymbol(symbol)
	for _, trade := range removed {
		trade.Status = orderv1.TradeCancelled
		trade.Reason = "cancelled by request"
	}
	cancelled := len(removed)

	for _, trade := range o.active {
		if symbol != "" && trade.Symbol != symbol {
			continue
		}
		if trade.Status.IsTerminal() {
			continue
		}
		trade.Status = orderv1.TradeCancelled
		trade.Reason = "cancelled by request"
		cancelled++
	}

	if cancelled > 0 {
		o.logger.Info("trades cancelled",
			logger.Field{Key: "symbol", Value: symbol},
			logger.Field{Key: "count", Value: cancelled},
		)
	}
	return cancelled
}

// Trade returns a copy of the trade with the given id.
func (o *Orchestrator) Trade(id string) (orderv1.TradeOrder, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	trade, ok := o.trades[id]
	if !ok {
		return orderv1.TradeOrder{}, false
	}
	return *trade, true
}

// QueueLen returns the number of queued trades.
func (o *Orchestrator) QueueLen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue.len()
}

// ActiveCount returns the number of trades in flight.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// DailyCount returns the number of trades executed since the last reset.
// Failed and cancelled trades never consume the daily budget.
func (o *Orchestrator) DailyCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dailyCnt
}

// ResetDailyCount zeroes the daily execution counter. The reconciler calls
// this at midnight UTC.
func (o *Orchestrator) ResetDailyCount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dailyCnt = 0
	o.logger.Info("daily trade counter reset")
}

func (o *Orchestrator) execute(ctx context.Context, trade *orderv1.TradeOrder) {
	execCtx, cancel := context.WithTimeout(ctx, o.cfg.ExecutionTimeout)
	defer cancel()

	err := o.executor.Execute(execCtx, trade)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, trade.ID)

	// Cancelled while in flight: the result is discarded and the trade keeps
	// its terminal status.
	if trade.Status.IsTerminal() {
		o.logger.Info("execution result discarded for cancelled trade",
			logger.Field{Key: "trade_id", Value: trade.ID},
			logger.Field{Key: "symbol", Value: trade.Symbol},
		)
		return
	}

	if err != nil {
		trade.Status = orderv1.TradeFailed
		trade.Reason = err.Error()
		o.logger.Error(err,
			logger.Field{Key: "trade_id", Value: trade.ID},
			logger.Field{Key: "symbol", Value: trade.Symbol},
		)
		o.alerts.Raise(alertv1.New(
			alertv1.TypeExecutionFailed,
			alertv1.SeverityHigh,
			fmt.Sprintf("execution failed for trade %s: %v", trade.ID, err),
			trade.Symbol,
		))
		return
	}

	trade.Status = orderv1.TradeExecuted
	o.dailyCnt++
	o.logger.Info("trade executed",
		logger.Field{Key: "trade_id", Value: trade.ID},
		logger.Field{Key: "symbol", Value: trade.Symbol},
		logger.Field{Key: "side", Value: string(trade.Side)},
		logger.Field{Key: "quantity", Value: trade.Quantity},
	)
}

// reject records a trade as CANCELLED without enqueueing it.
func (o *Orchestrator) reject(trade *orderv1.TradeOrder, reason string) {
	trade.Status = orderv1.TradeCancelled
	trade.Reason = reason
	o.trades[trade.ID] = trade

	o.logger.Warn("trade rejected",
		logger.Field{Key: "trade_id", Value: trade.ID},
		logger.Field{Key: "symbol", Value: trade.Symbol},
		logger.Field{Key: "reason", Value: reason},
	)
}

// activeNotionalLocked sums the notional of in-flight trades for the symbol.
// Callers must hold the mutex.
func (o *Orchestrator) activeNotionalLocked(symbol string) float64 {
	var total float64
	for _, trade := range o.active {
		if trade.Symbol == symbol {
			total += trade.Notional()
		}
	}
	return total
}

func validateTrade(trade *orderv1.TradeOrder) error {
	base := errors.NewBaseError()

	if !validSymbol(trade.Symbol) {
		base.AddErrorDetails(errors.NewErrorDetails(
			"symbol must be non-empty uppercase alphanumeric",
			string(errors.GeneralValidationError),
			"symbol",
		))
	}
	if trade.Side != orderv1.SideBuy && trade.Side != orderv1.SideSell {
		base.AddErrorDetails(errors.NewErrorDetails(
			"side must be BUY or SELL",
			string(errors.GeneralValidationError),
			"side",
		))
	}
	if trade.Quantity <= 0 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"quantity must be positive",
			string(errors.GeneralValidationError),
			"quantity",
		))
	}
	if trade.Type == orderv1.TypeLimit && trade.Price <= 0 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"limit orders require a positive price",
			string(errors.GeneralValidationError),
			"price",
		))
	}
	if trade.Price < 0 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"price must not be negative",
			string(errors.GeneralValidationError),
			"price",
		))
	}
	if trade.Priority < 1 || trade.Priority > 10 {
		base.AddErrorDetails(errors.NewErrorDetails(
			"priority must be between 1 and 10",
			string(errors.GeneralValidationError),
			"priority",
		))
	}

	if len(base.GetDetails()) > 0 {
		return base
	}
	return nil
}

func validSymbol(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isUpper && !isDigit {
			return false
		}
	}
	return true
}
