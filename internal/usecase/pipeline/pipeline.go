package pipeline

import (
	"context"
	"math"
	"time"

	alertv1 "github.com/tironinho/kronos-sub000/internal/domain/alert/v1"
	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	signalv1 "github.com/tironinho/kronos-sub000/internal/domain/signal/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/alerts"
	"github.com/tironinho/kronos-sub000/internal/usecase/buffer"
	"github.com/tironinho/kronos-sub000/internal/usecase/features"
	"github.com/tironinho/kronos-sub000/internal/usecase/marketdata"
	"github.com/tironinho/kronos-sub000/internal/usecase/signal"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Stream is the part of the market data channel the pipeline consumes.
type Stream interface {
	SubscribeTrades(symbol string, handler marketdata.TradeHandler) error
	SubscribeDepth(symbol string, handler marketdata.DepthHandler) error
	SubscribeTicker(symbol string, handler marketdata.TickerHandler) error
	Events() <-chan marketdata.Event
}

// TradeSink admits trade intents. The orchestrator is the production
// implementation.
type TradeSink interface {
	AddTrade(trade *orderv1.TradeOrder) error
}

// Pipeline connects the market data stream to the trade scheduler: ticks and
// depth land in the buffers, the feature engine reads them on every
// evaluation tick, and signals that clear the generator become trade intents.
type Pipeline struct {
	cfg       config.PipelineConfig
	symbols   []string
	stream    Stream
	store     *buffer.Store
	engine    *features.Engine
	generator *signal.Generator
	selector  *signal.Selector
	sink      TradeSink
	alerts    *alerts.Dispatcher
	logger    logger.Interface

	fatal chan error
}

// New creates a pipeline over the given components.
func New(
	cfg config.PipelineConfig,
	symbols []string,
	stream Stream,
	store *buffer.Store,
	engine *features.Engine,
	generator *signal.Generator,
	selector *signal.Selector,
	sink TradeSink,
	dispatcher *alerts.Dispatcher,
	log logger.Interface,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		symbols:   symbols,
		stream:    stream,
		store:     store,
		engine:    engine,
		generator: generator,
		selector:  selector,
		sink:      sink,
		alerts:    dispatcher,
		logger:    log,
		fatal:     make(chan error, 1),
	}
}

// Fatal delivers the error that ends the pipeline, if one occurs. Exhausted
// stream reconnects arrive here.
func (p *Pipeline) Fatal() <-chan error {
	return p.fatal
}

// Start subscribes every configured symbol and runs the evaluation loop until
// ctx is done.
func (p *Pipeline) Start(ctx context.Context) error {
	for _, symbol := range p.symbols {
		if err := p.stream.SubscribeTrades(symbol, p.store.AppendTick); err != nil {
			return err
		}
		if err := p.stream.SubscribeDepth(symbol, p.store.AppendDepth); err != nil {
			return err
		}
		if err := p.stream.SubscribeTicker(symbol, p.onTicker); err != nil {
			return err
		}
	}

	go p.watchEvents(ctx)
	go p.evalLoop(ctx)

	p.logger.Info("pipeline started",
		logger.Field{Key: "symbols", Value: p.symbols},
		logger.Field{Key: "eval_interval", Value: p.cfg.EvalInterval.String()},
	)
	return nil
}

func (p *Pipeline) onTicker(update marketv1.TickerUpdate) {
	p.store.UpdateMetrics(update.Symbol, func(m *marketv1.SymbolMetrics) {
		m.LastPrice = update.LastPrice
		m.Volume24h = update.Volume24h
		m.UpdatedAt = update.Timestamp
	})
}

// watchEvents turns stream lifecycle events into alerts. Reconnect exhaustion
// is fatal for the pipeline.
func (p *Pipeline) watchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.stream.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case marketdata.EventDisconnected:
				p.alerts.Raise(alertv1.New(
					alertv1.TypeConnectionLost,
					alertv1.SeverityMedium,
					"market data stream disconnected, reconnecting",
					"",
				))
			case marketdata.EventMaxReconnectExceeded:
				p.alerts.Raise(alertv1.New(
					alertv1.TypeConnectionLost,
					alertv1.SeverityCritical,
					"market data reconnect attempts exhausted",
					"",
				))
				select {
				case p.fatal <- errors.NewErrorDetails(
					"market data reconnect attempts exhausted",
					string(errors.ErrFatalExhaustion),
					"",
				):
				default:
				}
				return
			}
		}
	}
}

func (p *Pipeline) evalLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.EvalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.evaluate(time.Now().UTC())
		}
	}
}

// evaluate runs one pass: select the working symbol set, compute features,
// and admit any emitted signals as trades.
func (p *Pipeline) evaluate(now time.Time) {
	for _, symbol := range p.selector.Select(p.store.AllMetrics()) {
		snap := p.engine.Compute(symbol, now)
		sig := p.generator.Evaluate(snap)
		if sig == nil {
			continue
		}

		trade, ok := p.toTrade(sig)
		if !ok {
			continue
		}
		if err := p.sink.AddTrade(trade); err != nil {
			p.logger.Warn("signal trade not admitted",
				logger.Field{Key: "symbol", Value: sig.Symbol},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
}

// toTrade sizes a signal into a market order at the last traded price.
func (p *Pipeline) toTrade(sig *signalv1.TradingSignal) (*orderv1.TradeOrder, bool) {
	price, ok := p.store.LastPrice(sig.Symbol)
	if !ok || price <= 0 {
		p.logger.Warn("no price for signal, skipping",
			logger.Field{Key: "symbol", Value: sig.Symbol},
		)
		return nil, false
	}

	side := orderv1.SideBuy
	if sig.Type == signalv1.SignalSell {
		side = orderv1.SideSell
	}

	return &orderv1.TradeOrder{
		Symbol:    sig.Symbol,
		Side:      side,
		Type:      orderv1.TypeMarket,
		Quantity:  p.cfg.TradeNotional / price,
		Price:     price,
		Priority:  priorityFor(sig),
		Reason:    sig.Reason,
		Timestamp: sig.Timestamp,
	}, true
}

// priorityFor maps signal conviction onto the scheduler's [1, 10] scale.
func priorityFor(sig *signalv1.TradingSignal) int {
	p := int(math.Round(math.Abs(sig.Strength) * sig.Confidence * 10))
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}
