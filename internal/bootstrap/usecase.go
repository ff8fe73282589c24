package bootstrap

import (
	"github.com/tironinho/kronos-sub000/internal/usecase/alerts"
	"github.com/tironinho/kronos-sub000/internal/usecase/buffer"
	"github.com/tironinho/kronos-sub000/internal/usecase/features"
	"github.com/tironinho/kronos-sub000/internal/usecase/gateway"
	"github.com/tironinho/kronos-sub000/internal/usecase/ledger"
	"github.com/tironinho/kronos-sub000/internal/usecase/marketdata"
	"github.com/tironinho/kronos-sub000/internal/usecase/ordermanager"
	"github.com/tironinho/kronos-sub000/internal/usecase/orchestrator"
	"github.com/tironinho/kronos-sub000/internal/usecase/pipeline"
	"github.com/tironinho/kronos-sub000/internal/usecase/reconciler"
	"github.com/tironinho/kronos-sub000/internal/usecase/signal"
	"github.com/tironinho/kronos-sub000/internal/usecase/statestore"
)

// Usecase holds the engine components.
type Usecase struct {
	Buffers      *buffer.Store
	Features     *features.Engine
	Generator    *signal.Generator
	Selector     *signal.Selector
	Alerts       *alerts.Dispatcher
	Gateway      gateway.Gateway
	OrderManager *ordermanager.Manager
	Orchestrator *orchestrator.Orchestrator
	Channel      *marketdata.Channel
	Pipeline     *pipeline.Pipeline
	Snapshots    *statestore.Store
	Reconciler   *reconciler.Reconciler
}

// registerUsecase registers the usecases bottom-up: buffers and features
// first, then execution, then the pipeline and housekeeping on top.
func (b *Bootstrap) registerUsecase() {
	cfg := b.Config

	b.Usecase.Buffers = buffer.NewStore(cfg.Buffers.TickCapacity, cfg.Buffers.DepthCapacity)
	b.Usecase.Features = features.NewEngine(cfg.Features, b.Usecase.Buffers)
	b.Usecase.Generator = signal.NewGenerator(cfg.Signal, b.Logger)
	b.Usecase.Selector = signal.NewSelector(cfg.Selector)
	b.Usecase.Alerts = alerts.NewDispatcher(b.Logger)

	if cfg.AlertKafka.Enabled {
		sink := alerts.NewKafkaPublisher(cfg.AlertKafka, b.Logger)
		b.Usecase.Alerts.Register(sink.Handle)
	}

	var sinks []ledger.Sink
	if cfg.LedgerKafka.Enabled {
		sinks = append(sinks, ledger.NewPublisher(cfg.LedgerKafka, b.Logger))
	}
	if b.Repository.OrderRepository != nil {
		sinks = append(sinks, ledger.NewStore(b.Repository.OrderRepository, b.Repository.FillRepository, b.Logger))
	}
	var ledgerSink ordermanager.Ledger
	if len(sinks) > 0 {
		ledgerSink = ledger.NewMulti(sinks...)
	}

	b.Usecase.Gateway = gateway.NewPaper(b.Logger, b.Usecase.Buffers)
	b.Usecase.OrderManager = ordermanager.New(cfg.OrderManager, b.Logger, b.Usecase.Gateway, ledgerSink)
	b.Usecase.Orchestrator = orchestrator.New(cfg.Orchestrator, b.Logger, b.Usecase.OrderManager, b.Usecase.Alerts)

	b.Usecase.Channel = marketdata.NewChannel(cfg.MarketData, b.Logger)
	b.Usecase.Pipeline = pipeline.New(
		cfg.Pipeline,
		cfg.MarketData.Symbols,
		b.Usecase.Channel,
		b.Usecase.Buffers,
		b.Usecase.Features,
		b.Usecase.Generator,
		b.Usecase.Selector,
		b.Usecase.Orchestrator,
		b.Usecase.Alerts,
		b.Logger,
	)

	if b.Redis != nil {
		b.Usecase.Snapshots = statestore.NewStore(b.Redis, b.Logger)
	}

	engine := &engineFacade{
		orchestrator: b.Usecase.Orchestrator,
		manager:      b.Usecase.OrderManager,
		generator:    b.Usecase.Generator,
	}
	b.Usecase.Reconciler = reconciler.New(engine, b.Usecase.Snapshots, b.Repository.PositionRepository, b.Logger)
}
