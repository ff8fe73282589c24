package reconciler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	positionrepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/position"
	"github.com/tironinho/kronos-sub000/internal/usecase/statestore"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Cron schedules, with a seconds field.
const (
	dailyResetSchedule = "0 0 0 * * *"
	snapshotSchedule   = "0 * * * * *"
	sweepSchedule      = "30 * * * * *"
)

// staleOrderAge is how long an order may stay working before the reconciler
// flags it.
const staleOrderAge = 5 * time.Minute

// Engine is the part of the trading engine the reconciler operates on.
type Engine interface {
	ResetDailyCount()
	ResetDailyPnL()
	DailyCount() int
	DailyRealizedPnL() float64
	Positions() []orderv1.Position
	WorkingOrders() []orderv1.Order
	ReconcileOpenOrders(ctx context.Context) error
	SweepCooldowns(now time.Time) int
}

// Reconciler runs the engine's periodic housekeeping on cron schedules: the
// midnight UTC reset of the daily counters, state snapshots to Redis and the
// ledger database, cooldown sweeps, and stale working order detection.
type Reconciler struct {
	engine    Engine
	snapshots *statestore.Store
	positions positionrepo.PositionRepository
	logger    logger.Interface

	cron *cron.Cron
}

// New creates a reconciler. snapshots and positions may be nil to disable the
// corresponding persistence.
func New(engine Engine, snapshots *statestore.Store, positions positionrepo.PositionRepository, log logger.Interface) *Reconciler {
	return &Reconciler{
		engine:    engine,
		snapshots: snapshots,
		positions: positions,
		logger:    log,
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
	}
}

// Start registers the jobs and starts the scheduler.
func (r *Reconciler) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(dailyResetSchedule, r.resetDaily); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(snapshotSchedule, func() { r.snapshot(ctx) }); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(sweepSchedule, r.sweep); err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("reconciler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("reconciler stopped")
}

// resetDaily zeroes the daily trade counter and realized PnL at midnight UTC.
func (r *Reconciler) resetDaily() {
	trades := r.engine.DailyCount()
	realized := r.engine.DailyRealizedPnL()

	r.engine.ResetDailyCount()
	r.engine.ResetDailyPnL()

	r.logger.Info("daily counters reset",
		logger.Field{Key: "trades", Value: trades},
		logger.Field{Key: "realized_pnl", Value: realized},
	)
}

// snapshot reconciles open orders, persists the engine state, and flags
// stale working orders.
func (r *Reconciler) snapshot(ctx context.Context) {
	if err := r.engine.ReconcileOpenOrders(ctx); err != nil {
		r.logger.Warn("open order reconciliation reported failures",
			logger.Field{Key: "error", Value: err.Error()},
		)
	}

	positions := r.engine.Positions()

	if r.snapshots != nil {
		snap := statestore.Snapshot{
			Positions:     positions,
			DailyTrades:   r.engine.DailyCount(),
			DailyRealized: r.engine.DailyRealizedPnL(),
		}
		if err := r.snapshots.Save(ctx, snap); err != nil {
			r.logger.Error(err)
		}
	}

	if r.positions != nil {
		for i := range positions {
			pos := positions[i]
			record := positionrepo.FromDomain(pos.Symbol, &pos, 0)
			if err := r.positions.Store(ctx, record); err != nil {
				r.logger.Error(err,
					logger.Field{Key: "symbol", Value: pos.Symbol},
				)
			}
		}
	}

	now := time.Now().UTC()
	for _, order := range r.engine.WorkingOrders() {
		if now.Sub(order.CreatedAt) >= staleOrderAge {
			r.logger.Warn("working order is stale",
				logger.Field{Key: "order_id", Value: order.ID},
				logger.Field{Key: "symbol", Value: order.Symbol},
				logger.Field{Key: "age", Value: now.Sub(order.CreatedAt).String()},
			)
		}
	}
}

// sweep drops elapsed signal cooldowns.
func (r *Reconciler) sweep() {
	removed := r.engine.SweepCooldowns(time.Now().UTC())
	if removed > 0 {
		r.logger.Debug("signal cooldowns swept",
			logger.Field{Key: "removed", Value: removed},
		)
	}
}
