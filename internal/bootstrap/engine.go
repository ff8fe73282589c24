package bootstrap

import (
	"context"
	"time"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/internal/usecase/ordermanager"
	"github.com/tironinho/kronos-sub000/internal/usecase/orchestrator"
	"github.com/tironinho/kronos-sub000/internal/usecase/signal"
)

// engineFacade gives the reconciler one handle over the components it
// maintains.
type engineFacade struct {
	orchestrator *orchestrator.Orchestrator
	manager      *ordermanager.Manager
	generator    *signal.Generator
}

func (e *engineFacade) ResetDailyCount() {
	e.orchestrator.ResetDailyCount()
}

func (e *engineFacade) ResetDailyPnL() {
	e.manager.ResetDailyPnL()
}

func (e *engineFacade) DailyCount() int {
	return e.orchestrator.DailyCount()
}

func (e *engineFacade) DailyRealizedPnL() float64 {
	return e.manager.DailyRealizedPnL()
}

func (e *engineFacade) Positions() []orderv1.Position {
	return e.manager.Positions()
}

func (e *engineFacade) WorkingOrders() []orderv1.Order {
	return e.manager.WorkingOrders()
}

func (e *engineFacade) ReconcileOpenOrders(ctx context.Context) error {
	return e.manager.ReconcileOpenOrders(ctx)
}

func (e *engineFacade) SweepCooldowns(now time.Time) int {
	return e.generator.SweepCooldowns(now)
}
