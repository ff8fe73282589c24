package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	positionrepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/position"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

type fakeEngine struct {
	mu            sync.Mutex
	dailyCount    int
	dailyRealized float64
	positions     []orderv1.Position
	working       []orderv1.Order
	reconcileErr  error
	reconciled    int
	swept         int
}

func (e *fakeEngine) ResetDailyCount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dailyCount = 0
}

func (e *fakeEngine) ResetDailyPnL() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dailyRealized = 0
}

func (e *fakeEngine) DailyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyCount
}

func (e *fakeEngine) DailyRealizedPnL() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dailyRealized
}

func (e *fakeEngine) Positions() []orderv1.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positions
}

func (e *fakeEngine) WorkingOrders() []orderv1.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working
}

func (e *fakeEngine) ReconcileOpenOrders(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reconciled++
	return e.reconcileErr
}

func (e *fakeEngine) SweepCooldowns(now time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.swept++
	return 1
}

type fakePositionRepo struct {
	mu      sync.Mutex
	records []*positionrepo.Record
}

func (r *fakePositionRepo) Store(ctx context.Context, record *positionrepo.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *fakePositionRepo) GetByFilter(ctx context.Context, filter positionrepo.Filter) ([]*positionrepo.Record, error) {
	return nil, nil
}

func (r *fakePositionRepo) GetLatestBySymbol(ctx context.Context, symbol string) (*positionrepo.Record, error) {
	return nil, nil
}

func newTestReconciler(t *testing.T, engine Engine, positions positionrepo.PositionRepository) *Reconciler {
	t.Helper()
	log, err := logger.NewLogger()
	require.NoError(t, err)
	return New(engine, nil, positions, log)
}

func TestReconciler_ResetDaily(t *testing.T) {
	engine := &fakeEngine{dailyCount: 12, dailyRealized: -87.5}
	r := newTestReconciler(t, engine, nil)

	r.resetDaily()

	assert.Equal(t, 0, engine.DailyCount())
	assert.Equal(t, 0.0, engine.DailyRealizedPnL())
}

func TestReconciler_Snapshot(t *testing.T) {
	t.Run("reconciles open orders and persists positions", func(t *testing.T) {
		engine := &fakeEngine{
			positions: []orderv1.Position{
				{Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, AveragePrice: 50000},
				{Symbol: "ETHUSDT", Side: orderv1.SideSell, Quantity: 2, AveragePrice: 3000},
			},
		}
		repo := &fakePositionRepo{}
		r := newTestReconciler(t, engine, repo)

		r.snapshot(context.Background())

		assert.Equal(t, 1, engine.reconciled)
		require.Len(t, repo.records, 2)
		assert.Equal(t, "BTCUSDT", repo.records[0].Symbol)
		assert.Equal(t, "ETHUSDT", repo.records[1].Symbol)
	})

	t.Run("reconciliation failures do not stop the snapshot", func(t *testing.T) {
		engine := &fakeEngine{
			reconcileErr: assert.AnError,
			positions:    []orderv1.Position{{Symbol: "BTCUSDT", Side: orderv1.SideBuy, Quantity: 1, AveragePrice: 50000}},
		}
		repo := &fakePositionRepo{}
		r := newTestReconciler(t, engine, repo)

		r.snapshot(context.Background())

		assert.Len(t, repo.records, 1)
	})

	t.Run("stale working orders are tolerated", func(t *testing.T) {
		engine := &fakeEngine{
			working: []orderv1.Order{
				{ID: "old", Symbol: "BTCUSDT", Status: orderv1.StatusNew, CreatedAt: time.Now().UTC().Add(-time.Hour)},
			},
		}
		r := newTestReconciler(t, engine, nil)

		assert.NotPanics(t, func() { r.snapshot(context.Background()) })
	})
}

func TestReconciler_Sweep(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReconciler(t, engine, nil)

	r.sweep()
	assert.Equal(t, 1, engine.swept)
}

func TestReconciler_StartStop(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestReconciler(t, engine, nil)

	require.NoError(t, r.Start(context.Background()))
	r.Stop()
}
