package ledger

import (
	"context"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	fillrepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/fill"
	orderrepo "github.com/tironinho/kronos-sub000/internal/infrastructure/questdb/order"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Store persists ledger records in QuestDB. It satisfies the same interface
// as the Kafka publisher, so the two can back the order manager
// interchangeably or together.
type Store struct {
	orders orderrepo.OrderRepository
	fills  fillrepo.FillRepository
	logger logger.Interface
}

// NewStore creates a QuestDB-backed ledger store.
func NewStore(orders orderrepo.OrderRepository, fills fillrepo.FillRepository, log logger.Interface) *Store {
	return &Store{
		orders: orders,
		fills:  fills,
		logger: log,
	}
}

// PublishOrder writes the order record.
func (s *Store) PublishOrder(ctx context.Context, order orderv1.Order) error {
	if err := s.orders.Store(ctx, orderrepo.FromDomain(order)); err != nil {
		return errors.NewErrorDetails(
			"failed to persist order record: "+err.Error(),
			string(errors.QuestDBExecError),
			"",
		)
	}
	return nil
}

// PublishFill writes the fill record.
func (s *Store) PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error {
	if err := s.fills.Store(ctx, fillrepo.FromDomain(fill, realizedPnL)); err != nil {
		return errors.NewErrorDetails(
			"failed to persist fill record: "+err.Error(),
			string(errors.QuestDBExecError),
			"",
		)
	}
	return nil
}

// Sink is implemented by every ledger destination.
type Sink interface {
	PublishOrder(ctx context.Context, order orderv1.Order) error
	PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error
}

// Multi fans ledger records out to several sinks. Every sink sees every
// record; the first error is returned after all sinks ran.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out ledger over the given sinks.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// PublishOrder forwards the order to every sink.
func (m *Multi) PublishOrder(ctx context.Context, order orderv1.Order) error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.PublishOrder(ctx, order); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishFill forwards the fill to every sink.
func (m *Multi) PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error {
	var first error
	for _, sink := range m.sinks {
		if err := sink.PublishFill(ctx, fill, realizedPnL); err != nil && first == nil {
			first = err
		}
	}
	return first
}
