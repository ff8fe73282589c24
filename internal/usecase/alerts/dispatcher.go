package alerts

import (
	"sync"

	alertv1 "github.com/tironinho/kronos-sub000/internal/domain/alert/v1"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// Handler consumes an alert. Handlers run on the dispatcher goroutine and
// must not block for long.
type Handler func(alertv1.Alert)

// Dispatcher fans alerts out to registered handlers from a bounded channel.
// Raising an alert never blocks the caller: when the channel is full the
// alert is dropped and the drop is logged.
type Dispatcher struct {
	logger logger.Interface

	mu       sync.RWMutex
	handlers []Handler

	ch        chan alertv1.Alert
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher(log logger.Interface) *Dispatcher {
	d := &Dispatcher{
		logger: log,
		ch:     make(chan alertv1.Alert, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Register adds a handler. Handlers registered after an alert was dispatched
// do not see it.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Raise queues an alert for delivery.
func (d *Dispatcher) Raise(alert alertv1.Alert) {
	select {
	case d.ch <- alert:
	case <-d.done:
	default:
		d.logger.Warn("alert channel full, dropping alert",
			logger.Field{Key: "type", Value: string(alert.Type)},
			logger.Field{Key: "severity", Value: string(alert.Severity)},
			logger.Field{Key: "message", Value: alert.Message},
		)
	}
}

// Close stops delivery. Alerts raised after Close are discarded.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case alert := <-d.ch:
			d.deliver(alert)
		}
	}
}

func (d *Dispatcher) deliver(alert alertv1.Alert) {
	d.logger.Info("alert raised",
		logger.Field{Key: "type", Value: string(alert.Type)},
		logger.Field{Key: "severity", Value: string(alert.Severity)},
		logger.Field{Key: "message", Value: alert.Message},
		logger.Field{Key: "symbol", Value: alert.Symbol},
	)

	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		h(alert)
	}
}
