package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	orderv1 "github.com/tironinho/kronos-sub000/internal/domain/order/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/errors"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher represents a Kafka publisher for the trade ledger. Completed
// orders and realized fills are published as JSON, keyed by order id so a
// single order's history stays in one partition.
type Publisher struct {
	kafkaWriter messageWriter
	logger      logger.Interface
}

// orderRecord is the ledger wire format for a completed order.
type orderRecord struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	FilledQty     float64   `json:"filled_quantity"`
	AveragePrice  float64   `json:"average_price"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// fillRecord is the ledger wire format for a realized fill.
type fillRecord struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	RealizedPnL float64   `json:"realized_pnl"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewPublisher creates a Kafka publisher for the trade ledger.
func NewPublisher(cfg config.KafkaConfig, log logger.Interface) *Publisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &Publisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// PublishOrder publishes a completed order to the ledger topic.
func (p *Publisher) PublishOrder(ctx context.Context, order orderv1.Order) error {
	record := orderRecord{
		OrderID:       order.ID,
		ClientOrderID: order.ClientOrderID,
		Symbol:        order.Symbol,
		Side:          string(order.Side),
		Type:          string(order.Type),
		Quantity:      order.Quantity,
		Price:         order.Price,
		Status:        string(order.Status),
		FilledQty:     order.FilledQuantity,
		AveragePrice:  order.AveragePrice,
		Reason:        order.Reason,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	return p.publish(ctx, order.ID, record)
}

// PublishFill publishes a fill and its realized PnL to the ledger topic.
func (p *Publisher) PublishFill(ctx context.Context, fill orderv1.Fill, realizedPnL float64) error {
	record := fillRecord{
		OrderID:     fill.OrderID,
		Symbol:      fill.Symbol,
		Side:        string(fill.Side),
		Quantity:    fill.Quantity,
		Price:       fill.Price,
		RealizedPnL: realizedPnL,
		Timestamp:   fill.Timestamp,
	}
	return p.publish(ctx, fill.OrderID, record)
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	return p.kafkaWriter.Close()
}

func (p *Publisher) publish(ctx context.Context, key string, record interface{}) error {
	value, err := json.Marshal(record)
	if err != nil {
		return errors.NewErrorDetails(
			"failed to marshal ledger record: "+err.Error(),
			string(errors.KafkaPublishError),
			"",
		)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "key", Value: key},
		)
		return errors.NewErrorDetails(
			"failed to publish ledger record: "+err.Error(),
			string(errors.KafkaPublishError),
			"",
		)
	}
	return nil
}
