package alerts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	alertv1 "github.com/tironinho/kronos-sub000/internal/domain/alert/v1"
	"github.com/tironinho/kronos-sub000/pkg/config"
	"github.com/tironinho/kronos-sub000/pkg/logger"
)

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards alerts to a Kafka topic for the operator tooling.
// Publishing is best effort: a broker failure is logged, never propagated to
// the component that raised the alert.
type KafkaPublisher struct {
	kafkaWriter messageWriter
	logger      logger.Interface
}

// NewKafkaPublisher creates a Kafka alert publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Interface) *KafkaPublisher {
	kafkaWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})

	return &KafkaPublisher{
		kafkaWriter: kafkaWriter,
		logger:      log,
	}
}

// Handle publishes the alert. It satisfies the dispatcher Handler signature.
func (p *KafkaPublisher) Handle(alert alertv1.Alert) {
	value, err := json.Marshal(alert)
	if err != nil {
		p.logger.Error(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(string(alert.Type)),
		Value: value,
		Time:  alert.Timestamp,
	}

	if err := p.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(err,
			logger.Field{Key: "type", Value: string(alert.Type)},
		)
	}
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.kafkaWriter.Close()
}
