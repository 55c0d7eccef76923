package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"tradeapt/internal/domain/model"
	"tradeapt/internal/domain/repository"
)

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers     []string
	TradesTopic string
	AlertsTopic string
}

// KafkaPublisher implements the EventPublisher interface using Kafka.
// Executed trades and triggered alerts are published to separate topics so
// downstream consumers (notification services, analytics) can subscribe
// independently. Publishing is fire and forget from the engines' point of
// view; delivery failures surface as errors that callers log and drop.
type KafkaPublisher struct {
	trades *kafka.Writer
	alerts *kafka.Writer
}

// NewKafkaPublisher creates a publisher for trade and alert events.
func NewKafkaPublisher(config KafkaConfig) *KafkaPublisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Use hash-based partitioning for token-based ordering
			RequiredAcks: kafka.RequireAll,
		}
	}
	return &KafkaPublisher{
		trades: newWriter(config.TradesTopic),
		alerts: newWriter(config.AlertsTopic),
	}
}

// Ensure KafkaPublisher implements the EventPublisher interface
var _ repository.EventPublisher = (*KafkaPublisher)(nil)

// PublishTradeResult sends an executed trade to the trades topic.
func (p *KafkaPublisher) PublishTradeResult(ctx context.Context, result *model.TradeResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	// Use the destination token as key so events for the same token land on
	// the same partition in order
	return p.trades.WriteMessages(ctx, kafka.Message{
		Key:   []byte(result.TokenTo),
		Value: data,
		Time:  time.Now(),
	})
}

// PublishAlertTrigger sends a triggered alert to the alerts topic.
func (p *KafkaPublisher) PublishAlertTrigger(ctx context.Context, alert *model.AlertRule) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return p.alerts.WriteMessages(ctx, kafka.Message{
		Key:   []byte(alert.Token),
		Value: data,
		Time:  time.Now(),
	})
}

// Close closes both writers.
func (p *KafkaPublisher) Close() error {
	tradesErr := p.trades.Close()
	alertsErr := p.alerts.Close()
	if tradesErr != nil {
		return tradesErr
	}
	return alertsErr
}
