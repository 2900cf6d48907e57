// Package events publishes storefront domain events. Publishing is
// fire-and-forget from the caller's perspective: failures are returned
// for logging but never change the outcome of the operation that
// produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

type SaleSettled struct {
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishSaleSettled(ctx context.Context, evt SaleSettled) error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) PublishSaleSettled(context.Context, SaleSettled) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) PublishSaleSettled(ctx context.Context, evt SaleSettled) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.TransactionID),
		Value: payload,
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
