// Package events publishes cart notifications for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const CartChangedTopic = "cart-changed"

type CartChanged struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	ProductID  int64     `json:"product_id,omitempty"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	Empty      bool      `json:"empty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// publishBatchTimeout bounds how long a synchronous write waits for a batch
// to fill before it is flushed.
const publishBatchTimeout = 10 * time.Millisecond

// NewKafkaPublisher returns a publisher that flushes every event on its own,
// since each write happens inside a cart request.
func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		BatchTimeout:           publishBatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// PublishCartChanged keys the message by user so one user's events stay ordered.
func (p *KafkaPublisher) PublishCartChanged(ctx context.Context, e CartChanged) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cart changed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("cart_changed")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write cart changed event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCartChanged(context.Context, CartChanged) error { return nil }

func (NopPublisher) Close() error { return nil }
