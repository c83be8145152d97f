// Package notify provides Notification Port adapters the engine publishes
// fill, cancel and trigger events to.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

// Kafka publishes engine events as JSON messages keyed by ticker, so all
// events of one instrument land on one partition in order.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, ev engine.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Ticker),
		Value: value,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
