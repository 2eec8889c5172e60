// Package events publishes case lifecycle events for downstream consumers
// (portals, notification services). Publishing is best effort: the caller
// logs a failure and carries on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gryork/pkg/types"

	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, evt types.CaseEvent) error
}

// Discard drops every event. It is used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, types.CaseEvent) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:  kafka.TCP(brokers...),
			Topic: topic,
			// events for one case stay on one partition, in order
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt types.CaseEvent) error {
	msg, err := Message(evt)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for case %s: %w", evt.Type, evt.CaseID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message encodes evt keyed by case id.
func Message(evt types.CaseEvent) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode case event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(evt.CaseID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	}, nil
}
