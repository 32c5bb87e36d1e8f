// Package changefeed publishes row change events to Kafka.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("change publisher is closed")

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements core.ChangePublisher. Messages are keyed by
// table so one table's changes stay ordered within a partition.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string

	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a synchronous writer for config.Topic.
func NewKafkaPublisher(config registry.InternalKafkaConfig) (*KafkaPublisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  3,
		Async:        false,
	}

	log.Printf("[KAFKA] Publishing changes to topic %s on %v", config.Topic, config.Brokers)
	return NewKafkaPublisherFromWriter(writer, config.Topic), nil
}

// NewKafkaPublisherFromWriter wraps an existing writer.
func NewKafkaPublisherFromWriter(writer MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Publish writes events in one call. Events without a timestamp are
// stamped with the current time.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*core.ChangeEvent) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event == nil || event.Table == "" {
			return fmt.Errorf("change event requires a table")
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal change event: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.Table),
			Value: value,
			Time:  event.Timestamp,
			Headers: []kafka.Header{
				{Key: "operation", Value: []byte(event.Operation)},
				{Key: "table", Value: []byte(event.Table)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Printf("[KAFKA] ERROR: Failed to write %d messages to topic %s: %v", len(messages), p.topic, err)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer. Safe to call more than once.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
