package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   int
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed++
	return nil
}

func TestPublish(t *testing.T) {
	w := &recordingWriter{}
	p := NewKafkaPublisherFromWriter(w, "changes")
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(),
		&core.ChangeEvent{Table: "shop_users", Operation: core.OperationInsert, Key: 3, Data: core.Record{"name": "C"}, Timestamp: ts},
		&core.ChangeEvent{Table: "shop_orders", Operation: core.OperationDelete, Key: 9},
	)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.messages) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(w.messages))
	}

	msg := w.messages[0]
	if string(msg.Key) != "shop_users" || !msg.Time.Equal(ts) {
		t.Errorf("message = key %q time %v", msg.Key, msg.Time)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != "INSERT" {
		t.Errorf("headers = %+v", msg.Headers)
	}

	var decoded core.ChangeEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("message value is not JSON: %v", err)
	}
	if decoded.Table != "shop_users" || decoded.Operation != core.OperationInsert || decoded.Data["name"] != "C" {
		t.Errorf("decoded = %+v", decoded)
	}

	if w.messages[1].Time.IsZero() {
		t.Error("missing timestamp should be stamped")
	}
}

func TestPublishErrors(t *testing.T) {
	boom := errors.New("broker down")
	w := &recordingWriter{err: boom}
	p := NewKafkaPublisherFromWriter(w, "changes")
	ctx := context.Background()

	if err := p.Publish(ctx, &core.ChangeEvent{Operation: core.OperationUpdate}); err == nil {
		t.Error("event without table should be rejected")
	}
	if err := p.Publish(ctx, &core.ChangeEvent{Table: "t", Operation: core.OperationUpdate}); !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want %v", err, boom)
	}

	p.Close()
	p.Close()
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}
	if err := p.Publish(ctx, &core.ChangeEvent{Table: "t"}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v", err)
	}
}

func TestNewKafkaPublisherValidation(t *testing.T) {
	if _, err := NewKafkaPublisher(registry.InternalKafkaConfig{Topic: "t"}); err == nil {
		t.Error("missing brokers should fail")
	}
	if _, err := NewKafkaPublisher(registry.InternalKafkaConfig{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("missing topic should fail")
	}
	p, err := NewKafkaPublisher(registry.InternalKafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil {
		t.Fatalf("NewKafkaPublisher() error = %v", err)
	}
	p.Close()
}
