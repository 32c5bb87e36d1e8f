package core

import (
	"context"
	"time"
)

// KVStore is the key-value contract behind the cache and archive behaviors.
type KVStore interface {
	// Get returns ErrKeyNotFound (wrapped) when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	// BatchSet stores several keys with a shared ttl.
	BatchSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	Close() error
}

// ChangeOperation is the kind of row change reported to a ChangePublisher.
type ChangeOperation string

const (
	OperationInsert ChangeOperation = "INSERT"
	OperationUpdate ChangeOperation = "UPDATE"
	OperationDelete ChangeOperation = "DELETE"
)

// ChangeEvent describes one persisted row change.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Operation ChangeOperation `json:"operation"`
	Key       interface{}     `json:"key,omitempty"`
	Data      Record          `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ChangePublisher ships change events to an external log.
type ChangePublisher interface {
	Publish(ctx context.Context, events ...*ChangeEvent) error
	Close() error
}
