package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

// RedisKVStore implements core.KVStore on a single Redis node.
type RedisKVStore struct {
	client *redis.Client
	prefix string

	mu     sync.RWMutex
	closed bool
}

// NewRedisKVStore connects to the first configured endpoint and pings it.
func NewRedisKVStore(ctx context.Context, config registry.InternalKVStoreConfig) (*RedisKVStore, error) {
	rc := config.RedisConfig
	if len(rc.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}

	// TODO: Add cluster support via redis.NewClusterClient when more than one endpoint is set.
	client := redis.NewClient(&redis.Options{
		Addr:         rc.Endpoints[0],
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[REDIS] Connected to %s (db %d)", rc.Endpoints[0], rc.DB)
	return NewRedisKVStoreFromClient(client, config.KeyPrefix), nil
}

// NewRedisKVStoreFromClient wraps an existing client.
func NewRedisKVStoreFromClient(client *redis.Client, prefix string) *RedisKVStore {
	return &RedisKVStore{client: client, prefix: prefix}
}

func (r *RedisKVStore) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Get retrieves a value by key from the store.
func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if r.isClosed() {
		return nil, core.ErrStoreClosed
	}

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	if err != nil {
		log.Printf("[REDIS] ERROR: Failed to get key %s: %v", key, err)
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

// Set stores a key-value pair. A zero ttl means no expiration.
func (r *RedisKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if r.isClosed() {
		return core.ErrStoreClosed
	}

	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		log.Printf("[REDIS] ERROR: Failed to set key %s: %v", key, err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from the store.
func (r *RedisKVStore) Delete(ctx context.Context, key string) error {
	if r.isClosed() {
		return core.ErrStoreClosed
	}

	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists in the store.
func (r *RedisKVStore) Exists(ctx context.Context, key string) (bool, error) {
	if r.isClosed() {
		return false, core.ErrStoreClosed
	}

	count, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check existence of key %s: %w", key, err)
	}
	return count > 0, nil
}

// BatchSet stores every item in one pipeline with a shared TTL.
func (r *RedisKVStore) BatchSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if r.isClosed() {
		return core.ErrStoreClosed
	}
	if len(items) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for key, value := range items {
		pipe.Set(ctx, r.prefix+key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to batch set keys: %w", err)
	}
	return nil
}

// Close closes the client. Safe to call more than once.
func (r *RedisKVStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

// GetClient returns the underlying Redis client for advanced operations.
func (r *RedisKVStore) GetClient() *redis.Client {
	return r.client
}

// RedisKVStoreFactory creates Redis stores.
type RedisKVStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *RedisKVStoreFactory) Type() string {
	return "redis"
}

// Validate validates the Redis-specific configuration.
func (f *RedisKVStoreFactory) Validate(config *registry.InternalKVStoreConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.Type != "redis" {
		return fmt.Errorf("invalid type for Redis validator: %s", config.Type)
	}

	rc := config.RedisConfig
	if len(rc.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required for Redis")
	}
	// Redis supports databases 0-15.
	if rc.DB < 0 || rc.DB > 15 {
		return fmt.Errorf("Redis DB must be between 0 and 15, got: %d", rc.DB)
	}
	if rc.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be greater than 0, got: %d", rc.PoolSize)
	}
	if rc.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns must be non-negative, got: %d", rc.MinIdleConns)
	}
	return validateCommon(config)
}

// Create opens a Redis store.
func (f *RedisKVStoreFactory) Create(ctx context.Context, config registry.InternalKVStoreConfig) (core.KVStore, error) {
	store, err := NewRedisKVStore(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis KV store: %w", err)
	}
	return store, nil
}

func init() {
	RegisterFactory(&RedisKVStoreFactory{})
}
