// Package kvstore provides the key-value stores behind the cacheable and
// archivable behaviors. Backends register a Factory from init().
package kvstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

// Factory creates one kind of store. Every factory doubles as the
// registry.ConfigValidator for its type.
type Factory interface {
	// Type returns the type identifier, e.g. "redis" or "dynamodb".
	Type() string

	// Validate checks the settings specific to this store type.
	Validate(config *registry.InternalKVStoreConfig) error

	// Create opens a store. Config has already been validated.
	Create(ctx context.Context, config registry.InternalKVStoreConfig) (core.KVStore, error)
}

var (
	factoryRegistry = make(map[string]Factory)
	registryMutex   sync.RWMutex
)

// RegisterFactory registers a store factory and its config validator.
// Panics on a nil factory, an empty type or a duplicate type.
func RegisterFactory(factory Factory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
	registry.RegisterValidator(factory)
}

// Create validates config and opens the store for config.Type.
func Create(ctx context.Context, config registry.InternalKVStoreConfig) (core.KVStore, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("kvstore type is required")
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported KV store type: %s", config.Type)
	}
	if err := factory.Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
	}
	return factory.Create(ctx, config)
}

// GetRegisteredTypes lists registered store types in sorted order.
func GetRegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsTypeRegistered checks if a store type is registered.
func IsTypeRegistered(storeType string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	_, exists := factoryRegistry[storeType]
	return exists
}

func validateCommon(config *registry.InternalKVStoreConfig) error {
	if config.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be greater than 0, got: %v", config.DialTimeout)
	}
	if config.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be greater than 0, got: %v", config.ReadTimeout)
	}
	if config.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be greater than 0, got: %v", config.WriteTimeout)
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got: %d", config.MaxRetries)
	}
	if config.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative, got: %v", config.TTL)
	}
	return nil
}
