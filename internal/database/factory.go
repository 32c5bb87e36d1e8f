package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

// DefaultType is used when a connection config names no adapter type.
const DefaultType = "mysql"

// AdapterFactory opens adapters for one backend type. Implementations
// register themselves from init().
type AdapterFactory interface {
	// Type returns the identifier used in configuration ("mysql", "sqlite").
	Type() string

	// Validate checks the backend specific parts of cfg.
	Validate(cfg core.DatabaseConfig) error

	// Open connects and returns a ready adapter. Connection failures are
	// reported as *core.ConnectionError.
	Open(ctx context.Context, cfg core.DatabaseConfig) (core.Adapter, error)
}

var (
	factoryRegistry = make(map[string]AdapterFactory)
	registryMutex   sync.RWMutex
)

// RegisterFactory makes an adapter type available to Open.
func RegisterFactory(factory AdapterFactory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("adapter factory for type %q is already registered", factory.Type()))
	}
	factoryRegistry[factory.Type()] = factory
}

// Lookup returns the factory registered for typ. An empty typ means DefaultType.
func Lookup(typ string) (AdapterFactory, error) {
	if typ == "" {
		typ = DefaultType
	}
	registryMutex.RLock()
	factory, exists := factoryRegistry[typ]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAdapter, typ)
	}
	return factory, nil
}

// Open validates cfg and opens an adapter of cfg.Type.
func Open(ctx context.Context, cfg core.DatabaseConfig) (core.Adapter, error) {
	factory, err := Lookup(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := factory.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", factory.Type(), err)
	}
	return factory.Open(ctx, cfg)
}

// RegisteredTypes lists the adapter types in sorted order.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// IsTypeRegistered reports whether an adapter type is available.
func IsTypeRegistered(typ string) bool {
	_, err := Lookup(typ)
	return err == nil
}
