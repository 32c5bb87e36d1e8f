package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/database"
)

// OpenFunc opens an adapter for a connection config.
type OpenFunc func(ctx context.Context, cfg core.DatabaseConfig) (core.Adapter, error)

// Adapters caches one adapter per logical connection name. Concurrent
// first requests for the same name share a single connection attempt.
type Adapters struct {
	mu        sync.RWMutex
	instances map[string]core.Adapter
	group     singleflight.Group
	open      OpenFunc
}

// NewAdapters creates an empty registry. A nil open uses database.Open.
func NewAdapters(open OpenFunc) *Adapters {
	if open == nil {
		open = database.Open
	}
	return &Adapters{
		instances: make(map[string]core.Adapter),
		open:      open,
	}
}

// Lookup returns the cached adapter for name, if any.
func (a *Adapters) Lookup(name string) (core.Adapter, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	adapter, ok := a.instances[name]
	return adapter, ok
}

// GetInstance returns the adapter cached under name, opening and caching
// one from cfg when absent.
func (a *Adapters) GetInstance(ctx context.Context, name string, cfg core.DatabaseConfig) (core.Adapter, error) {
	if adapter, ok := a.Lookup(name); ok {
		return adapter, nil
	}

	v, err, _ := a.group.Do(name, func() (interface{}, error) {
		// Another caller may have finished between Lookup and Do.
		if adapter, ok := a.Lookup(name); ok {
			return adapter, nil
		}
		adapter, err := a.open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.instances[name] = adapter
		a.mu.Unlock()
		log.Printf("[REGISTRY] Opened %s adapter %q", typeOrDefault(cfg.Type), name)
		return adapter, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open adapter %q: %w", name, err)
	}
	return v.(core.Adapter), nil
}

// Open always opens a new adapter for name and replaces any cached one,
// closing the old connection.
func (a *Adapters) Open(ctx context.Context, name string, cfg core.DatabaseConfig) (core.Adapter, error) {
	adapter, err := a.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open adapter %q: %w", name, err)
	}

	a.mu.Lock()
	old, existed := a.instances[name]
	a.instances[name] = adapter
	a.mu.Unlock()

	if existed {
		if err := old.Close(); err != nil {
			log.Printf("[REGISTRY] WARNING: Failed to close replaced adapter %q: %v", name, err)
		}
	}
	return adapter, nil
}

// Names lists cached connection names in sorted order.
func (a *Adapters) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.instances))
	for name := range a.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll closes and evicts every cached adapter.
func (a *Adapters) CloseAll() error {
	a.mu.Lock()
	instances := a.instances
	a.instances = make(map[string]core.Adapter)
	a.mu.Unlock()

	var errs []error
	for name, adapter := range instances {
		if err := adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close adapter %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func typeOrDefault(t string) string {
	if t == "" {
		return database.DefaultType
	}
	return t
}
