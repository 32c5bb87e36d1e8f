package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/table"
)

// TableBuilder initializes the table for an identifier.
type TableBuilder func(ctx context.Context, id core.Identifier) (*table.Table, error)

// TableMetadata describes a registered table.
type TableMetadata struct {
	Identifier core.Identifier
	Table      *table.Table
	CreatedAt  time.Time
}

// TableRegistry caches initialized tables by "component.name". Tables
// are built on first use; concurrent first requests share one build.
type TableRegistry struct {
	mu     sync.RWMutex
	tables map[string]*TableMetadata
	group  singleflight.Group
	build  TableBuilder
}

// NewTableRegistry creates an empty registry that builds tables with build.
func NewTableRegistry(build TableBuilder) *TableRegistry {
	return &TableRegistry{
		tables: make(map[string]*TableMetadata),
		build:  build,
	}
}

// Get returns the table for id, building and caching it when absent.
func (tr *TableRegistry) Get(ctx context.Context, id core.Identifier) (*table.Table, error) {
	key := id.Key()
	if t, ok := tr.Lookup(id); ok {
		return t, nil
	}
	if tr.build == nil {
		return nil, fmt.Errorf("table %q is not registered", key)
	}

	v, err, _ := tr.group.Do(key, func() (interface{}, error) {
		if t, ok := tr.Lookup(id); ok {
			return t, nil
		}
		t, err := tr.build(ctx, id)
		if err != nil {
			return nil, err
		}
		tr.Register(id, t)
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table %q: %w", key, err)
	}
	return v.(*table.Table), nil
}

// Lookup returns the cached table for id without building it.
func (tr *TableRegistry) Lookup(id core.Identifier) (*table.Table, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	metadata, ok := tr.tables[id.Key()]
	if !ok {
		return nil, false
	}
	return metadata.Table, true
}

// Register caches t under id, replacing any previous table.
func (tr *TableRegistry) Register(id core.Identifier, t *table.Table) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tables[id.Key()] = &TableMetadata{Identifier: id, Table: t, CreatedAt: time.Now()}
}

// GetMetadata returns a copy of the metadata for id.
func (tr *TableRegistry) GetMetadata(id core.Identifier) (*TableMetadata, error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	metadata, ok := tr.tables[id.Key()]
	if !ok {
		return nil, fmt.Errorf("table %q is not registered", id.Key())
	}
	out := *metadata
	return &out, nil
}

// Unregister drops the cached table for id. The next Get rebuilds it.
func (tr *TableRegistry) Unregister(id core.Identifier) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.tables, id.Key())
}

// List returns the keys of every cached table in sorted order.
func (tr *TableRegistry) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	names := make([]string, 0, len(tr.tables))
	for name := range tr.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of cached tables.
func (tr *TableRegistry) Count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.tables)
}

// Clear drops every cached table.
func (tr *TableRegistry) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.tables = make(map[string]*TableMetadata)
}
