package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
)

const (
	CacheableName  = "cacheable"
	ArchivableName = "archivable"
)

// Cacheable keeps a JSON copy of each row keyed by table and id. Rows
// are cached when read or inserted and evicted when updated or deleted.
// Selected records missing any of the table's fields are not cached.
type Cacheable struct {
	store core.KVStore
	ttl   time.Duration
}

func NewCacheable(store core.KVStore, ttl time.Duration) *Cacheable {
	return &Cacheable{store: store, ttl: ttl}
}

func (b *Cacheable) Name() string { return CacheableName }

func (b *Cacheable) AfterSelect(ctx context.Context, c *chain.Context) error {
	items := make(map[string][]byte)
	add := func(data core.Record) error {
		key := rowKey(c.Table, data)
		if key == "" || !covers(data, c.Fields) {
			return nil
		}
		value, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		items[key] = value
		return nil
	}

	if c.Data != nil {
		if err := add(c.Data); err != nil {
			return err
		}
	}
	for _, rec := range c.Rows {
		if err := add(rec); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}
	return b.store.BatchSet(ctx, items, b.ttl)
}

func covers(data core.Record, fields []string) bool {
	for _, field := range fields {
		if _, ok := data[field]; !ok {
			return false
		}
	}
	return true
}

func (b *Cacheable) AfterInsert(ctx context.Context, c *chain.Context) error {
	key := rowKey(c.Table, c.Data)
	if key == "" {
		return nil
	}
	value, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return b.store.Set(ctx, key, value, b.ttl)
}

func (b *Cacheable) AfterUpdate(ctx context.Context, c *chain.Context) error {
	return b.evict(ctx, c)
}

func (b *Cacheable) AfterDelete(ctx context.Context, c *chain.Context) error {
	return b.evict(ctx, c)
}

func (b *Cacheable) evict(ctx context.Context, c *chain.Context) error {
	if key := rowKey(c.Table, c.Data); key != "" {
		return b.store.Delete(ctx, key)
	}
	return nil
}

// Lookup returns the cached row for id in tableName. A miss is
// (nil, false, nil).
func (b *Cacheable) Lookup(ctx context.Context, tableName string, id interface{}) (core.Record, bool, error) {
	value, err := b.store.Get(ctx, fmt.Sprintf("%s:%v", tableName, id))
	if errors.Is(err, core.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec core.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		log.Printf("[CACHE] WARNING: Dropping undecodable entry %s:%v: %v", tableName, id, err)
		return nil, false, nil
	}
	return rec, true, nil
}

// ArchivedRow is what Archivable stores for a deleted row.
type ArchivedRow struct {
	Table     string      `json:"table"`
	Data      core.Record `json:"data"`
	DeletedAt time.Time   `json:"deleted_at"`
}

// Archivable copies every deleted row into a key-value store.
type Archivable struct {
	store core.KVStore
	now   func() time.Time
}

func NewArchivable(store core.KVStore, now func() time.Time) *Archivable {
	return &Archivable{store: store, now: now}
}

func (b *Archivable) Name() string { return ArchivableName }

func (b *Archivable) AfterDelete(ctx context.Context, c *chain.Context) error {
	key := rowKey(c.Table, c.Data)
	if key == "" {
		log.Printf("[ARCHIVE] WARNING: Row deleted from %s without an id, not archived", c.Table)
		return nil
	}
	value, err := json.Marshal(ArchivedRow{Table: c.Table, Data: c.Data, DeletedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return b.store.Set(ctx, key, value, 0)
}

// Restore returns the archived copy of a deleted row.
func (b *Archivable) Restore(ctx context.Context, tableName string, id interface{}) (*ArchivedRow, error) {
	value, err := b.store.Get(ctx, fmt.Sprintf("%s:%v", tableName, id))
	if err != nil {
		return nil, err
	}
	var row ArchivedRow
	if err := json.Unmarshal(value, &row); err != nil {
		return nil, fmt.Errorf("failed to decode archived row: %w", err)
	}
	return &row, nil
}
