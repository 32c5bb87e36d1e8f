package behavior

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/kvstore"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type subject struct{ isNew bool }

func (s *subject) IsNew() bool       { return s.isNew }
func (s *subject) SetNew(isNew bool) { s.isNew = isNew }

type recordingPublisher struct {
	events []*core.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...*core.ChangeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestBuild(t *testing.T) {
	names := Names()
	want := []string{ArchivableName, AuditableName, CacheableName, PersistedName, ThrottledName, TimestampableName}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}

	built, err := Build([]string{TimestampableName, PersistedName}, Deps{Now: clock})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(built) != 2 || built[0].Name() != TimestampableName || built[1].Name() != PersistedName {
		t.Errorf("Build() = %v", built)
	}

	if _, err := Build([]string{"versioned"}, Deps{}); !errors.Is(err, ErrUnknownBehavior) {
		t.Errorf("Build(versioned) error = %v, want ErrUnknownBehavior", err)
	}

	tests := []string{CacheableName, ArchivableName, AuditableName, ThrottledName}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Build([]string{name}, Deps{}); err == nil {
				t.Errorf("Build(%s) without its dependency should fail", name)
			}
		})
	}
}

func TestTimestampable(t *testing.T) {
	ch := chain.New(NewTimestampable(clock))
	ctx := context.Background()
	earlier := fixedNow.Add(-time.Hour)

	c := &chain.Context{Table: "shop_users", Data: core.Record{CreatedField: earlier}}
	if _, err := ch.Run(ctx, chain.BeforeInsert, c); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.Data[CreatedField] != earlier || c.Data[ModifiedField] != fixedNow {
		t.Errorf("insert data = %v", c.Data)
	}

	if _, err := ch.Run(ctx, chain.BeforeUpdate, &chain.Context{Data: c.Data}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.Data[ModifiedField] != fixedNow || c.Data[CreatedField] != earlier {
		t.Errorf("update data = %v", c.Data)
	}
}

func TestPersisted(t *testing.T) {
	s := &subject{isNew: true}
	if _, err := chain.New(Persisted{}).Run(context.Background(), chain.AfterInsert, &chain.Context{Subject: s}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.IsNew() {
		t.Error("row should no longer be new")
	}
}

func TestCacheable(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryKVStore("")
	cache := NewCacheable(store, time.Minute)
	ch := chain.New(cache)

	c := &chain.Context{Table: "shop_users", Rows: []core.Record{
		{"id": int64(1), "name": "A"},
		{"id": int64(2), "name": "B"},
		{"name": "no id"},
	}}
	if _, err := ch.Run(ctx, chain.AfterSelect, c); err != nil {
		t.Fatalf("AfterSelect error = %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("cached %d rows, want 2", store.Len())
	}

	rec, ok, err := cache.Lookup(ctx, "shop_users", 1)
	if err != nil || !ok || rec["name"] != "A" {
		t.Errorf("Lookup(1) = %v, %v, %v", rec, ok, err)
	}

	if _, err := ch.Run(ctx, chain.AfterUpdate, &chain.Context{Table: "shop_users", Data: core.Record{"id": 1}}); err != nil {
		t.Fatalf("AfterUpdate error = %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "shop_users", 1); ok {
		t.Error("update should evict the cached row")
	}

	if _, err := ch.Run(ctx, chain.AfterInsert, &chain.Context{Table: "shop_users", Data: core.Record{"id": int64(3), "name": "C"}}); err != nil {
		t.Fatalf("AfterInsert error = %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "shop_users", 3); !ok {
		t.Error("insert should cache the row")
	}

	if _, err := ch.Run(ctx, chain.AfterDelete, &chain.Context{Table: "shop_users", Data: core.Record{"id": int64(2)}}); err != nil {
		t.Fatalf("AfterDelete error = %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "shop_users", 2); ok {
		t.Error("delete should evict the cached row")
	}
}

func TestCacheableSkipsNarrowSelect(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryKVStore("")
	cache := NewCacheable(store, time.Minute)
	ch := chain.New(cache)

	fields := []string{"id", "name", "email"}
	rowset := &chain.Context{Table: "shop_users", Fields: fields, Rows: []core.Record{
		{"id": int64(1), "name": "A", "email": "a@x"},
		{"id": int64(2), "name": "B"},
	}}
	if _, err := ch.Run(ctx, chain.AfterSelect, rowset); err != nil {
		t.Fatalf("AfterSelect error = %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "shop_users", 1); !ok {
		t.Error("full row should be cached")
	}
	if _, ok, _ := cache.Lookup(ctx, "shop_users", 2); ok {
		t.Error("row missing email should not be cached")
	}

	row := &chain.Context{Table: "shop_users", Fields: fields, Data: core.Record{"id": int64(3), "name": "C"}}
	if _, err := ch.Run(ctx, chain.AfterSelect, row); err != nil {
		t.Fatalf("AfterSelect error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("cached %d rows, want 1", store.Len())
	}
}

func TestArchivable(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryKVStore("archive:")
	archive := NewArchivable(store, clock)

	c := &chain.Context{Table: "shop_users", Data: core.Record{"id": int64(4), "name": "D"}}
	if _, err := chain.New(archive).Run(ctx, chain.AfterDelete, c); err != nil {
		t.Fatalf("AfterDelete error = %v", err)
	}

	row, err := archive.Restore(ctx, "shop_users", 4)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if row.Table != "shop_users" || row.Data["name"] != "D" || !row.DeletedAt.Equal(fixedNow) {
		t.Errorf("Restore() = %+v", row)
	}

	if _, err := archive.Restore(ctx, "shop_users", 5); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("Restore(missing) error = %v", err)
	}
}

func TestAuditable(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	ch := chain.New(NewAuditable(pub, clock))

	data := core.Record{"id": int64(3), "name": "C"}
	for _, event := range []chain.Event{chain.AfterInsert, chain.AfterUpdate, chain.AfterDelete} {
		if _, err := ch.Run(ctx, event, &chain.Context{Table: "shop_users", Data: data}); err != nil {
			t.Fatalf("Run(%s) error = %v", event, err)
		}
	}

	if len(pub.events) != 3 {
		t.Fatalf("published %d events, want 3", len(pub.events))
	}
	ops := []core.ChangeOperation{core.OperationInsert, core.OperationUpdate, core.OperationDelete}
	for i, e := range pub.events {
		if e.Operation != ops[i] || e.Key != int64(3) || e.Table != "shop_users" || !e.Timestamp.Equal(fixedNow) {
			t.Errorf("event %d = %+v", i, e)
		}
	}

	// Events carry a copy of the row.
	data["name"] = "changed"
	if pub.events[0].Data["name"] != "C" {
		t.Error("event data aliases the row")
	}

	pub.err = errors.New("broker down")
	if _, err := ch.Run(ctx, chain.AfterInsert, &chain.Context{Table: "shop_users", Data: data}); !errors.Is(err, pub.err) {
		t.Errorf("Run() error = %v, want publisher error", err)
	}
}

func TestThrottled(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	ch := chain.New(NewThrottled(limiter))

	if _, err := ch.Run(context.Background(), chain.BeforeSelect, &chain.Context{}); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := ch.Run(ctx, chain.BeforeInsert, &chain.Context{}); err == nil {
		t.Error("second call should fail waiting for a token")
	}
}
