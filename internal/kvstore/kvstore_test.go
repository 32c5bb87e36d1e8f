package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

func TestMemoryKVStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryKVStore("t:")
	store.Now = func() time.Time { return now }

	if _, err := store.Get(ctx, "a"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(ctx, "a", []byte("1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.BatchSet(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}, 0); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}
	if got, err := store.Get(ctx, "a"); err != nil || string(got) != "1" {
		t.Errorf("Get(a) = %q, %v", got, err)
	}
	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := store.Exists(ctx, "a"); ok {
		t.Error("a should have expired")
	}
	if ok, _ := store.Exists(ctx, "b"); !ok {
		t.Error("b has no ttl and should exist")
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "b"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("Get(deleted) error = %v", err)
	}

	store.Close()
	if err := store.Set(ctx, "d", nil, 0); !errors.Is(err, core.ErrStoreClosed) {
		t.Errorf("Set() after Close error = %v, want ErrStoreClosed", err)
	}
}

// fakeDynamoDB keeps items in memory keyed by the "key" attribute.
type fakeDynamoDB struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	batchCalls  int
	unprocessed int
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(m map[string]types.AttributeValue) string {
	if s, ok := m["key"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamoDB) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamoDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, keyOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// BatchWriteItem leaves the first f.unprocessed requests of the first
// call unprocessed.
func (f *fakeDynamoDB) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++

	out := &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}
	for table, requests := range in.RequestItems {
		for i, req := range requests {
			if f.batchCalls == 1 && i < f.unprocessed {
				out.UnprocessedItems[table] = append(out.UnprocessedItems[table], req)
				continue
			}
			f.items[keyOf(req.PutRequest.Item)] = req.PutRequest.Item
		}
	}
	return out, nil
}

func TestDynamoDBKVStore(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	store := NewDynamoDBKVStoreFromClient(api, "archive", "shop:", 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "users:1", []byte(`{"id":1}`), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok := api.items["shop:users:1"]; !ok {
		t.Fatalf("item not stored under prefixed key: %v", api.items)
	}

	got, err := store.Get(ctx, "users:1")
	if err != nil || string(got) != `{"id":1}` {
		t.Errorf("Get() = %q, %v", got, err)
	}
	if ok, err := store.Exists(ctx, "users:1"); err != nil || !ok {
		t.Errorf("Exists() = %v, %v", ok, err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := store.Get(ctx, "users:1"); !errors.Is(err, core.ErrKeyNotFound) {
		t.Errorf("Get(expired) error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Delete(ctx, "users:1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := store.Exists(ctx, "users:1"); ok {
		t.Error("Exists() after Delete = true")
	}
}

func TestDynamoDBBatchSetRetriesUnprocessed(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamoDB()
	api.unprocessed = 2
	store := NewDynamoDBKVStoreFromClient(api, "archive", "", 3)

	items := make(map[string][]byte)
	for i := 0; i < 30; i++ {
		items[fmt.Sprintf("k%d", i)] = []byte{byte(i)}
	}
	if err := store.BatchSet(ctx, items, 0); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}
	if len(api.items) != 30 {
		t.Errorf("stored %d items, want 30", len(api.items))
	}
	// Two chunks plus one retry for the unprocessed items of the first.
	if api.batchCalls != 3 {
		t.Errorf("BatchWriteItem calls = %d, want 3", api.batchCalls)
	}
}

func TestFactories(t *testing.T) {
	registered := GetRegisteredTypes()
	for _, want := range []string{"dynamodb", "memory", "redis"} {
		if !IsTypeRegistered(want) {
			t.Errorf("type %q not registered (have %v)", want, registered)
		}
		if _, ok := registry.GetValidator(want); !ok {
			t.Errorf("validator %q not registered", want)
		}
	}

	ctx := context.Background()
	if _, err := Create(ctx, registry.InternalKVStoreConfig{Type: "memcached"}); err == nil {
		t.Error("Create(memcached) should fail")
	}
	if _, err := Create(ctx, registry.InternalKVStoreConfig{Type: "redis"}); err == nil {
		t.Error("Create(redis) without endpoints should fail validation")
	}
	if _, err := Create(ctx, registry.InternalKVStoreConfig{Type: "dynamodb", DynamoDBConfig: registry.InternalDynamoDBConfig{Region: "us-east-1"}}); err == nil {
		t.Error("Create(dynamodb) without table should fail validation")
	}

	store, err := Create(ctx, registry.InternalKVStoreConfig{Type: "memory", KeyPrefix: "x:"})
	if err != nil {
		t.Fatalf("Create(memory) error = %v", err)
	}
	defer store.Close()
	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Errorf("Set() error = %v", err)
	}
}

func TestRedisUnreachable(t *testing.T) {
	// Nothing listens on port 1.
	_, err := NewRedisKVStore(context.Background(), registry.InternalKVStoreConfig{
		Type:        "redis",
		RedisConfig: registry.InternalRedisConfig{Endpoints: []string{"127.0.0.1:1"}, PoolSize: 1},
		DialTimeout: time.Second,
	})
	if err == nil {
		t.Fatal("NewRedisKVStore() should fail without a server")
	}
}
