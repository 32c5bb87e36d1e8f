package kvstore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

// maxBatchSize is the BatchWriteItem limit.
const maxBatchSize = 25

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDBKVStore implements core.KVStore on a DynamoDB table whose
// partition key is the string attribute "key".
type DynamoDBKVStore struct {
	client     DynamoDBAPI
	tableName  string
	prefix     string
	maxRetries int
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
}

// DynamoDBItem is the stored item shape. TTL is epoch seconds, matching
// DynamoDB's native expiry attribute.
type DynamoDBItem struct {
	Key       string    `dynamodbav:"key"`
	Value     []byte    `dynamodbav:"value"`
	TTL       *int64    `dynamodbav:"ttl,omitempty"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

func (i DynamoDBItem) expired(now time.Time) bool {
	return i.TTL != nil && now.Unix() > *i.TTL
}

// NewDynamoDBKVStore loads AWS config, builds a client and checks the
// table exists.
func NewDynamoDBKVStore(ctx context.Context, cfg registry.InternalKVStoreConfig) (*DynamoDBKVStore, error) {
	dc := cfg.DynamoDBConfig
	if dc.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if dc.TableName == "" {
		return nil, fmt.Errorf("table name is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(dc.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if dc.AccessKeyID != "" && dc.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(dc.AccessKeyID, dc.SecretAccessKey, "")
	}

	var clientOptions []func(*dynamodb.Options)
	if dc.Endpoint != "" {
		// Custom endpoint, e.g. LocalStack.
		clientOptions = append(clientOptions, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(dc.Endpoint)
		})
	}
	client := dynamodb.NewFromConfig(awsCfg, clientOptions...)

	describeCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if _, err := client.DescribeTable(describeCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(dc.TableName),
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to DynamoDB table %s: %w", dc.TableName, err)
	}

	log.Printf("[DYNAMODB] Connected to table %s in %s", dc.TableName, dc.Region)
	return NewDynamoDBKVStoreFromClient(client, dc.TableName, cfg.KeyPrefix, cfg.MaxRetries), nil
}

// NewDynamoDBKVStoreFromClient wraps an existing client.
func NewDynamoDBKVStoreFromClient(client DynamoDBAPI, tableName, prefix string, maxRetries int) *DynamoDBKVStore {
	return &DynamoDBKVStore{
		client:     client,
		tableName:  tableName,
		prefix:     prefix,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (d *DynamoDBKVStore) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

func (d *DynamoDBKVStore) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: d.prefix + key},
	}
}

func (d *DynamoDBKVStore) item(key string, value []byte, ttl time.Duration) (map[string]types.AttributeValue, error) {
	now := d.now().UTC()
	it := DynamoDBItem{Key: d.prefix + key, Value: value, CreatedAt: now}
	if ttl > 0 {
		expires := now.Add(ttl).Unix()
		it.TTL = &expires
	}
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item %s: %w", key, err)
	}
	return av, nil
}

// Get retrieves a value by key. Expired items are reported as missing
// even before DynamoDB removes them.
func (d *DynamoDBKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if d.isClosed() {
		return nil, core.ErrStoreClosed
	}

	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.keyAttr(key),
	})
	if err != nil {
		log.Printf("[DYNAMODB] ERROR: Failed to get key %s: %v", key, err)
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}

	var it DynamoDBItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("invalid value format for key %s: %w", key, err)
	}
	if it.expired(d.now()) {
		return nil, fmt.Errorf("%w: %s", core.ErrKeyNotFound, key)
	}
	return it.Value, nil
}

// Set stores a key-value pair with an optional TTL.
func (d *DynamoDBKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if d.isClosed() {
		return core.ErrStoreClosed
	}

	item, err := d.item(key, value, ttl)
	if err != nil {
		return err
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	}); err != nil {
		log.Printf("[DYNAMODB] ERROR: Failed to set key %s: %v", key, err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from the store.
func (d *DynamoDBKVStore) Delete(ctx context.Context, key string) error {
	if d.isClosed() {
		return core.ErrStoreClosed
	}

	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.keyAttr(key),
	}); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Exists checks if a live key exists in the store.
func (d *DynamoDBKVStore) Exists(ctx context.Context, key string) (bool, error) {
	if d.isClosed() {
		return false, core.ErrStoreClosed
	}

	// "key" and "ttl" are reserved words in projection expressions.
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(d.tableName),
		Key:                  d.keyAttr(key),
		ProjectionExpression: aws.String("#k, #t"),
		ExpressionAttributeNames: map[string]string{
			"#k": "key",
			"#t": "ttl",
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check existence of key %s: %w", key, err)
	}
	if out.Item == nil {
		return false, nil
	}

	var it DynamoDBItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return false, fmt.Errorf("invalid item for key %s: %w", key, err)
	}
	return !it.expired(d.now()), nil
}

// BatchSet writes items in chunks of 25. DynamoDB does not make the
// batch atomic; unprocessed items are retried up to maxRetries times.
func (d *DynamoDBKVStore) BatchSet(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if d.isClosed() {
		return core.ErrStoreClosed
	}
	if len(items) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(items))
	for key, value := range items {
		item, err := d.item(key, value, ttl)
		if err != nil {
			return err
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for start := 0; start < len(requests); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(requests) {
			end = len(requests)
		}
		if err := d.writeBatch(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DynamoDBKVStore) writeBatch(ctx context.Context, batch []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{d.tableName: batch}
	for attempt := 0; ; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to batch set keys: %w", err)
		}
		if len(out.UnprocessedItems[d.tableName]) == 0 {
			return nil
		}
		if attempt >= d.maxRetries {
			return fmt.Errorf("failed to batch set keys: %d items unprocessed after %d attempts",
				len(out.UnprocessedItems[d.tableName]), attempt+1)
		}
		pending = out.UnprocessedItems
	}
}

// Close marks the store closed. The AWS client holds no connection to release.
func (d *DynamoDBKVStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// DynamoDBKVStoreFactory creates DynamoDB stores.
type DynamoDBKVStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *DynamoDBKVStoreFactory) Type() string {
	return "dynamodb"
}

// Validate validates the DynamoDB-specific configuration.
func (f *DynamoDBKVStoreFactory) Validate(config *registry.InternalKVStoreConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if config.Type != "dynamodb" {
		return fmt.Errorf("invalid type for DynamoDB validator: %s", config.Type)
	}
	if config.DynamoDBConfig.Region == "" {
		return fmt.Errorf("region is required for DynamoDB")
	}
	if config.DynamoDBConfig.TableName == "" {
		return fmt.Errorf("table_name is required for DynamoDB")
	}
	return validateCommon(config)
}

// Create opens a DynamoDB store.
func (f *DynamoDBKVStoreFactory) Create(ctx context.Context, config registry.InternalKVStoreConfig) (core.KVStore, error) {
	store, err := NewDynamoDBKVStore(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB KV store: %w", err)
	}
	return store, nil
}

func init() {
	RegisterFactory(&DynamoDBKVStoreFactory{})
}
