package registry

import (
	"time"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

// InternalConfig is the full process configuration.
type InternalConfig struct {
	// Databases maps a logical connection name to its settings.
	// Tables use "default" unless they name another.
	Databases map[string]core.DatabaseConfig `yaml:"databases" json:"databases"`

	// Components holds defaults shared by every table of a component.
	Components map[string]InternalTableConfig `yaml:"components,omitempty" json:"components,omitempty"`

	// Tables holds per-table settings keyed by "component.name".
	Tables map[string]InternalTableConfig `yaml:"tables,omitempty" json:"tables,omitempty"`

	Cache    InternalKVStoreConfig  `yaml:"cache,omitempty" json:"cache,omitempty"`
	Archive  InternalKVStoreConfig  `yaml:"archive,omitempty" json:"archive,omitempty"`
	Audit    InternalKafkaConfig    `yaml:"audit,omitempty" json:"audit,omitempty"`
	Throttle InternalThrottleConfig `yaml:"throttle,omitempty" json:"throttle,omitempty"`
}

// InternalTableConfig configures one table, or every table of a component.
type InternalTableConfig struct {
	DB             string            `yaml:"db,omitempty" json:"db,omitempty"`
	Name           string            `yaml:"name,omitempty" json:"name,omitempty"`
	IdentityColumn string            `yaml:"identity_column,omitempty" json:"identity_column,omitempty"`
	ColumnMap      map[string]string `yaml:"column_map,omitempty" json:"column_map,omitempty"`
	Behaviors      []string          `yaml:"behaviors,omitempty" json:"behaviors,omitempty"`
}

// InternalKVStoreConfig configures a key-value store. An empty Type
// disables the store.
type InternalKVStoreConfig struct {
	Type           string                 `yaml:"type" json:"type"`
	RedisConfig    InternalRedisConfig    `yaml:"redis_config,omitempty" json:"redis_config,omitempty"`
	DynamoDBConfig InternalDynamoDBConfig `yaml:"dynamodb_config,omitempty" json:"dynamodb_config,omitempty"`
	KeyPrefix      string                 `yaml:"key_prefix,omitempty" json:"key_prefix,omitempty"`
	TTL            time.Duration          `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	MaxRetries     int                    `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	DialTimeout    time.Duration          `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`
	ReadTimeout    time.Duration          `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout   time.Duration          `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// InternalRedisConfig contains Redis-specific configuration.
type InternalRedisConfig struct {
	Endpoints    []string `yaml:"endpoints" json:"endpoints"`
	Password     string   `yaml:"password,omitempty" json:"password,omitempty"`
	DB           int      `yaml:"db,omitempty" json:"db,omitempty"`
	PoolSize     int      `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`
	MinIdleConns int      `yaml:"min_idle_conns,omitempty" json:"min_idle_conns,omitempty"`
}

// InternalDynamoDBConfig contains DynamoDB-specific configuration.
type InternalDynamoDBConfig struct {
	Region          string `yaml:"region" json:"region"`
	TableName       string `yaml:"table_name" json:"table_name"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// InternalKafkaConfig configures the audit change log. Auditing is
// enabled when both Brokers and Topic are set.
type InternalKafkaConfig struct {
	Brokers      []string      `yaml:"brokers,omitempty" json:"brokers,omitempty"`
	Topic        string        `yaml:"topic,omitempty" json:"topic,omitempty"`
	BatchSize    int           `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty" json:"batch_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
	RequiredAcks int           `yaml:"required_acks,omitempty" json:"required_acks,omitempty"`
}

// Enabled reports whether audit publishing is configured.
func (k InternalKafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// InternalThrottleConfig limits table operations per second. A zero Rate
// disables throttling.
type InternalThrottleConfig struct {
	Rate  float64 `yaml:"rate,omitempty" json:"rate,omitempty"`
	Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}
