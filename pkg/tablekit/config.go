package tablekit

import (
	"fmt"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/registry"
)

// Config is the root configuration for a Client.
//
//	databases:
//	  default:
//	    type: mysql
//	    host: localhost
//	    database: shop
//	    prefix: app_
//	tables:
//	  shop.user:
//	    identity_column: user_id
//	    column_map: {mail: email}
//	    behaviors: [timestampable, persisted, cacheable]
//	cache:
//	  type: redis
//	  ttl: 10m
type Config = registry.InternalConfig

type (
	// DatabaseConfig configures one named connection.
	DatabaseConfig = core.DatabaseConfig

	// TableConfig configures one table, or every table of a component.
	TableConfig = registry.InternalTableConfig

	// KVStoreConfig configures the cache or archive store.
	KVStoreConfig = registry.InternalKVStoreConfig

	// KafkaConfig configures the audit change log.
	KafkaConfig = registry.InternalKafkaConfig

	// ThrottleConfig limits table operations per second.
	ThrottleConfig = registry.InternalThrottleConfig
)

// DefaultConfig returns a configuration with a single local MySQL
// connection named "default".
func DefaultConfig() *Config {
	return registry.NewConfigManager().GetConfig()
}

// LoadConfig reads a .yaml, .yml or .json configuration file.
func LoadConfig(path string) (*Config, error) {
	cm := registry.NewConfigManager()
	if err := cm.LoadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cm.GetConfig(), nil
}

// LoadConfigFromEnv builds the configuration from TABLEKIT_* variables.
func LoadConfigFromEnv() (*Config, error) {
	cm := registry.NewConfigManager()
	if err := cm.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	return cm.GetConfig(), nil
}
