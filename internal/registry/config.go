package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/database"
)

// DefaultDatabase is the connection name tables use when none is configured.
const DefaultDatabase = "default"

// ConfigValidator validates the settings of one key-value store type.
// Store implementations register a validator from init().
type ConfigValidator interface {
	Validate(config *InternalKVStoreConfig) error
	Type() string
}

var (
	validatorRegistry      = make(map[string]ConfigValidator)
	validatorRegistryMutex sync.RWMutex
)

// RegisterValidator registers a key-value store config validator.
// Panics if validator is nil, its type is empty, or the type is taken.
func RegisterValidator(validator ConfigValidator) {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if validator.Type() == "" {
		panic("validator type cannot be empty")
	}

	validatorRegistryMutex.Lock()
	defer validatorRegistryMutex.Unlock()

	if _, exists := validatorRegistry[validator.Type()]; exists {
		panic(fmt.Sprintf("validator for type %q is already registered", validator.Type()))
	}
	validatorRegistry[validator.Type()] = validator
}

// GetValidator retrieves a validator by type.
func GetValidator(validatorType string) (ConfigValidator, bool) {
	validatorRegistryMutex.RLock()
	defer validatorRegistryMutex.RUnlock()
	validator, exists := validatorRegistry[validatorType]
	return validator, exists
}

// ConfigManager loads configuration from files, raw data or the environment.
type ConfigManager struct {
	config *InternalConfig
}

// NewConfigManager creates a manager holding the default configuration.
func NewConfigManager() *ConfigManager {
	config := defaultInternalConfig()
	applyDefaults(config)
	return &ConfigManager{config: config}
}

// NewConfigManagerFrom wraps an already built configuration after
// filling defaults and validating it.
func NewConfigManagerFrom(config *InternalConfig) (*ConfigManager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	cm := &ConfigManager{}
	applyDefaults(config)
	if err := cm.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = config
	return cm, nil
}

func defaultInternalConfig() *InternalConfig {
	return &InternalConfig{
		Databases:  make(map[string]core.DatabaseConfig),
		Components: make(map[string]InternalTableConfig),
		Tables:     make(map[string]InternalTableConfig),
	}
}

// defaultDatabaseConfig is used when the configuration names no database.
func defaultDatabaseConfig() core.DatabaseConfig {
	return core.DatabaseConfig{
		Type: database.DefaultType,
		Host: "localhost",
		Port: 3306,
	}
}

// applyDefaults fills every zero setting that has a sensible default.
func applyDefaults(config *InternalConfig) {
	if config.Databases == nil {
		config.Databases = make(map[string]core.DatabaseConfig)
	}
	if len(config.Databases) == 0 {
		config.Databases[DefaultDatabase] = defaultDatabaseConfig()
	}
	for name, db := range config.Databases {
		if db.Type == "" {
			db.Type = database.DefaultType
		}
		if db.Type == "mysql" {
			if db.Port == 0 {
				db.Port = 3306
			}
			if db.MaxOpenConns == 0 {
				db.MaxOpenConns = 25
			}
			if db.MaxIdleConns == 0 {
				db.MaxIdleConns = 5
			}
			if db.ConnMaxLifetime == 0 {
				db.ConnMaxLifetime = 5 * time.Minute
			}
			if db.ConnMaxIdleTime == 0 {
				db.ConnMaxIdleTime = 10 * time.Minute
			}
		}
		if db.ConnectionTimeout == 0 {
			db.ConnectionTimeout = 10 * time.Second
		}
		config.Databases[name] = db
	}
	if config.Components == nil {
		config.Components = make(map[string]InternalTableConfig)
	}
	if config.Tables == nil {
		config.Tables = make(map[string]InternalTableConfig)
	}

	applyKVDefaults(&config.Cache)
	applyKVDefaults(&config.Archive)

	if config.Audit.Enabled() {
		if config.Audit.BatchSize == 0 {
			config.Audit.BatchSize = 100
		}
		if config.Audit.BatchTimeout == 0 {
			config.Audit.BatchTimeout = 10 * time.Millisecond
		}
		if config.Audit.WriteTimeout == 0 {
			config.Audit.WriteTimeout = 10 * time.Second
		}
		if config.Audit.RequiredAcks == 0 {
			config.Audit.RequiredAcks = -1
		}
	}

	if config.Throttle.Rate > 0 && config.Throttle.Burst == 0 {
		config.Throttle.Burst = 1
	}
}

func applyKVDefaults(kv *InternalKVStoreConfig) {
	if kv.Type == "" {
		return
	}
	if kv.Type == "redis" {
		if len(kv.RedisConfig.Endpoints) == 0 {
			kv.RedisConfig.Endpoints = []string{"localhost:6379"}
		}
		if kv.RedisConfig.PoolSize == 0 {
			kv.RedisConfig.PoolSize = 10
		}
		if kv.RedisConfig.MinIdleConns == 0 {
			kv.RedisConfig.MinIdleConns = 5
		}
	}
	if kv.MaxRetries == 0 {
		kv.MaxRetries = 3
	}
	if kv.DialTimeout == 0 {
		kv.DialTimeout = 5 * time.Second
	}
	if kv.ReadTimeout == 0 {
		kv.ReadTimeout = 3 * time.Second
	}
	if kv.WriteTimeout == 0 {
		kv.WriteTimeout = 3 * time.Second
	}
}

// LoadFromFile loads a .yaml, .yml or .json file.
func (cm *ConfigManager) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		return cm.LoadFromYAML(data)
	case ".json":
		return cm.LoadFromJSON(data)
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
}

// LoadFromYAML loads configuration from YAML data.
func (cm *ConfigManager) LoadFromYAML(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	return cm.install(config)
}

// LoadFromJSON loads configuration from JSON data.
func (cm *ConfigManager) LoadFromJSON(data []byte) error {
	config := defaultInternalConfig()
	if len(data) > 0 {
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}
	return cm.install(config)
}

// LoadFromEnv configures the default database and the optional stores
// from TABLEKIT_* variables, for example:
//   - TABLEKIT_DB_TYPE=sqlite
//   - TABLEKIT_DB_HOST=localhost
//   - TABLEKIT_DB_PORT=3306
//   - TABLEKIT_CACHE_TYPE=redis
//   - TABLEKIT_CACHE_ENDPOINTS=localhost:6379,localhost:6380
//   - TABLEKIT_AUDIT_BROKERS=localhost:9092
//   - TABLEKIT_THROTTLE_RATE=50
func (cm *ConfigManager) LoadFromEnv() error {
	config := defaultInternalConfig()
	db := defaultDatabaseConfig()

	if val := os.Getenv("TABLEKIT_DB_TYPE"); val != "" {
		db.Type = val
	}
	if val := os.Getenv("TABLEKIT_DB_HOST"); val != "" {
		db.Host = val
	}
	if val := os.Getenv("TABLEKIT_DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			db.Port = port
		}
	}
	if val := os.Getenv("TABLEKIT_DB_USER"); val != "" {
		db.User = val
	}
	if val := os.Getenv("TABLEKIT_DB_PASSWORD"); val != "" {
		db.Password = val
	}
	if val := os.Getenv("TABLEKIT_DB_DATABASE"); val != "" {
		db.Database = val
	}
	if val := os.Getenv("TABLEKIT_DB_PREFIX"); val != "" {
		db.Prefix = val
	}
	if val := os.Getenv("TABLEKIT_DB_STRICT_COLUMNS"); val != "" {
		db.StrictColumns = val == "true" || val == "1"
	}
	config.Databases[DefaultDatabase] = db

	if val := os.Getenv("TABLEKIT_CACHE_TYPE"); val != "" {
		config.Cache.Type = val
	}
	if val := os.Getenv("TABLEKIT_CACHE_ENDPOINTS"); val != "" {
		config.Cache.RedisConfig.Endpoints = strings.Split(val, ",")
	}
	if val := os.Getenv("TABLEKIT_CACHE_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			config.Cache.TTL = ttl
		}
	}
	if val := os.Getenv("TABLEKIT_ARCHIVE_REGION"); val != "" {
		config.Archive.Type = "dynamodb"
		config.Archive.DynamoDBConfig.Region = val
	}
	if val := os.Getenv("TABLEKIT_ARCHIVE_TABLE"); val != "" {
		config.Archive.DynamoDBConfig.TableName = val
	}
	if val := os.Getenv("TABLEKIT_AUDIT_BROKERS"); val != "" {
		config.Audit.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("TABLEKIT_AUDIT_TOPIC"); val != "" {
		config.Audit.Topic = val
	}
	if val := os.Getenv("TABLEKIT_THROTTLE_RATE"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			config.Throttle.Rate = rate
		}
	}
	if val := os.Getenv("TABLEKIT_THROTTLE_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil {
			config.Throttle.Burst = burst
		}
	}

	return cm.install(config)
}

func (cm *ConfigManager) install(config *InternalConfig) error {
	applyDefaults(config)
	if err := cm.validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cm.config = config
	return nil
}

// GetConfig returns the current configuration.
func (cm *ConfigManager) GetConfig() *InternalConfig {
	return cm.config
}

// GetDatabaseConfig returns the settings of a named connection.
func (cm *ConfigManager) GetDatabaseConfig(name string) (core.DatabaseConfig, bool) {
	db, ok := cm.config.Databases[name]
	return db, ok
}

// GetTableConfig returns the explicit settings for id and the defaults of
// its component. Either may be empty.
func (cm *ConfigManager) GetTableConfig(id core.Identifier) (table, component InternalTableConfig) {
	return cm.config.Tables[id.Key()], cm.config.Components[id.Component]
}

// validateConfig checks every section. Database and key-value store
// settings are checked by the strategy registered for their type.
func (cm *ConfigManager) validateConfig(config *InternalConfig) error {
	if len(config.Databases) == 0 {
		return fmt.Errorf("at least one database is required")
	}

	names := make([]string, 0, len(config.Databases))
	for name := range config.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		db := config.Databases[name]
		factory, err := database.Lookup(db.Type)
		if err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
		if err := factory.Validate(db); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}

	for key, table := range config.Tables {
		if _, err := core.ParseIdentifier(key); err != nil {
			return fmt.Errorf("tables.%s: key must be component.name", key)
		}
		if err := checkTableDB(config, table); err != nil {
			return fmt.Errorf("tables.%s: %w", key, err)
		}
	}
	for key, component := range config.Components {
		if err := checkTableDB(config, component); err != nil {
			return fmt.Errorf("components.%s: %w", key, err)
		}
	}

	if err := validateKVStore("cache", &config.Cache); err != nil {
		return err
	}
	if err := validateKVStore("archive", &config.Archive); err != nil {
		return err
	}

	if len(config.Audit.Brokers) > 0 && config.Audit.Topic == "" {
		return fmt.Errorf("audit.topic is required when audit.brokers is set")
	}
	if config.Audit.Topic != "" && len(config.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers is required when audit.topic is set")
	}

	if config.Throttle.Rate < 0 {
		return fmt.Errorf("throttle.rate must be non-negative")
	}
	if config.Throttle.Burst < 0 {
		return fmt.Errorf("throttle.burst must be non-negative")
	}
	return nil
}

func checkTableDB(config *InternalConfig, table InternalTableConfig) error {
	if table.DB == "" {
		return nil
	}
	if _, ok := config.Databases[table.DB]; !ok {
		return fmt.Errorf("unknown database %q", table.DB)
	}
	return nil
}

func validateKVStore(section string, kv *InternalKVStoreConfig) error {
	if kv.Type == "" {
		return nil
	}
	validator, exists := GetValidator(kv.Type)
	if !exists {
		return fmt.Errorf("%s: unsupported KV store type: %s", section, kv.Type)
	}
	if err := validator.Validate(kv); err != nil {
		return fmt.Errorf("%s validation failed: %w", section, err)
	}
	return nil
}
