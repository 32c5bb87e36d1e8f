// Package tablekit is the entry point for applications: it turns a
// Config into connections, shared stores and cached tables.
package tablekit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/tablekit/internal/behavior"
	"github.com/rzpsarthak13/tablekit/internal/changefeed"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/kvstore"
	"github.com/rzpsarthak13/tablekit/internal/registry"
	"github.com/rzpsarthak13/tablekit/internal/table"
)

var (
	// ErrClientClosed is returned by every method after Close.
	ErrClientClosed = errors.New("client is closed")

	// ErrNotFound is returned by Get when no row has the id.
	ErrNotFound = errors.New("row not found")

	// ErrNoArchive is returned by Restore when no archive store is configured.
	ErrNoArchive = errors.New("no archive store configured")
)

// Client resolves tables by "component.name" and owns the connections,
// stores and publisher they share.
//
// Typical usage:
//
//	client, _ := tablekit.NewClient(ctx, config)
//	defer client.Close()
//
//	users, _ := client.Table(ctx, "shop.user")
//	row, _ := users.NewRow(ctx, tablekit.Record{"name": "Ada"})
//	row.Save(ctx)
type Client interface {
	// Table returns the table for name. Without options the table is
	// built once and cached; options rebuild it and replace the cached one.
	Table(ctx context.Context, name string, opts ...TableOption) (*Table, error)

	// Get returns the row whose id is id, reading the cache first when
	// one is configured.
	Get(ctx context.Context, name string, id interface{}) (Record, error)

	// Restore returns an archived copy of a deleted row.
	Restore(ctx context.Context, name string, id interface{}) (*ArchivedRow, error)

	// Tables lists the cached tables.
	Tables() []string

	// Close releases every connection, store and publisher.
	Close() error
}

type client struct {
	mu        sync.RWMutex
	configMgr *registry.ConfigManager
	adapters  *registry.Adapters
	tables    *registry.TableRegistry
	deps      behavior.Deps
	closed    bool
}

// NewClient validates config and opens the configured stores. Database
// connections are opened lazily by the first table that uses them.
func NewClient(ctx context.Context, config *Config) (Client, error) {
	configMgr, err := registry.NewConfigManagerFrom(config)
	if err != nil {
		return nil, err
	}
	c, err := newClient(ctx, configMgr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientFromFile loads the configuration file at path and creates a client.
func NewClientFromFile(ctx context.Context, path string) (Client, error) {
	configMgr := registry.NewConfigManager()
	if err := configMgr.LoadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c, err := newClient(ctx, configMgr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(ctx context.Context, configMgr *registry.ConfigManager) (*client, error) {
	c := &client{
		configMgr: configMgr,
		adapters:  registry.NewAdapters(nil),
	}
	c.tables = registry.NewTableRegistry(func(ctx context.Context, id core.Identifier) (*table.Table, error) {
		return c.build(ctx, id)
	})

	if err := c.initializeStores(ctx); err != nil {
		c.closeStores()
		return nil, err
	}
	return c, nil
}

// initializeStores creates the shared dependencies of the behaviors.
func (c *client) initializeStores(ctx context.Context) error {
	config := c.configMgr.GetConfig()

	if config.Cache.Type != "" {
		store, err := kvstore.Create(ctx, config.Cache)
		if err != nil {
			return fmt.Errorf("failed to create cache store: %w", err)
		}
		c.deps.Cache = store
		c.deps.CacheTTL = config.Cache.TTL
	}

	if config.Archive.Type != "" {
		store, err := kvstore.Create(ctx, config.Archive)
		if err != nil {
			return fmt.Errorf("failed to create archive store: %w", err)
		}
		c.deps.Archive = store
	}

	if config.Audit.Enabled() {
		publisher, err := changefeed.NewKafkaPublisher(config.Audit)
		if err != nil {
			return fmt.Errorf("failed to create audit publisher: %w", err)
		}
		c.deps.Publisher = publisher
	}

	if config.Throttle.Rate > 0 {
		c.deps.Limiter = rate.NewLimiter(rate.Limit(config.Throttle.Rate), config.Throttle.Burst)
	}
	return nil
}

// build creates the table for id from its configuration plus opts.
func (c *client) build(ctx context.Context, id core.Identifier, opts ...TableOption) (*table.Table, error) {
	tableCfg, componentCfg := c.configMgr.GetTableConfig(id)
	for _, opt := range opts {
		opt(&tableCfg)
	}

	behaviors, err := behavior.Build(tableCfg.Behaviors, c.deps)
	if err != nil {
		return nil, err
	}
	defaults, err := behavior.Build(componentCfg.Behaviors, c.deps)
	if err != nil {
		return nil, err
	}

	return table.New(ctx, id, table.Config{
		DB:             tableCfg.DB,
		Name:           tableCfg.Name,
		IdentityColumn: tableCfg.IdentityColumn,
		ColumnMap:      tableCfg.ColumnMap,
		Behaviors:      behaviors,
	}, table.Options{
		Adapters:  c.adapters,
		Databases: c.configMgr.GetConfig().Databases,
		Defaults: table.Config{
			DB:             componentCfg.DB,
			Name:           componentCfg.Name,
			IdentityColumn: componentCfg.IdentityColumn,
			ColumnMap:      componentCfg.ColumnMap,
			Behaviors:      defaults,
		},
	})
}

func (c *client) Table(ctx context.Context, name string, opts ...TableOption) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}

	id, err := core.ParseIdentifier(name)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return c.tables.Get(ctx, id)
	}

	t, err := c.build(ctx, id, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table %q: %w", id.Key(), err)
	}
	c.tables.Register(id, t)
	log.Printf("[CLIENT] Rebuilt table %s with %d option(s)", id.Key(), len(opts))
	return t, nil
}

func (c *client) Get(ctx context.Context, name string, id interface{}) (Record, error) {
	t, err := c.Table(ctx, name)
	if err != nil {
		return nil, err
	}

	if c.deps.Cache != nil {
		rec, ok, err := behavior.NewCacheable(c.deps.Cache, c.deps.CacheTTL).Lookup(ctx, t.Name(), id)
		if err != nil {
			log.Printf("[CLIENT] WARNING: Cache lookup for %s:%v failed, reading the database: %v", t.Name(), id, err)
		} else if ok {
			return rec, nil
		}
	}

	rows, err := t.Find(ctx, Record{table.IDField: id})
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, fmt.Errorf("%w: %s id %v", ErrNotFound, name, id)
	}
	return rows.Data()[0], nil
}

func (c *client) Restore(ctx context.Context, name string, id interface{}) (*ArchivedRow, error) {
	if c.deps.Archive == nil {
		return nil, ErrNoArchive
	}
	t, err := c.Table(ctx, name)
	if err != nil {
		return nil, err
	}
	return behavior.NewArchivable(c.deps.Archive, nil).Restore(ctx, t.Name(), id)
}

func (c *client) Tables() []string {
	return c.tables.List()
}

// Close is safe to call more than once.
func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.tables.Clear()
	return errors.Join(c.adapters.CloseAll(), c.closeStores())
}

func (c *client) closeStores() error {
	var errs []error
	if c.deps.Cache != nil {
		if err := c.deps.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache store: %w", err))
		}
	}
	if c.deps.Archive != nil {
		if err := c.deps.Archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close archive store: %w", err))
		}
	}
	if c.deps.Publisher != nil {
		if err := c.deps.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
