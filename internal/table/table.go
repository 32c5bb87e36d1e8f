// Package table maps one logical entity onto a backend table.
//
// A Table resolves its adapter by connection name, derives its physical
// name and identity column once at construction, renames fields through
// its column map, and wraps every select, insert, update and delete in
// the before/after events of its command chain.
package table

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jinzhu/inflection"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/filter"
)

// DefaultDB is the connection name used when neither the table nor its
// component names one.
const DefaultDB = "default"

// IDField is the external field that always aliases the identity column.
const IDField = "id"

var (
	ErrInvalidMode   = errors.New("invalid select mode")
	ErrRowDeleted    = errors.New("row has been deleted")
	ErrForeignRow    = errors.New("row belongs to another table")
	ErrUnknownDB     = errors.New("unknown database connection")
	ErrNoAdapterPool = errors.New("no adapter source configured")
)

// AdapterSource hands out adapters by logical connection name.
type AdapterSource interface {
	GetInstance(ctx context.Context, name string, cfg core.DatabaseConfig) (core.Adapter, error)
}

// Config is the per-table configuration. Zero fields fall back to the
// component defaults in Options.
type Config struct {
	DB             string
	Name           string
	IdentityColumn string
	ColumnMap      map[string]string
	Behaviors      []chain.Behavior
}

// Options carries the collaborators a table needs.
type Options struct {
	Adapters  AdapterSource
	Databases map[string]core.DatabaseConfig

	// Defaults is the component level configuration.
	Defaults Config

	// Pluralize derives the default table name. Defaults to inflection.Plural.
	Pluralize func(string) string

	// Filters defaults to filter.NewRegistry().
	Filters *filter.Registry
}

// Table is one initialized logical table. It is safe for concurrent use.
type Table struct {
	id          core.Identifier
	name        string
	db          string
	dbConfig    core.DatabaseConfig
	adapterKind string
	adapters    AdapterSource
	filters     *filter.Registry
	chain       *chain.Chain

	columnMap map[string]string
	inverse   map[string]string

	mu               sync.Mutex
	identityColumn   string
	identityResolved bool

	// fields are the external column names as of New.
	fields []string
}

// New initializes the table for id: it resolves the connection, derives
// the physical name, verifies the table exists and fixes the identity column.
func New(ctx context.Context, id core.Identifier, cfg Config, opts Options) (*Table, error) {
	if opts.Adapters == nil {
		return nil, ErrNoAdapterPool
	}

	db := firstNonEmpty(cfg.DB, opts.Defaults.DB, DefaultDB)
	dbConfig, ok := opts.Databases[db]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDB, db)
	}

	pluralize := opts.Pluralize
	if pluralize == nil {
		pluralize = inflection.Plural
	}
	filters := opts.Filters
	if filters == nil {
		filters = filter.NewRegistry()
	}

	behaviors := cfg.Behaviors
	if len(behaviors) == 0 {
		behaviors = opts.Defaults.Behaviors
	}

	columnMap := cfg.ColumnMap
	if len(columnMap) == 0 {
		columnMap = opts.Defaults.ColumnMap
	}

	t := &Table{
		id:          id,
		db:          db,
		dbConfig:    dbConfig,
		adapterKind: firstNonEmpty(dbConfig.Type, "mysql"),
		adapters:    opts.Adapters,
		filters:     filters,
		chain:       chain.New(behaviors...),
		columnMap:   make(map[string]string, len(columnMap)+1),
	}
	for field, column := range columnMap {
		t.columnMap[field] = column
	}

	if explicit := firstNonEmpty(cfg.IdentityColumn, opts.Defaults.IdentityColumn); explicit != "" {
		t.identityColumn = explicit
		t.identityResolved = true
	}

	t.name = dbConfig.Prefix + firstNonEmpty(cfg.Name, opts.Defaults.Name, id.Component+"_"+pluralize(id.Name))

	schema, err := t.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize table %s: %w", t.name, err)
	}

	if !t.identityResolved {
		t.identityColumn = identityFrom(schema.Columns)
		t.identityResolved = true
	}
	if _, ok := t.columnMap[IDField]; !ok && t.identityColumn != "" {
		t.columnMap[IDField] = t.identityColumn
	}
	t.inverse = invert(t.columnMap)
	t.fields = t.MapColumnSet(schema.Columns, true).Keys()

	log.Printf("[TABLE] Initialized %s as %s (adapter: %s, db: %s, identity: %q, behaviors: %v)",
		id, t.name, t.AdapterID(), db, t.identityColumn, t.chain.Names())
	return t, nil
}

// invert builds the physical -> external map. The id alias wins so the
// identity column reads back under the field inserts write InsertID to;
// among explicit entries the first field name in sorted order wins.
func invert(m map[string]string) map[string]string {
	fields := make([]string, 0, len(m))
	for field := range m {
		if field != IDField {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	if _, ok := m[IDField]; ok {
		fields = append([]string{IDField}, fields...)
	}

	inverse := make(map[string]string, len(m))
	for _, field := range fields {
		column := m[field]
		if _, taken := inverse[column]; !taken {
			inverse[column] = field
		}
	}
	return inverse
}

func identityFrom(columns *core.ColumnSet) string {
	identity := ""
	columns.Each(func(_ string, col core.Column) {
		if identity == "" && col.Unique && col.AutoInc {
			identity = col.Name
		}
	})
	return identity
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Name returns the physical table name.
func (t *Table) Name() string { return t.name }

// Identifier returns the logical identifier the table was built for.
func (t *Table) Identifier() core.Identifier { return t.id }

// DB returns the connection name.
func (t *Table) DB() string { return t.db }

// AdapterKind returns the adapter type, e.g. "mysql".
func (t *Table) AdapterKind() string { return t.adapterKind }

// Chain returns the table's command chain.
func (t *Table) Chain() *chain.Chain { return t.chain }

// ColumnMap returns a copy of the external -> physical map.
func (t *Table) ColumnMap() map[string]string {
	out := make(map[string]string, len(t.columnMap))
	for k, v := range t.columnMap {
		out[k] = v
	}
	return out
}

// AdapterID names the adapter service the table resolves, e.g.
// "shop:database.adapter.mysql".
func (t *Table) AdapterID() core.Identifier {
	return t.id.SetPath("database", "adapter").SetName(t.adapterKind)
}

// Adapter resolves the table's adapter through the adapter source.
func (t *Table) Adapter(ctx context.Context) (core.Adapter, error) {
	adapter, err := t.adapters.GetInstance(ctx, t.db, t.dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s (db: %s): %w", t.AdapterID(), t.db, err)
	}
	return adapter, nil
}

// Query returns a fresh builder bound to this table.
func (t *Table) Query(ctx context.Context) (core.Builder, error) {
	adapter, err := t.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	return adapter.GetQuery().Table(t.name), nil
}

// Schema fetches the table's schema from the adapter.
func (t *Table) Schema(ctx context.Context) (*core.Schema, error) {
	adapter, err := t.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	return adapter.GetSchema(ctx, t.name)
}

// Columns fetches the column set keyed by external field name.
func (t *Table) Columns(ctx context.Context) (*core.ColumnSet, error) {
	schema, err := t.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return t.MapColumnSet(schema.Columns, true), nil
}

// UniqueColumns is Columns filtered to primary and unique key members.
func (t *Table) UniqueColumns(ctx context.Context) (*core.ColumnSet, error) {
	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}
	return uniqueOf(columns), nil
}

func uniqueOf(columns *core.ColumnSet) *core.ColumnSet {
	return columns.Filter(func(col core.Column) bool { return col.Unique })
}

// IdentityColumn returns the physical name of the identity column, or ""
// when the table has none. The answer is cached for the table's lifetime.
func (t *Table) IdentityColumn(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.identityResolved {
		return t.identityColumn, nil
	}

	unique, err := t.UniqueColumns(ctx)
	if err != nil {
		return "", err
	}
	t.identityColumn = identityFrom(unique)
	t.identityResolved = true
	return t.identityColumn, nil
}

// MapColumns renames the keys of record through the column map, forward
// (external -> physical) or reversed. Unmapped keys pass through. The
// input is not modified.
func (t *Table) MapColumns(record core.Record, reverse bool) core.Record {
	if record == nil {
		return nil
	}
	m := t.mapping(reverse)
	out := make(core.Record, len(record))
	for key, value := range record {
		if renamed, ok := m[key]; ok {
			key = renamed
		}
		out[key] = value
	}
	return out
}

// ColumnName returns the physical column for an external field name.
func (t *Table) ColumnName(field string) string {
	if column, ok := t.columnMap[field]; ok {
		return column
	}
	return field
}

// MapColumnSet renames the keys of a column set, keeping their order.
func (t *Table) MapColumnSet(columns *core.ColumnSet, reverse bool) *core.ColumnSet {
	m := t.mapping(reverse)
	out := core.NewColumnSet()
	columns.Each(func(key string, col core.Column) {
		if renamed, ok := m[key]; ok {
			key = renamed
		}
		out.Add(key, col)
	})
	return out
}

func (t *Table) mapping(reverse bool) map[string]string {
	if reverse {
		return t.inverse
	}
	return t.columnMap
}
