package tablekit

import (
	"github.com/rzpsarthak13/tablekit/internal/behavior"
	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/table"
)

type (
	// Table is one initialized logical table.
	Table = table.Table

	// Row is a single record bound to its table.
	Row = table.Row

	// Rowset is an ordered collection of rows of one table.
	Rowset = table.Rowset

	// Record maps field names to values.
	Record = core.Record

	// Identifier names a logical table, "component.name".
	Identifier = core.Identifier

	// Result is the chain context returned by write operations.
	Result = chain.Context

	// ArchivedRow is a deleted row kept by the archivable behavior.
	ArchivedRow = behavior.ArchivedRow
)

const (
	ModeRow    = table.ModeRow
	ModeRowset = table.ModeRowset
)

// TableOption overrides the configured settings of a table.
type TableOption func(*TableConfig)

// WithDB selects the named connection.
func WithDB(db string) TableOption {
	return func(config *TableConfig) {
		config.DB = db
	}
}

// WithName sets the physical table name, before the connection prefix.
func WithName(name string) TableOption {
	return func(config *TableConfig) {
		config.Name = name
	}
}

// WithIdentityColumn skips identity discovery and uses column.
func WithIdentityColumn(column string) TableOption {
	return func(config *TableConfig) {
		config.IdentityColumn = column
	}
}

// WithColumnMap replaces the field -> column map.
func WithColumnMap(columnMap map[string]string) TableOption {
	return func(config *TableConfig) {
		config.ColumnMap = make(map[string]string, len(columnMap))
		for field, column := range columnMap {
			config.ColumnMap[field] = column
		}
	}
}

// WithBehaviors replaces the behavior list. Behaviors run in the given order.
func WithBehaviors(names ...string) TableOption {
	return func(config *TableConfig) {
		config.Behaviors = append([]string(nil), names...)
	}
}
