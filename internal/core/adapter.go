package core

import (
	"context"
	"time"
)

// QueryKind identifies the statement kind of a query.
type QueryKind int

const (
	KindSelect QueryKind = iota + 1
	KindInsert
	KindUpdate
	KindDelete
	KindExec
)

func (k QueryKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindExec:
		return "EXEC"
	default:
		return "UNKNOWN"
	}
}

// Query is a backend native query that can be serialized to a statement
// and its placeholder arguments.
type Query interface {
	Kind() QueryKind
	ToQuery() (string, []interface{}, error)
}

// Builder constructs statements in the adapter's grammar. Each builder
// produces a single statement; Select/Insert/Update/Delete pick the kind.
type Builder interface {
	Query

	Select(columns ...string) Builder
	Insert() Builder
	Update() Builder
	Delete() Builder

	Table(name string) Builder
	Set(column string, value interface{}) Builder
	Where(column, op string, value interface{}) Builder
	OrderBy(column string, desc bool) Builder
	Limit(n int) Builder
	Offset(n int) Builder
}

// Result is what an adapter returns from Execute. Reads fill Rows; writes
// fill InsertID and RowsAffected.
type Result struct {
	Rows         []Record
	InsertID     int64
	RowsAffected int64
}

// Adapter owns one backend connection. It executes queries, introspects
// schema and normalizes backend type names.
type Adapter interface {
	// Execute runs q and returns its primary result set.
	Execute(ctx context.Context, q Query) (*Result, error)

	// GetSchema introspects the named table.
	// Returns an error wrapping ErrTableNotFound if the table does not exist.
	GetSchema(ctx context.Context, name string) (*Schema, error)

	// GetType normalizes a raw backend type. Unknown types return "".
	GetType(raw string) string

	// GetQuery returns a fresh builder in the adapter's grammar.
	GetQuery() Builder

	// StrictColumns reports whether writes include only columns that carry a value.
	StrictColumns() bool

	// Close releases the connection.
	Close() error
}

// DatabaseConfig describes one named connection.
type DatabaseConfig struct {
	Type              string        `yaml:"type" json:"type"`
	Host              string        `yaml:"host" json:"host"`
	Port              int           `yaml:"port" json:"port"`
	User              string        `yaml:"user" json:"user"`
	Password          string        `yaml:"password" json:"password"`
	Database          string        `yaml:"database" json:"database"`
	Prefix            string        `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	StrictColumns     bool          `yaml:"strict_columns,omitempty" json:"strict_columns,omitempty"`
	MaxOpenConns      int           `yaml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
	MaxIdleConns      int           `yaml:"max_idle_conns,omitempty" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime   time.Duration `yaml:"conn_max_lifetime,omitempty" json:"conn_max_lifetime,omitempty"`
	ConnMaxIdleTime   time.Duration `yaml:"conn_max_idle_time,omitempty" json:"conn_max_idle_time,omitempty"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout,omitempty" json:"connection_timeout,omitempty"`
}
