package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/query"
)

const defaultMySQLPort = 3306

var mysqlTypes = map[string]string{
	"int":        "int",
	"integer":    "int",
	"bigint":     "int",
	"tinyint":    "int",
	"smallint":   "int",
	"mediumint":  "int",
	"varchar":    "string",
	"char":       "string",
	"text":       "string",
	"tinytext":   "string",
	"mediumtext": "string",
	"longtext":   "string",
	"enum":       "string",
	"datetime":   "time",
	"timestamp":  "time",
	"date":       "date",
	"decimal":    "float",
	"float":      "float",
	"double":     "float",
}

// MySQLAdapter implements core.Adapter for MySQL.
type MySQLAdapter struct {
	executor
}

var _ core.Adapter = (*MySQLAdapter)(nil)

// NewMySQLAdapter wraps an open handle.
func NewMySQLAdapter(db *sql.DB, strict bool) *MySQLAdapter {
	return &MySQLAdapter{executor: executor{db: db, tag: "MYSQL", strict: strict}}
}

// OpenMySQL connects using cfg and pings the server.
func OpenMySQL(ctx context.Context, cfg core.DatabaseConfig) (*MySQLAdapter, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultMySQLPort
	}

	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	// SHOW statements cannot be prepared server side.
	dsn.InterpolateParams = true
	if cfg.ConnectionTimeout > 0 {
		dsn.Timeout = cfg.ConnectionTimeout
	}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, core.NewConnectionError(err.Error(), err)
	}
	db := sql.OpenDB(connector)

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.Printf("[MYSQL] ERROR: Failed to connect to %s: %v", dsn.Addr, err)
		return nil, core.NewConnectionError(mysqlMessage(err), err)
	}

	log.Printf("[MYSQL] Connected to %s/%s", dsn.Addr, cfg.Database)
	return NewMySQLAdapter(db, cfg.StrictColumns), nil
}

// mysqlMessage returns the server's own message when there is one.
func mysqlMessage(err error) string {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}

// GetType maps a MySQL column type to its normalized name.
func (m *MySQLAdapter) GetType(raw string) string {
	return mysqlTypes[baseType(raw)]
}

// GetSchema reads table status, indexes and columns, in that order.
func (m *MySQLAdapter) GetSchema(ctx context.Context, name string) (*core.Schema, error) {
	if m.isClosed() {
		return nil, fmt.Errorf("database is closed")
	}

	schema := core.NewSchema(name)

	if err := m.fetchInfo(ctx, name, schema); err != nil {
		return nil, err
	}
	if err := m.fetchIndexes(ctx, name, schema); err != nil {
		return nil, err
	}
	if err := m.fetchColumns(ctx, name, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (m *MySQLAdapter) fetchInfo(ctx context.Context, name string, schema *core.Schema) error {
	rows, err := m.queryRecords(ctx, "SHOW TABLE STATUS LIKE ?", likeLiteral(name))
	if err != nil {
		return fmt.Errorf("failed to fetch table status for %s: %w", name, err)
	}
	status := statusFor(rows, name)
	if status == nil {
		return fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}

	comment := asString(status["Comment"])
	info := core.Info{
		Name:         asString(status["Name"]),
		Engine:       asString(status["Engine"]),
		Kind:         core.KindBase,
		Length:       asInt64(status["Data_length"]),
		AutoincStart: asInt64(status["Auto_increment"]),
		Collation:    asString(status["Collation"]),
		Description:  comment,
	}
	if comment == "VIEW" {
		info.Kind = core.KindView
		info.Description = ""
	}
	schema.Info = info
	return nil
}

// likeLiteral escapes LIKE wildcards so the pattern only matches s.
func likeLiteral(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// statusFor returns the status row named exactly name, or nil.
func statusFor(rows []core.Record, name string) core.Record {
	for _, row := range rows {
		if asString(row["Name"]) == name {
			return row
		}
	}
	return nil
}

func (m *MySQLAdapter) fetchIndexes(ctx context.Context, name string, schema *core.Schema) error {
	rows, err := m.queryRecords(ctx, "SHOW INDEX FROM "+query.QuoteIdentifier(name))
	if err != nil {
		return fmt.Errorf("failed to fetch indexes for %s: %w", name, err)
	}
	for _, row := range rows {
		schema.AddIndexMember(core.IndexMember{
			Index:     asString(row["Key_name"]),
			Column:    asString(row["Column_name"]),
			Seq:       int(asInt64(row["Seq_in_index"])),
			NonUnique: asInt64(row["Non_unique"]) != 0,
		})
	}
	return nil
}

func (m *MySQLAdapter) fetchColumns(ctx context.Context, name string, schema *core.Schema) error {
	rows, err := m.queryRecords(ctx, "SHOW COLUMNS FROM "+query.QuoteIdentifier(name))
	if err != nil {
		return fmt.Errorf("failed to fetch columns for %s: %w", name, err)
	}
	for _, row := range rows {
		field := asString(row["Field"])
		key := asString(row["Key"])
		schema.Columns.Add(field, core.Column{
			Name:    field,
			Type:    m.GetType(asString(row["Type"])),
			Unique:  key == "PRI" || key == "UNI",
			AutoInc: strings.Contains(strings.ToLower(asString(row["Extra"])), "auto_increment"),
			Default: row["Default"],
		})
	}
	return nil
}

// MySQLFactory opens MySQL adapters.
type MySQLFactory struct{}

func (f *MySQLFactory) Type() string {
	return "mysql"
}

func (f *MySQLFactory) Validate(cfg core.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("host is required for MySQL")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", cfg.Port)
	}
	if cfg.Database == "" {
		return fmt.Errorf("database is required for MySQL")
	}
	if cfg.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns must be non-negative, got: %d", cfg.MaxOpenConns)
	}
	return nil
}

func (f *MySQLFactory) Open(ctx context.Context, cfg core.DatabaseConfig) (core.Adapter, error) {
	adapter, err := OpenMySQL(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func init() {
	RegisterFactory(&MySQLFactory{})
}
