package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/rzpsarthak13/tablekit/internal/core"

	_ "modernc.org/sqlite"
)

var sqliteTypes = map[string]string{
	"integer":   "int",
	"int":       "int",
	"bigint":    "int",
	"smallint":  "int",
	"tinyint":   "int",
	"text":      "string",
	"varchar":   "string",
	"char":      "string",
	"clob":      "string",
	"real":      "float",
	"double":    "float",
	"float":     "float",
	"numeric":   "float",
	"decimal":   "float",
	"datetime":  "time",
	"timestamp": "time",
	"date":      "date",
	"boolean":   "bool",
}

// SQLiteAdapter implements core.Adapter on an embedded SQLite database.
// It shares the MySQL statement grammar.
type SQLiteAdapter struct {
	executor

	hasSequence atomic.Bool
}

var _ core.Adapter = (*SQLiteAdapter)(nil)

// NewSQLiteAdapter wraps an open handle.
func NewSQLiteAdapter(db *sql.DB, strict bool) *SQLiteAdapter {
	return &SQLiteAdapter{executor: executor{db: db, tag: "SQLITE", strict: strict}}
}

// OpenSQLite opens the database file named by cfg.Database
// (":memory:" for a private in-memory database).
func OpenSQLite(ctx context.Context, cfg core.DatabaseConfig) (*SQLiteAdapter, error) {
	db, err := sql.Open("sqlite", cfg.Database)
	if err != nil {
		return nil, core.NewConnectionError(err.Error(), err)
	}
	// One connection keeps ":memory:" databases and write locks consistent.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Printf("[SQLITE] ERROR: Failed to open %s: %v", cfg.Database, err)
		return nil, core.NewConnectionError(err.Error(), err)
	}
	return NewSQLiteAdapter(db, cfg.StrictColumns), nil
}

// GetType maps a declared SQLite column type to its normalized name.
func (s *SQLiteAdapter) GetType(raw string) string {
	return sqliteTypes[baseType(raw)]
}

// GetSchema reads sqlite_master, the index list and the column list.
func (s *SQLiteAdapter) GetSchema(ctx context.Context, name string) (*core.Schema, error) {
	if s.isClosed() {
		return nil, fmt.Errorf("database is closed")
	}

	schema := core.NewSchema(name)

	if err := s.fetchInfo(ctx, name, schema); err != nil {
		return nil, err
	}
	if err := s.fetchIndexes(ctx, name, schema); err != nil {
		return nil, err
	}
	if err := s.fetchColumns(ctx, name, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

const (
	// sqliteInfoQuery is used until sqlite_sequence exists; has_seq
	// reports whether it does.
	sqliteInfoQuery = `
		SELECT m.name, m.type, NULL AS seq,
			EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence') AS has_seq
		FROM sqlite_master AS m
		WHERE m.name = ? AND m.type IN ('table', 'view')`

	// sqliteInfoSeqQuery also reads the next autoincrement value.
	// sqlite_sequence cannot be dropped, so once seen it stays valid.
	sqliteInfoSeqQuery = `
		SELECT m.name, m.type, s.seq, 1 AS has_seq
		FROM sqlite_master AS m
		LEFT JOIN sqlite_sequence AS s ON s.name = m.name
		WHERE m.name = ? AND m.type IN ('table', 'view')`
)

func (s *SQLiteAdapter) fetchInfo(ctx context.Context, name string, schema *core.Schema) error {
	stmt := sqliteInfoQuery
	if s.hasSequence.Load() {
		stmt = sqliteInfoSeqQuery
	}
	rows, err := s.queryRecords(ctx, stmt, name)
	if err != nil {
		return fmt.Errorf("failed to fetch table info for %s: %w", name, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s", core.ErrTableNotFound, name)
	}

	info := rows[0]
	if stmt == sqliteInfoQuery && asInt64(info["has_seq"]) == 1 {
		// First sighting of sqlite_sequence: reread with the sequence joined.
		s.hasSequence.Store(true)
		return s.fetchInfo(ctx, name, schema)
	}

	schema.Info.Name = asString(info["name"])
	schema.Info.Engine = "sqlite"
	if asString(info["type"]) == "view" {
		schema.Info.Kind = core.KindView
	}
	if info["seq"] != nil {
		schema.Info.AutoincStart = asInt64(info["seq"]) + 1
	}
	return nil
}

func (s *SQLiteAdapter) fetchIndexes(ctx context.Context, name string, schema *core.Schema) error {
	rows, err := s.queryRecords(ctx, `
		SELECT il.name AS index_name, il."unique" AS is_unique, ii.seqno AS seq, ii.name AS column_name
		FROM pragma_index_list(?) AS il
		JOIN pragma_index_info(il.name) AS ii
		ORDER BY il.name, ii.seqno`, name)
	if err != nil {
		return fmt.Errorf("failed to fetch indexes for %s: %w", name, err)
	}
	for _, row := range rows {
		schema.AddIndexMember(core.IndexMember{
			Index:     asString(row["index_name"]),
			Column:    asString(row["column_name"]),
			Seq:       int(asInt64(row["seq"])) + 1,
			NonUnique: asInt64(row["is_unique"]) == 0,
		})
	}
	return nil
}

func (s *SQLiteAdapter) fetchColumns(ctx context.Context, name string, schema *core.Schema) error {
	rows, err := s.queryRecords(ctx,
		`SELECT name, type, dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, name)
	if err != nil {
		return fmt.Errorf("failed to fetch columns for %s: %w", name, err)
	}

	pkCount := 0
	for _, row := range rows {
		if asInt64(row["pk"]) > 0 {
			pkCount++
		}
	}

	// Single column unique indexes, matching MySQL's UNI key flag.
	uniques := make(map[string]bool)
	for _, members := range schema.Indexes {
		if len(members) == 1 && !members[0].NonUnique {
			uniques[members[0].Column] = true
		}
	}

	for _, row := range rows {
		field := asString(row["name"])
		declared := asString(row["type"])
		pk := asInt64(row["pk"]) > 0
		schema.Columns.Add(field, core.Column{
			Name:   field,
			Type:   s.GetType(declared),
			Unique: pk || uniques[field],
			// A lone INTEGER PRIMARY KEY aliases the rowid.
			AutoInc: pk && pkCount == 1 && strings.EqualFold(strings.TrimSpace(declared), "integer"),
			Default: sqliteDefault(row["dflt_value"]),
		})
	}
	return nil
}

// sqliteDefault turns the default's SQL text into a value.
func sqliteDefault(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	s := asString(v)
	if strings.EqualFold(s, "NULL") {
		return nil
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// SQLiteFactory opens SQLite adapters.
type SQLiteFactory struct{}

func (f *SQLiteFactory) Type() string {
	return "sqlite"
}

func (f *SQLiteFactory) Validate(cfg core.DatabaseConfig) error {
	if cfg.Database == "" {
		return fmt.Errorf("database path is required for SQLite")
	}
	return nil
}

func (f *SQLiteFactory) Open(ctx context.Context, cfg core.DatabaseConfig) (core.Adapter, error) {
	adapter, err := OpenSQLite(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

func init() {
	RegisterFactory(&SQLiteFactory{})
}
