package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/rzpsarthak13/tablekit/internal/core"
	"github.com/rzpsarthak13/tablekit/internal/query"
)

// executor runs queries on a database/sql handle. Adapters embed it and add
// their own introspection and type table.
type executor struct {
	db     *sql.DB
	tag    string
	strict bool

	mu     sync.RWMutex
	closed bool
}

// Execute runs q. Selects return their rows, other statements return
// the insert id and affected row count.
func (e *executor) Execute(ctx context.Context, q core.Query) (*core.Result, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("database is closed")
	}

	stmt, args, err := q.ToQuery()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	log.Printf("[%s] Executing %s: %s", e.tag, q.Kind(), stmt)

	if q.Kind() == core.KindSelect {
		records, err := e.queryRecords(ctx, stmt, args...)
		if err != nil {
			return nil, err
		}
		return &core.Result{Rows: records}, nil
	}

	res, err := e.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		log.Printf("[%s] ERROR: Exec failed: %v", e.tag, err)
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}

	out := &core.Result{}
	// Drivers that cannot report these return an error; zero is the answer then.
	if id, err := res.LastInsertId(); err == nil {
		out.InsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}

// GetQuery returns a fresh MySQL grammar builder.
func (e *executor) GetQuery() core.Builder {
	return query.New()
}

func (e *executor) StrictColumns() bool {
	return e.strict
}

// DB exposes the handle for callers that need plain database/sql access.
func (e *executor) DB() *sql.DB {
	return e.db
}

func (e *executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.db.Close()
}

func (e *executor) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func (e *executor) queryRecords(ctx context.Context, stmt string, args ...interface{}) ([]core.Record, error) {
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Printf("[%s] ERROR: Query failed: %v", e.tag, err)
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// scanRecords reads every row into a Record keyed by column name.
// Text values arrive as []byte from some drivers and are returned as strings.
func scanRecords(rows *sql.Rows) ([]core.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := make([]core.Record, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(core.Record, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = values[i]
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// baseType lower-cases a raw column type and strips its length and
// sign modifiers: "INT(11) UNSIGNED" becomes "int".
func baseType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(t, "("); idx >= 0 {
		t = t[:idx]
	}
	for _, mod := range []string{" unsigned", " signed", " zerofill"} {
		t = strings.ReplaceAll(t, mod, "")
	}
	return strings.TrimSpace(t)
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		i, _ := strconv.ParseInt(asString(v), 10, 64)
		return i
	}
}
