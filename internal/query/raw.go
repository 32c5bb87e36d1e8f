package query

import (
	"strings"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

// RawQuery is a hand written statement. Its kind is taken from the
// leading keyword so adapters know whether to read rows.
type RawQuery struct {
	sql  string
	args []interface{}
	kind core.QueryKind
}

// Raw wraps sql and its placeholder arguments.
func Raw(sql string, args ...interface{}) *RawQuery {
	return &RawQuery{sql: sql, args: args, kind: kindOf(sql)}
}

func (r *RawQuery) Kind() core.QueryKind { return r.kind }

func (r *RawQuery) ToQuery() (string, []interface{}, error) {
	return r.sql, r.args, nil
}

func kindOf(sql string) core.QueryKind {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return core.KindExec
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "SHOW", "PRAGMA", "WITH", "DESCRIBE", "EXPLAIN":
		return core.KindSelect
	case "INSERT", "REPLACE":
		return core.KindInsert
	case "UPDATE":
		return core.KindUpdate
	case "DELETE":
		return core.KindDelete
	default:
		return core.KindExec
	}
}
