// Package query builds MySQL grammar statements: backtick quoted
// identifiers and "?" placeholders. SQLite accepts the same grammar for
// everything the builder emits.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rzpsarthak13/tablekit/internal/core"
)

var (
	ErrNoKind            = errors.New("query kind not set")
	ErrNoTable           = errors.New("query table not set")
	ErrEmptySet          = errors.New("query has no columns to set")
	ErrUnboundedMutation = errors.New("update or delete without where clause")
	ErrInvalidOperator   = errors.New("invalid where operator")
)

var operators = map[string]bool{
	"=": true, "!=": true, "<>": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"LIKE": true, "NOT LIKE": true,
	"IN": true, "NOT IN": true,
	"IS": true, "IS NOT": true,
}

type assignment struct {
	column string
	value  interface{}
}

type predicate struct {
	column string
	op     string
	value  interface{}
}

type ordering struct {
	column string
	desc   bool
}

// Query is a statement under construction. The zero value is not usable;
// call New.
type Query struct {
	kind      core.QueryKind
	table     string
	columns   []string
	sets      []assignment
	wheres    []predicate
	orders    []ordering
	limit     int
	offset    int
	unbounded bool
	err       error
}

var _ core.Builder = (*Query)(nil)

// New returns an empty builder.
func New() *Query {
	return &Query{limit: -1, offset: -1}
}

func (q *Query) Kind() core.QueryKind { return q.kind }

func (q *Query) Select(columns ...string) core.Builder {
	q.kind = core.KindSelect
	q.columns = append(q.columns, columns...)
	return q
}

func (q *Query) Insert() core.Builder {
	q.kind = core.KindInsert
	return q
}

func (q *Query) Update() core.Builder {
	q.kind = core.KindUpdate
	return q
}

func (q *Query) Delete() core.Builder {
	q.kind = core.KindDelete
	return q
}

func (q *Query) Table(name string) core.Builder {
	q.table = name
	return q
}

// Set assigns column for INSERT and UPDATE. Setting a column twice keeps
// the last value in its first position.
func (q *Query) Set(column string, value interface{}) core.Builder {
	for i := range q.sets {
		if q.sets[i].column == column {
			q.sets[i].value = value
			return q
		}
	}
	q.sets = append(q.sets, assignment{column: column, value: value})
	return q
}

// Where adds a predicate. Predicates are joined with AND.
func (q *Query) Where(column, op string, value interface{}) core.Builder {
	op = strings.ToUpper(strings.TrimSpace(op))
	if !operators[op] {
		if q.err == nil {
			q.err = fmt.Errorf("%w: %q", ErrInvalidOperator, op)
		}
		return q
	}
	q.wheres = append(q.wheres, predicate{column: column, op: op, value: value})
	return q
}

func (q *Query) OrderBy(column string, desc bool) core.Builder {
	q.orders = append(q.orders, ordering{column: column, desc: desc})
	return q
}

func (q *Query) Limit(n int) core.Builder {
	q.limit = n
	return q
}

func (q *Query) Offset(n int) core.Builder {
	q.offset = n
	return q
}

// AllowUnbounded lets UPDATE and DELETE run without a WHERE clause.
func (q *Query) AllowUnbounded() *Query {
	q.unbounded = true
	return q
}

// ToQuery serializes the statement.
func (q *Query) ToQuery() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == "" {
		return "", nil, ErrNoTable
	}

	switch q.kind {
	case core.KindSelect:
		return q.selectSQL()
	case core.KindInsert:
		return q.insertSQL()
	case core.KindUpdate:
		return q.updateSQL()
	case core.KindDelete:
		return q.deleteSQL()
	default:
		return "", nil, ErrNoKind
	}
}

func (q *Query) String() string {
	sql, _, err := q.ToQuery()
	if err != nil {
		return fmt.Sprintf("<invalid query: %v>", err)
	}
	return sql
}

func (q *Query) selectSQL() (string, []interface{}, error) {
	cols := "*"
	if len(q.columns) > 0 {
		quoted := make([]string, len(q.columns))
		for i, c := range q.columns {
			quoted[i] = QuoteIdentifier(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, QuoteIdentifier(q.table))

	args := q.writeWhere(&b)

	if len(q.orders) > 0 {
		parts := make([]string, len(q.orders))
		for i, o := range q.orders {
			dir := "ASC"
			if o.desc {
				dir = "DESC"
			}
			parts[i] = QuoteIdentifier(o.column) + " " + dir
		}
		b.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
		if q.offset >= 0 {
			fmt.Fprintf(&b, " OFFSET %d", q.offset)
		}
	}
	return b.String(), args, nil
}

func (q *Query) insertSQL() (string, []interface{}, error) {
	if len(q.sets) == 0 {
		return "", nil, ErrEmptySet
	}

	columns := make([]string, len(q.sets))
	placeholders := make([]string, len(q.sets))
	args := make([]interface{}, len(q.sets))
	for i, s := range q.sets {
		columns[i] = QuoteIdentifier(s.column)
		placeholders[i] = "?"
		args[i] = s.value
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(q.table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return sql, args, nil
}

func (q *Query) updateSQL() (string, []interface{}, error) {
	if len(q.sets) == 0 {
		return "", nil, ErrEmptySet
	}
	if len(q.wheres) == 0 && !q.unbounded {
		return "", nil, ErrUnboundedMutation
	}

	clauses := make([]string, len(q.sets))
	args := make([]interface{}, 0, len(q.sets)+len(q.wheres))
	for i, s := range q.sets {
		clauses[i] = QuoteIdentifier(s.column) + " = ?"
		args = append(args, s.value)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", QuoteIdentifier(q.table), strings.Join(clauses, ", "))
	args = append(args, q.writeWhere(&b)...)
	return b.String(), args, nil
}

func (q *Query) deleteSQL() (string, []interface{}, error) {
	if len(q.wheres) == 0 && !q.unbounded {
		return "", nil, ErrUnboundedMutation
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", QuoteIdentifier(q.table))
	args := q.writeWhere(&b)
	return b.String(), args, nil
}

func (q *Query) writeWhere(b *strings.Builder) []interface{} {
	if len(q.wheres) == 0 {
		return nil
	}

	var args []interface{}
	clauses := make([]string, len(q.wheres))
	for i, p := range q.wheres {
		col := QuoteIdentifier(p.column)
		switch {
		case p.value == nil && (p.op == "=" || p.op == "IS"):
			clauses[i] = col + " IS NULL"
		case p.value == nil && (p.op == "!=" || p.op == "<>" || p.op == "IS NOT"):
			clauses[i] = col + " IS NOT NULL"
		case p.op == "IN" || p.op == "NOT IN":
			values := expand(p.value)
			if len(values) == 0 {
				// IN () is a syntax error; an empty set matches nothing.
				if p.op == "IN" {
					clauses[i] = "1 = 0"
				} else {
					clauses[i] = "1 = 1"
				}
				continue
			}
			marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
			clauses[i] = fmt.Sprintf("%s %s (%s)", col, p.op, marks)
			args = append(args, values...)
		default:
			clauses[i] = fmt.Sprintf("%s %s ?", col, p.op)
			args = append(args, p.value)
		}
	}
	b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	return args
}

func expand(v interface{}) []interface{} {
	if vs, ok := v.([]interface{}); ok {
		return vs
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []interface{}{v}
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// QuoteIdentifier quotes a possibly dotted identifier with backticks.
func QuoteIdentifier(name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" {
			continue
		}
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}
