package table

import (
	"context"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
)

// Row is one record bound to its table. Fields are keyed by external
// name. A Row is not safe for concurrent mutation.
type Row struct {
	table   *Table
	data    core.Record
	isNew   bool
	deleted bool
}

// NewRow returns a new row carrying data, with every column the data
// does not set filled from the column default (nil when the column has
// none).
func (t *Table) NewRow(ctx context.Context, data core.Record) (*Row, error) {
	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}

	row := t.emptyRow()
	for k, v := range data {
		row.data[k] = v
	}
	columns.Each(func(field string, col core.Column) {
		if _, ok := row.data[field]; !ok {
			row.data[field] = col.Default
		}
	})
	return row, nil
}

// emptyRow is an uninitialized new row: no defaults merged.
func (t *Table) emptyRow() *Row {
	return &Row{table: t, data: make(core.Record), isNew: true}
}

// Table returns the owning table.
func (r *Row) Table() *Table { return r.table }

// IsNew reports whether Save will insert.
func (r *Row) IsNew() bool { return r.isNew }

// SetNew marks the row as stored (false) or not yet stored (true).
func (r *Row) SetNew(isNew bool) { r.isNew = isNew }

// Deleted reports whether the row was deleted through this instance.
func (r *Row) Deleted() bool { return r.deleted }

// Get returns one field.
func (r *Row) Get(field string) (interface{}, bool) {
	v, ok := r.data[field]
	return v, ok
}

// Set assigns one field.
func (r *Row) Set(field string, value interface{}) *Row {
	r.data[field] = value
	return r
}

// SetData assigns every field of data onto the row.
func (r *Row) SetData(data core.Record) *Row {
	for k, v := range data {
		r.data[k] = v
	}
	return r
}

// Data returns a shallow copy of the row's fields.
func (r *Row) Data() core.Record {
	return r.data.Clone()
}

// Records returns the row's data as a one element slice.
func (r *Row) Records() []core.Record {
	return []core.Record{r.Data()}
}

// Save inserts a new row and updates a stored one.
func (r *Row) Save(ctx context.Context) (*chain.Context, error) {
	if r.isNew {
		return r.table.Insert(ctx, r)
	}
	return r.table.Update(ctx, r)
}

// Delete removes the row from its table.
func (r *Row) Delete(ctx context.Context) (*chain.Context, error) {
	return r.table.Delete(ctx, r)
}

// Clone returns an empty new row bound to the same table. It does not
// copy data.
func (r *Row) Clone() *Row {
	return r.table.emptyRow()
}
