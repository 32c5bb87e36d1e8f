package table

import (
	"context"
	"fmt"
	"sort"

	"github.com/rzpsarthak13/tablekit/internal/chain"
	"github.com/rzpsarthak13/tablekit/internal/core"
)

// Mode selects the shape of a Select result.
type Mode int

const (
	// ModeRow returns the first record as a *Row.
	ModeRow Mode = 1
	// ModeRowset returns every record as a *Rowset.
	ModeRowset Mode = 2
)

// Dataset is the result of a select: a *Row or a *Rowset.
type Dataset interface {
	Records() []core.Record
}

// Select runs q through the select chain. A nil q selects every column
// of every row.
func (t *Table) Select(ctx context.Context, q core.Query, mode Mode) (Dataset, error) {
	if mode != ModeRow && mode != ModeRowset {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	adapter, err := t.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = adapter.GetQuery().Select().Table(t.name)
	}

	c := &chain.Context{Table: t.name, Query: q, Fields: t.fields}
	if _, err := t.chain.Run(ctx, chain.BeforeSelect, c); err != nil {
		return nil, err
	}

	res, err := adapter.Execute(ctx, c.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", t.name, err)
	}
	c.Result = res

	switch mode {
	case ModeRow:
		if len(res.Rows) > 0 {
			c.Data = t.MapColumns(res.Rows[0], true)
		}
	case ModeRowset:
		c.Rows = make([]core.Record, len(res.Rows))
		for i, rec := range res.Rows {
			c.Rows[i] = t.MapColumns(rec, true)
		}
	}

	if _, err := t.chain.Run(ctx, chain.AfterSelect, c); err != nil {
		return nil, err
	}

	if mode == ModeRowset {
		return t.NewRowset().SetData(c.Rows), nil
	}
	row := t.emptyRow()
	if c.Data != nil {
		row.SetData(c.Data)
		row.isNew = false
	}
	return row, nil
}

// SelectRow is Select in ModeRow.
func (t *Table) SelectRow(ctx context.Context, q core.Query) (*Row, error) {
	ds, err := t.Select(ctx, q, ModeRow)
	if err != nil {
		return nil, err
	}
	return ds.(*Row), nil
}

// SelectRowset is Select in ModeRowset.
func (t *Table) SelectRowset(ctx context.Context, q core.Query) (*Rowset, error) {
	ds, err := t.Select(ctx, q, ModeRowset)
	if err != nil {
		return nil, err
	}
	return ds.(*Rowset), nil
}

// Find selects the rows whose fields equal every value in where. Keys
// are external field names.
func (t *Table) Find(ctx context.Context, where core.Record) (*Rowset, error) {
	q, err := t.Query(ctx)
	if err != nil {
		return nil, err
	}
	q = q.Select()

	physical := t.MapColumns(where, false)
	keys := make([]string, 0, len(physical))
	for k := range physical {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q = q.Where(k, "=", physical[k])
	}
	return t.SelectRowset(ctx, q)
}

// Insert writes a new row. On success the row carries the generated id
// under "id". The row's new flag is left for behaviors to change.
func (t *Table) Insert(ctx context.Context, row *Row) (*chain.Context, error) {
	return t.write(ctx, row, chain.BeforeInsert, chain.AfterInsert)
}

// Update writes a stored row, matched on every unique column.
func (t *Table) Update(ctx context.Context, row *Row) (*chain.Context, error) {
	return t.write(ctx, row, chain.BeforeUpdate, chain.AfterUpdate)
}

// Delete removes a row, matched on every unique column.
func (t *Table) Delete(ctx context.Context, row *Row) (*chain.Context, error) {
	c, err := t.write(ctx, row, chain.BeforeDelete, chain.AfterDelete)
	if err != nil {
		return nil, err
	}
	row.deleted = true
	return c, nil
}

// write runs one mutation: before hooks, statement build, execute, after hooks.
func (t *Table) write(ctx context.Context, row *Row, before, after chain.Event) (*chain.Context, error) {
	if row == nil || row.table != t {
		return nil, ErrForeignRow
	}
	if row.deleted {
		return nil, ErrRowDeleted
	}

	adapter, err := t.Adapter(ctx)
	if err != nil {
		return nil, err
	}

	c := &chain.Context{Table: t.name, Data: row.data, Subject: row}
	if _, err := t.chain.Run(ctx, before, c); err != nil {
		return nil, err
	}
	if c.Data == nil {
		c.Data = make(core.Record)
	}

	columns, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}

	q := adapter.GetQuery().Table(t.name)
	switch before {
	case chain.BeforeInsert:
		t.sanitize(columns, c.Data)
		q = t.assign(q.Insert(), columns, c.Data, adapter.StrictColumns())
	case chain.BeforeUpdate:
		t.sanitize(columns, c.Data)
		q = t.assign(q.Update(), columns, c.Data, adapter.StrictColumns())
		q = matchUnique(q, columns, c.Data)
	case chain.BeforeDelete:
		q = matchUnique(q.Delete(), columns, c.Data)
	}
	c.Query = q

	res, err := adapter.Execute(ctx, c.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", q.Kind(), t.name, err)
	}
	c.Result = res

	if before == chain.BeforeInsert && res.InsertID != 0 {
		c.Data[IDField] = res.InsertID
	}

	if _, err := t.chain.Run(ctx, after, c); err != nil {
		return nil, err
	}
	row.data = c.Data
	return c, nil
}

// sanitize replaces every present value that fails its column filter
// with the sanitized form.
func (t *Table) sanitize(columns *core.ColumnSet, data core.Record) {
	columns.Each(func(field string, col core.Column) {
		v, ok := data[field]
		if !ok {
			return
		}
		f := t.filters.Get(col.Type)
		if !f.Validate(v) {
			data[field] = f.Sanitize(v)
		}
	})
}

// assign adds a SET for every non-autoincrement column. Strict adapters
// only receive present non-nil values under the physical column name;
// otherwise every column is written under its field name.
func (t *Table) assign(q core.Builder, columns *core.ColumnSet, data core.Record, strict bool) core.Builder {
	columns.Each(func(field string, col core.Column) {
		if col.AutoInc {
			return
		}
		v, ok := data[field]
		if strict {
			if ok && v != nil {
				q = q.Set(col.Name, v)
			}
			return
		}
		q = q.Set(field, v)
	})
	return q
}

func matchUnique(q core.Builder, columns *core.ColumnSet, data core.Record) core.Builder {
	uniqueOf(columns).Each(func(field string, col core.Column) {
		q = q.Where(col.Name, "=", data[field])
	})
	return q
}
