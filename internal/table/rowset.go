package table

import "github.com/rzpsarthak13/tablekit/internal/core"

// Rowset is an ordered collection of rows of one table.
type Rowset struct {
	table *Table
	rows  []*Row
}

// NewRowset returns an empty rowset.
func (t *Table) NewRowset() *Rowset {
	return &Rowset{table: t}
}

// SetData appends one stored row per record, in order.
func (rs *Rowset) SetData(records []core.Record) *Rowset {
	template := rs.table.emptyRow()
	for _, rec := range records {
		row := template.Clone()
		row.SetData(rec)
		row.isNew = false
		rs.rows = append(rs.rows, row)
	}
	return rs
}

// Data returns each row's data in order.
func (rs *Rowset) Data() []core.Record {
	out := make([]core.Record, len(rs.rows))
	for i, row := range rs.rows {
		out[i] = row.Data()
	}
	return out
}

// Records is Data.
func (rs *Rowset) Records() []core.Record { return rs.Data() }

// Rows returns the rows. The slice is shared.
func (rs *Rowset) Rows() []*Row { return rs.rows }

// Len returns the number of rows.
func (rs *Rowset) Len() int { return len(rs.rows) }

// Table returns the owning table.
func (rs *Rowset) Table() *Table { return rs.table }
