package core

import "sort"

// TableKind distinguishes base tables from views.
type TableKind string

const (
	// KindBase is a regular table.
	KindBase TableKind = "BASE"

	// KindView is a view. Views can be selected but have no identity column.
	KindView TableKind = "VIEW"
)

// Record is a single row of data keyed by field or column name.
type Record map[string]interface{}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Column describes one column of a table as reported by the backend.
// Values are immutable once fetched for a given schema snapshot.
type Column struct {
	// Name is the physical column name.
	Name string

	// Type is the normalized type ("int", "string", "time", ...).
	// Empty when the backend type is not known to the adapter.
	Type string

	// Unique is true when the column belongs to a primary or unique key.
	Unique bool

	// AutoInc is true when the backend generates the value on insert.
	AutoInc bool

	// Default is the column default, if any.
	Default interface{}
}

// Info holds table level metadata.
type Info struct {
	Name         string
	Engine       string
	Kind         TableKind
	Length       int64
	AutoincStart int64
	Collation    string
	Description  string
}

// IndexMember is one column of an index.
type IndexMember struct {
	Index     string
	Column    string
	Seq       int
	NonUnique bool
}

// Schema is the introspected structure of a single table.
type Schema struct {
	Info    Info
	Indexes map[string][]IndexMember
	Columns *ColumnSet
}

// NewSchema returns an empty schema for the named table.
func NewSchema(name string) *Schema {
	return &Schema{
		Info:    Info{Name: name, Kind: KindBase},
		Indexes: make(map[string][]IndexMember),
		Columns: NewColumnSet(),
	}
}

// AddIndexMember files m under its index name, keeping members ordered by Seq.
func (s *Schema) AddIndexMember(m IndexMember) {
	members := append(s.Indexes[m.Index], m)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Seq < members[j].Seq })
	s.Indexes[m.Index] = members
}

// ColumnSet is an insertion ordered set of columns keyed by name.
// The key is the physical column name as fetched, or the external
// field name once a table has reverse mapped the set.
type ColumnSet struct {
	keys    []string
	columns map[string]Column
}

// NewColumnSet creates an empty column set.
func NewColumnSet() *ColumnSet {
	return &ColumnSet{columns: make(map[string]Column)}
}

// Add stores col under key. Re-adding an existing key replaces the column
// and keeps its original position.
func (cs *ColumnSet) Add(key string, col Column) {
	if _, ok := cs.columns[key]; !ok {
		cs.keys = append(cs.keys, key)
	}
	cs.columns[key] = col
}

// Get returns the column stored under key.
func (cs *ColumnSet) Get(key string) (Column, bool) {
	col, ok := cs.columns[key]
	return col, ok
}

// Keys returns the keys in insertion order.
func (cs *ColumnSet) Keys() []string {
	out := make([]string, len(cs.keys))
	copy(out, cs.keys)
	return out
}

// Len returns the number of columns.
func (cs *ColumnSet) Len() int {
	return len(cs.keys)
}

// Each calls fn for every column in insertion order.
func (cs *ColumnSet) Each(fn func(key string, col Column)) {
	for _, k := range cs.keys {
		fn(k, cs.columns[k])
	}
}

// Filter returns a new set holding only the columns for which keep returns true.
func (cs *ColumnSet) Filter(keep func(col Column) bool) *ColumnSet {
	out := NewColumnSet()
	cs.Each(func(key string, col Column) {
		if keep(col) {
			out.Add(key, col)
		}
	})
	return out
}
