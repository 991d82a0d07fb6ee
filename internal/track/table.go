package track

import "fmt"

// ColumnKind is the inferred type of a whole column.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindBlob        ColumnKind = "blob"
	KindEmpty       ColumnKind = "empty"
	KindMixed       ColumnKind = "mixed"
)

// Row is one Track Record: its identifier plus one Value per table column.
type Row struct {
	TrackID int64
	Values  []Value
}

// Table is an immutable, column-addressable set of rows.
type Table struct {
	Name    string
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable builds a table. Every row must have exactly len(columns) values.
func NewTable(name string, columns []string, rows []Row) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	for i, r := range rows {
		if len(r.Values) != len(columns) {
			return nil, fmt.Errorf("row %d: %d values for %d columns", i, len(r.Values), len(columns))
		}
	}
	cols := append([]string(nil), columns...)
	return &Table{Name: name, columns: cols, index: idx, rows: rows}, nil
}

// MustTable is NewTable that panics on a malformed shape. Intended for
// literals in tests and for internally built tables.
func MustTable(name string, columns []string, rows []Row) *Table {
	t, err := NewTable(name, columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the schema in storage order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the schema contains col.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// TrackIDs returns the row identifiers in row order.
func (t *Table) TrackIDs() []int64 {
	out := make([]int64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.TrackID
	}
	return out
}

// Column returns the cells of col in row order, or false when the schema has no such column.
func (t *Table) Column(col string) ([]Value, bool) {
	j, ok := t.index[col]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Values[j]
	}
	return out, true
}

// Kind infers the column type. A column is numeric only when every
// non-null cell is Int or Float.
func (t *Table) Kind(col string) ColumnKind {
	vals, ok := t.Column(col)
	if !ok {
		return ""
	}
	var num, txt, blob int
	for _, v := range vals {
		switch v.Kind {
		case Int, Float:
			num++
		case Text:
			txt++
		case Bytes:
			blob++
		}
	}
	switch {
	case num == 0 && txt == 0 && blob == 0:
		return KindEmpty
	case txt == 0 && blob == 0:
		return KindNumeric
	case num == 0 && blob == 0:
		return KindCategorical
	case num == 0 && txt == 0:
		return KindBlob
	}
	return KindMixed
}

// WithColumn returns a copy of t where col holds values. A new column is
// appended when col is not yet in the schema. The receiver is not modified.
func (t *Table) WithColumn(col string, values []Value) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q: %d values for %d rows", col, len(values), len(t.rows))
	}
	j, exists := t.index[col]
	columns := t.Columns()
	if !exists {
		j = len(columns)
		columns = append(columns, col)
	}
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		vals := make([]Value, len(columns))
		copy(vals, r.Values)
		vals[j] = values[i]
		rows[i] = Row{TrackID: r.TrackID, Values: vals}
	}
	return NewTable(t.Name, columns, rows)
}
