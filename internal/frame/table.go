package frame

import "iter"

// DefaultIndexName is the column name ResetIndex uses for an unnamed index.
const DefaultIndexName = "index"

// Table is a labelled two-dimensional grid. Rows are addressed by the index,
// columns by their labels. Labels need not be unique.
type Table struct {
	IndexName string

	index   []Value
	columns []Value
	cells   [][]Value
}

// New creates a table with the given labels and every cell missing.
func New(index, columns []Value) *Table {
	cells := make([][]Value, len(index))
	for i := range cells {
		cells[i] = make([]Value, len(columns))
	}
	return &Table{
		index:   append([]Value(nil), index...),
		columns: append([]Value(nil), columns...),
		cells:   cells,
	}
}

// Index returns the row labels.
func (t *Table) Index() []Value { return t.index }

// Columns returns the column labels.
func (t *Table) Columns() []Value { return t.columns }

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Empty reports whether the table has no rows or no columns. A nil table is
// empty.
func (t *Table) Empty() bool {
	return t == nil || len(t.index) == 0 || len(t.columns) == 0
}

// At returns the cell at row i, column j.
func (t *Table) At(i, j int) Value { return t.cells[i][j] }

// Set stores v at row i, column j.
func (t *Table) Set(i, j int, v Value) { t.cells[i][j] = v }

// RenameColumns returns a copy of the table whose column labels are f
// applied to the current ones.
func (t *Table) RenameColumns(f func(Value) Value) *Table {
	labels := make([]Value, len(t.columns))
	for j, c := range t.columns {
		labels[j] = f(c)
	}
	out := New(t.index, labels)
	out.IndexName = t.IndexName
	for i := range t.cells {
		copy(out.cells[i], t.cells[i])
	}
	return out
}

// ColumnIndex returns the position of the first column whose label text is
// name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for j, c := range t.columns {
		if c.Text() == name && !c.IsMissing() {
			return j
		}
	}
	return -1
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	c := New(t.index, t.columns)
	c.IndexName = t.IndexName
	for i := range t.cells {
		copy(c.cells[i], t.cells[i])
	}
	return c
}

// Transpose swaps rows and columns: the column labels become the index and
// the index becomes the column labels.
func (t *Table) Transpose() *Table {
	out := New(t.columns, t.index)
	for i := range t.index {
		for j := range t.columns {
			out.cells[j][i] = t.cells[i][j]
		}
	}
	return out
}

// ResetIndex moves the index into a leading column named after the index
// (DefaultIndexName when unnamed) and replaces it with row positions.
func (t *Table) ResetIndex() *Table {
	name := t.IndexName
	if name == "" {
		name = DefaultIndexName
	}

	positions := make([]Value, len(t.index))
	for i := range positions {
		positions[i] = Int(int64(i))
	}

	columns := append([]Value{String(name)}, t.columns...)
	out := New(positions, columns)
	for i := range t.index {
		out.cells[i][0] = t.index[i]
		copy(out.cells[i][1:], t.cells[i])
	}
	return out
}

// Rows iterates over the table in index order, yielding each row label with
// a view of the row.
func (t *Table) Rows() iter.Seq2[Value, Row] {
	return func(yield func(Value, Row) bool) {
		if t == nil {
			return
		}
		for i, label := range t.index {
			if !yield(label, Row{t: t, i: i}) {
				return
			}
		}
	}
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// Get returns the cell under the first column labelled name. ok is false when
// no such column exists.
func (r Row) Get(name string) (v Value, ok bool) {
	j := r.t.ColumnIndex(name)
	if j < 0 {
		return Missing(), false
	}
	return r.t.cells[r.i][j], true
}

// Items iterates over (column label, cell) pairs in column order.
func (r Row) Items() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		for j, label := range r.t.columns {
			if !yield(label, r.t.cells[r.i][j]) {
				return
			}
		}
	}
}
