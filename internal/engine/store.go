package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRaggedColumns   = errors.New("columns have different lengths")
)

// Dataset holds the loaded records in Struct-of-Arrays format.
// It is never mutated after construction.
type Dataset struct {
	// ID identifies one load of the data; caches key on it.
	ID string

	names []string
	index map[string]int
	cells [][]Value // cells[col][row]
	rows  int
}

// Column is one named column used to build a Dataset.
type Column struct {
	Name   string
	Values []Value
}

// NewDataset builds a Dataset from columns in insertion order.
func NewDataset(columns ...Column) (*Dataset, error) {
	ds := &Dataset{
		ID:    uuid.NewString(),
		names: make([]string, 0, len(columns)),
		index: make(map[string]int, len(columns)),
		cells: make([][]Value, 0, len(columns)),
	}

	for i, c := range columns {
		if _, dup := ds.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if i == 0 {
			ds.rows = len(c.Values)
		} else if len(c.Values) != ds.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, c.Name, len(c.Values), ds.rows)
		}
		ds.index[c.Name] = len(ds.names)
		ds.names = append(ds.names, c.Name)
		vals := make([]Value, len(c.Values))
		copy(vals, c.Values)
		ds.cells = append(ds.cells, vals)
	}

	return ds, nil
}

// Columns returns the column names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

func (d *Dataset) Len() int { return d.rows }

// Value returns the cell at row for column; unknown columns read as Missing.
func (d *Dataset) Value(row int, column string) Value {
	c, ok := d.index[column]
	if !ok || row < 0 || row >= d.rows {
		return Missing()
	}
	return d.cells[c][row]
}

// All returns a view over every row.
func (d *Dataset) All() View {
	rows := make([]int, d.rows)
	for i := range rows {
		rows[i] = i
	}
	return View{ds: d, rows: rows}
}

// View is a row subset of a Dataset. Rows are indices into the parent
// and keep the parent's order, so data is never copied.
type View struct {
	ds   *Dataset
	rows []int
}

func (v View) Dataset() *Dataset { return v.ds }
func (v View) Len() int { return len(v.rows) }
func (v View) Empty() bool { return len(v.rows) == 0 }

// Row returns the parent row index of the i-th row in the view.
func (v View) Row(i int) int { return v.rows[i] }

// Rows returns a copy of the parent row indices.
func (v View) Rows() []int {
	out := make([]int, len(v.rows))
	copy(out, v.rows)
	return out
}

// Value returns the cell of the i-th row in the view.
func (v View) Value(i int, column string) Value {
	return v.ds.Value(v.rows[i], column)
}

func (v View) subset(keep []int) View {
	return View{ds: v.ds, rows: keep}
}
