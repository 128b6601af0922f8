// Package frame provides the in-memory table every pipeline stage works on.
//
// A Frame is an ordered list of named columns and rows of string cells.
// Cells stay as text from the moment a CSV is read until the moment it is
// written; stages that need numbers parse them on demand. Column names are
// matched exactly, since raw statistical exports routinely carry pairs like
// "COUNTRY" and "Country" side by side.
package frame

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when an operation names a column the frame
// does not have.
var ErrColumnNotFound = errors.New("column not found")

// ErrDuplicateColumn is returned when a column name would appear twice.
var ErrDuplicateColumn = errors.New("duplicate column")

// Frame is a rectangular table of string cells.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty frame with the given columns.
// Panics if a column name repeats.
func New(columns ...string) *Frame {
	f, err := fromColumns(columns)
	if err != nil {
		panic(err)
	}
	return f
}

func fromColumns(columns []string) (*Frame, error) {
	f := &Frame{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := f.index[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		f.index[c] = i
	}
	return f, nil
}

// Columns returns a copy of the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Has reports whether the frame has a column with exactly this name.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Index returns the position of a column.
func (f *Frame) Index(col string) (int, error) {
	i, ok := f.index[col]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, col)
	}
	return i, nil
}

// Append adds a row. The row must have one cell per column.
func (f *Frame) Append(row ...string) error {
	if len(row) != len(f.columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(row), len(f.columns))
	}
	f.rows = append(f.rows, append([]string(nil), row...))
	return nil
}

// AppendRecord adds a row from a column-to-value map. Columns not in the
// map are left empty; keys that are not columns are an error.
func (f *Frame) AppendRecord(rec map[string]string) error {
	row := make([]string, len(f.columns))
	for k, v := range rec {
		i, err := f.Index(k)
		if err != nil {
			return err
		}
		row[i] = v
	}
	f.rows = append(f.rows, row)
	return nil
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []string {
	return append([]string(nil), f.rows[i]...)
}

// Record returns row i as a column-to-value map.
func (f *Frame) Record(i int) map[string]string {
	rec := make(map[string]string, len(f.columns))
	for j, c := range f.columns {
		rec[c] = f.rows[i][j]
	}
	return rec
}

// Get returns the cell at row i in column col, or "" if the column is absent.
func (f *Frame) Get(i int, col string) string {
	j, ok := f.index[col]
	if !ok {
		return ""
	}
	return f.rows[i][j]
}

// Set overwrites the cell at row i in column col.
func (f *Frame) Set(i int, col, value string) error {
	j, err := f.Index(col)
	if err != nil {
		return err
	}
	f.rows[i][j] = value
	return nil
}

// Column returns a copy of all cells in a column.
func (f *Frame) Column(col string) ([]string, error) {
	j, err := f.Index(col)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Unique returns the distinct values of a column in order of first appearance.
func (f *Frame) Unique(col string) ([]string, error) {
	values, err := f.Column(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Drop removes columns. Every named column must exist; on error the frame
// is left unchanged.
func (f *Frame) Drop(cols ...string) error {
	remove := make(map[int]bool, len(cols))
	for _, c := range cols {
		j, err := f.Index(c)
		if err != nil {
			return err
		}
		remove[j] = true
	}
	if len(remove) == 0 {
		return nil
	}

	keep := make([]int, 0, len(f.columns)-len(remove))
	for j := range f.columns {
		if !remove[j] {
			keep = append(keep, j)
		}
	}
	f.project(keep)
	return nil
}

// Select returns a new frame holding only the named columns, in the given
// order.
func (f *Frame) Select(cols ...string) (*Frame, error) {
	positions := make([]int, len(cols))
	for k, c := range cols {
		j, err := f.Index(c)
		if err != nil {
			return nil, err
		}
		positions[k] = j
	}
	out := f.Clone()
	out.project(positions)
	return out, nil
}

// project rebuilds columns and rows from the given source positions.
func (f *Frame) project(positions []int) {
	columns := make([]string, len(positions))
	for k, j := range positions {
		columns[k] = f.columns[j]
	}
	for i, row := range f.rows {
		next := make([]string, len(positions))
		for k, j := range positions {
			next[k] = row[j]
		}
		f.rows[i] = next
	}
	f.columns = columns
	f.index = make(map[string]int, len(columns))
	for k, c := range columns {
		f.index[c] = k
	}
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	out, _ := fromColumns(f.columns)
	for i, row := range f.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]string(nil), row...))
		}
	}
	return out
}

// SetConstant sets every cell of col to value, adding the column at the end
// if it does not exist.
func (f *Frame) SetConstant(col, value string) {
	j, ok := f.index[col]
	if !ok {
		f.addColumn(col)
		j = len(f.columns) - 1
	}
	for _, row := range f.rows {
		row[j] = value
	}
}

// AddColumn appends a column with one value per row.
func (f *Frame) AddColumn(col string, values []string) error {
	if f.Has(col) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, col)
	}
	if len(values) != len(f.rows) {
		return fmt.Errorf("column %q has %d values, frame has %d rows", col, len(values), len(f.rows))
	}
	f.addColumn(col)
	j := len(f.columns) - 1
	for i, row := range f.rows {
		row[j] = values[i]
	}
	return nil
}

// Rename changes a column name.
func (f *Frame) Rename(from, to string) error {
	j, err := f.Index(from)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if f.Has(to) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, to)
	}
	delete(f.index, from)
	f.columns[j] = to
	f.index[to] = j
	return nil
}

func (f *Frame) addColumn(col string) {
	f.columns = append(f.columns, col)
	f.index[col] = len(f.columns) - 1
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], "")
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out, _ := fromColumns(f.columns)
	out.rows = make([][]string, len(f.rows))
	for i, row := range f.rows {
		out.rows[i] = append([]string(nil), row...)
	}
	return out
}

// Records returns the header followed by every row, the shape encoding/csv
// writes. The rows are copies.
func (f *Frame) Records() [][]string {
	out := make([][]string, 0, len(f.rows)+1)
	out = append(out, f.Columns())
	for i := range f.rows {
		out = append(out, f.Row(i))
	}
	return out
}
