package models

import "fmt"

// Dataset is the tabular file held in memory: a header and rows of cells.
// An empty cell is a missing value.
type Dataset struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewDataset builds a Dataset over the given header.
func NewDataset(columns []string) *Dataset {
	d := &Dataset{Columns: append([]string(nil), columns...)}
	d.reindex()
	return d
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		if _, dup := d.index[c]; !dup {
			d.index[c] = i
		}
	}
}

// Index returns the position of column name.
func (d *Dataset) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Has reports whether the dataset has a column called name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Require returns an error naming the first missing column.
func (d *Dataset) Require(names ...string) error {
	for _, n := range names {
		if !d.Has(n) {
			return fmt.Errorf("missing column %q", n)
		}
	}
	return nil
}

// AddColumn appends a column filled with empty cells and returns its index.
// An existing column is left as is.
func (d *Dataset) AddColumn(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	d.Columns = append(d.Columns, name)
	i := len(d.Columns) - 1
	d.index[name] = i
	for r := range d.Rows {
		d.Rows[r] = append(d.Rows[r], "")
	}
	return i
}

// Append adds a row, padding or truncating it to the header width.
func (d *Dataset) Append(row []string) {
	switch {
	case len(row) < len(d.Columns):
		row = append(row, make([]string, len(d.Columns)-len(row))...)
	case len(row) > len(d.Columns):
		row = row[:len(d.Columns)]
	}
	d.Rows = append(d.Rows, row)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// CleanedDataset is the output of the transform: the cleaned table plus its
// typed projection.
type CleanedDataset struct {
	Table        *Dataset
	Transactions []*Transaction
	Stats        TransformResult
}
