// Package dataset provides a minimal column-oriented table used as the
// evaluation input for metric functions: named columns, raw string cells,
// typed accessors, and group-by on a single column. It is intentionally not
// a dataframe library; the metric battery only needs these operations.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Frame is an immutable rows-by-named-columns table.
type Frame struct {
	columns []string
	index   map[string]int
	cells   [][]string // cells[col][row]
	rows    int
}

// New builds a frame from column names and row-major records.
func New(columns []string, records [][]string) (*Frame, error) {
	f := &Frame{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
		cells:   make([][]string, len(columns)),
		rows:    len(records),
	}
	for i, c := range columns {
		if _, dup := f.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		f.index[c] = i
		f.cells[i] = make([]string, len(records))
	}
	for r, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r, len(rec), len(columns))
		}
		for c, v := range rec {
			f.cells[c][r] = v
		}
	}
	return f, nil
}

// ReadCSV parses a headered CSV stream into a frame.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty csv: no header row")
	}
	return New(all[0], all[1:])
}

// LoadCSV reads a headered CSV file into a frame.
func LoadCSV(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := ReadCSV(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Len returns the row count.
func (f *Frame) Len() int { return f.rows }

// Columns returns the column names in declaration order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the raw cells of a column.
func (f *Frame) Column(name string) ([]string, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found (available: %v)", name, f.columns)
	}
	return f.cells[i], nil
}

// Floats parses a column as float64. Cells like "1", "0", "0.83" parse
// directly; empty cells are an error so metrics never compute over holes.
func (f *Frame) Floats(name string) ([]float64, error) {
	raw, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	vals := make([]float64, len(raw))
	for i, cell := range raw {
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %q is not numeric", name, i, cell)
		}
		vals[i] = v
	}
	return vals, nil
}

// GroupBy partitions row indices by the value of one column. Group order
// follows first appearance, so iteration over Groups is deterministic.
func (f *Frame) GroupBy(name string) (*Grouping, error) {
	raw, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	g := &Grouping{byKey: make(map[string][]int)}
	for i, cell := range raw {
		if _, seen := g.byKey[cell]; !seen {
			g.keys = append(g.keys, cell)
		}
		g.byKey[cell] = append(g.byKey[cell], i)
	}
	return g, nil
}

// WithFloatColumn returns a copy of the frame with one extra numeric column,
// used to materialize caller-supplied series (typically model predictions).
// An existing column of the same name is replaced.
func (f *Frame) WithFloatColumn(name string, vals []float64) (*Frame, error) {
	if len(vals) != f.rows {
		return nil, fmt.Errorf("series %q has %d values, dataset has %d rows", name, len(vals), f.rows)
	}
	cells := make([]string, len(vals))
	for i, v := range vals {
		cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	out := &Frame{
		columns: append([]string(nil), f.columns...),
		index:   make(map[string]int, len(f.columns)+1),
		cells:   append([][]string(nil), f.cells...),
		rows:    f.rows,
	}
	for i, c := range out.columns {
		out.index[c] = i
	}
	if i, ok := out.index[name]; ok {
		out.cells[i] = cells
		return out, nil
	}
	out.columns = append(out.columns, name)
	out.index[name] = len(out.cells)
	out.cells = append(out.cells, cells)
	return out, nil
}

// Grouping is the result of GroupBy: row indices keyed by cell value.
type Grouping struct {
	keys  []string
	byKey map[string][]int
}

// Keys returns group keys in first-appearance order.
func (g *Grouping) Keys() []string { return g.keys }

// Rows returns the row indices for one group key.
func (g *Grouping) Rows(key string) []int { return g.byKey[key] }

// Len returns the number of distinct groups.
func (g *Grouping) Len() int { return len(g.keys) }
