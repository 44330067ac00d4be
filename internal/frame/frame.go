// Package frame provides the in-memory columnar table the pipeline stages
// exchange: CSV in at the bronze tier, Parquet in and out everywhere else.
package frame

import (
	"fmt"
	"time"
)

// Kind is the value type of a column.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindTime
)

// Column is a single named column with a validity mask. Exactly one of the
// value slices is populated, matching Kind.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Floats  []float64
	Times   []time.Time
	Valid   []bool
}

// NewStringColumn builds a string column. A nil valid mask marks every value
// present.
func NewStringColumn(name string, values []string, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: KindString, Strings: values, Valid: valid}
}

// NewFloatColumn builds a float column. A nil valid mask marks every value
// present.
func NewFloatColumn(name string, values []float64, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: KindFloat, Floats: values, Valid: valid}
}

// NewTimeColumn builds a timestamp column. A nil valid mask marks every
// value present.
func NewTimeColumn(name string, values []time.Time, valid []bool) *Column {
	if valid == nil {
		valid = allValid(len(values))
	}
	return &Column{Name: name, Kind: KindTime, Times: values, Valid: valid}
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// Len returns the number of rows in the column.
func (c *Column) Len() int { return len(c.Valid) }

// Missing counts invalid entries.
func (c *Column) Missing() int {
	n := 0
	for _, ok := range c.Valid {
		if !ok {
			n++
		}
	}
	return n
}

// Observed returns the valid float values in row order. Only meaningful for
// float columns.
func (c *Column) Observed() []float64 {
	out := make([]float64, 0, len(c.Floats))
	for i, ok := range c.Valid {
		if ok {
			out = append(out, c.Floats[i])
		}
	}
	return out
}

// cell returns a comparable representation of one entry, used for whole-row
// duplicate detection.
func (c *Column) cell(i int) string {
	if !c.Valid[i] {
		return "\x00null"
	}
	switch c.Kind {
	case KindFloat:
		return fmt.Sprintf("f%g", c.Floats[i])
	case KindTime:
		return "t" + c.Times[i].Format(time.RFC3339)
	default:
		return "s" + c.Strings[i]
	}
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	out.Valid = append([]bool(nil), c.Valid...)
	switch c.Kind {
	case KindFloat:
		out.Floats = append([]float64(nil), c.Floats...)
	case KindTime:
		out.Times = append([]time.Time(nil), c.Times...)
	default:
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

// filter returns a copy of the column keeping only rows where keep is true.
func (c *Column) filter(keep []bool) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	for i, k := range keep {
		if !k {
			continue
		}
		out.Valid = append(out.Valid, c.Valid[i])
		switch c.Kind {
		case KindFloat:
			out.Floats = append(out.Floats, c.Floats[i])
		case KindTime:
			out.Times = append(out.Times, c.Times[i])
		default:
			out.Strings = append(out.Strings, c.Strings[i])
		}
	}
	return out
}

// Table is a rectangular collection of columns in insertion order.
type Table struct {
	cols  []*Column
	index map[string]int
}

// New creates an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// AddColumn appends a column. The column length must match the table's
// existing row count and the name must be unique.
func (t *Table) AddColumn(c *Column) error {
	if _, dup := t.index[c.Name]; dup {
		return fmt.Errorf("duplicate column %q", c.Name)
	}
	if len(t.cols) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// MustAddColumn is AddColumn for construction paths where a mismatch is a
// programming error.
func (t *Table) MustAddColumn(c *Column) {
	if err := t.AddColumn(c); err != nil {
		panic(err)
	}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return t.cols[0].Len()
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Columns returns the columns in insertion order.
func (t *Table) Columns() []*Column { return t.cols }

// Names returns the column names in insertion order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// FloatColumns returns the float-typed columns in insertion order.
func (t *Table) FloatColumns() []*Column {
	var out []*Column
	for _, c := range t.cols {
		if c.Kind == KindFloat {
			out = append(out, c)
		}
	}
	return out
}

// ReplaceColumn swaps a column in place, keeping its position.
func (t *Table) ReplaceColumn(c *Column) error {
	i, ok := t.index[c.Name]
	if !ok {
		return fmt.Errorf("no column %q", c.Name)
	}
	if c.Len() != t.NumRows() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	t.cols[i] = c
	return nil
}

// Rename changes a column's name in place.
func (t *Table) Rename(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("no column %q", from)
	}
	if _, dup := t.index[to]; dup {
		return fmt.Errorf("duplicate column %q", to)
	}
	delete(t.index, from)
	t.cols[i].Name = to
	t.index[to] = i
	return nil
}

// Filter returns a new table keeping rows where keep is true.
func (t *Table) Filter(keep []bool) *Table {
	out := New()
	for _, c := range t.cols {
		out.MustAddColumn(c.filter(keep))
	}
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	out := New()
	for _, c := range t.cols {
		out.MustAddColumn(c.clone())
	}
	return out
}

// rowKey concatenates every cell of a row, for whole-row dedup.
func (t *Table) rowKey(i int) string {
	key := ""
	for _, c := range t.cols {
		key += c.cell(i) + "\x1f"
	}
	return key
}

// DedupeRows drops exact duplicate rows, keeping first occurrences.
func (t *Table) DedupeRows() *Table {
	seen := make(map[string]bool, t.NumRows())
	keep := make([]bool, t.NumRows())
	for i := range keep {
		k := t.rowKey(i)
		if !seen[k] {
			seen[k] = true
			keep[i] = true
		}
	}
	return t.Filter(keep)
}
