package frame

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// ReadCSV parses a headered CSV into a table of string columns. Empty cells
// become missing values; typing happens later, during cleaning.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	values := make([][]string, len(header))
	valid := make([][]bool, len(header))

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		for i := range header {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			values[i] = append(values[i], cell)
			valid[i] = append(valid[i], cell != "")
		}
	}

	t := New()
	for i, name := range header {
		if err := t.AddColumn(NewStringColumn(name, values[i], valid[i])); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV renders the table as headered CSV. Missing values are written as
// empty cells.
func (t *Table) WriteCSV() ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(t.Names()); err != nil {
		return nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		rec := make([]string, t.NumCols())
		for j, c := range t.cols {
			if !c.Valid[i] {
				continue
			}
			switch c.Kind {
			case KindFloat:
				rec[j] = formatFloat(c.Floats[i])
			case KindTime:
				rec[j] = c.Times[i].Format("2006-01-02 15:04")
			default:
				rec[j] = c.Strings[i]
			}
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func formatFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
