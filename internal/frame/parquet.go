package frame

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet serializes the table to an in-memory snappy-compressed
// Parquet file. Every column becomes an optional leaf: doubles, UTF-8 byte
// arrays, or millisecond timestamps.
func (t *Table) WriteParquet() ([]byte, error) {
	if t.NumCols() == 0 {
		return nil, fmt.Errorf("write parquet: table has no columns")
	}

	schema, leafIdx := parquetSchema(t)

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[any](&buf, schema)

	rows := make([]parquet.Row, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		row := make(parquet.Row, t.NumCols())
		for _, c := range t.cols {
			idx := leafIdx[c.Name]
			if !c.Valid[r] {
				row[idx] = parquet.ValueOf(nil).Level(0, 0, idx)
				continue
			}
			var v parquet.Value
			switch c.Kind {
			case KindFloat:
				v = parquet.ValueOf(c.Floats[r])
			case KindTime:
				v = parquet.ValueOf(c.Times[r].UnixMilli())
			default:
				v = parquet.ValueOf(c.Strings[r])
			}
			row[idx] = v.Level(0, 1, idx)
		}
		rows[r] = row
	}

	if _, err := w.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadParquet deserializes a Parquet file produced by WriteParquet (or any
// flat file of optional double/string/timestamp leaves) into a table.
// Column order follows the file's leaf order.
func ReadParquet(data []byte) (*Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	schema := f.Schema()
	names := make([]string, 0, len(schema.Columns()))
	for _, path := range schema.Columns() {
		if len(path) != 1 {
			return nil, fmt.Errorf("nested parquet column %v not supported", path)
		}
		names = append(names, path[0])
	}

	kinds := make([]Kind, len(names))
	for _, field := range schema.Fields() {
		idx := -1
		for i, n := range names {
			if n == field.Name() {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		k, err := leafKind(field.Type())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name(), err)
		}
		kinds[idx] = k
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = &Column{Name: name, Kind: kinds[i]}
	}

	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, cols); err != nil {
			return nil, err
		}
	}

	t := New()
	for _, c := range cols {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parquetSchema(t *Table) (*parquet.Schema, map[string]int) {
	group := parquet.Group{}
	for _, c := range t.cols {
		var node parquet.Node
		switch c.Kind {
		case KindFloat:
			node = parquet.Leaf(parquet.DoubleType)
		case KindTime:
			node = parquet.Timestamp(parquet.Millisecond)
		default:
			node = parquet.String()
		}
		group[c.Name] = parquet.Compressed(parquet.Optional(node), &parquet.Snappy)
	}

	schema := parquet.NewSchema("table", group)
	leafIdx := make(map[string]int, len(t.cols))
	for i, path := range schema.Columns() {
		leafIdx[path[0]] = i
	}
	return schema, leafIdx
}

func leafKind(typ parquet.Type) (Kind, error) {
	if lt := typ.LogicalType(); lt != nil && lt.Timestamp != nil {
		return KindTime, nil
	}
	switch typ.Kind() {
	case parquet.Double, parquet.Float, parquet.Int32, parquet.Int64:
		return KindFloat, nil
	case parquet.ByteArray:
		return KindString, nil
	default:
		return KindString, fmt.Errorf("unsupported parquet kind %v", typ.Kind())
	}
}

func readRowGroup(rg parquet.RowGroup, cols []*Column) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, 256)
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			appendRow(row, cols)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func appendRow(row parquet.Row, cols []*Column) {
	for _, v := range row {
		c := cols[v.Column()]
		if v.IsNull() {
			c.Valid = append(c.Valid, false)
			switch c.Kind {
			case KindFloat:
				c.Floats = append(c.Floats, 0)
			case KindTime:
				c.Times = append(c.Times, time.Time{})
			default:
				c.Strings = append(c.Strings, "")
			}
			continue
		}
		c.Valid = append(c.Valid, true)
		switch c.Kind {
		case KindFloat:
			c.Floats = append(c.Floats, numericValue(v))
		case KindTime:
			c.Times = append(c.Times, time.UnixMilli(v.Int64()).UTC())
		default:
			c.Strings = append(c.Strings, string(v.ByteArray()))
		}
	}
}

func numericValue(v parquet.Value) float64 {
	switch v.Kind() {
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Int32:
		return float64(v.Int32())
	default:
		return float64(v.Int64())
	}
}
