package frame

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "id,city,count\n1,London,10\n2,,20\n3,Leeds,\n"

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"id", "city", "count"}, tbl.Names())

	city, ok := tbl.Column("city")
	require.True(t, ok)
	assert.Equal(t, []bool{true, false, true}, city.Valid)
	assert.Equal(t, "London", city.Strings[0])

	count, ok := tbl.Column("count")
	require.True(t, ok)
	assert.False(t, count.Valid[2], "empty cell should be missing")
}

func TestReadCSV_RaggedRow(t *testing.T) {
	in := "a,b\n1\n2,3\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.NumRows())

	b, _ := tbl.Column("b")
	assert.False(t, b.Valid[0], "short row pads with missing")
}

func TestTable_Filter(t *testing.T) {
	tbl := New()
	tbl.MustAddColumn(NewFloatColumn("x", []float64{1, 2, 3}, nil))
	tbl.MustAddColumn(NewStringColumn("s", []string{"a", "b", "c"}, nil))

	out := tbl.Filter([]bool{true, false, true})
	assert.Equal(t, 2, out.NumRows())
	x, _ := out.Column("x")
	assert.Equal(t, []float64{1, 3}, x.Floats)
}

func TestTable_DedupeRows(t *testing.T) {
	tbl := New()
	tbl.MustAddColumn(NewStringColumn("a", []string{"x", "x", "y", "x"}, nil))
	tbl.MustAddColumn(NewFloatColumn("n", []float64{1, 1, 1, 2}, nil))

	out := tbl.DedupeRows()
	assert.Equal(t, 3, out.NumRows(), "only the exact duplicate row goes")
}

func TestTable_DedupeRows_MissingDistinctFromZero(t *testing.T) {
	tbl := New()
	tbl.MustAddColumn(NewFloatColumn("n", []float64{0, 0}, []bool{true, false}))

	out := tbl.DedupeRows()
	assert.Equal(t, 2, out.NumRows(), "a missing cell is not equal to a present zero")
}

func TestTable_AddColumn_Errors(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.AddColumn(NewFloatColumn("x", []float64{1, 2}, nil)))

	assert.Error(t, tbl.AddColumn(NewFloatColumn("x", []float64{3, 4}, nil)), "duplicate name")
	assert.Error(t, tbl.AddColumn(NewFloatColumn("y", []float64{1}, nil)), "length mismatch")
}

func TestTable_Rename(t *testing.T) {
	tbl := New()
	tbl.MustAddColumn(NewFloatColumn("visibility_m", []float64{1}, nil))

	require.NoError(t, tbl.Rename("visibility_m", "visibility_m_traffic"))
	assert.True(t, tbl.HasColumn("visibility_m_traffic"))
	assert.False(t, tbl.HasColumn("visibility_m"))
}

func TestTable_Clone_Isolated(t *testing.T) {
	tbl := New()
	tbl.MustAddColumn(NewFloatColumn("x", []float64{1, 2}, nil))

	cp := tbl.Clone()
	x, _ := cp.Column("x")
	x.Floats[0] = 99

	orig, _ := tbl.Column("x")
	assert.Equal(t, 1.0, orig.Floats[0])
}

func TestParquetRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)

	tbl := New()
	tbl.MustAddColumn(NewFloatColumn("vehicle_count", []float64{120, 0, 43.5}, []bool{true, false, true}))
	tbl.MustAddColumn(NewStringColumn("city", []string{"London", "London", ""}, []bool{true, true, false}))
	tbl.MustAddColumn(NewTimeColumn("date_time", []time.Time{ts, ts.Add(time.Hour), {}}, []bool{true, true, false}))

	data, err := tbl.WriteParquet()
	require.NoError(t, err)

	got, err := ReadParquet(data)
	require.NoError(t, err)
	require.Equal(t, 3, got.NumRows())

	vc, ok := got.Column("vehicle_count")
	require.True(t, ok)
	assert.Equal(t, []bool{true, false, true}, vc.Valid)
	assert.Equal(t, 120.0, vc.Floats[0])
	assert.Equal(t, 43.5, vc.Floats[2])

	city, ok := got.Column("city")
	require.True(t, ok)
	assert.Equal(t, "London", city.Strings[0])
	assert.False(t, city.Valid[2])

	dt, ok := got.Column("date_time")
	require.True(t, ok)
	assert.Equal(t, KindTime, dt.Kind)
	assert.Equal(t, ts, dt.Times[0])
	assert.False(t, dt.Valid[2])
}
