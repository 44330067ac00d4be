package clean_test

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylake/traffic-weather-etl/internal/clean"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

func testSpec() domain.TableSpec {
	return domain.TableSpec{
		KeyColumn:   "traffic_id",
		TimeColumn:  "date_time",
		Categorical: []string{"city", "congestion_level"},
		Numeric:     []string{"vehicle_count", "avg_speed_kmh"},
	}
}

func rawTable(t *testing.T, csv string) *frame.Table {
	t.Helper()
	tbl, err := frame.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

func TestClean_DedupeByNaturalKey(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,Low,100,40
1,2024-01-01 11:00,London,High,200,40
2,2024-01-01 12:00,London,Low,150,40
,2024-01-01 13:00,London,Low,150,40
,2024-01-01 14:00,London,Low,150,40
`)

	out, report, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	// One duplicate key dropped; both null-key rows survive.
	assert.Equal(t, 4, out.NumRows())
	assert.Equal(t, 1, report.DuplicatesDropped)
}

func TestClean_WholeRowDedupeWithoutKeyColumn(t *testing.T) {
	tbl := rawTable(t, `date_time,city,congestion_level,vehicle_count,avg_speed_kmh
2024-01-01 10:00,London,Low,100,40
2024-01-01 10:00,London,Low,100,40
2024-01-01 10:00,London,High,100,40
`)

	out, report, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 1, report.DuplicatesDropped)
}

func TestClean_DropsUnparsableTimestamps(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,Low,100,40
2,TBD,London,Low,100,40
3,32/13/2025 25:61,London,Low,100,40
4,05/03/2024 03PM,London,Low,100,40
5,,London,Low,100,40
`)

	out, report, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 3, report.BadTimesDropped)

	dt, ok := out.Column("date_time")
	require.True(t, ok)
	assert.Equal(t, frame.KindTime, dt.Kind)
	for _, valid := range dt.Valid {
		assert.True(t, valid)
	}
}

func TestClean_CategoricalMode(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,High,100,40
2,2024-01-01 11:00,London,High,100,40
3,2024-01-01 12:00,Leeds,Low,100,40
4,2024-01-01 13:00,,,100,40
`)

	out, _, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	city, _ := out.Column("city")
	assert.Equal(t, "London", city.Strings[3], "missing city filled with mode")

	lvl, _ := out.Column("congestion_level")
	assert.Equal(t, "High", lvl.Strings[3])
}

func TestClean_CategoricalUnknownWhenNoObservations(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,,Low,100,40
2,2024-01-01 11:00,,Low,100,40
`)

	out, _, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	city, _ := out.Column("city")
	assert.Equal(t, []string{"Unknown", "Unknown"}, city.Strings)
}

func TestClean_ModeTieBreaksLexicographically(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,High,100,40
2,2024-01-01 11:00,Leeds,Low,100,40
3,2024-01-01 12:00,,Low,100,40
`)

	out, _, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	city, _ := out.Column("city")
	assert.Equal(t, "Leeds", city.Strings[2])
}

func TestClean_ClampsOutliersToFence(t *testing.T) {
	// 20 well-behaved speeds plus one negative and one huge value.
	var b strings.Builder
	b.WriteString("traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "%d,2024-01-01 10:00,London,Low,100,%d\n", i+1, 40+i)
	}
	b.WriteString("21,2024-01-01 10:00,London,Low,100,-15\n")
	b.WriteString("22,2024-01-01 10:00,London,Low,100,90000\n")

	out, report, err := clean.New(slog.Default()).Clean(rawTable(t, b.String()), testSpec())
	require.NoError(t, err)

	assert.Equal(t, 22, out.NumRows(), "clamping never drops rows")
	assert.Equal(t, 2, report.OutliersClamped)

	speed, _ := out.Column("avg_speed_kmh")
	observed := speed.Observed()
	q1 := frame.Quantile(observed, 0.25)
	q3 := frame.Quantile(observed, 0.75)
	lower := q1 - 1.5*(q3-q1)
	upper := q3 + 1.5*(q3-q1)
	for _, v := range observed {
		assert.GreaterOrEqual(t, v, lower)
		assert.LessOrEqual(t, v, upper)
	}
	assert.GreaterOrEqual(t, speed.Floats[20], 0.0, "negative speed clipped upward")
}

func TestClean_MedianImputationAfterClamp(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,Low,10,40
2,2024-01-01 11:00,London,Low,20,40
3,2024-01-01 12:00,London,Low,30,40
4,2024-01-01 13:00,London,Low,,40
5,2024-01-01 14:00,London,Low,notanumber,40
`)

	out, report, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	vc, _ := out.Column("vehicle_count")
	assert.Equal(t, 5, vc.Len())
	assert.Equal(t, 0, vc.Missing())
	assert.Equal(t, 20.0, vc.Floats[3], "missing filled with median")
	assert.Equal(t, 20.0, vc.Floats[4], "unparsable token treated as missing")
	assert.Equal(t, 2, report.ValuesImputed)
}

func TestClean_CorruptColumnDropsRowsBeforeClamping(t *testing.T) {
	// vehicle_count is missing in 3 of 5 rows (60% > 50%): those rows go.
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,London,Low,10,40
2,2024-01-01 11:00,London,Low,20,41
3,2024-01-01 12:00,London,Low,,42
4,2024-01-01 13:00,London,Low,,43
5,2024-01-01 14:00,London,Low,,44
`)

	out, report, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 3, report.CorruptRowsDropped)
	assert.Equal(t, 0, report.ValuesImputed, "nothing left to impute")
}

func TestClean_Idempotent(t *testing.T) {
	var b strings.Builder
	b.WriteString("traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "%d,2024-01-01 %02d:00,London,Low,%d,%d\n", i+1, i%24, 100+i, 40+i%10)
	}
	b.WriteString("31,2024-01-01 09:00,London,Low,9000,-5\n")

	cleaner := clean.New(slog.Default())
	once, _, err := cleaner.Clean(rawTable(t, b.String()), testSpec())
	require.NoError(t, err)

	twice, report, err := cleaner.Clean(once, testSpec())
	require.NoError(t, err)

	assert.Equal(t, once.NumRows(), twice.NumRows())
	assert.Equal(t, 0, report.DuplicatesDropped)
	assert.Equal(t, 0, report.BadTimesDropped)
	assert.Equal(t, 0, report.OutliersClamped)
	assert.Equal(t, 0, report.ValuesImputed)

	vcOnce, _ := once.Column("vehicle_count")
	vcTwice, _ := twice.Column("vehicle_count")
	assert.Equal(t, vcOnce.Floats, vcTwice.Floats)
}

func TestClean_MissingTimestampColumnIsError(t *testing.T) {
	tbl := rawTable(t, "traffic_id,city\n1,London\n")
	_, _, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	assert.Error(t, err)
}

func TestClean_InputNotMutated(t *testing.T) {
	tbl := rawTable(t, `traffic_id,date_time,city,congestion_level,vehicle_count,avg_speed_kmh
1,2024-01-01 10:00,,Low,100,40
`)

	_, _, err := clean.New(slog.Default()).Clean(tbl, testSpec())
	require.NoError(t, err)

	city, _ := tbl.Column("city")
	assert.False(t, city.Valid[0], "input table must stay untouched")
}
