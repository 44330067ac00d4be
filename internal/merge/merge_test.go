package merge_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylake/traffic-weather-etl/internal/frame"
	"github.com/citylake/traffic-weather-etl/internal/merge"
)

func day(d int, hour int) time.Time {
	return time.Date(2024, 1, d, hour, 0, 0, 0, time.UTC)
}

func trafficTable(cities []string, times []time.Time) *frame.Table {
	n := len(cities)
	counts := make([]float64, n)
	vis := make([]float64, n)
	for i := range counts {
		counts[i] = float64(100 + i)
		vis[i] = 5000
	}
	t := frame.New()
	t.MustAddColumn(frame.NewStringColumn("city", cities, nil))
	t.MustAddColumn(frame.NewTimeColumn("date_time", times, nil))
	t.MustAddColumn(frame.NewFloatColumn("vehicle_count", counts, nil))
	t.MustAddColumn(frame.NewFloatColumn("visibility_m", vis, nil))
	return t
}

func weatherTable(cities []string, times []time.Time, temps []float64) *frame.Table {
	n := len(cities)
	vis := make([]float64, n)
	for i := range vis {
		vis[i] = 800
	}
	t := frame.New()
	t.MustAddColumn(frame.NewStringColumn("city", cities, nil))
	t.MustAddColumn(frame.NewTimeColumn("date_time", times, nil))
	t.MustAddColumn(frame.NewFloatColumn("temperature_c", temps, nil))
	t.MustAddColumn(frame.NewFloatColumn("visibility_m", vis, nil))
	return t
}

func TestMerge_LeftJoinKeepsEveryTrafficRow(t *testing.T) {
	traffic := trafficTable(
		[]string{"London", "London", "Leeds"},
		[]time.Time{day(1, 8), day(1, 17), day(2, 9)},
	)
	weather := weatherTable(
		[]string{"London"},
		[]time.Time{day(1, 12)},
		[]float64{4.5},
	)

	out, err := merge.New(slog.Default()).Merge(traffic, weather)
	require.NoError(t, err)
	require.Equal(t, traffic.NumRows(), out.NumRows())

	temp, ok := out.Column("temperature_c")
	require.True(t, ok)
	// Both London rows on day 1 match the single weather summary; the time
	// of day plays no part in the join.
	assert.Equal(t, []bool{true, true, false}, temp.Valid)
	assert.Equal(t, 4.5, temp.Floats[0])
	assert.Equal(t, 4.5, temp.Floats[1])
}

func TestMerge_CollisionSuffixes(t *testing.T) {
	traffic := trafficTable([]string{"London"}, []time.Time{day(1, 8)})
	weather := weatherTable([]string{"London"}, []time.Time{day(1, 0)}, []float64{2})

	out, err := merge.New(slog.Default()).Merge(traffic, weather)
	require.NoError(t, err)

	assert.True(t, out.HasColumn("visibility_m_traffic"))
	assert.True(t, out.HasColumn("visibility_m_weather"))
	assert.True(t, out.HasColumn("date_time_traffic"))
	assert.True(t, out.HasColumn("date_time_weather"))
	assert.False(t, out.HasColumn("visibility_m"))

	// city is the join key and appears exactly once.
	assert.True(t, out.HasColumn("city"))

	vt, _ := out.Column("visibility_m_traffic")
	vw, _ := out.Column("visibility_m_weather")
	assert.Equal(t, 5000.0, vt.Floats[0])
	assert.Equal(t, 800.0, vw.Floats[0])
}

func TestMerge_EmptyWeather(t *testing.T) {
	cities := make([]string, 100)
	times := make([]time.Time, 100)
	for i := range cities {
		cities[i] = "London"
		times[i] = day(1+i%5, i%24)
	}
	traffic := trafficTable(cities, times)
	weather := weatherTable(nil, nil, nil)

	out, err := merge.New(slog.Default()).Merge(traffic, weather)
	require.NoError(t, err)
	require.Equal(t, 100, out.NumRows())

	temp, ok := out.Column("temperature_c")
	require.True(t, ok)
	assert.Equal(t, 100, temp.Missing(), "all weather-origin cells null")
}

func TestMerge_DuplicateWeatherKeyFirstWins(t *testing.T) {
	traffic := trafficTable([]string{"London"}, []time.Time{day(1, 8)})
	weather := weatherTable(
		[]string{"London", "London"},
		[]time.Time{day(1, 6), day(1, 18)},
		[]float64{1.0, 9.0},
	)

	out, err := merge.New(slog.Default()).Merge(traffic, weather)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows(), "fan-out must not inflate the row count")

	temp, _ := out.Column("temperature_c")
	assert.Equal(t, 1.0, temp.Floats[0])
}

func TestMerge_InputColumnNamesUntouched(t *testing.T) {
	traffic := trafficTable([]string{"London"}, []time.Time{day(1, 8)})
	weather := weatherTable([]string{"London"}, []time.Time{day(1, 0)}, []float64{2})

	_, err := merge.New(slog.Default()).Merge(traffic, weather)
	require.NoError(t, err)

	assert.True(t, traffic.HasColumn("visibility_m"))
	assert.True(t, weather.HasColumn("visibility_m"))
}
