package gen_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylake/traffic-weather-etl/internal/clean"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/gen"
)

func TestTrafficShape(t *testing.T) {
	tbl := gen.New(1).Traffic(2000)

	assert.Equal(t, 2000, tbl.NumRows())
	for _, name := range []string{
		"traffic_id", "date_time", "city", "area", "vehicle_count", "avg_speed_kmh",
		"accident_count", "congestion_level", "road_condition", "visibility_m",
	} {
		assert.True(t, tbl.HasColumn(name), "missing column %s", name)
	}

	ids, _ := tbl.Column("traffic_id")
	assert.Greater(t, ids.Missing(), 0, "expected some null ids")
}

func TestWeatherShape(t *testing.T) {
	tbl := gen.New(1).Weather(2000)

	assert.Equal(t, 2000, tbl.NumRows())
	for _, name := range []string{
		"weather_id", "date_time", "city", "season", "temperature_c", "humidity",
		"rain_mm", "wind_speed_kmh", "visibility_m", "weather_condition",
	} {
		assert.True(t, tbl.HasColumn(name), "missing column %s", name)
	}
}

func TestBadTimestampRate(t *testing.T) {
	tbl := gen.New(42).Traffic(5000)

	times, ok := tbl.Column("date_time")
	require.True(t, ok)

	bad := 0
	for i := 0; i < times.Len(); i++ {
		if !times.Valid[i] {
			bad++
			continue
		}
		if _, err := domain.ParseTimestamp(times.Strings[i]); err != nil {
			bad++
		}
	}
	rate := float64(bad) / 5000
	assert.InDelta(t, 0.07, rate, 0.02)
}

func TestSeasonTracksTimestamp(t *testing.T) {
	tbl := gen.New(3).Weather(3000)

	times, _ := tbl.Column("date_time")
	seasons, _ := tbl.Column("season")
	checked := 0
	for i := 0; i < times.Len(); i++ {
		if !times.Valid[i] || !seasons.Valid[i] {
			continue
		}
		dt, err := domain.ParseTimestamp(times.Strings[i])
		if err != nil {
			continue
		}
		want := map[int]string{
			12: "Winter", 1: "Winter", 2: "Winter",
			3: "Spring", 4: "Spring", 5: "Spring",
			6: "Summer", 7: "Summer", 8: "Summer",
			9: "Autumn", 10: "Autumn", 11: "Autumn",
		}[int(dt.Month())]
		assert.Equal(t, want, seasons.Strings[i])
		checked++
	}
	assert.Greater(t, checked, 2000)
}

func TestReproducibleWithSeed(t *testing.T) {
	a := gen.New(7).Traffic(500)
	b := gen.New(7).Traffic(500)

	for _, name := range a.Names() {
		ca, _ := a.Column(name)
		cb, _ := b.Column(name)
		assert.Equal(t, ca.Strings, cb.Strings, "column %s", name)
		assert.Equal(t, ca.Valid, cb.Valid, "column %s", name)
	}
}

func TestGeneratedDataSurvivesCleaning(t *testing.T) {
	cleaner := clean.New(slog.Default())

	traffic, rep, err := cleaner.Clean(gen.New(11).Traffic(1500), domain.TrafficSpec())
	require.NoError(t, err)
	assert.Greater(t, traffic.NumRows(), 1000)
	assert.Greater(t, rep.BadTimesDropped, 0)

	weather, _, err := cleaner.Clean(gen.New(12).Weather(1500), domain.WeatherSpec())
	require.NoError(t, err)
	assert.Greater(t, weather.NumRows(), 1000)

	for _, c := range traffic.FloatColumns() {
		assert.Zero(t, c.Missing(), "column %s has nulls after cleaning", c.Name)
	}
}
