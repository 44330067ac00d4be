package gen

import "github.com/citylake/traffic-weather-etl/internal/frame"

const (
	weatherIDStart      = 5001
	weatherDuplicateIDs = 20
	weatherNullIDs      = 10
)

var weatherBadTimestamps = []string{"Unknown", "2099-13-40 25:61", "32/15/2024 99:99", "2024-01-15T99:00Z", ""}

// Weather generates n raw weather rows. Seasons are derived from the row's
// timestamp, so malformed timestamps propagate messy season labels, and
// temperatures follow a loose seasonal range.
func (g *Generator) Weather(n int) *frame.Table {
	ids := make([]cell, n)
	for i := range ids {
		ids[i] = strf("%d", weatherIDStart+i)
	}
	for i := 0; i < weatherDuplicateIDs; i++ {
		ids[g.rng.Intn(n)] = ids[g.rng.Intn(n)]
	}
	for i := 0; i < weatherNullIDs; i++ {
		ids[g.rng.Intn(n)] = null()
	}

	times := make([]cell, n)
	seasons := make([]cell, n)
	for i := range times {
		if g.pct(badTimestampPct) {
			times[i] = g.badTimestamp(weatherBadTimestamps)
		} else {
			times[i] = str(g.goodTimestamp(i))
		}
		seasons[i] = g.season(times[i])
	}

	cities := make([]cell, n)
	conditions := make([]cell, n)
	for i := 0; i < n; i++ {
		cities[i] = g.pickCell([]string{"London", ""})
		conditions[i] = g.pickCell([]string{"Clear", "Rain", "Fog", "Storm", "Snow", ""})
	}

	temps := make([]cell, n)
	for i := 0; i < n; i++ {
		if g.pct(nullValuePct) {
			temps[i] = null()
			continue
		}
		var t float64
		switch season := seasons[i]; {
		case season.ok && season.value == "Winter":
			t = g.uniform(-5, 15)
		case season.ok && season.value == "Spring":
			t = g.uniform(5, 20)
		case season.ok && season.value == "Summer":
			t = g.uniform(10, 35)
		case season.ok && season.value == "Autumn":
			t = g.uniform(0, 20)
		default:
			t = g.uniform(-5, 35)
		}
		if g.pct(messyNumericPct) {
			t = g.pick2(-30, 60)
		}
		temps[i] = strf("%.2f", t)
	}

	humidity := make([]cell, n)
	rain := make([]cell, n)
	wind := make([]cell, n)
	visibility := make([]cell, n)
	for i := 0; i < n; i++ {
		switch {
		case g.pct(nullValuePct):
			humidity[i] = null()
		case g.pct(messyNumericPct):
			humidity[i] = strf("%.0f", g.pick2(-10, 150))
		default:
			humidity[i] = strf("%d", g.intBetween(20, 100))
		}

		switch {
		case g.pct(nullValuePct):
			rain[i] = null()
		case g.pct(messyNumericPct):
			rain[i] = strf("%.2f", g.uniform(120, 200))
		default:
			rain[i] = strf("%.2f", g.uniform(0, 50))
		}

		switch {
		case g.pct(nullValuePct):
			wind[i] = null()
		case g.pct(messyNumericPct):
			wind[i] = strf("%.2f", g.uniform(200, 300))
		default:
			wind[i] = strf("%.2f", g.uniform(0, 80))
		}

		switch {
		case g.pct(nullValuePct):
			visibility[i] = null()
		case g.pct(messyNumericPct):
			visibility[i] = g.pickCell([]string{"50000", "Unknown", "NaN", "xxx"})
		default:
			visibility[i] = strf("%d", g.intBetween(50, 10000))
		}
	}

	t := frame.New()
	t.MustAddColumn(column("weather_id", ids))
	t.MustAddColumn(column("date_time", times))
	t.MustAddColumn(column("city", cities))
	t.MustAddColumn(column("season", seasons))
	t.MustAddColumn(column("temperature_c", temps))
	t.MustAddColumn(column("humidity", humidity))
	t.MustAddColumn(column("rain_mm", rain))
	t.MustAddColumn(column("wind_speed_kmh", wind))
	t.MustAddColumn(column("visibility_m", visibility))
	t.MustAddColumn(column("weather_condition", conditions))
	return t
}
