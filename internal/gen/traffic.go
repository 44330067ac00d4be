package gen

import "github.com/citylake/traffic-weather-etl/internal/frame"

const (
	trafficIDStart      = 9001
	trafficDuplicateIDs = 15
	trafficNullIDs      = 8
)

var trafficBadTimestamps = []string{"TBD", "2099-00-00 99:99", "32/13/2025 25:61", "Invalid", ""}

// Traffic generates n raw traffic rows. IDs are sequential with a handful of
// duplicates and nulls injected; every other column carries its own defect mix.
func (g *Generator) Traffic(n int) *frame.Table {
	ids := make([]cell, n)
	for i := range ids {
		ids[i] = strf("%d", trafficIDStart+i)
	}
	for i := 0; i < trafficDuplicateIDs; i++ {
		ids[g.rng.Intn(n)] = ids[g.rng.Intn(n)]
	}
	for i := 0; i < trafficNullIDs; i++ {
		ids[g.rng.Intn(n)] = null()
	}

	times := make([]cell, n)
	for i := range times {
		if g.pct(badTimestampPct) {
			times[i] = g.badTimestamp(trafficBadTimestamps)
		} else {
			times[i] = str(g.goodTimestamp(i))
		}
	}

	cities := make([]cell, n)
	areas := make([]cell, n)
	congestion := make([]cell, n)
	road := make([]cell, n)
	for i := 0; i < n; i++ {
		cities[i] = g.pickCell([]string{"London", ""})
		areas[i] = g.pickCell([]string{"Camden", "Chelsea", "Islington", "Southwark", "Kensington", ""})
		congestion[i] = g.pickCell([]string{"Low", "Medium", "High", ""})
		road[i] = g.pickCell([]string{"Dry", "Wet", "Snowy", "Damaged", ""})
	}

	vehicles := make([]cell, n)
	speeds := make([]cell, n)
	accidents := make([]cell, n)
	visibility := make([]cell, n)
	for i := 0; i < n; i++ {
		switch {
		case g.pct(outlierPct):
			vehicles[i] = strf("%d", g.intBetween(10000, 25000))
		case g.pct(nullValuePct):
			vehicles[i] = null()
		default:
			vehicles[i] = strf("%d", g.intBetween(0, 5000))
		}

		switch {
		case g.pct(outlierPct):
			speeds[i] = strf("%.2f", g.uniform(-20, -1))
		case g.pct(nullValuePct):
			speeds[i] = null()
		default:
			speeds[i] = strf("%.2f", g.uniform(3, 120))
		}

		switch {
		case g.pct(rareOutlierPct):
			accidents[i] = strf("%d", g.intBetween(20, 60))
		case g.pct(nullValuePct):
			accidents[i] = null()
		default:
			accidents[i] = strf("%d", g.intBetween(0, 10))
		}

		switch {
		case g.pct(outlierPct):
			visibility[i] = strf("%d", g.intBetween(20000, 50000))
		case g.pct(nullValuePct):
			visibility[i] = null()
		default:
			visibility[i] = strf("%d", g.intBetween(50, 10000))
		}
	}

	t := frame.New()
	t.MustAddColumn(column("traffic_id", ids))
	t.MustAddColumn(column("date_time", times))
	t.MustAddColumn(column("city", cities))
	t.MustAddColumn(column("area", areas))
	t.MustAddColumn(column("vehicle_count", vehicles))
	t.MustAddColumn(column("avg_speed_kmh", speeds))
	t.MustAddColumn(column("accident_count", accidents))
	t.MustAddColumn(column("congestion_level", congestion))
	t.MustAddColumn(column("road_condition", road))
	t.MustAddColumn(column("visibility_m", visibility))
	return t
}
