// Package merge joins the cleaned traffic and weather tables into the
// silver-tier analytical table.
package merge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

// Merger left-joins weather onto traffic by (city, calendar date).
type Merger struct {
	logger *slog.Logger
}

// New creates a Merger.
func New(logger *slog.Logger) *Merger {
	return &Merger{logger: logger}
}

// Merge performs the left-outer join. Every traffic row survives; rows
// without a weather match carry missing weather cells (absence is preserved,
// never imputed). Colliding column names get _traffic / _weather suffixes.
// When several weather rows share a (city, date) key the first wins, so the
// output row count always equals the traffic row count.
func (m *Merger) Merge(traffic, weather *frame.Table) (*frame.Table, error) {
	tCity, ok := traffic.Column("city")
	if !ok {
		return nil, fmt.Errorf("traffic table has no city column")
	}
	tTime, ok := traffic.Column("date_time")
	if !ok || tTime.Kind != frame.KindTime {
		return nil, fmt.Errorf("traffic table has no normalized date_time column")
	}

	weatherIdx, err := weatherIndex(weather)
	if err != nil {
		return nil, err
	}

	// Row index into the weather table per traffic row; -1 means no match.
	match := make([]int, traffic.NumRows())
	matched := 0
	for i := range match {
		match[i] = -1
		if !tCity.Valid[i] || !tTime.Valid[i] {
			continue
		}
		k := joinKey(tCity.Strings[i], tTime.Times[i])
		if j, ok := weatherIdx[k]; ok {
			match[i] = j
			matched++
		}
	}

	out := frame.New()
	collisions := collidingNames(traffic, weather)

	for _, c := range traffic.Columns() {
		col := copyColumn(c)
		if collisions[c.Name] {
			col.Name += "_traffic"
		}
		if err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}
	for _, c := range weather.Columns() {
		if c.Name == "city" {
			continue // join key, already present from traffic
		}
		col := gatherColumn(c, match, collisions)
		if err := out.AddColumn(col); err != nil {
			return nil, err
		}
	}

	m.logger.Info("tables merged",
		"traffic_rows", traffic.NumRows(),
		"weather_rows", weather.NumRows(),
		"merged_rows", out.NumRows(),
		"matched_rows", matched,
	)
	return out, nil
}

// weatherIndex maps (city, date) to the first weather row carrying that key.
func weatherIndex(weather *frame.Table) (map[string]int, error) {
	idx := make(map[string]int)
	if weather.NumRows() == 0 {
		return idx, nil
	}

	wCity, ok := weather.Column("city")
	if !ok {
		return nil, fmt.Errorf("weather table has no city column")
	}
	wTime, ok := weather.Column("date_time")
	if !ok || wTime.Kind != frame.KindTime {
		return nil, fmt.Errorf("weather table has no normalized date_time column")
	}

	for i := 0; i < weather.NumRows(); i++ {
		if !wCity.Valid[i] || !wTime.Valid[i] {
			continue
		}
		k := joinKey(wCity.Strings[i], wTime.Times[i])
		if _, dup := idx[k]; !dup {
			idx[k] = i
		}
	}
	return idx, nil
}

func joinKey(city string, t time.Time) string {
	return city + "|" + domain.DateOnly(t).Format("2006-01-02")
}

// collidingNames returns the column names present in both tables, excluding
// the city join key.
func collidingNames(traffic, weather *frame.Table) map[string]bool {
	out := make(map[string]bool)
	for _, c := range traffic.Columns() {
		if c.Name == "city" {
			continue
		}
		if weather.HasColumn(c.Name) {
			out[c.Name] = true
		}
	}
	return out
}

// copyColumn shallow-copies a column so renames cannot leak into the input.
func copyColumn(c *frame.Column) *frame.Column {
	return &frame.Column{
		Name:    c.Name,
		Kind:    c.Kind,
		Strings: c.Strings,
		Floats:  c.Floats,
		Times:   c.Times,
		Valid:   c.Valid,
	}
}

// gatherColumn projects a weather column onto the traffic row order via the
// match indexes, inserting missing cells for unmatched rows.
func gatherColumn(c *frame.Column, match []int, collisions map[string]bool) *frame.Column {
	name := c.Name
	if collisions[name] {
		name += "_weather"
	}

	n := len(match)
	out := &frame.Column{Name: name, Kind: c.Kind, Valid: make([]bool, n)}
	switch c.Kind {
	case frame.KindFloat:
		out.Floats = make([]float64, n)
	case frame.KindTime:
		out.Times = make([]time.Time, n)
	default:
		out.Strings = make([]string, n)
	}

	for i, j := range match {
		if j < 0 || !c.Valid[j] {
			continue
		}
		out.Valid[i] = true
		switch c.Kind {
		case frame.KindFloat:
			out.Floats[i] = c.Floats[j]
		case frame.KindTime:
			out.Times[i] = c.Times[j]
		default:
			out.Strings[i] = c.Strings[j]
		}
	}
	return out
}
