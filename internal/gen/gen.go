// Package gen produces synthetic raw traffic and weather datasets with the
// defects the cleaning stage is built to repair: duplicate and null IDs,
// malformed timestamps, null categories, and out-of-range numerics.
package gen

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

const (
	badTimestampPct = 7
	nullValuePct    = 5
	outlierPct      = 5
	rareOutlierPct  = 2
	messyNumericPct = 3
)

// baseDate anchors the hourly timestamp sequence of generated rows.
var baseDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generator builds raw datasets from a seeded source so fixtures are
// reproducible.
type Generator struct {
	rng *rand.Rand
}

func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// cell is one raw CSV value; ok=false renders as an empty cell.
type cell struct {
	value string
	ok    bool
}

func null() cell            { return cell{} }
func str(v string) cell     { return cell{value: v, ok: true} }
func strf(format string, args ...any) cell {
	return cell{value: fmt.Sprintf(format, args...), ok: true}
}

// pct rolls a 1..100 die and reports whether it landed at or under p.
func (g *Generator) pct(p int) bool { return g.rng.Intn(100) < p }

func (g *Generator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

// pickCell picks from options where an empty string means a null cell.
func (g *Generator) pickCell(options []string) cell {
	v := g.pick(options)
	if v == "" {
		return null()
	}
	return str(v)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) intBetween(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// pick2 chooses one of two values, for columns whose corruption is a coin
// flip between two fixed extremes.
func (g *Generator) pick2(a, b float64) float64 {
	if g.rng.Intn(2) == 0 {
		return a
	}
	return b
}

// goodTimestamp renders the i-th hourly timestamp in one of the three
// formats the parser accepts.
func (g *Generator) goodTimestamp(i int) string {
	dt := baseDate.Add(time.Duration(i) * time.Hour)
	switch g.rng.Intn(3) {
	case 0:
		return dt.Format("2006-01-02 15:04")
	case 1:
		return dt.Format("02/01/2006 03PM")
	default:
		return dt.Format("2006-01-02T15:04Z")
	}
}

func (g *Generator) badTimestamp(options []string) cell {
	return g.pickCell(options)
}

// column renders cells as a raw string column; null cells become missing.
func column(name string, cells []cell) *frame.Column {
	values := make([]string, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		values[i] = c.value
		valid[i] = c.ok
	}
	return frame.NewStringColumn(name, values, valid)
}

// season maps a parseable timestamp to its meteorological season. Malformed
// inputs get the same messy treatment the raw sources show.
func (g *Generator) season(ts cell) cell {
	if !ts.ok {
		return null()
	}
	dt, err := domain.ParseTimestamp(ts.value)
	if err != nil {
		return g.pickCell([]string{"", "Winter", "FoggySeason"})
	}
	switch dt.Month() {
	case time.December, time.January, time.February:
		return str("Winter")
	case time.March, time.April, time.May:
		return str("Spring")
	case time.June, time.July, time.August:
		return str("Summer")
	default:
		return str("Autumn")
	}
}
