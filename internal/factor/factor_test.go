package factor_test

import (
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylake/traffic-weather-etl/internal/factor"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

// syntheticTable builds a table whose numeric columns share two latent
// drivers, plus a near-constant column and a categorical rider.
func syntheticTable(rows int) *frame.Table {
	rng := rand.New(rand.NewSource(7))

	f1 := make([]float64, rows)
	f2 := make([]float64, rows)
	for i := range f1 {
		f1[i] = rng.NormFloat64()
		f2[i] = rng.NormFloat64()
	}

	mk := func(a, b, noise float64) []float64 {
		out := make([]float64, rows)
		for i := range out {
			out[i] = a*f1[i] + b*f2[i] + noise*rng.NormFloat64()
		}
		return out
	}

	cities := make([]string, rows)
	constant := make([]float64, rows)
	for i := range cities {
		cities[i] = "London"
		constant[i] = 42
	}

	t := frame.New()
	t.MustAddColumn(frame.NewStringColumn("city", cities, nil))
	t.MustAddColumn(frame.NewFloatColumn("vehicle_count", mk(3, 0, 0.3), nil))
	t.MustAddColumn(frame.NewFloatColumn("avg_speed_kmh", mk(-2, 0, 0.3), nil))
	t.MustAddColumn(frame.NewFloatColumn("rain_mm", mk(0, 2, 0.3), nil))
	t.MustAddColumn(frame.NewFloatColumn("humidity", mk(0, 1.5, 0.3), nil))
	t.MustAddColumn(frame.NewFloatColumn("visibility_m_weather", mk(1, -1, 0.3), nil))
	t.MustAddColumn(frame.NewFloatColumn("sensor_gain", constant, nil))
	return t
}

func TestExtract_ShapesAndBounds(t *testing.T) {
	tbl := syntheticTable(200)

	res, err := factor.New(slog.Default()).Extract(tbl)
	require.NoError(t, err)

	// sensor_gain is near-constant and must be excluded: 5 usable
	// variables cap the factor count at 4.
	assert.Equal(t, 4, res.Factors)
	assert.NotContains(t, res.Variables, "sensor_gain")
	assert.Len(t, res.Variables, 5)

	// Loadings: one row per retained variable, one column per factor.
	assert.Equal(t, 5, res.Loadings.NumRows())
	assert.Equal(t, 1+res.Factors, res.Loadings.NumCols())

	// Scored table: original columns plus k score columns, same rows.
	assert.Equal(t, tbl.NumRows(), res.Scored.NumRows())
	assert.Equal(t, tbl.NumCols()+res.Factors, res.Scored.NumCols())
	assert.True(t, res.Scored.HasColumn("factor_1_score"))
	assert.True(t, res.Scored.HasColumn("factor_4_score"))
}

func TestExtract_LoadingsRoundedTo4Decimals(t *testing.T) {
	res, err := factor.New(slog.Default()).Extract(syntheticTable(150))
	require.NoError(t, err)

	for _, c := range res.Loadings.FloatColumns() {
		for _, v := range c.Floats {
			scaled := v * 1e4
			assert.InDelta(t, math.Round(scaled), scaled, 1e-6)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	a, err := factor.New(slog.Default()).Extract(syntheticTable(100))
	require.NoError(t, err)
	b, err := factor.New(slog.Default()).Extract(syntheticTable(100))
	require.NoError(t, err)

	la, _ := a.Loadings.Column("factor_1_loading")
	lb, _ := b.Loadings.Column("factor_1_loading")
	assert.Equal(t, la.Floats, lb.Floats)
}

func TestExtract_RecoversSharedVariance(t *testing.T) {
	res, err := factor.New(slog.Default()).Extract(syntheticTable(500))
	require.NoError(t, err)

	// vehicle_count and avg_speed_kmh load on the same driver with
	// opposite signs; their first-factor loadings must anticorrelate on
	// whichever factor picks that driver up.
	vars, _ := res.Loadings.Column("variable")
	idx := map[string]int{}
	for i, v := range vars.Strings {
		idx[v] = i
	}

	found := false
	for f := 1; f <= res.Factors; f++ {
		col, _ := res.Loadings.Column(varName(f))
		vc := col.Floats[idx["vehicle_count"]]
		sp := col.Floats[idx["avg_speed_kmh"]]
		if math.Abs(vc) > 0.5 && math.Abs(sp) > 0.5 {
			assert.Less(t, vc*sp, 0.0)
			found = true
			break
		}
	}
	assert.True(t, found, "no factor captured the shared traffic driver")
}

func varName(f int) string {
	return map[int]string{1: "factor_1_loading", 2: "factor_2_loading", 3: "factor_3_loading", 4: "factor_4_loading", 5: "factor_5_loading"}[f]
}

func TestExtract_TooFewVariables(t *testing.T) {
	rows := 50
	vals := make([]float64, rows)
	for i := range vals {
		vals[i] = float64(i)
	}
	tbl := frame.New()
	tbl.MustAddColumn(frame.NewFloatColumn("only_one", vals, nil))

	_, err := factor.New(slog.Default()).Extract(tbl)
	assert.Error(t, err)
}

func TestExtract_ImputesMissingWithMedian(t *testing.T) {
	tbl := syntheticTable(100)
	vc, _ := tbl.Column("vehicle_count")
	vc.Valid[3] = false
	vc.Valid[17] = false

	res, err := factor.New(slog.Default()).Extract(tbl)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Scored.NumRows())

	s1, _ := res.Scored.Column("factor_1_score")
	for _, v := range s1.Floats {
		assert.False(t, math.IsNaN(v))
	}
}
