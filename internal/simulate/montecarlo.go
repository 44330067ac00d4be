// Package simulate produces the gold-tier Monte Carlo risk summaries:
// weather-scenario traffic simulations and bootstrap confidence estimates.
package simulate

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

const (
	scenarioDraws     = 10000
	bootstrapDraws    = 5000
	bootstrapMaxCols  = 8
	bootstrapMinObs   = 20 // strictly more observations required
	baseAccidentRate  = 0.025
	trafficVolatility = 0.18
	congestionQuant   = 0.75
)

// Scenario is one fixed weather condition with calibrated impact factors.
// The values are tuned for relative comparison, not absolute forecasting.
type Scenario struct {
	Name           string
	Description    string
	TrafficMult    float64
	AccidentFactor float64

	// baseMult is a second per-scenario traffic multiplier composed with
	// TrafficMult. The composition is historical behavior the downstream
	// consumers calibrated against, so it is kept as-is.
	baseMult float64
}

// Scenarios returns the four fixed weather scenarios in output order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "sunny", Description: "Clear weather, normal conditions", TrafficMult: 1.1, AccidentFactor: 0.7, baseMult: 1.05},
		{Name: "rainy", Description: "Heavy rain, reduced visibility", TrafficMult: 0.9, AccidentFactor: 1.6, baseMult: 0.85},
		{Name: "foggy", Description: "Dense fog, low visibility", TrafficMult: 0.8, AccidentFactor: 2.1, baseMult: 0.75},
		{Name: "snowy", Description: "Snow/ice conditions, severe impact", TrafficMult: 0.7, AccidentFactor: 2.8, baseMult: 0.65},
	}
}

// trafficColumnNames are the conventional traffic-volume column names, in
// preference order.
var trafficColumnNames = []string{"traffic_volume", "volume", "vehicle_count"}

// Simulator runs the Monte Carlo procedures. Draws are not seeded; the
// summaries are statistical and consumers treat them with tolerance bands.
type Simulator struct {
	logger *slog.Logger
	src    rand.Source
}

// New creates a Simulator with a time-based random source.
func New(logger *slog.Logger) *Simulator {
	return &Simulator{
		logger: logger,
		src:    rand.NewSource(uint64(domain.Now().UnixNano())),
	}
}

// Run executes both sub-procedures over the merged table and returns the
// scenario summary and the bootstrap summary.
func (s *Simulator) Run(merged *frame.Table) (*frame.Table, *frame.Table, error) {
	scenarios, err := s.SimulateScenarios(merged)
	if err != nil {
		return nil, nil, err
	}
	bootstrap, err := s.Bootstrap(merged)
	if err != nil {
		return nil, nil, err
	}
	return scenarios, bootstrap, nil
}

// SimulateScenarios emits one summary row per fixed weather scenario:
// simulated traffic mean/std, congestion probability against the observed
// 75th percentile, and a Bernoulli accident probability.
func (s *Simulator) SimulateScenarios(merged *frame.Table) (*frame.Table, error) {
	traffic, err := trafficColumn(merged)
	if err != nil {
		return nil, err
	}

	observed := traffic.Observed()
	if len(observed) == 0 {
		return nil, fmt.Errorf("traffic column %q has no observed values", traffic.Name)
	}
	base := frame.Mean(observed)
	threshold := frame.Quantile(observed, congestionQuant)

	scenarios := Scenarios()
	n := len(scenarios)
	var (
		names       = make([]string, n)
		descs       = make([]string, n)
		means       = make([]float64, n)
		stds        = make([]float64, n)
		congestions = make([]float64, n)
		accidents   = make([]float64, n)
		thresholds  = make([]float64, n)
		simulations = make([]float64, n)
	)

	for i, sc := range scenarios {
		mult := sc.baseMult * sc.TrafficMult
		draws := s.normalDraws(base*mult, base*trafficVolatility, scenarioDraws)

		exceed := 0
		for _, d := range draws {
			if d > threshold {
				exceed++
			}
		}

		accidentRate := s.bernoulliRate(baseAccidentRate*sc.AccidentFactor, scenarioDraws)

		names[i] = sc.Name
		descs[i] = sc.Description
		means[i] = round2(frame.Mean(draws))
		stds[i] = round2(frame.PopStdDev(draws))
		congestions[i] = round2(float64(exceed) / float64(len(draws)) * 100)
		accidents[i] = round2(accidentRate * 100)
		thresholds[i] = round2(threshold)
		simulations[i] = scenarioDraws

		s.logger.Info("scenario simulated",
			"scenario", sc.Name,
			"mean_traffic", means[i],
			"congestion_prob", congestions[i],
			"accident_prob", accidents[i],
		)
	}

	t := frame.New()
	t.MustAddColumn(frame.NewStringColumn("scenario", names, nil))
	t.MustAddColumn(frame.NewStringColumn("description", descs, nil))
	t.MustAddColumn(frame.NewFloatColumn("mean_traffic", means, nil))
	t.MustAddColumn(frame.NewFloatColumn("traffic_std", stds, nil))
	t.MustAddColumn(frame.NewFloatColumn("congestion_prob_high", congestions, nil))
	t.MustAddColumn(frame.NewFloatColumn("accident_risk_high", accidents, nil))
	t.MustAddColumn(frame.NewFloatColumn("threshold_used", thresholds, nil))
	t.MustAddColumn(frame.NewFloatColumn("n_simulations", simulations, nil))
	return t, nil
}

// Bootstrap resamples up to the first 8 numeric columns with more than 20
// observations: 5000 resample means per column, reported with their mean,
// standard deviation, and 95% percentile interval.
func (s *Simulator) Bootstrap(merged *frame.Table) (*frame.Table, error) {
	var (
		variables []string
		meanEst   []float64
		stdEst    []float64
		ciLower   []float64
		ciUpper   []float64
		sims      []float64
	)

	cols := merged.FloatColumns()
	if len(cols) > bootstrapMaxCols {
		cols = cols[:bootstrapMaxCols]
	}

	rng := rand.New(s.src)
	for _, c := range cols {
		observed := c.Observed()
		if len(observed) <= bootstrapMinObs {
			s.logger.Debug("bootstrap skipping small column", "column", c.Name, "observations", len(observed))
			continue
		}

		// Median-impute so resamples cover the full row population.
		values := make([]float64, c.Len())
		median := frame.Median(observed)
		for i := range values {
			if c.Valid[i] {
				values[i] = c.Floats[i]
			} else {
				values[i] = median
			}
		}

		means := make([]float64, bootstrapDraws)
		for d := range means {
			sum := 0.0
			for range values {
				sum += values[rng.Intn(len(values))]
			}
			means[d] = sum / float64(len(values))
		}

		variables = append(variables, c.Name)
		meanEst = append(meanEst, round4(frame.Mean(means)))
		stdEst = append(stdEst, round4(frame.PopStdDev(means)))
		ciLower = append(ciLower, round4(frame.Quantile(means, 0.025)))
		ciUpper = append(ciUpper, round4(frame.Quantile(means, 0.975)))
		sims = append(sims, bootstrapDraws)
	}

	t := frame.New()
	t.MustAddColumn(frame.NewStringColumn("variable", variables, nil))
	t.MustAddColumn(frame.NewFloatColumn("mean_estimate", meanEst, nil))
	t.MustAddColumn(frame.NewFloatColumn("std_estimate", stdEst, nil))
	t.MustAddColumn(frame.NewFloatColumn("ci_lower_95", ciLower, nil))
	t.MustAddColumn(frame.NewFloatColumn("ci_upper_95", ciUpper, nil))
	t.MustAddColumn(frame.NewFloatColumn("simulations", sims, nil))

	s.logger.Info("bootstrap complete", "columns", len(variables), "draws", bootstrapDraws)
	return t, nil
}

// trafficColumn picks the simulation base: the first column matching a
// traffic-volume naming convention, else the first numeric column.
func trafficColumn(t *frame.Table) (*frame.Column, error) {
	for _, name := range trafficColumnNames {
		if c, ok := t.Column(name); ok && c.Kind == frame.KindFloat {
			return c, nil
		}
	}
	cols := t.FloatColumns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("merged table has no numeric columns to simulate")
	}
	return cols[0], nil
}

func (s *Simulator) normalDraws(mu, sigma float64, n int) []float64 {
	draws := make([]float64, n)
	if sigma <= 0 {
		for i := range draws {
			draws[i] = mu
		}
		return draws
	}
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}
	for i := range draws {
		draws[i] = dist.Rand()
	}
	return draws
}

// bernoulliRate draws n trials with success probability p and returns the
// empirical success rate.
func (s *Simulator) bernoulliRate(p float64, n int) float64 {
	dist := distuv.Bernoulli{P: p, Src: s.src}
	hits := 0.0
	for i := 0; i < n; i++ {
		hits += dist.Rand()
	}
	return hits / float64(n)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
