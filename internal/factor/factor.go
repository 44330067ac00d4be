// Package factor reduces the merged numeric features to a small set of
// latent factors with interpretable loadings.
package factor

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/citylake/traffic-weather-etl/internal/frame"
)

const (
	// maxFactors bounds the factor count for interpretability.
	maxFactors = 5

	// nearConstantStd is the sample standard deviation at or below which a
	// variable carries no explanatory variance and destabilizes the solver.
	nearConstantStd = 0.01

	// EM stopping criteria for the maximum-likelihood fit.
	maxIterations = 1000
	tolerance     = 1e-2

	// small guards divisions and logs against zero noise variance.
	small = 1e-12
)

// Result carries the two gold-tier factor outputs.
type Result struct {
	// Scored is the merged table with factor_<i>_score columns appended,
	// row order preserved.
	Scored *frame.Table

	// Loadings maps each retained variable to its projection onto each
	// factor, rounded to 4 decimals.
	Loadings *frame.Table

	Factors   int
	Variables []string
}

// Extractor fits a maximum-likelihood latent-factor model over the merged
// table's numeric columns.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract selects the numeric columns, median-imputes missing cells, drops
// near-constant variables, and fits k = min(5, vars−1) factors. The fit is
// deterministic: EM starts from unit noise variances and involves no
// randomness.
func (e *Extractor) Extract(merged *frame.Table) (*Result, error) {
	names, data, err := numericMatrix(merged)
	if err != nil {
		return nil, err
	}

	p := len(names)
	k := maxFactors
	if p-1 < k {
		k = p - 1
	}

	e.logger.Info("fitting factor model", "variables", p, "factors", k, "rows", merged.NumRows())

	model, err := fit(data, k)
	if err != nil {
		return nil, err
	}

	scores := model.transform(data)

	scored := merged.Clone()
	n := merged.NumRows()
	for f := 0; f < k; f++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = scores.At(i, f)
		}
		if err := scored.AddColumn(frame.NewFloatColumn(fmt.Sprintf("factor_%d_score", f+1), col, nil)); err != nil {
			return nil, err
		}
	}

	loadings := frame.New()
	loadings.MustAddColumn(frame.NewStringColumn("variable", names, nil))
	for f := 0; f < k; f++ {
		col := make([]float64, p)
		for j := 0; j < p; j++ {
			col[j] = round4(model.weights.At(f, j))
		}
		loadings.MustAddColumn(frame.NewFloatColumn(fmt.Sprintf("factor_%d_loading", f+1), col, nil))
	}

	return &Result{Scored: scored, Loadings: loadings, Factors: k, Variables: names}, nil
}

// numericMatrix pulls the usable numeric columns into a dense matrix:
// missing values median-imputed, near-constant columns dropped. Errors when
// fewer than 2 variables or 2 rows remain.
func numericMatrix(t *frame.Table) ([]string, *mat.Dense, error) {
	var names []string
	var cols [][]float64

	for _, c := range t.FloatColumns() {
		observed := c.Observed()
		if len(observed) == 0 {
			continue
		}
		if frame.StdDev(observed) <= nearConstantStd {
			continue
		}
		median := frame.Median(observed)
		vals := make([]float64, c.Len())
		for i := range vals {
			if c.Valid[i] {
				vals[i] = c.Floats[i]
			} else {
				vals[i] = median
			}
		}
		names = append(names, c.Name)
		cols = append(cols, vals)
	}

	if len(names) < 2 {
		return nil, nil, fmt.Errorf("factor analysis needs at least 2 usable numeric variables, have %d", len(names))
	}
	n := len(cols[0])
	if n < 2 {
		return nil, nil, fmt.Errorf("factor analysis needs at least 2 rows, have %d", n)
	}

	data := mat.NewDense(n, len(names), nil)
	for j, col := range cols {
		for i, v := range col {
			data.Set(i, j, v)
		}
	}
	return names, data, nil
}

// model holds a fitted factor solution.
type model struct {
	weights *mat.Dense // k×p factor-to-variable weights
	mean    []float64  // per-variable mean
	noise   []float64  // per-variable residual variance (psi)
	k       int
}

// fit runs the EM-over-SVD maximum-likelihood factor estimation. Each
// iteration rescales the centered data by the current noise estimate, takes
// an SVD, rebuilds the weights from the top k singular directions, and
// updates the noise variances from the unexplained per-variable variance.
func fit(data *mat.Dense, k int) (*model, error) {
	n, p := data.Dims()

	mean := make([]float64, p)
	variance := make([]float64, p)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, data)
		mean[j] = frame.Mean(col)
		for _, v := range col {
			d := v - mean[j]
			variance[j] += d * d
		}
		variance[j] /= float64(n)
	}

	centered := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			centered.Set(i, j, data.At(i, j)-mean[j])
		}
	}

	psi := make([]float64, p)
	for j := range psi {
		psi[j] = 1
	}

	llConst := float64(p)*math.Log(2*math.Pi) + float64(k)
	sqrtN := math.Sqrt(float64(n))
	weights := mat.NewDense(k, p, nil)
	scaled := mat.NewDense(n, p, nil)
	oldLL := math.Inf(-1)

	for iter := 0; iter < maxIterations; iter++ {
		sqrtPsi := make([]float64, p)
		for j := range psi {
			sqrtPsi[j] = math.Sqrt(psi[j]) + small
		}
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				scaled.Set(i, j, centered.At(i, j)/(sqrtPsi[j]*sqrtN))
			}
		}

		var svd mat.SVD
		if ok := svd.Factorize(scaled, mat.SVDThin); !ok {
			return nil, fmt.Errorf("factor analysis: SVD failed to converge")
		}
		s := svd.Values(nil)
		var v mat.Dense
		svd.VTo(&v)

		if len(s) < k {
			return nil, fmt.Errorf("factor analysis: rank %d below requested %d factors", len(s), k)
		}

		unexplained := 0.0
		for l := k; l < len(s); l++ {
			unexplained += s[l] * s[l]
		}

		ll := llConst + unexplained
		for l := 0; l < k; l++ {
			s2 := s[l] * s[l]
			ll += math.Log(s2)
			f := math.Sqrt(math.Max(s2-1, 0))
			for j := 0; j < p; j++ {
				weights.Set(l, j, f*v.At(j, l)*sqrtPsi[j])
			}
		}
		for j := 0; j < p; j++ {
			ll += math.Log(psi[j])
		}
		ll *= -float64(n) / 2

		if ll-oldLL < tolerance {
			break
		}
		oldLL = ll

		for j := 0; j < p; j++ {
			explained := 0.0
			for l := 0; l < k; l++ {
				w := weights.At(l, j)
				explained += w * w
			}
			psi[j] = math.Max(variance[j]-explained, small)
		}
	}

	return &model{weights: weights, mean: mean, noise: psi, k: k}, nil
}

// transform computes per-row factor scores: z = (x−μ) Wψᵀ (I + Wψ Wᵀ)⁻¹
// with Wψ the noise-scaled weights.
func (m *model) transform(data *mat.Dense) *mat.Dense {
	n, p := data.Dims()

	wPsi := mat.NewDense(m.k, p, nil)
	for l := 0; l < m.k; l++ {
		for j := 0; j < p; j++ {
			wPsi.Set(l, j, m.weights.At(l, j)/m.noise[j])
		}
	}

	var cov mat.Dense
	cov.Mul(wPsi, m.weights.T())
	for l := 0; l < m.k; l++ {
		cov.Set(l, l, cov.At(l, l)+1)
	}
	var covInv mat.Dense
	if err := covInv.Inverse(&cov); err != nil {
		// Singular precision only arises from degenerate inputs already
		// rejected in numericMatrix; fall back to zero scores.
		return mat.NewDense(n, m.k, nil)
	}

	centered := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			centered.Set(i, j, data.At(i, j)-m.mean[j])
		}
	}

	var tmp, scores mat.Dense
	tmp.Mul(centered, wPsi.T())
	scores.Mul(&tmp, &covInv)
	return &scores
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
