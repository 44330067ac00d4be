// Package clean implements the record cleaner that promotes raw bronze
// tables to the silver tier.
package clean

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

// iqrMultiplier defines the outlier fence: [Q1−1.5·IQR, Q3+1.5·IQR].
const iqrMultiplier = 1.5

// corruptColumnThreshold is the missing-value fraction above which a numeric
// column is judged too corrupt to impute; rows missing it are dropped
// instead. The check runs before clamping so clamping cannot mask the extent
// of corruption.
const corruptColumnThreshold = 0.5

// unknownCategory fills categorical columns with no observed values at all.
const unknownCategory = "Unknown"

// Report summarizes what one cleaning pass did to a table.
type Report struct {
	RowsIn             int
	RowsOut            int
	DuplicatesDropped  int
	BadTimesDropped    int
	CorruptRowsDropped int
	OutliersClamped    int
	ValuesImputed      int
}

// Cleaner applies the fixed cleaning sequence: dedup, timestamp
// normalization, categorical repair, numeric coercion with IQR clamping and
// median imputation.
type Cleaner struct {
	logger *slog.Logger
}

// New creates a Cleaner.
func New(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean runs the full sequence over a copy of the input and returns the
// cleaned table. The output is rectangular: no missing values remain in any
// designated column, and every designated numeric column sits inside its own
// IQR fence.
func (c *Cleaner) Clean(raw *frame.Table, spec domain.TableSpec) (*frame.Table, Report, error) {
	report := Report{RowsIn: raw.NumRows()}
	t := raw.Clone()

	t, dropped := dedupe(t, spec.KeyColumn)
	report.DuplicatesDropped = dropped

	t, dropped, err := normalizeTimestamps(t, spec.TimeColumn)
	if err != nil {
		return nil, report, err
	}
	report.BadTimesDropped = dropped

	imputed := repairCategoricals(t, spec.Categorical)
	report.ValuesImputed += imputed

	for _, name := range spec.Numeric {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		fc := coerceNumeric(col)
		if err := t.ReplaceColumn(fc); err != nil {
			return nil, report, err
		}

		// Corruption check precedes the fence computation.
		if t.NumRows() > 0 && float64(fc.Missing())/float64(t.NumRows()) > corruptColumnThreshold {
			before := t.NumRows()
			t = t.Filter(fc.Valid)
			report.CorruptRowsDropped += before - t.NumRows()
			fc, _ = t.Column(name)
		}

		clamped, filled := fenceAndImpute(fc)
		report.OutliersClamped += clamped
		report.ValuesImputed += filled
	}

	report.RowsOut = t.NumRows()
	c.logger.Info("table cleaned",
		"rows_in", report.RowsIn,
		"rows_out", report.RowsOut,
		"duplicates_dropped", report.DuplicatesDropped,
		"bad_timestamps_dropped", report.BadTimesDropped,
		"corrupt_rows_dropped", report.CorruptRowsDropped,
		"outliers_clamped", report.OutliersClamped,
		"values_imputed", report.ValuesImputed,
	)
	return t, report, nil
}

// dedupe drops rows sharing a natural key, keeping first occurrences. Rows
// with a missing key are always kept. When the key column is absent the
// table falls back to whole-row duplicate removal.
func dedupe(t *frame.Table, keyColumn string) (*frame.Table, int) {
	before := t.NumRows()

	key, ok := t.Column(keyColumn)
	if keyColumn == "" || !ok {
		out := t.DedupeRows()
		return out, before - out.NumRows()
	}

	seen := make(map[string]bool, t.NumRows())
	keep := make([]bool, t.NumRows())
	for i := range keep {
		if !key.Valid[i] {
			keep[i] = true
			continue
		}
		var k string
		switch key.Kind {
		case frame.KindFloat:
			k = strconv.FormatFloat(key.Floats[i], 'g', -1, 64)
		default:
			k = key.Strings[i]
		}
		if !seen[k] {
			seen[k] = true
			keep[i] = true
		}
	}
	out := t.Filter(keep)
	return out, before - out.NumRows()
}

// normalizeTimestamps replaces the raw timestamp column with a parsed UTC
// time column and drops rows whose timestamp fails every accepted layout.
func normalizeTimestamps(t *frame.Table, timeColumn string) (*frame.Table, int, error) {
	col, ok := t.Column(timeColumn)
	if !ok {
		return nil, 0, fmt.Errorf("timestamp column %q not present", timeColumn)
	}

	// Already-normalized input: just drop rows with a missing instant.
	if col.Kind == frame.KindTime {
		before := t.NumRows()
		out := t.Filter(col.Valid)
		return out, before - out.NumRows(), nil
	}
	if col.Kind != frame.KindString {
		return nil, 0, fmt.Errorf("timestamp column %q has unexpected type", timeColumn)
	}

	n := t.NumRows()
	parsed := frame.NewTimeColumn(timeColumn, make([]time.Time, n), make([]bool, n))
	keep := make([]bool, n)
	for i := 0; i < n; i++ {
		if !col.Valid[i] {
			continue
		}
		ts, err := domain.ParseTimestamp(col.Strings[i])
		if err != nil {
			continue
		}
		parsed.Times[i] = ts
		parsed.Valid[i] = true
		keep[i] = true
	}
	if err := t.ReplaceColumn(parsed); err != nil {
		return nil, 0, err
	}

	before := t.NumRows()
	out := t.Filter(keep)
	return out, before - out.NumRows(), nil
}

// repairCategoricals fills missing categorical values with the column's most
// frequent observed value, falling back to "Unknown" for columns with no
// observations. Returns the number of values filled.
func repairCategoricals(t *frame.Table, columns []string) int {
	filled := 0
	for _, name := range columns {
		col, ok := t.Column(name)
		if !ok || col.Kind != frame.KindString {
			continue
		}
		fill := mode(col)
		for i := range col.Valid {
			if col.Valid[i] {
				continue
			}
			col.Strings[i] = fill
			col.Valid[i] = true
			filled++
		}
	}
	return filled
}

// mode returns the most frequent observed value, breaking ties toward the
// lexicographically smallest so repeated runs agree.
func mode(col *frame.Column) string {
	counts := make(map[string]int)
	for i, ok := range col.Valid {
		if ok {
			counts[col.Strings[i]]++
		}
	}
	if len(counts) == 0 {
		return unknownCategory
	}
	best, bestN := "", -1
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}

// coerceNumeric parses a designated column to float64, turning unparsable
// tokens into missing values. Float columns pass through untouched.
func coerceNumeric(col *frame.Column) *frame.Column {
	if col.Kind == frame.KindFloat {
		return col
	}

	n := col.Len()
	out := frame.NewFloatColumn(col.Name, make([]float64, n), make([]bool, n))
	for i := 0; i < n; i++ {
		if !col.Valid[i] {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(col.Strings[i]), 64)
		if err != nil {
			continue
		}
		out.Floats[i] = v
		out.Valid[i] = true
	}
	return out
}

// fenceAndImpute clamps observed values into the column's IQR fence, then
// fills remaining missing values with the median of the post-clamp
// distribution. Returns (clamped, filled) counts.
func fenceAndImpute(col *frame.Column) (int, int) {
	observed := col.Observed()
	if len(observed) == 0 {
		return 0, 0
	}

	q1 := frame.Quantile(observed, 0.25)
	q3 := frame.Quantile(observed, 0.75)
	iqr := q3 - q1
	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr

	clamped := 0
	for i, ok := range col.Valid {
		if !ok {
			continue
		}
		switch {
		case col.Floats[i] < lower:
			col.Floats[i] = lower
			clamped++
		case col.Floats[i] > upper:
			col.Floats[i] = upper
			clamped++
		}
	}

	median := frame.Median(col.Observed())
	filled := 0
	for i, ok := range col.Valid {
		if ok {
			continue
		}
		col.Floats[i] = median
		col.Valid[i] = true
		filled++
	}
	return clamped, filled
}
