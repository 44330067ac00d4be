package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/citylake/traffic-weather-etl/internal/adapter/blob"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Re-check the silver tier invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			store, err := blob.NewStore(blob.Options{
				Endpoint:  cfg.MinioEndpoint,
				AccessKey: cfg.MinioAccessKey,
				SecretKey: cfg.MinioSecretKey,
				UseSSL:    cfg.MinioUseSSL,
			}, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			traffic, err := loadParquet(ctx, store, domain.ObjectTrafficClean)
			if err != nil {
				return err
			}
			weather, err := loadParquet(ctx, store, domain.ObjectWeatherClean)
			if err != nil {
				return err
			}
			merged, err := loadParquet(ctx, store, domain.ObjectMerged)
			if err != nil {
				return err
			}

			phases := []*phase{
				validateCleanTable("traffic_clean", traffic, domain.TrafficSpec()),
				validateCleanTable("weather_clean", weather, domain.WeatherSpec()),
				validateMerge(traffic, merged),
			}

			allPassed := true
			for _, p := range phases {
				status := "PASS"
				if !p.passed() {
					status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
					allPassed = false
				}
				fmt.Printf("  %-40s %s\n", p.name, status)
			}
			for _, p := range phases {
				if p.passed() {
					continue
				}
				fmt.Printf("\n--- %s ---\n", p.name)
				for i, e := range p.errors {
					fmt.Printf("  [%d] %s\n", i+1, e)
				}
			}

			if !allPassed {
				return fmt.Errorf("silver validation failed")
			}
			fmt.Println("\nAll validations passed.")
			return nil
		},
	}
}

func loadParquet(ctx context.Context, store *blob.Store, object string) (*frame.Table, error) {
	data, err := store.GetObject(ctx, domain.BucketSilver, object)
	if err != nil {
		return nil, err
	}
	tbl, err := frame.ReadParquet(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", object, err)
	}
	return tbl, nil
}

// validateCleanTable checks the cleaned-table invariants: every designated
// column present and fully populated, timestamps normalized, and numeric
// values inside the IQR fences of their own distribution.
func validateCleanTable(name string, tbl *frame.Table, spec domain.TableSpec) *phase {
	p := &phase{name: name + " invariants"}

	tc, ok := tbl.Column(spec.TimeColumn)
	switch {
	case !ok:
		p.errorf("missing timestamp column %q", spec.TimeColumn)
	case tc.Kind != frame.KindTime:
		p.errorf("timestamp column %q not normalized", spec.TimeColumn)
	case tc.Missing() > 0:
		p.errorf("timestamp column %q has %d nulls", spec.TimeColumn, tc.Missing())
	}

	for _, col := range spec.Categorical {
		c, ok := tbl.Column(col)
		if !ok {
			p.errorf("missing categorical column %q", col)
			continue
		}
		if c.Missing() > 0 {
			p.errorf("categorical column %q has %d nulls", col, c.Missing())
		}
	}

	for _, col := range spec.Numeric {
		c, ok := tbl.Column(col)
		if !ok {
			p.errorf("missing numeric column %q", col)
			continue
		}
		if c.Kind != frame.KindFloat {
			p.errorf("column %q not numeric", col)
			continue
		}
		if c.Missing() > 0 {
			p.errorf("numeric column %q has %d nulls", col, c.Missing())
		}

		values := c.Observed()
		if len(values) == 0 {
			continue
		}
		q1 := frame.Quantile(values, 0.25)
		q3 := frame.Quantile(values, 0.75)
		iqr := q3 - q1
		lo, hi := q1-1.5*iqr, q3+1.5*iqr
		for _, v := range values {
			if v < lo || v > hi {
				p.errorf("column %q value %g outside fences [%g, %g]", col, v, lo, hi)
				break
			}
		}
	}

	return p
}

// validateMerge checks the left-join guarantees: merged row count equals the
// cleaned traffic row count and the collision columns carry source suffixes.
func validateMerge(traffic, merged *frame.Table) *phase {
	p := &phase{name: "merge invariants"}

	if merged.NumRows() != traffic.NumRows() {
		p.errorf("merged has %d rows, cleaned traffic has %d", merged.NumRows(), traffic.NumRows())
	}
	for _, col := range []string{"city", "date_time_traffic", "date_time_weather"} {
		if !merged.HasColumn(col) {
			p.errorf("merged missing column %q", col)
		}
	}
	if merged.HasColumn("date_time") {
		p.errorf("merged kept unsuffixed date_time column")
	}
	return p
}
