// Command etl drives the traffic/weather medallion pipeline.
//
// Subcommands:
//
//	etl run       runs a full pipeline pass with the health/metrics server
//	etl generate  writes synthetic raw CSVs locally or to the bronze bucket
//	etl validate  re-checks the silver tier invariants
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/citylake/traffic-weather-etl/internal/config"
	"github.com/citylake/traffic-weather-etl/internal/observability"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "etl",
		Short:         "Urban traffic and weather ETL pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the service logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, observability.NewLogger(cfg), nil
}
