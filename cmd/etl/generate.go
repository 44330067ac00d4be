package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/citylake/traffic-weather-etl/internal/adapter/blob"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/frame"
	"github.com/citylake/traffic-weather-etl/internal/gen"
)

func generateCmd() *cobra.Command {
	var (
		rows   int
		seed   uint64
		outDir string
		upload bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic raw traffic and weather CSVs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if rows == 0 {
				rows = cfg.GenerateRows
			}
			if seed == 0 {
				seed = cfg.GenerateSeed
			}
			if seed == 0 {
				seed = uint64(domain.Now().UnixNano())
			}

			g := gen.New(seed)
			datasets := []struct {
				name  string
				table *frame.Table
			}{
				{name: domain.ObjectTrafficRaw, table: g.Traffic(rows)},
				{name: domain.ObjectWeatherRaw, table: g.Weather(rows)},
			}

			var store *blob.Store
			if upload {
				store, err = blob.NewStore(blob.Options{
					Endpoint:  cfg.MinioEndpoint,
					AccessKey: cfg.MinioAccessKey,
					SecretKey: cfg.MinioSecretKey,
					UseSSL:    cfg.MinioUseSSL,
				}, logger)
				if err != nil {
					return err
				}
				if err := store.EnsureBucket(cmd.Context(), domain.BucketBronze); err != nil {
					return err
				}
			} else if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			for _, d := range datasets {
				data, err := d.table.WriteCSV()
				if err != nil {
					return fmt.Errorf("encoding %s: %w", d.name, err)
				}
				if upload {
					if err := store.PutObject(cmd.Context(), domain.BucketBronze, d.name, data, "text/csv"); err != nil {
						return err
					}
					logger.Info("raw dataset uploaded", "object", d.name, "rows", d.table.NumRows())
					continue
				}
				path := filepath.Join(outDir, d.name)
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				logger.Info("raw dataset written", "path", path, "rows", d.table.NumRows())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 0, "rows per dataset (default GENERATE_ROWS)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (default GENERATE_SEED, 0 = time-based)")
	cmd.Flags().StringVar(&outDir, "out", "data/bronze", "local output directory")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to the bronze bucket instead of writing locally")
	return cmd
}
