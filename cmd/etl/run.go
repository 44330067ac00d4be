package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/citylake/traffic-weather-etl/internal/adapter/blob"
	"github.com/citylake/traffic-weather-etl/internal/adapter/hdfs"
	httpadapter "github.com/citylake/traffic-weather-etl/internal/adapter/http"
	kafkaadapter "github.com/citylake/traffic-weather-etl/internal/adapter/kafka"
	"github.com/citylake/traffic-weather-etl/internal/domain"
	"github.com/citylake/traffic-weather-etl/internal/observability"
	"github.com/citylake/traffic-weather-etl/internal/pipeline"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one full pipeline pass",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			metrics := observability.NewMetrics()

			store, err := blob.NewStore(blob.Options{
				Endpoint:  cfg.MinioEndpoint,
				AccessKey: cfg.MinioAccessKey,
				SecretKey: cfg.MinioSecretKey,
				UseSSL:    cfg.MinioUseSSL,
			}, logger)
			if err != nil {
				return err
			}

			// Replication sink (feature-flagged via REPLICATION_ENABLED).
			var replica domain.BulkFS
			if cfg.ReplicationEnabled {
				client, err := hdfs.NewClient(hdfs.Options{
					Addresses: cfg.HDFSAddresses,
					User:      cfg.HDFSUser,
				}, logger)
				if err != nil {
					// Replication is best-effort; a dead namenode must not
					// block the analytical run.
					logger.Warn("hdfs unavailable, replication disabled for this run", "error", err)
				} else {
					replica = client
					defer client.Close()
				}
			} else {
				logger.Info("replication disabled")
			}

			// Stage-event notifier (feature-flagged via KAFKA_BROKERS).
			var notifier domain.StageNotifier
			if cfg.NotifierEnabled() {
				n := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaStageTopic, logger)
				defer n.Close()
				notifier = n
				metrics.NotifierEnabled.Set(1)
				logger.Info("stage-event notification enabled", "topic", cfg.KafkaStageTopic)
			} else {
				logger.Info("stage-event notification disabled")
			}

			p := pipeline.New(pipeline.Deps{
				Store:      store,
				Replica:    replica,
				ReplicaDir: cfg.HDFSSilverDir,
				Notifier:   notifier,
				Clock:      clockwork.NewRealClock(),
				Retry: blob.RetryPolicy{
					MaxAttempts: cfg.StoreRetryAttempts,
					Interval:    cfg.StoreRetryInterval,
				},
				Logger:       logger,
				Metrics:      metrics,
				GenerateRows: cfg.GenerateRows,
				GenerateSeed: cfg.GenerateSeed,
			})

			srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			runErr := p.Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}

			return runErr
		},
	}
}
