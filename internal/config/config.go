// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Object store connection.
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Readiness probing before each stage touches the store.
	StoreRetryAttempts int           `envconfig:"STORE_RETRY_ATTEMPTS" default:"10"`
	StoreRetryInterval time.Duration `envconfig:"STORE_RETRY_INTERVAL" default:"2s"`

	// Replication sink. Disabled runs skip the copy stage entirely.
	ReplicationEnabled bool     `envconfig:"REPLICATION_ENABLED" default:"true"`
	HDFSAddresses      []string `envconfig:"HDFS_ADDRESSES" default:"namenode:8020"`
	HDFSUser           string   `envconfig:"HDFS_USER" default:"hadoop"`
	HDFSSilverDir      string   `envconfig:"HDFS_SILVER_DIR" default:"/silver"`

	// Stage-event notification. Enabled only when brokers are configured.
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS"`
	KafkaStageTopic string   `envconfig:"KAFKA_STAGE_TOPIC" default:"etl-stage-events"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Synthetic dataset generation (etl generate, and runs with ingest).
	GenerateRows int    `envconfig:"GENERATE_ROWS" default:"5000"`
	GenerateSeed uint64 `envconfig:"GENERATE_SEED" default:"0"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.MinioEndpoint == "" {
		return nil, errors.New("MINIO_ENDPOINT is required")
	}
	if cfg.StoreRetryAttempts < 1 {
		return nil, errors.New("STORE_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.StoreRetryInterval <= 0 {
		return nil, errors.New("STORE_RETRY_INTERVAL must be positive")
	}
	if cfg.ReplicationEnabled && len(cfg.HDFSAddresses) == 0 {
		return nil, errors.New("REPLICATION_ENABLED is true but HDFS_ADDRESSES is not set")
	}
	if cfg.NotifierEnabled() && cfg.KafkaStageTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_STAGE_TOPIC is empty")
	}
	if cfg.GenerateRows < 1 {
		return nil, errors.New("GENERATE_ROWS must be at least 1")
	}

	return &cfg, nil
}

// NotifierEnabled reports whether stage events should be published.
func (c *Config) NotifierEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
