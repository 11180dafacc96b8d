// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, PUBDEX_* plus DATABASE_URL)
//  2. Config file (~/.pubdex/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Ingest: download cache, retry bound, per-attempt timeout, rate limit
//   - Models: ONNX embedder and cross-encoder paths, embedding dimension
//   - Retrieval: default k and similarity measure
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidMaxRetries indicates the download retry bound is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")

	// ErrInvalidTimeout indicates the download timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid download timeout")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidTopK indicates the retrieval top-k default is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top k")

	// ErrInvalidMeasure indicates an unknown similarity measure name.
	ErrInvalidMeasure = errors.New("invalid similarity measure")

	// ErrMissingModelPath indicates a required ONNX model path is not set.
	ErrMissingModelPath = errors.New("missing model path")
)

// Similarity measure identifiers used in Config.SimilarityMeasure.
const (
	MeasureMaxInnerProduct = "max_inner_product"
	MeasureCosine          = "cosine"
	MeasureEuclidean       = "euclidean"
)

const (
	// DefaultEmbeddingDimension matches the all-MiniLM-L6-v2 output width.
	// The chunks table declares vector(384); see db/migrations.
	DefaultEmbeddingDimension = 384

	// DefaultMaxRetries bounds download attempts per source.
	DefaultMaxRetries = 5

	// DefaultDownloadTimeoutSeconds bounds each individual download attempt.
	DefaultDownloadTimeoutSeconds = 20

	// DefaultRetrievalTopK is the vector-search shortlist size before re-ranking.
	DefaultRetrievalTopK = 10
)

// Config stores application configuration.
type Config struct {
	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"-"`
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Ingestion configuration
	CacheDir               string  `mapstructure:"cache_dir" json:"cache_dir"`
	MaxRetries             int     `mapstructure:"max_retries" json:"max_retries"`
	DownloadTimeoutSeconds int     `mapstructure:"download_timeout_seconds" json:"download_timeout_seconds"`
	DownloadRateLimit      float64 `mapstructure:"download_rate_limit" json:"download_rate_limit"`

	// Model configuration
	EmbedderModelPath     string `mapstructure:"embedder_model_path" json:"embedder_model_path"`
	CrossEncoderModelPath string `mapstructure:"cross_encoder_model_path" json:"cross_encoder_model_path"`
	EmbeddingDimension    int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`
	MaxModelTokens        int    `mapstructure:"max_model_tokens" json:"max_model_tokens"`

	// Retrieval configuration
	RetrievalTopK     int    `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	SimilarityMeasure string `mapstructure:"similarity_measure" json:"similarity_measure"`

	// Serve configuration
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".pubdex")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings when present.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "pubdex")
	viper.SetDefault("postgres_password", "pubdex_dev_password")
	viper.SetDefault("postgres_db_name", "pubdex")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Ingestion defaults
	viper.SetDefault("cache_dir", filepath.Join("cache", "docs"))
	viper.SetDefault("max_retries", DefaultMaxRetries)
	viper.SetDefault("download_timeout_seconds", DefaultDownloadTimeoutSeconds)
	viper.SetDefault("download_rate_limit", 1.0)

	// Model defaults
	viper.SetDefault("embedder_model_path", filepath.Join("models", "all-MiniLM-L6-v2.onnx"))
	viper.SetDefault("cross_encoder_model_path", filepath.Join("models", "ms-marco-MiniLM-L-6-v2.onnx"))
	viper.SetDefault("embedding_dimension", DefaultEmbeddingDimension)
	viper.SetDefault("max_model_tokens", 256)

	// Retrieval defaults
	viper.SetDefault("retrieval_top_k", DefaultRetrievalTopK)
	viper.SetDefault("similarity_measure", MeasureMaxInnerProduct)

	// Serve defaults
	viper.SetDefault("listen_addr", "127.0.0.1:8400")
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("postgres_password", "PUBDEX_POSTGRES_PASSWORD")
	mustBind("cache_dir", "PUBDEX_CACHE_DIR")
	mustBind("embedder_model_path", "PUBDEX_EMBEDDER_MODEL")
	mustBind("cross_encoder_model_path", "PUBDEX_CROSS_ENCODER_MODEL")
	mustBind("listen_addr", "PUBDEX_LISTEN_ADDR")

	// NOTE: DATABASE_URL is parsed separately in parseDatabaseURL so that a
	// single URL can override host/port/user/password/dbname/sslmode at once.
}
