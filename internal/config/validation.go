package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "pubdex_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	// 2. Ingestion configuration
	if c.MaxRetries < 1 || c.MaxRetries > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidMaxRetries, c.MaxRetries)
	}

	if c.DownloadTimeoutSeconds < 1 || c.DownloadTimeoutSeconds > 300 {
		return fmt.Errorf("%w: must be between 1 and 300 seconds, got %d",
			ErrInvalidTimeout, c.DownloadTimeoutSeconds)
	}

	// 3. Model configuration
	if c.EmbedderModelPath == "" {
		return fmt.Errorf("%w: embedder_model_path cannot be empty", ErrMissingModelPath)
	}

	if c.CrossEncoderModelPath == "" {
		return fmt.Errorf("%w: cross_encoder_model_path cannot be empty", ErrMissingModelPath)
	}

	// The schema pins the vector width; a mismatched dimension fails at insert
	// time with a far less helpful error, so catch it here.
	if c.EmbeddingDimension < 1 || c.EmbeddingDimension > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d",
			ErrInvalidDimension, c.EmbeddingDimension)
	}

	// 4. Retrieval configuration
	if c.RetrievalTopK < 1 || c.RetrievalTopK > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidTopK, c.RetrievalTopK)
	}

	validMeasures := []string{MeasureMaxInnerProduct, MeasureCosine, MeasureEuclidean}
	if !slices.Contains(validMeasures, c.SimilarityMeasure) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidMeasure, c.SimilarityMeasure, validMeasures)
	}

	return nil
}
