// Package ingest drives the ingestion batch: download publications with
// bounded retries, extract and clean their text, segment it into chunks,
// resolve source identity, embed, and index. One bad source never aborts the
// batch.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxAttempts bounds download attempts per source.
	DefaultMaxAttempts = 5

	// DefaultAttemptTimeout bounds each individual download attempt.
	DefaultAttemptTimeout = 20 * time.Second

	defaultBackoffInterval = 2 * time.Second
)

// DownloaderConfig configures a Downloader. Zero values fall back to the
// defaults above.
type DownloaderConfig struct {
	CacheDir        string
	MaxAttempts     int
	AttemptTimeout  time.Duration
	BackoffInterval time.Duration

	// RateLimit caps download starts per second across the batch. Zero
	// disables limiting.
	RateLimit float64
}

// Downloader fetches a publication PDF into the local cache directory with
// retry-bounded HTTP GETs.
type Downloader struct {
	client          *http.Client
	cacheDir        string
	maxAttempts     int
	attemptTimeout  time.Duration
	backoffInterval time.Duration
	limiter         *rate.Limiter
	logger          *slog.Logger
}

// NewDownloader creates a Downloader writing into cfg.CacheDir.
func NewDownloader(cfg DownloaderConfig, logger *slog.Logger) *Downloader {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.BackoffInterval <= 0 {
		cfg.BackoffInterval = defaultBackoffInterval
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = os.TempDir()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Downloader{
		client:          &http.Client{},
		cacheDir:        cfg.CacheDir,
		maxAttempts:     cfg.MaxAttempts,
		attemptTimeout:  cfg.AttemptTimeout,
		backoffInterval: cfg.BackoffInterval,
		limiter:         limiter,
		logger:          logger,
	}
}

// Download fetches url into the cache directory and returns the local path.
// Non-2xx responses and network errors count as failed attempts; after the
// attempt budget is exhausted the last error is returned. The caller owns
// the returned file and must remove it.
func (d *Downloader) Download(ctx context.Context, url string) (string, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	var path string
	attempt := 0

	operation := func() error {
		attempt++
		p, err := d.fetchOnce(ctx, url)
		if err != nil {
			d.logger.Warn("download attempt failed",
				"url", url, "attempt", attempt, "error", err)
			return err
		}
		path = p
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(d.backoffInterval),
			uint64(d.maxAttempts-1)),
		ctx)

	if err := backoff.Retry(operation, bo); err != nil {
		return "", fmt.Errorf("downloading %s after %d attempts: %w", url, attempt, err)
	}
	return path, nil
}

// fetchOnce performs a single bounded GET, streaming the body to a temp file
// in the cache directory. The partial file is removed on any failure.
func (d *Downloader) fetchOnce(ctx context.Context, url string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	f, err := os.CreateTemp(d.cacheDir, "pubdex-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating cache file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing cache file: %w", err)
	}
	return f.Name(), nil
}
