package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testDownloader(t *testing.T, attempts int) *Downloader {
	t.Helper()
	return NewDownloader(DownloaderConfig{
		CacheDir:        t.TempDir(),
		MaxAttempts:     attempts,
		AttemptTimeout:  5 * time.Second,
		BackoffInterval: time.Millisecond,
	}, discardLogger())
}

func TestDownloader_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake body"))
	}))
	defer srv.Close()

	d := testDownloader(t, 5)
	path, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer func() { _ = os.Remove(path) }()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake body", string(data))
	assert.Equal(t, ".pdf", filepath.Ext(path))
}

func TestDownloader_ExhaustsAttemptsOnPersistentFailure(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := testDownloader(t, 5)
	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 5, attempts.Load())
	assert.Contains(t, err.Error(), "after 5 attempts")
}

func TestDownloader_RecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := testDownloader(t, 5)
	path, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer func() { _ = os.Remove(path) }()
	assert.EqualValues(t, 3, attempts.Load())
}

func TestDownloader_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := testDownloader(t, 5)
	_, err := d.Download(ctx, srv.URL)
	require.Error(t, err)
}

func TestDownloader_NoPartialFilesLeftOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(DownloaderConfig{
		CacheDir:        dir,
		MaxAttempts:     2,
		BackoffInterval: time.Millisecond,
	}, discardLogger())

	_, err := d.Download(context.Background(), srv.URL)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
