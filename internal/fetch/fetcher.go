// Package fetch provisions the data directory layout and downloads the
// manifest's datasets over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("fetch: resource not found")
	ErrForbidden    = errors.New("fetch: access forbidden")
	ErrUnauthorized = errors.New("fetch: unauthorized")
	ErrServerError  = errors.New("fetch: server error")
)

// Options configures the Fetcher.
type Options struct {
	// Timeout for a whole download, including body transfer.
	// Default: 10m. Zero means no timeout.
	Timeout time.Duration

	// UserAgent sent with each request.
	UserAgent string

	// Logger receives per-file debug output. Defaults to a discard logger.
	Logger *slog.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:   10 * time.Minute,
		UserAgent: "stats19-fetch",
	}
}

// Fetcher downloads single files over HTTP. There is deliberately no retry,
// no resumption, and no integrity check: each fetch is one GET, streamed to
// disk, full-file overwrite.
type Fetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// New creates a Fetcher with the given options.
func New(opts Options) *Fetcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: logger,
	}
}

// Fetch retrieves url and writes it to dest, overwriting any existing file.
// The body is streamed to a temporary file in dest's directory and renamed
// into place, so a failed transfer never leaves a truncated destination.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("download %s: %w", url, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("move into place: %w", err)
	}

	f.logger.Debug("fetched", "url", url, "dest", dest, "bytes", n)

	return n, nil
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
