package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift-labs/stats19/internal/manifest"
	"github.com/datalift-labs/stats19/internal/testutil"
)

// testManifest builds a manifest whose URLs point at the given server.
func testManifest(serverURL string) *manifest.Manifest {
	m := manifest.Default()
	for i := range m.Datasets {
		m.Datasets[i].URL = serverURL + "/" + m.Datasets[i].File
	}
	return m
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	opts := DefaultOptions()
	opts.Logger = testutil.NewTestLogger(t)
	return New(opts)
}

func TestEnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	m := manifest.Default()

	require.NoError(t, EnsureDirs(root, m))

	for _, dir := range []string{"lookup", "2025_dataset", "2024_prior"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Second run is a no-op.
	require.NoError(t, EnsureDirs(root, m))
}

func TestEnsureDirsWithoutNetwork(t *testing.T) {
	// Provisioning must succeed regardless of whether anything can be
	// fetched afterwards.
	root := t.TempDir()
	require.NoError(t, EnsureDirs(root, manifest.Default()))

	m := manifest.Default()
	for i := range m.Datasets {
		entries, err := os.ReadDir(filepath.Dir(m.Datasets[i].Path(root)))
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestFetchWritesDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	root := t.TempDir()
	dest := filepath.Join(root, "file.csv")

	f := newTestFetcher(t)
	n, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestFetchOverwrites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("new"))
	}))
	defer srv.Close()

	root := t.TempDir()
	dest := filepath.Join(root, "file.csv")
	require.NoError(t, os.WriteFile(dest, []byte("previous longer content"), 0o600))

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"forbidden", http.StatusForbidden, ErrForbidden},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			root := t.TempDir()
			dest := filepath.Join(root, "file.csv")

			f := newTestFetcher(t)
			_, err := f.Fetch(context.Background(), srv.URL, dest)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			// A failed fetch must not leave a destination file behind.
			_, statErr := os.Stat(dest)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestFetchFailureLeavesPriorFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	root := t.TempDir()
	dest := filepath.Join(root, "file.csv")
	require.NoError(t, os.WriteFile(dest, []byte("kept"), 0o600))

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data), "failed fetch must not clobber existing file")
}

func TestFetchAllSuccess(t *testing.T) {
	payload := []byte("ten bytes.")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	root := t.TempDir()
	m := testManifest(srv.URL)
	require.NoError(t, EnsureDirs(root, m))

	f := newTestFetcher(t)
	results := f.FetchAll(context.Background(), m, root)

	require.Len(t, results, 7)
	assert.Empty(t, Failed(results))

	for _, r := range results {
		assert.Equal(t, int64(10), r.Bytes)
		info, err := os.Stat(r.Dataset.Path(root))
		require.NoError(t, err)
		assert.Equal(t, int64(10), info.Size())
	}
}

func TestFetchAllContinuesPastFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fail exactly one dataset: the lookup data guide.
		if strings.Contains(r.URL.Path, "data-guide") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("data"))
	}))
	defer srv.Close()

	root := t.TempDir()
	m := testManifest(srv.URL)
	require.NoError(t, EnsureDirs(root, m))

	f := newTestFetcher(t)
	results := f.FetchAll(context.Background(), m, root)

	require.Len(t, results, 7)
	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "data-guide", failed[0].Dataset.Name)
	assert.ErrorIs(t, failed[0].Err, ErrNotFound)

	// The remaining six landed despite the failure.
	for _, r := range results[1:] {
		require.NoError(t, r.Err)
		info, err := os.Stat(r.Dataset.Path(root))
		require.NoError(t, err)
		assert.Equal(t, int64(4), info.Size())
	}
}

func TestFetchAllOrder(t *testing.T) {
	var served []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = append(served, filepath.Base(r.URL.Path))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	root := t.TempDir()
	m := testManifest(srv.URL)
	require.NoError(t, EnsureDirs(root, m))

	f := newTestFetcher(t)
	f.FetchAll(context.Background(), m, root)

	var want []string
	for _, d := range m.Datasets {
		want = append(want, d.File)
	}
	assert.Equal(t, want, served, "downloads occur in manifest order")
}

func TestFetchAllCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	root := t.TempDir()
	m := testManifest(srv.URL)
	require.NoError(t, EnsureDirs(root, m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t)
	results := f.FetchAll(ctx, m, root)

	require.Len(t, results, 7)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}
