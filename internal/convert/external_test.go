package convert

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalift-labs/stats19/internal/testutil"
)

// noPackages disables the pip bootstrap in tests.
var noPackages = []string{}

func TestExternalRunnerRunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-based test")
	}

	root := t.TempDir()
	r := NewExternalRunner(root, "sh", []string{"-c", "echo converted > marker.txt"}, noPackages, testutil.NewTestLogger(t))

	require.NoError(t, r.Convert(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "marker.txt"))
	require.NoError(t, err, "command must run from the data root")
	assert.Equal(t, "converted\n", string(data))
}

func TestExternalRunnerSurfacesExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell-based test")
	}

	r := NewExternalRunner(t.TempDir(), "sh", []string{"-c", "exit 3"}, noPackages, testutil.NewTestLogger(t))

	err := r.Convert(context.Background())
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}

func TestExternalRunnerMissingCommand(t *testing.T) {
	r := NewExternalRunner(t.TempDir(), "definitely-not-a-real-binary", nil, noPackages, testutil.NewTestLogger(t))

	err := r.Convert(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run conversion program")
}

func TestExternalRunnerDefaults(t *testing.T) {
	r := NewExternalRunner(t.TempDir(), "", nil, nil, testutil.NewTestLogger(t))

	assert.Equal(t, "python3", r.command)
	assert.Equal(t, []string{"convert_to_parquet.py"}, r.args)
	assert.Equal(t, DefaultPackages, r.packages)
}

func TestNewRunnerSelectsEngine(t *testing.T) {
	tests := []struct {
		name    string
		engine  string
		want    any
		wantErr bool
	}{
		{"default is duckdb", "", &DuckDBRunner{}, false},
		{"duckdb", EngineDuckDB, &DuckDBRunner{}, false},
		{"external", EngineExternal, &ExternalRunner{}, false},
		{"unknown", "spark", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRunner(Options{Engine: tt.engine, Root: t.TempDir()})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown conversion engine")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, r)
		})
	}
}
