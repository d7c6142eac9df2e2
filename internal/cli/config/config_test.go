package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-dir", "", "")
	flags.String("manifest", "", "")
	flags.String("journal", "", "")
	flags.String("output", "", "")
	flags.Bool("verbose", false, "")
	flags.Duration("http-timeout", 0, "")
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, DefaultJournalFile, cfg.JournalPath)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultEngine, cfg.Converter.Engine)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, cfg.ManifestPath)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFromFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	content := `data_dir: warehouse
http_timeout: 90s
output: json
converter:
  engine: external
  command: python3
  args: [convert_to_parquet.py]
  packages: [pandas, pyarrow]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats19.yaml"), []byte(content), 0o600))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	// Relative paths from the file anchor to the file's directory.
	assert.Equal(t, filepath.Join(dir, "warehouse"), cfg.DataDir)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, "external", cfg.Converter.Engine)
	assert.Equal(t, "python3", cfg.Converter.Command)
	assert.Equal(t, []string{"convert_to_parquet.py"}, cfg.Converter.Args)
	assert.Equal(t, []string{"pandas", "pyarrow"}, cfg.Converter.Packages)
	assert.Equal(t, "stats19.yaml", GetConfigFileUsed())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats19.yaml"), []byte("output: text\n"), 0o600))
	t.Setenv("STATS19_OUTPUT", "markdown")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "markdown", cfg.OutputFormat)
}

func TestLoadConfigEnvConverterKeys(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	t.Setenv("STATS19_CONVERTER_ENGINE", "external")
	t.Setenv("STATS19_CONVERTER_COMMAND", "python3")
	t.Setenv("STATS19_CONVERTER_PACKAGES", "pandas,pyarrow")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "external", cfg.Converter.Engine)
	assert.Equal(t, "python3", cfg.Converter.Command)
	assert.Equal(t, []string{"pandas", "pyarrow"}, cfg.Converter.Packages)
}

func TestLoadConfigEnvConverterOverridesFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	content := "converter:\n  engine: duckdb\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats19.yaml"), []byte(content), 0o600))
	t.Setenv("STATS19_CONVERTER_ENGINE", "external")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "external", cfg.Converter.Engine)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())
	t.Setenv("STATS19_OUTPUT", "markdown")

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--output", "json", "--verbose"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfigJournalFlagMapsToJournalPath(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	chdir(t, dir)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--journal", "custom.db"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.JournalPath)
}

func TestLoadConfigFlagPathsAnchorToCWD(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	sub := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "cfg.yaml"), []byte("data_dir: fromfile\n"), 0o600))
	chdir(t, dir)

	flags := newFlags()
	require.NoError(t, flags.Parse([]string{"--data-dir", "fromflag"}))

	cfg, err := LoadConfig(filepath.Join(sub, "cfg.yaml"), flags)
	require.NoError(t, err)

	// The flag wins and is anchored to the CWD, not the config directory.
	assert.Equal(t, filepath.Join(dir, "fromflag"), cfg.DataDir)
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	ResetConfig()
	chdir(t, t.TempDir())

	_, err := LoadConfig("does-not-exist.yaml", nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errSubstr string
	}{
		{
			name: "valid",
			cfg:  Config{DataDir: "data", OutputFormat: "auto"},
		},
		{
			name:      "empty data dir",
			cfg:       Config{OutputFormat: "auto"},
			errSubstr: "data_dir",
		},
		{
			name:      "negative timeout",
			cfg:       Config{DataDir: "data", HTTPTimeout: -time.Second},
			errSubstr: "http_timeout",
		},
		{
			name:      "bad output format",
			cfg:       Config{DataDir: "data", OutputFormat: "xml"},
			errSubstr: "unknown output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetLoggerFallback(t *testing.T) {
	logger := GetLogger(t.Context())
	require.NotNil(t, logger, "missing logger falls back to a discard logger")
}
