package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > stats19.yaml > stats19.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"stats19.yaml", "stats19.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir unless it is
// empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Paths given as flags are relative to the CWD at invocation time;
	// pin them down before config-file-relative resolution happens.
	var flagDataDir, flagManifest, flagJournal string
	if flags != nil {
		if flags.Changed("data-dir") {
			if v, _ := flags.GetString("data-dir"); v != "" {
				flagDataDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("manifest") {
			if v, _ := flags.GetString("manifest"); v != "" {
				flagManifest, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("journal") {
			if v, _ := flags.GetString("journal"); v != "" {
				flagJournal, _ = filepath.Abs(v)
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":         DefaultDataDir,
		"journal_path":     DefaultJournalFile,
		"http_timeout":     DefaultHTTPTimeout.String(),
		"verbose":          false,
		"output":           DefaultOutput,
		"converter.engine": DefaultEngine,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (STATS19_ prefix)
	// Transform: STATS19_DATA_DIR -> data_dir. Converter settings nest:
	// STATS19_CONVERTER_ENGINE -> converter.engine
	if err := k.Load(env.Provider("STATS19_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "STATS19_"))
		if after, ok := strings.CutPrefix(key, "converter_"); ok {
			return "converter." + after
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --journal for brevity; the config key is
			// journal_path.
			if key == "journal" {
				return "journal_path", posflag.FlagVal(flags, f)
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths. Paths from the config file anchor to the
	// config file's directory; everything else anchors to the CWD.
	baseDir := "."
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	} else {
		cfg.DataDir = resolvePathRelativeTo(cfg.DataDir, baseDir)
	}
	if flagManifest != "" {
		cfg.ManifestPath = flagManifest
	} else {
		cfg.ManifestPath = resolvePathRelativeTo(cfg.ManifestPath, baseDir)
	}
	if flagJournal != "" {
		cfg.JournalPath = flagJournal
	} else {
		cfg.JournalPath = resolvePathRelativeTo(cfg.JournalPath, baseDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// Validate checks the loaded configuration for values no command could
// work with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative")
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (available: auto, text, markdown, json)", c.OutputFormat)
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
