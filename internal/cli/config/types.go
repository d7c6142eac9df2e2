// Package config loads CLI configuration from file, environment, and
// flags.
package config

import "time"

// Default configuration values.
const (
	DefaultDataDir     = "data"
	DefaultJournalFile = ".stats19/journal.db"
	DefaultHTTPTimeout = 10 * time.Minute
	DefaultEngine      = "duckdb"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string          `koanf:"data_dir"`
	ManifestPath string          `koanf:"manifest"`
	JournalPath  string          `koanf:"journal_path"`
	HTTPTimeout  time.Duration   `koanf:"http_timeout"`
	Verbose      bool            `koanf:"verbose"`
	OutputFormat string          `koanf:"output"`
	Converter    ConverterConfig `koanf:"converter"`
}

// ConverterConfig selects and configures the conversion step.
type ConverterConfig struct {
	// Engine is "duckdb" (built-in) or "external".
	Engine string `koanf:"engine"`

	// Command and Args define the external conversion program. Only used
	// when Engine is "external".
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`

	// Packages are installed for the external program's runtime before it
	// is invoked.
	Packages []string `koanf:"packages"`
}
