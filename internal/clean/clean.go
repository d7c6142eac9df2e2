// Package clean turns the raw collision CSVs into analysis-ready ones:
// coded fields are decoded to their labels through the lookup table, a
// timestamp column is derived from the date and time fields, and duplicate
// rows are dropped.
package clean

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/datalift-labs/stats19/internal/manifest"
)

// DefaultLookupsFile is the lookup table consulted for label decoding,
// expected under the lookup category directory.
const DefaultLookupsFile = "road-safety-lookups.csv"

// codedFields are the collision fields decoded from codes to labels when
// both the column and a lookup entry for it exist.
var codedFields = []string{
	"urban_or_rural_area",
	"carriageway_hazards",
	"special_conditions_at_site",
	"road_surface_conditions",
	"weather_conditions",
	"light_conditions",
	"pedestrian_crossing_human_control",
	"pedestrian_crossing_physical_facilities",
	"second_road_class",
	"junction_control",
	"road_type",
	"first_road_class",
	"junction_detail",
	"day_of_week",
	"accident_severity",
}

// Cleaner cleans the collision datasets in-process through DuckDB. Output
// lands under <root>/cleaned/<category>, one CSV per dataset.
type Cleaner struct {
	root     string
	manifest *manifest.Manifest
	lookups  string
	logger   *slog.Logger
}

// New creates a cleaner over the layout rooted at root. lookups is the
// path to the lookup table CSV; when the file is absent, cleaning still
// runs but no fields are decoded.
func New(root string, m *manifest.Manifest, lookups string, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		root:     root,
		manifest: m,
		lookups:  lookups,
		logger:   logger,
	}
}

// Clean processes every collision CSV in the manifest. Missing source
// files are skipped with a warning; a dataset that fails to clean does not
// stop the others, and the collected failures are returned at the end.
func (c *Cleaner) Clean(ctx context.Context) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	haveLookups, err := c.loadLookups(ctx, db)
	if err != nil {
		return err
	}

	var errs []error
	for _, ds := range c.manifest.Datasets {
		if !ds.IsCSV() || !strings.HasPrefix(ds.Name, "collision") {
			continue
		}

		csvPath := ds.Path(c.root)
		if _, err := os.Stat(csvPath); os.IsNotExist(err) {
			c.logger.Warn("source file not found, skipping", "dataset", ds.Name, "path", csvPath)
			continue
		}

		outDir := filepath.Join(c.root, "cleaned", string(ds.Category))
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}

		if err := c.cleanOne(ctx, db, ds, csvPath, outDir, haveLookups); err != nil {
			c.logger.Warn("cleaning failed", "dataset", ds.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ds.Name, err))
		}
	}

	return errors.Join(errs...)
}

// loadLookups loads the lookup table into a temp table. Returns false when
// the file is absent or lacks the decoding columns.
func (c *Cleaner) loadLookups(ctx context.Context, db *sql.DB) (bool, error) {
	if _, err := os.Stat(c.lookups); os.IsNotExist(err) {
		c.logger.Warn("lookup table not found, fields will not be decoded", "path", c.lookups)
		return false, nil
	}

	absPath, err := filepath.Abs(c.lookups)
	if err != nil {
		return false, fmt.Errorf("failed to resolve lookups path: %w", err)
	}

	load := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE lookups AS SELECT * FROM read_csv_auto('%s', header=true, normalize_names=true, all_varchar=true)",
		sqlQuote(absPath),
	)
	if _, err := db.ExecContext(ctx, load); err != nil {
		return false, fmt.Errorf("failed to load lookup table: %w", err)
	}

	for _, col := range []string{"field_name", "code_format", "label"} {
		ok, err := hasColumn(ctx, db, "lookups", col)
		if err != nil {
			return false, err
		}
		if !ok {
			c.logger.Warn("lookup table lacks column, fields will not be decoded", "column", col)
			return false, nil
		}
	}

	return true, nil
}

// cleanOne loads a single CSV, decodes its coded fields, derives the
// timestamp column, and writes the deduplicated result.
func (c *Cleaner) cleanOne(ctx context.Context, db *sql.DB, ds manifest.Dataset, csvPath, outDir string, decode bool) error {
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	load := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE src AS SELECT * FROM read_csv_auto('%s', header=true, all_varchar=true)",
		sqlQuote(absPath),
	)
	if _, err := db.ExecContext(ctx, load); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	defer func() { _, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS src") }()

	if decode {
		for _, field := range codedFields {
			ok, err := hasColumn(ctx, db, "src", field)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := c.decodeField(ctx, db, field); err != nil {
				return err
			}
		}
	}

	if err := c.deriveTimestamp(ctx, db); err != nil {
		return err
	}

	out := filepath.Join(outDir, ds.TableName()+"-cleaned.csv")
	absOut, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	write := fmt.Sprintf("COPY (SELECT DISTINCT * FROM src) TO '%s' (FORMAT CSV, HEADER)", sqlQuote(absOut))
	if _, err := db.ExecContext(ctx, write); err != nil {
		return fmt.Errorf("failed to write cleaned CSV %s: %w", out, err)
	}

	var rows int64
	count := fmt.Sprintf("SELECT COUNT(*) FROM read_csv_auto('%s', header=true)", sqlQuote(absOut))
	if err := db.QueryRowContext(ctx, count).Scan(&rows); err != nil {
		return fmt.Errorf("failed to count cleaned rows: %w", err)
	}

	c.logger.Info("cleaned", "dataset", ds.Name, "rows", rows, "file", out)
	return nil
}

// decodeField replaces the field's codes with their labels. Codes whose
// lookup entry has no label become "None".
func (c *Cleaner) decodeField(ctx context.Context, db *sql.DB, field string) error {
	update := fmt.Sprintf(
		`UPDATE src SET %[1]s = CASE WHEN lu.label IS NULL OR lu.label = '' THEN 'None' ELSE lu.label END
		 FROM lookups lu
		 WHERE lu.field_name = '%[1]s'
		   AND TRY_CAST(lu.code_format AS INTEGER) IS NOT NULL
		   AND TRY_CAST(lu.code_format AS INTEGER) = TRY_CAST(src.%[1]s AS INTEGER)`,
		field,
	)
	if _, err := db.ExecContext(ctx, update); err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return nil
}

// deriveTimestamp adds a timestamp column combined from the date and time
// fields, when both are present. Unparseable values stay NULL.
func (c *Cleaner) deriveTimestamp(ctx context.Context, db *sql.DB) error {
	for _, col := range []string{"date", "time"} {
		ok, err := hasColumn(ctx, db, "src", col)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	if _, err := db.ExecContext(ctx, `ALTER TABLE src ADD COLUMN "timestamp" TIMESTAMP`); err != nil {
		return fmt.Errorf("failed to add timestamp column: %w", err)
	}

	update := `UPDATE src SET "timestamp" = try_strptime("date" || ' ' || "time", '%d/%m/%Y %H:%M')`
	if _, err := db.ExecContext(ctx, update); err != nil {
		return fmt.Errorf("failed to derive timestamps: %w", err)
	}
	return nil
}

// hasColumn reports whether the named temp table has the named column.
func hasColumn(ctx context.Context, db *sql.DB, table, name string) (bool, error) {
	var count int
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = '%s'",
		sqlQuote(table), sqlQuote(name),
	)
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to inspect columns: %w", err)
	}
	return count > 0, nil
}

// sqlQuote escapes single quotes for embedding in a SQL string literal.
func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
