package convert

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

// maxPartBytes caps each Parquet output file. Larger results are split
// into numbered parts.
const maxPartBytes int64 = 50 * 1024 * 1024

// Historical datasets are trimmed to this collision-year window when the
// column is present.
const (
	priorYearFrom = 2015
	priorYearTo   = 2024
)

// DuckDBRunner converts the downloaded CSVs to Snappy-compressed Parquet
// in-process through DuckDB. Output lands under <root>/parquet/<category>,
// one file per dataset, split into _partNN files when a single file would
// exceed the size cap.
type DuckDBRunner struct {
	root     string
	manifest *manifest.Manifest
	maxBytes int64
	logger   *slog.Logger
}

// NewDuckDBRunner creates a runner over the layout rooted at root.
func NewDuckDBRunner(root string, m *manifest.Manifest, logger *slog.Logger) *DuckDBRunner {
	return &DuckDBRunner{
		root:     root,
		manifest: m,
		maxBytes: maxPartBytes,
		logger:   logger,
	}
}

// Convert processes every CSV dataset in the provisional and historical
// categories. Missing source files are skipped with a warning; a dataset
// that fails to convert does not stop the others, and the collected
// failures are returned at the end.
func (r *DuckDBRunner) Convert(ctx context.Context) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	var errs []error
	for _, cat := range []manifest.Category{manifest.CategoryProvisional, manifest.CategoryPrior} {
		outDir := filepath.Join(r.root, "parquet", string(cat))
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}

		for _, ds := range r.manifest.ByCategory(cat) {
			if !ds.IsCSV() {
				continue
			}

			csvPath := ds.Path(r.root)
			if _, err := os.Stat(csvPath); os.IsNotExist(err) {
				r.logger.Warn("source file not found, skipping", "dataset", ds.Name, "path", csvPath)
				continue
			}

			if err := r.convertOne(ctx, db, ds, csvPath, outDir); err != nil {
				r.logger.Warn("conversion failed", "dataset", ds.Name, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", ds.Name, err))
			}
		}
	}

	return errors.Join(errs...)
}

// convertOne loads a single CSV into a temp table, applies the historical
// year filter where applicable, and writes Parquet output.
func (r *DuckDBRunner) convertOne(ctx context.Context, db *sql.DB, ds manifest.Dataset, csvPath, outDir string) error {
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	load := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE src AS SELECT * FROM read_csv_auto('%s', header=true)",
		sqlQuote(absPath),
	)
	if _, err := db.ExecContext(ctx, load); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	defer func() { _, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS src") }()

	if ds.Category == manifest.CategoryPrior {
		hasYear, err := r.hasColumn(ctx, db, "collision_year")
		if err != nil {
			return err
		}
		if hasYear {
			del := fmt.Sprintf(
				"DELETE FROM src WHERE TRY_CAST(collision_year AS INTEGER) IS NULL OR TRY_CAST(collision_year AS INTEGER) NOT BETWEEN %d AND %d",
				priorYearFrom, priorYearTo,
			)
			if _, err := db.ExecContext(ctx, del); err != nil {
				return fmt.Errorf("failed to apply year filter: %w", err)
			}
		}
	}

	var rows int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM src").Scan(&rows); err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}

	single := filepath.Join(outDir, ds.TableName()+".parquet")
	if err := r.copyTo(ctx, db, "SELECT * FROM src", single); err != nil {
		return err
	}

	info, err := os.Stat(single)
	if err != nil {
		return fmt.Errorf("failed to stat output: %w", err)
	}

	if info.Size() <= r.maxBytes || rows == 0 {
		r.logger.Info("converted", "dataset", ds.Name, "rows", rows, "bytes", info.Size(), "file", single)
		return nil
	}

	// Over the cap: rewrite as numbered parts of roughly equal row count.
	if err := os.Remove(single); err != nil {
		return fmt.Errorf("failed to remove oversized output: %w", err)
	}

	parts := info.Size()/r.maxBytes + 1
	rowsPerPart := rows/parts + 1

	var written int64
	for i := int64(0); i < parts && written < rows; i++ {
		part := filepath.Join(outDir, fmt.Sprintf("%s_part%02d.parquet", ds.TableName(), i+1))
		// Paging must be over a stable order or parts could overlap.
		query := fmt.Sprintf("SELECT * FROM src ORDER BY rowid LIMIT %d OFFSET %d", rowsPerPart, written)
		if err := r.copyTo(ctx, db, query, part); err != nil {
			return err
		}
		written += rowsPerPart
		r.logger.Info("converted part", "dataset", ds.Name, "file", part)
	}

	r.logger.Info("converted", "dataset", ds.Name, "rows", rows, "parts", parts)
	return nil
}

// copyTo writes the result of query to a Snappy-compressed Parquet file.
func (r *DuckDBRunner) copyTo(ctx context.Context, db *sql.DB, query, dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	stmt := fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET, COMPRESSION SNAPPY)", query, sqlQuote(absDest))
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to write parquet %s: %w", dest, err)
	}
	return nil
}

// hasColumn reports whether the src temp table has the named column.
func (r *DuckDBRunner) hasColumn(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('src') WHERE name = '%s'", sqlQuote(name))
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to inspect columns: %w", err)
	}
	return count > 0, nil
}

// sqlQuote escapes single quotes for embedding in a SQL string literal.
func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Ensure both runners satisfy the interface.
var (
	_ Runner = (*DuckDBRunner)(nil)
	_ Runner = (*ExternalRunner)(nil)
)
