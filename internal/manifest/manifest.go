// Package manifest defines the catalog of road-safety datasets to retrieve.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Category groups datasets by destination directory.
type Category string

const (
	// CategoryLookup holds reference material such as the data guide.
	CategoryLookup Category = "lookup"

	// CategoryProvisional holds the mid-year provisional datasets.
	CategoryProvisional Category = "2025_dataset"

	// CategoryPrior holds the validated historical datasets.
	CategoryPrior Category = "2024_prior"
)

// portalBase is the DfT road-safety open data portal root.
const portalBase = "https://data.dft.gov.uk/road-accidents-safety-data"

// Dataset is a single (source URL, destination file) pair.
type Dataset struct {
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"`
	File     string   `yaml:"file"`
	Category Category `yaml:"category"`
}

// Path returns the dataset's destination path anchored under root.
func (d Dataset) Path(root string) string {
	return filepath.Join(root, string(d.Category), d.File)
}

// IsCSV reports whether the destination file is a CSV, and therefore a
// candidate for Parquet conversion.
func (d Dataset) IsCSV() bool {
	return filepath.Ext(d.File) == ".csv"
}

// TableName returns the dataset file name without extension, used as the
// base name for converted Parquet output.
func (d Dataset) TableName() string {
	return d.File[:len(d.File)-len(filepath.Ext(d.File))]
}

// Manifest is an ordered list of datasets. Fetch order follows list order.
type Manifest struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Default returns the standard STATS19 manifest: the 2024 data guide, the
// three provisional mid-year 2025 tables, and the three validated
// 1979-2024 tables.
func Default() *Manifest {
	return &Manifest{Datasets: []Dataset{
		{
			Name:     "data-guide",
			URL:      portalBase + "/dft-road-casualty-statistics-road-safety-open-dataset-data-guide-2024.xlsx",
			File:     "data-guide-2024.xlsx",
			Category: CategoryLookup,
		},
		{
			Name:     "collision-provisional",
			URL:      portalBase + "/dft-road-casualty-statistics-collision-provisional-mid-year-unvalidated-2025.csv",
			File:     "collision-provisional-2025.csv",
			Category: CategoryProvisional,
		},
		{
			Name:     "vehicle-provisional",
			URL:      portalBase + "/dft-road-casualty-statistics-vehicle-provisional-mid-year-unvalidated-2025.csv",
			File:     "vehicle-provisional-2025.csv",
			Category: CategoryProvisional,
		},
		{
			Name:     "casualty-provisional",
			URL:      portalBase + "/dft-road-casualty-statistics-casualty-provisional-mid-year-unvalidated-2025.csv",
			File:     "casualty-provisional-2025.csv",
			Category: CategoryProvisional,
		},
		{
			Name:     "collision-historical",
			URL:      portalBase + "/dft-road-casualty-statistics-collision-1979-2024.csv",
			File:     "collision-1979-2024.csv",
			Category: CategoryPrior,
		},
		{
			Name:     "vehicle-historical",
			URL:      portalBase + "/dft-road-casualty-statistics-vehicle-1979-2024.csv",
			File:     "vehicle-1979-2024.csv",
			Category: CategoryPrior,
		},
		{
			Name:     "casualty-historical",
			URL:      portalBase + "/dft-road-casualty-statistics-casualty-1979-2024.csv",
			File:     "casualty-1979-2024.csv",
			Category: CategoryPrior,
		},
	}}
}

// Load reads a manifest override from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest file %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return &m, nil
}

// Validate checks that every dataset is fully specified and that no two
// datasets share a destination path.
func (m *Manifest) Validate() error {
	if len(m.Datasets) == 0 {
		return fmt.Errorf("manifest has no datasets")
	}

	seen := make(map[string]string, len(m.Datasets))
	for _, d := range m.Datasets {
		if d.Name == "" {
			return fmt.Errorf("dataset with url %q has no name", d.URL)
		}
		if d.URL == "" {
			return fmt.Errorf("dataset %s has no url", d.Name)
		}
		if d.File == "" {
			return fmt.Errorf("dataset %s has no destination file", d.Name)
		}
		if d.Category == "" {
			return fmt.Errorf("dataset %s has no category", d.Name)
		}

		dest := filepath.Join(string(d.Category), d.File)
		if prev, ok := seen[dest]; ok {
			return fmt.Errorf("datasets %s and %s share destination %s", prev, d.Name, dest)
		}
		seen[dest] = d.Name
	}

	return nil
}

// Dirs returns the destination directories used by the manifest, in first
// occurrence order.
func (m *Manifest) Dirs() []string {
	var dirs []string
	seen := make(map[Category]bool)
	for _, d := range m.Datasets {
		if seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		dirs = append(dirs, string(d.Category))
	}
	return dirs
}

// ByCategory returns the datasets belonging to the given category, in
// manifest order.
func (m *Manifest) ByCategory(c Category) []Dataset {
	var out []Dataset
	for _, d := range m.Datasets {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}
