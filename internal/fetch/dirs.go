package fetch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datalift-labs/stats19/internal/manifest"
)

// EnsureDirs creates the destination directory for every category in the
// manifest under root, including parents. Existing directories are left
// untouched. A failure here is fatal to the pipeline: nothing can be
// fetched into a layout that could not be provisioned.
func EnsureDirs(root string, m *manifest.Manifest) error {
	for _, dir := range m.Dirs() {
		path := filepath.Join(root, dir)
		if err := os.MkdirAll(path, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	}
	return nil
}
