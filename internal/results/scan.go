package results

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ScanOutputs walks the output tree and returns the paths of caption files
// whose content carries an error marker. Unreadable files are treated as
// erroring so they get reprocessed rather than silently skipped. A missing
// output directory yields an empty result.
func (c *Classifier) ScanOutputs(outputDir string) ([]string, error) {
	var erroring []string

	err := filepath.WalkDir(outputDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == outputDir && errors.Is(walkErr, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return walkErr
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			return nil
		}
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			erroring = append(erroring, path)
			return nil
		}
		if c.HasError(string(content)) {
			erroring = append(erroring, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return erroring, nil
}
