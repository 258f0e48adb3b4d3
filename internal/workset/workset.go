package workset

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ImageExtensions lists the source file types the captioner accepts.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}

// Item is one unit of work: a source image, the destination its caption is
// written to, and the stable identifier both the checkpoint and the
// pending-list subtraction key on. Immutable once created.
type Item struct {
	SourcePath string
	OutputPath string
	RelPath    string
}

// IsImage reports whether the file name carries a supported extension.
func IsImage(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// OutputPathFor maps an item identifier to its caption destination: the same
// relative location under the output tree with a .txt extension.
func OutputPathFor(outputDir, relPath string) string {
	base := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return filepath.Join(outputDir, base+".txt")
}

// Discover walks the input tree and returns every image as an Item, in
// walk order. The output tree mirrors the input layout.
func Discover(inputDir, outputDir string) ([]Item, error) {
	var items []Item
	err := filepath.WalkDir(inputDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !IsImage(entry.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(inputDir, path)
		if relErr != nil {
			return relErr
		}
		items = append(items, Item{
			SourcePath: path,
			OutputPath: OutputPathFor(outputDir, rel),
			RelPath:    rel,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk input directory: %w", err)
	}
	return items, nil
}

// FromListFile reads a worker assignment file: one identifier per line,
// blank lines and # comments skipped. Absolute paths are accepted and
// rebased onto the input directory.
func FromListFile(path, inputDir, outputDir string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open worker file: %w", err)
	}
	defer file.Close()

	var items []Item
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rel := line
		if filepath.IsAbs(rel) {
			if rel, err = filepath.Rel(inputDir, rel); err != nil {
				return nil, fmt.Errorf("worker file entry %q outside input directory: %w", line, err)
			}
		}
		if !IsImage(rel) {
			return nil, fmt.Errorf("worker file entry %q is not a supported image", line)
		}
		items = append(items, Item{
			SourcePath: filepath.Join(inputDir, rel),
			OutputPath: OutputPathFor(outputDir, rel),
			RelPath:    rel,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read worker file: %w", err)
	}
	return items, nil
}

// Pending filters out items whose identifier is already recorded as
// processed, preserving order.
func Pending(items []Item, processed map[string]struct{}) []Item {
	remaining := make([]Item, 0, len(items))
	for _, item := range items {
		if _, done := processed[item.RelPath]; !done {
			remaining = append(remaining, item)
		}
	}
	return remaining
}
