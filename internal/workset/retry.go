package workset

import (
	"path/filepath"
	"strings"
)

// IdentifiersForOutputs maps erroring caption files back to the item
// identifiers recorded in the processed set, probing the supported image
// extensions since the output name drops the original one. Outputs with no
// matching identifier are skipped; they were never checkpointed.
func IdentifiersForOutputs(outputDir string, outputs []string, processed map[string]struct{}) []string {
	var matched []string
	for _, output := range outputs {
		rel, err := filepath.Rel(outputDir, output)
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(rel, filepath.Ext(rel))
		for _, ext := range ImageExtensions {
			candidate := base + ext
			if _, ok := processed[candidate]; ok {
				matched = append(matched, candidate)
				break
			}
		}
	}
	return matched
}

// ItemsForOutputs rebuilds work items for erroring caption files by probing
// the input tree for the source image. The second return lists outputs
// whose source image could not be found.
func ItemsForOutputs(inputDir, outputDir string, outputs []string, exists func(string) bool) ([]Item, []string) {
	var items []Item
	var orphaned []string
	for _, output := range outputs {
		rel, err := filepath.Rel(outputDir, output)
		if err != nil {
			orphaned = append(orphaned, output)
			continue
		}
		base := strings.TrimSuffix(rel, filepath.Ext(rel))
		found := false
		for _, ext := range ImageExtensions {
			source := filepath.Join(inputDir, base+ext)
			if exists(source) {
				items = append(items, Item{
					SourcePath: source,
					OutputPath: output,
					RelPath:    base + ext,
				})
				found = true
				break
			}
		}
		if !found {
			orphaned = append(orphaned, output)
		}
	}
	return items, orphaned
}
