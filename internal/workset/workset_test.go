package workset_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"capsum/internal/workset"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscover(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	writeFile(t, filepath.Join(inputDir, "a.jpg"), "img")
	writeFile(t, filepath.Join(inputDir, "sub", "b.PNG"), "img")
	writeFile(t, filepath.Join(inputDir, "notes.txt"), "not an image")

	items, err := workset.Discover(inputDir, outputDir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(items), items)
	}

	first := items[0]
	if first.RelPath != "a.jpg" {
		t.Fatalf("unexpected rel path %q", first.RelPath)
	}
	if first.OutputPath != filepath.Join(outputDir, "a.txt") {
		t.Fatalf("unexpected output path %q", first.OutputPath)
	}
	if items[1].RelPath != filepath.Join("sub", "b.PNG") {
		t.Fatalf("unexpected nested rel path %q", items[1].RelPath)
	}
}

func TestPending(t *testing.T) {
	items := []workset.Item{
		{RelPath: "one.jpg"},
		{RelPath: "two.jpg"},
		{RelPath: "three.jpg"},
	}
	processed := map[string]struct{}{"two.jpg": {}}

	pending := workset.Pending(items, processed)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].RelPath != "one.jpg" || pending[1].RelPath != "three.jpg" {
		t.Fatalf("unexpected pending order: %v", pending)
	}
}

func TestFromListFile(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()
	listPath := filepath.Join(t.TempDir(), "worker_1_images.txt")

	writeFile(t, listPath, strings.Join([]string{
		"# Worker 1 - 2 images",
		"",
		"frames/one.jpg",
		"frames/two.png",
	}, "\n"))

	items, err := workset.FromListFile(listPath, inputDir, outputDir)
	if err != nil {
		t.Fatalf("FromListFile failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].RelPath != filepath.Join("frames", "one.jpg") {
		t.Fatalf("unexpected rel path %q", items[0].RelPath)
	}
	if items[0].SourcePath != filepath.Join(inputDir, "frames", "one.jpg") {
		t.Fatalf("unexpected source path %q", items[0].SourcePath)
	}
	if items[1].OutputPath != filepath.Join(outputDir, "frames", "two.txt") {
		t.Fatalf("unexpected output path %q", items[1].OutputPath)
	}
}

func TestFromListFileRejectsNonImages(t *testing.T) {
	listPath := filepath.Join(t.TempDir(), "list.txt")
	writeFile(t, listPath, "frames/readme.md\n")

	if _, err := workset.FromListFile(listPath, t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("expected error for non-image entry")
	}
}

func TestIdentifiersForOutputs(t *testing.T) {
	outputDir := "/captions"
	processed := map[string]struct{}{
		"a.jpg": {},
		filepath.Join("sub", "b.png"): {},
		"c.jpg": {},
	}
	outputs := []string{
		filepath.Join(outputDir, "a.txt"),
		filepath.Join(outputDir, "sub", "b.txt"),
		filepath.Join(outputDir, "unknown.txt"),
	}

	matched := workset.IdentifiersForOutputs(outputDir, outputs, processed)
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %v", matched)
	}
	if matched[0] != "a.jpg" || matched[1] != filepath.Join("sub", "b.png") {
		t.Fatalf("unexpected matches: %v", matched)
	}
}

func TestItemsForOutputs(t *testing.T) {
	inputDir := "/images"
	outputDir := "/captions"
	present := map[string]bool{
		filepath.Join(inputDir, "a.jpeg"): true,
	}
	outputs := []string{
		filepath.Join(outputDir, "a.txt"),
		filepath.Join(outputDir, "gone.txt"),
	}

	items, orphaned := workset.ItemsForOutputs(inputDir, outputDir, outputs, func(path string) bool {
		return present[path]
	})
	if len(items) != 1 || items[0].RelPath != "a.jpeg" {
		t.Fatalf("unexpected items: %v", items)
	}
	if items[0].OutputPath != filepath.Join(outputDir, "a.txt") {
		t.Fatalf("unexpected output path %q", items[0].OutputPath)
	}
	if len(orphaned) != 1 || orphaned[0] != filepath.Join(outputDir, "gone.txt") {
		t.Fatalf("unexpected orphans: %v", orphaned)
	}
}

func TestSplit(t *testing.T) {
	items := make([]workset.Item, 7)
	for i := range items {
		items[i] = workset.Item{RelPath: filepath.Join("frames", string(rune('a'+i))+".jpg")}
	}
	dir := filepath.Join(t.TempDir(), "dist")

	paths, err := workset.Split(items, 3, dir)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d", len(paths))
	}

	var total int
	sizes := make([]int, 0, 3)
	seen := make(map[string]struct{})
	for _, path := range paths {
		parsed, err := workset.FromListFile(path, "/in", "/out")
		if err != nil {
			t.Fatalf("FromListFile(%q) failed: %v", path, err)
		}
		sizes = append(sizes, len(parsed))
		total += len(parsed)
		for _, item := range parsed {
			if _, dup := seen[item.RelPath]; dup {
				t.Fatalf("item %q assigned to multiple workers", item.RelPath)
			}
			seen[item.RelPath] = struct{}{}
		}
	}
	if total != len(items) {
		t.Fatalf("partition lost items: %d != %d", total, len(items))
	}
	if sizes[0] != 3 || sizes[1] != 2 || sizes[2] != 2 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
}

func TestSplitRejectsZeroWorkers(t *testing.T) {
	if _, err := workset.Split(nil, 0, t.TempDir()); err == nil {
		t.Fatal("expected error for zero workers")
	}
}
