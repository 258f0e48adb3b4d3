package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SeedImages fills dir with count placeholder JPEG files named
// img_00.jpg onward and returns their file names.
func SeedImages(t testing.TB, dir string, count int) []string {
	t.Helper()

	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("img_%02d.jpg", i)
		WriteFile(t, filepath.Join(dir, name), "jpeg")
		names = append(names, name)
	}
	return names
}
