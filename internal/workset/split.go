package workset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Split partitions the backlog into n disjoint worker assignment files
// under dir, named worker_1_images.txt through worker_n_images.txt. Earlier
// workers absorb the remainder so chunk sizes differ by at most one. The
// files are consumed offline by separate machines; there is no runtime
// coordination beyond this static partition.
func Split(items []Item, n int, dir string) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", n)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create distribution directory: %w", err)
	}

	chunkSize := len(items) / n
	remainder := len(items) % n

	var paths []string
	start := 0
	for i := 0; i < n; i++ {
		size := chunkSize
		if i < remainder {
			size++
		}
		chunk := items[start : start+size]
		start += size

		path := filepath.Join(dir, fmt.Sprintf("worker_%d_images.txt", i+1))
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create worker file: %w", err)
		}
		fmt.Fprintf(file, "# Worker %d - %d images\n\n", i+1, len(chunk))
		for _, item := range chunk {
			fmt.Fprintln(file, item.RelPath)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("close worker file: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
