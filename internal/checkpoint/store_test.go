package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"capsum/internal/checkpoint"
)

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadAbsentIsEmpty(t *testing.T) {
	store := openStore(t)
	processed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("expected empty set, got %v", processed)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	want := map[string]struct{}{
		"a/one.jpg": {},
		"b/two.png": {},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: got %v want %v", got, want)
	}

	// Saving an empty set must load back as empty, not as an error.
	if err := store.Save(ctx, map[string]struct{}{}); err != nil {
		t.Fatalf("Save empty failed: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load after empty save failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestAddIsIncrementalAndIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, "a/one.jpg"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, "a/one.jpg"); err != nil {
		t.Fatalf("repeat Add failed: %v", err)
	}
	if err := store.Add(ctx, "a/two.jpg"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 entries, got %d", n)
	}
}

func TestDeleteReflagsItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, rel := range []string{"one.jpg", "two.jpg", "three.jpg"} {
		if err := store.Add(ctx, rel); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := store.Delete(ctx, []string{"two.jpg", "missing.jpg"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	processed, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := processed["two.jpg"]; ok {
		t.Fatal("deleted entry still present")
	}
	if len(processed) != 2 {
		t.Fatalf("expected 2 entries, got %v", processed)
	}
}

func TestConcurrentAdds(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	rels := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"}
	for _, rel := range rels {
		wg.Add(1)
		go func(rel string) {
			defer wg.Done()
			if err := store.Add(ctx, rel); err != nil {
				t.Errorf("Add(%q) failed: %v", rel, err)
			}
		}(rel)
	}
	wg.Wait()

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != len(rels) {
		t.Fatalf("expected %d entries, got %d", len(rels), n)
	}
}

func TestRemoveDeletesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Add(context.Background(), "a.jpg"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("checkpoint file still exists: %v", err)
	}

	// A fresh open after removal starts from an empty set.
	store, err = checkpoint.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	processed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(processed) != 0 {
		t.Fatalf("expected empty set after removal, got %v", processed)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")
	store, err := checkpoint.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Add(context.Background(), "kept.jpg"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = checkpoint.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer store.Close()
	processed, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := processed["kept.jpg"]; !ok {
		t.Fatalf("entry lost across reopen: %v", processed)
	}
}
