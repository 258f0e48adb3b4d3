package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the durable, crash-safe record of which items have verified,
// error-free output. Its absence is an empty set, never an error; its
// deletion is the terminal event of a fully completed run.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS processed_items (
    rel_path     TEXT PRIMARY KEY,
    completed_at TEXT NOT NULL
);`

// Open initializes or connects to the checkpoint database. A missing file
// is created empty.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply checkpoint schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the set of completed item identifiers.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rel_path FROM processed_items`)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	defer rows.Close()

	processed := make(map[string]struct{})
	for rows.Next() {
		var rel string
		if err := rows.Scan(&rel); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		processed[rel] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint rows: %w", err)
	}
	return processed, nil
}

// Add durably appends one completed identifier. Called after every verified
// item rather than batched; losing completed work on a crash costs far more
// than the extra write.
func (s *Store) Add(ctx context.Context, relPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_items (rel_path, completed_at) VALUES (?, ?)`,
		relPath, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append checkpoint entry: %w", err)
	}
	return nil
}

// Save atomically replaces the whole recorded set in one transaction.
func (s *Store) Save(ctx context.Context, processed map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processed_items`); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for rel := range processed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed_items (rel_path, completed_at) VALUES (?, ?)`, rel, now); err != nil {
			return fmt.Errorf("write checkpoint entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint save: %w", err)
	}
	return nil
}

// Delete removes the given identifiers, re-flagging them for processing on
// the next run.
func (s *Store) Delete(ctx context.Context, relPaths []string) error {
	if len(relPaths) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rel := range relPaths {
		if _, err := tx.ExecContext(ctx, `DELETE FROM processed_items WHERE rel_path = ?`, rel); err != nil {
			return fmt.Errorf("delete checkpoint entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint delete: %w", err)
	}
	return nil
}

// Count returns the number of recorded identifiers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count checkpoint entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Remove closes the store and deletes the database files. Only called when
// a run finishes with zero outstanding errors: nothing remains to resume.
func (s *Store) Remove() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("close checkpoint before removal: %w", err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := s.path + suffix
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove checkpoint file %q: %w", path, err)
		}
	}
	return nil
}
