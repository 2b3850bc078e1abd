// Package sqlite is the dev/test Store backend: a pure-Go,
// single-file implementation of the same contract as postgres.Store, used
// in CI and local development where running PostgreSQL is overkill.
// Lexical similarity is approximated with Go-side trigram Jaccard and
// vector cosine distance is computed in Go over BLOB-packed float32
// embeddings, since sqlite has neither pg_trgm nor pgvector.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hexmem/hexmem/internal/store"
)

// Store implements store.Store against a sqlite database file (or
// "file::memory:?cache=shared" for tests).
type Store struct {
	db *sql.DB
}

func Open(path string, migrationsDir string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent access from the recall/decay/ingest goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	if migrationsDir != "" {
		m := store.NewMigrator(db, migrationsDir, "?")
		if err := m.Up(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var _ store.Store = (*Store)(nil)
