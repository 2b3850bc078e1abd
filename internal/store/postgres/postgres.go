// Package postgres is the primary Store backend, backed by
// PostgreSQL with pgvector for cosine distance and pg_trgm for trigram
// similarity.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/hexmem/hexmem/internal/store"
)

// Store implements store.Store against a PostgreSQL database.
type Store struct {
	db *sql.DB
}

// Open connects to dsn, applies pending migrations from migrationsDir, and
// returns a ready Store.
func Open(dsn string, migrationsDir string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(30 * time.Second)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if migrationsDir != "" {
		m := store.NewMigrator(db, migrationsDir, "$1")
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
