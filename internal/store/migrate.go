package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migrator applies .sql files from a directory in lexicographic filename
// order, each inside its own transaction, tracking applied files by name in
// a `_migrations(name unique, applied_at)` ledger table. Safe to call
// repeatedly: only migrations not yet recorded are applied. A failing
// migration rolls back its own transaction and aborts the remaining run.
//
// Shared by both the postgres and sqlite backends since both speak
// database/sql and the ledger DDL is portable across both dialects.
type Migrator struct {
	db          *sql.DB
	dir         string
	recordQuery string
}

// NewMigrator builds a Migrator for db reading .sql files from dir.
// placeholder is "$1" for postgres (lib/pq) or "?" for sqlite, matching
// each driver's parameter binding style.
func NewMigrator(db *sql.DB, dir string, placeholder string) *Migrator {
	return &Migrator{
		db:          db,
		dir:         dir,
		recordQuery: "INSERT INTO _migrations (name) VALUES (" + placeholder + ")",
	}
}

// ledgerDDL is portable SQL (works on both postgres and sqlite) for the
// migration ledger table itself.
const ledgerDDL = `
CREATE TABLE IF NOT EXISTS _migrations (
	name TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Up applies all pending migrations in lexicographic filename order.
func (m *Migrator) Up() error {
	if _, err := m.db.Exec(ledgerDDL); err != nil {
		return fmt.Errorf("migrate: failed to create ledger table: %w", err)
	}

	applied, err := m.appliedNames()
	if err != nil {
		return fmt.Errorf("migrate: failed to read ledger: %w", err)
	}

	files, err := m.pendingFiles(applied)
	if err != nil {
		return err
	}

	for _, name := range files {
		if err := m.applyOne(name); err != nil {
			return fmt.Errorf("migrate: failed applying %s: %w", name, err)
		}
	}
	return nil
}

func (m *Migrator) appliedNames() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT name FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) pendingFiles(applied map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: failed to read directory %s: %w", m.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if applied[e.Name()] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Migrator) applyOne(name string) error {
	sqlBytes, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(sqlBytes)); err != nil {
		return fmt.Errorf("failed to execute migration body: %w", err)
	}
	if _, err := tx.Exec(m.recordQuery, name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
