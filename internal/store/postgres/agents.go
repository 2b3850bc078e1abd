package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateAgent(ctx context.Context, a *hexmem.Agent) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	core, err := json.Marshal(a.CoreMemory)
	if err != nil {
		return fmt.Errorf("marshal core_memory: %w", err)
	}
	cfg, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agents (id, slug, display_name, description, core_memory, config)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.Slug, a.DisplayName, a.Description, core, cfg)
	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("agent slug %q: %w", a.Slug, hexmem.ErrConflict)
		}
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, idOrSlug string) (*hexmem.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, display_name, description, core_memory, config, created_at, updated_at
		FROM agents WHERE id::text = $1 OR slug = $1`, idOrSlug)
	return scanAgent(row)
}

func (s *Store) ListAgents(ctx context.Context) ([]*hexmem.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, display_name, description, core_memory, config, created_at, updated_at
		FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAgent(ctx context.Context, id string, patch store.AgentPatch) (*hexmem.Agent, error) {
	a, err := s.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.DisplayName != nil {
		a.DisplayName = *patch.DisplayName
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Config != nil {
		a.Config = patch.Config
	}
	cfg, err := json.Marshal(a.Config)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE agents SET display_name = $2, description = $3, config = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`, a.ID, a.DisplayName, a.Description, cfg)
	if err := row.Scan(&a.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return a, nil
}

// PatchCoreMemory merge-patches core_memory with patch, stripping any key
// whose patch value is JSON null (core-memory merge semantics).
func (s *Store) PatchCoreMemory(ctx context.Context, id string, patch hexmem.JSONMap) (*hexmem.Agent, error) {
	b, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE agents
		SET core_memory = jsonb_strip_nulls(core_memory || $2::jsonb), updated_at = now()
		WHERE id = $1
		RETURNING id, slug, display_name, description, core_memory, config, created_at, updated_at`,
		id, b)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hexmem.ErrNotFound
	}
	return a, err
}

func (s *Store) AgentCounts(ctx context.Context, id string) (map[string]int, error) {
	counts := map[string]int{}
	queries := map[string]string{
		"facts":     `SELECT count(*) FROM facts WHERE agent_id = $1 AND decay_status != 'archived'`,
		"decisions": `SELECT count(*) FROM decisions WHERE agent_id = $1 AND decay_status != 'archived'`,
		"tasks":     `SELECT count(*) FROM tasks WHERE agent_id = $1 AND decay_status != 'archived'`,
		"events":    `SELECT count(*) FROM events WHERE agent_id = $1 AND decay_status != 'archived'`,
		"sessions":  `SELECT count(*) FROM sessions WHERE agent_id = $1`,
		"projects":  `SELECT count(*) FROM projects WHERE agent_id = $1`,
	}
	for key, q := range queries {
		var n int
		if err := s.db.QueryRowContext(ctx, q, id).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", key, err)
		}
		counts[key] = n
	}
	return counts, nil
}

func (s *Store) ResolveAgentID(ctx context.Context, idOrSlug string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM agents WHERE id::text = $1 OR slug = $1`, idOrSlug).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", hexmem.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve agent: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*hexmem.Agent, error) {
	var a hexmem.Agent
	var core, cfg []byte
	if err := row.Scan(&a.ID, &a.Slug, &a.DisplayName, &a.Description, &core, &cfg, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan agent: %w", err)
	}
	if err := json.Unmarshal(core, &a.CoreMemory); err != nil {
		return nil, fmt.Errorf("unmarshal core_memory: %w", err)
	}
	if err := json.Unmarshal(cfg, &a.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
