package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateProject(ctx context.Context, p *hexmem.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	emb := toVector(p.Embedding)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, agent_id, slug, name, description, status, tags, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		p.ID, p.AgentID, p.Slug, p.Name, p.Description, p.Status, tags, emb, meta)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project slug %q: %w", p.Slug, hexmem.ErrConflict)
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, idOrSlug string, agentID string) (*hexmem.Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+` WHERE agent_id = $1 AND (id::text = $2 OR slug = $2)`, agentID, idOrSlug)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context, agentID string) ([]*hexmem.Project, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+` WHERE agent_id = $1 ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProject(ctx context.Context, p *hexmem.Project) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	emb := toVector(p.Embedding)
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = $2, description = $3, status = $4, tags = $5,
			embedding = COALESCE($6, embedding), metadata = $7, updated_at = now()
		WHERE id = $1`, p.ID, p.Name, p.Description, p.Status, tags, emb, meta)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

const projectSelect = `
	SELECT id, agent_id, slug, name, description, status, tags, metadata, created_at, updated_at
	FROM projects`

func scanProject(row rowScanner) (*hexmem.Project, error) {
	var p hexmem.Project
	var tags, meta []byte
	if err := row.Scan(&p.ID, &p.AgentID, &p.Slug, &p.Name, &p.Description, &p.Status, &tags, &meta,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(meta, &p.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &p, nil
}
