package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateProject(ctx context.Context, p *hexmem.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, agent_id, slug, name, description, status, tags, embedding, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AgentID, p.Slug, p.Name, p.Description, p.Status, tags, packEmbedding(p.Embedding),
		meta, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project slug %q: %w", p.Slug, hexmem.ErrConflict)
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, idOrSlug string, agentID string) (*hexmem.Project, error) {
	row := s.db.QueryRowContext(ctx, projectSelect+` WHERE agent_id = ? AND (id = ? OR slug = ?)`, agentID, idOrSlug, idOrSlug)
	return scanProject(row)
}

func (s *Store) ListProjects(ctx context.Context, agentID string) ([]*hexmem.Project, error) {
	rows, err := s.db.QueryContext(ctx, projectSelect+` WHERE agent_id = ? ORDER BY created_at DESC`, agentID)
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
	p.UpdatedAt = time.Now().UTC()
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	q := `UPDATE projects SET name = ?, description = ?, status = ?, tags = ?, metadata = ?, updated_at = ?`
	args := []interface{}{p.Name, p.Description, p.Status, tags, meta, p.UpdatedAt}
	if len(p.Embedding) > 0 {
		q += `, embedding = ?`
		args = append(args, packEmbedding(p.Embedding))
	}
	q += ` WHERE id = ?`
	args = append(args, p.ID)
	res, err := s.db.ExecContext(ctx, q, args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
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
