package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateTask(ctx context.Context, t *hexmem.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(t.Embedding)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, agent_id, project_id, title, description, status, priority, assignee,
			due_date, blocked_by, session_id, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		t.ID, t.AgentID, nullString(t.ProjectID), t.Title, t.Description, t.Status, t.Priority,
		t.Assignee, t.DueDate, nullString(t.BlockedBy), nullString(t.SessionID), tags, emb)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*hexmem.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE id = $1`, id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, opts store.ListOptions) ([]*hexmem.Task, error) {
	limit, offset := pageOf(opts)
	if opts.ProjectID != "" {
		rows, err := s.db.QueryContext(ctx, taskSelect+`
			WHERE agent_id = $1 AND project_id = $2 AND decay_status != 'archived'
			ORDER BY priority DESC, created_at DESC LIMIT $3 OFFSET $4`, opts.AgentID, opts.ProjectID, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()
		return scanTasks(rows)
	}
	rows, err := s.db.QueryContext(ctx, taskSelect+`
		WHERE agent_id = $1 AND decay_status != 'archived'
		ORDER BY priority DESC, created_at DESC LIMIT $2 OFFSET $3`, opts.AgentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *Store) UpdateTask(ctx context.Context, t *hexmem.Task) error {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(t.Embedding)
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title = $2, description = $3, status = $4, priority = $5, assignee = $6,
			due_date = $7, blocked_by = $8, tags = $9, embedding = COALESCE($10, embedding), updated_at = now()
		WHERE id = $1`, t.ID, t.Title, t.Description, t.Status, t.Priority, t.Assignee, t.DueDate,
		nullString(t.BlockedBy), tags, emb)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

const taskSelect = `
	SELECT id, agent_id, project_id, title, description, status, priority, assignee, due_date,
		blocked_by, session_id, tags, created_at, updated_at, access_count, last_accessed_at, decay_status
	FROM tasks`

func scanTasks(rows *sql.Rows) ([]*hexmem.Task, error) {
	var out []*hexmem.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTask(row rowScanner) (*hexmem.Task, error) {
	var t hexmem.Task
	var tags []byte
	var projectID, blockedBy, sessionID sql.NullString
	if err := row.Scan(&t.ID, &t.AgentID, &projectID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.Assignee, &t.DueDate, &blockedBy, &sessionID, &tags, &t.CreatedAt, &t.UpdatedAt,
		&t.AccessCount, &t.LastAccessedAt, &t.DecayStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	t.ProjectID = projectID.String
	t.BlockedBy = blockedBy.String
	t.SessionID = sessionID.String
	return &t, nil
}
