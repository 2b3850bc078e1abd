package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateTask(ctx context.Context, t *hexmem.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, agent_id, project_id, title, description, status, priority, assignee,
			due_date, blocked_by, session_id, tags, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AgentID, nilIfEmpty(t.ProjectID), t.Title, t.Description, t.Status, t.Priority,
		t.Assignee, t.DueDate, nilIfEmpty(t.BlockedBy), nilIfEmpty(t.SessionID), tags,
		packEmbedding(t.Embedding), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*hexmem.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	return scanTask(row)
}

func (s *Store) ListTasks(ctx context.Context, opts store.ListOptions) ([]*hexmem.Task, error) {
	limit, offset := pageOf(opts)
	if opts.ProjectID != "" {
		rows, err := s.db.QueryContext(ctx, taskSelect+`
			WHERE agent_id = ? AND project_id = ? AND decay_status != 'archived'
			ORDER BY priority DESC, created_at DESC LIMIT ? OFFSET ?`, opts.AgentID, opts.ProjectID, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()
		return scanTasks(rows)
	}
	rows, err := s.db.QueryContext(ctx, taskSelect+`
		WHERE agent_id = ? AND decay_status != 'archived'
		ORDER BY priority DESC, created_at DESC LIMIT ? OFFSET ?`, opts.AgentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (s *Store) UpdateTask(ctx context.Context, t *hexmem.Task) error {
	t.UpdatedAt = time.Now().UTC()
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	q := `UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, assignee = ?,
		due_date = ?, blocked_by = ?, tags = ?, updated_at = ?`
	args := []interface{}{t.Title, t.Description, t.Status, t.Priority, t.Assignee, t.DueDate,
		nilIfEmpty(t.BlockedBy), tags, t.UpdatedAt}
	if len(t.Embedding) > 0 {
		q += `, embedding = ?`
		args = append(args, packEmbedding(t.Embedding))
	}
	q += ` WHERE id = ?`
	args = append(args, t.ID)
	res, err := s.db.ExecContext(ctx, q, args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
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
