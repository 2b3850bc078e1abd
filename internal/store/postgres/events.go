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

func (s *Store) CreateEvent(ctx context.Context, e *hexmem.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(e.Embedding)
	occurredAt := e.OccurredAt
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO events (id, agent_id, project_id, title, event_type, description, outcome,
			caused_by, severity, session_id, tags, embedding, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()))
		RETURNING created_at, occurred_at`,
		e.ID, e.AgentID, nullString(e.ProjectID), e.Title, e.EventType, e.Description, e.Outcome,
		nullString(e.CausedBy), e.Severity, nullString(e.SessionID), tags, emb, nullTime(occurredAt))
	if err := row.Scan(&e.CreatedAt, &e.OccurredAt); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*hexmem.Event, error) {
	row := s.db.QueryRowContext(ctx, eventSelect+` WHERE id = $1`, id)
	return scanEvent(row)
}

func (s *Store) ListEvents(ctx context.Context, opts store.ListOptions) ([]*hexmem.Event, error) {
	limit, offset := pageOf(opts)
	if opts.ProjectID != "" {
		rows, err := s.db.QueryContext(ctx, eventSelect+`
			WHERE agent_id = $1 AND project_id = $2 AND decay_status != 'archived'
			ORDER BY occurred_at DESC LIMIT $3 OFFSET $4`, opts.AgentID, opts.ProjectID, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		defer rows.Close()
		return scanEvents(rows)
	}
	rows, err := s.db.QueryContext(ctx, eventSelect+`
		WHERE agent_id = $1 AND decay_status != 'archived'
		ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`, opts.AgentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *Store) UpdateEvent(ctx context.Context, e *hexmem.Event) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(e.Embedding)
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET title = $2, description = $3, outcome = $4, severity = $5, tags = $6,
			resolved_at = $7, embedding = COALESCE($8, embedding)
		WHERE id = $1`, e.ID, e.Title, e.Description, e.Outcome, e.Severity, tags, e.ResolvedAt, emb)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

const eventSelect = `
	SELECT id, agent_id, project_id, title, event_type, description, outcome, caused_by, severity,
		session_id, tags, occurred_at, resolved_at, created_at, access_count, last_accessed_at, decay_status
	FROM events`

func scanEvents(rows *sql.Rows) ([]*hexmem.Event, error) {
	var out []*hexmem.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (*hexmem.Event, error) {
	var e hexmem.Event
	var tags []byte
	var projectID, causedBy, sessionID sql.NullString
	if err := row.Scan(&e.ID, &e.AgentID, &projectID, &e.Title, &e.EventType, &e.Description, &e.Outcome,
		&causedBy, &e.Severity, &sessionID, &tags, &e.OccurredAt, &e.ResolvedAt, &e.CreatedAt,
		&e.AccessCount, &e.LastAccessedAt, &e.DecayStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal(tags, &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	e.ProjectID = projectID.String
	e.CausedBy = causedBy.String
	e.SessionID = sessionID.String
	return &e, nil
}
