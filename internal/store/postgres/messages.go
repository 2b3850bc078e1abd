package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) InsertMessage(ctx context.Context, m *hexmem.SessionMessage) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	var emb interface{}
	if len(m.Embedding) > 0 {
		v := pgvector.NewVector(m.Embedding)
		emb = &v
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO session_messages (id, session_id, agent_id, role, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`, m.ID, m.SessionID, m.AgentID, m.Role, m.Content, emb)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*hexmem.SessionMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, agent_id, role, content, created_at, access_count, last_accessed_at, decay_status
		FROM session_messages WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	out, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Reverse to chronological order for context windows.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]*hexmem.SessionMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, agent_id, role, content, created_at, access_count, last_accessed_at, decay_status
		FROM session_messages WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*hexmem.SessionMessage, error) {
	var out []*hexmem.SessionMessage
	for rows.Next() {
		var m hexmem.SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.AgentID, &m.Role, &m.Content,
			&m.CreatedAt, &m.AccessCount, &m.LastAccessedAt, &m.DecayStatus); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
