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

func (s *Store) CreateSession(ctx context.Context, sess *hexmem.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	meta, err := json.Marshal(sess.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, agent_id, external_id, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING started_at`, sess.ID, sess.AgentID, sess.ExternalID, meta)
	if err := row.Scan(&sess.StartedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*hexmem.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, external_id, metadata, started_at, ended_at, summary
		FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *Store) ListSessions(ctx context.Context, agentID string) ([]*hexmem.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, external_id, metadata, started_at, ended_at, summary
		FROM sessions WHERE agent_id = $1 ORDER BY started_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// EndSession marks a session ended. Re-ending an already-ended session is
// InvalidArgument, not NotFound — the session itself still exists (P6).
func (s *Store) EndSession(ctx context.Context, id string, summary string) error {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if sess.EndedAt != nil {
		return fmt.Errorf("%w: session already ended", hexmem.ErrInvalidArgument)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = now(), summary = $2 WHERE id = $1 AND ended_at IS NULL`, id, summary)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM session_messages WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func scanSession(row rowScanner) (*hexmem.Session, error) {
	var sess hexmem.Session
	var meta []byte
	if err := row.Scan(&sess.ID, &sess.AgentID, &sess.ExternalID, &meta, &sess.StartedAt, &sess.EndedAt, &sess.Summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(meta, &sess.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &sess, nil
}
