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

func (s *Store) CreateDecision(ctx context.Context, d *hexmem.Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	alts, err := json.Marshal(d.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	emb := toVector(d.Embedding)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO decisions (id, agent_id, title, decision, rationale, alternatives, context, session_id, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		d.ID, d.AgentID, d.Title, d.DecisionText, d.Rationale, alts, d.Context, nullString(d.SessionID), tags, emb)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("create decision: %w", err)
	}
	return nil
}

func (s *Store) GetDecision(ctx context.Context, id string) (*hexmem.Decision, error) {
	row := s.db.QueryRowContext(ctx, decisionSelect+` WHERE id = $1`, id)
	return scanDecision(row)
}

func (s *Store) ListDecisions(ctx context.Context, opts store.ListOptions) ([]*hexmem.Decision, error) {
	limit, offset := pageOf(opts)
	rows, err := s.db.QueryContext(ctx, decisionSelect+`
		WHERE agent_id = $1 AND decay_status != 'archived'
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, opts.AgentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDecision(ctx context.Context, d *hexmem.Decision) error {
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	alts, err := json.Marshal(d.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	emb := toVector(d.Embedding)
	res, err := s.db.ExecContext(ctx, `
		UPDATE decisions SET title = $2, decision = $3, rationale = $4, alternatives = $5,
			context = $6, tags = $7, embedding = COALESCE($8, embedding), updated_at = now()
		WHERE id = $1`, d.ID, d.Title, d.DecisionText, d.Rationale, alts, d.Context, tags, emb)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDecision(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete decision: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

const decisionSelect = `
	SELECT id, agent_id, title, decision, rationale, alternatives, context, session_id, tags,
		created_at, updated_at, access_count, last_accessed_at, decay_status
	FROM decisions`

func scanDecision(row rowScanner) (*hexmem.Decision, error) {
	var d hexmem.Decision
	var tags, alts []byte
	var sessionID sql.NullString
	if err := row.Scan(&d.ID, &d.AgentID, &d.Title, &d.DecisionText, &d.Rationale, &alts, &d.Context,
		&sessionID, &tags, &d.CreatedAt, &d.UpdatedAt, &d.AccessCount, &d.LastAccessedAt, &d.DecayStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	if err := json.Unmarshal(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal(alts, &d.Alternatives); err != nil {
		return nil, fmt.Errorf("unmarshal alternatives: %w", err)
	}
	d.SessionID = sessionID.String
	return &d, nil
}
