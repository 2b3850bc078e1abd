package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateFact(ctx context.Context, f *hexmem.Fact) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(f.Embedding)
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO facts (id, agent_id, content, subject, confidence, source, tags, embedding, valid_from, valid_until, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), $10, $11)
		RETURNING created_at, updated_at, valid_from`,
		f.ID, f.AgentID, f.Content, f.Subject, f.Confidence, f.Source, tags, emb,
		nullTime(f.ValidFrom), f.ValidUntil, nullString(f.SessionID))
	if err := row.Scan(&f.CreatedAt, &f.UpdatedAt, &f.ValidFrom); err != nil {
		return fmt.Errorf("create fact: %w", err)
	}
	return nil
}

func (s *Store) GetFact(ctx context.Context, id string) (*hexmem.Fact, error) {
	row := s.db.QueryRowContext(ctx, factSelect+` WHERE id = $1`, id)
	return scanFact(row)
}

func (s *Store) ListFacts(ctx context.Context, opts store.ListOptions) ([]*hexmem.Fact, error) {
	limit, offset := pageOf(opts)
	rows, err := s.db.QueryContext(ctx, factSelect+`
		WHERE agent_id = $1 AND decay_status != 'archived'
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, opts.AgentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateFact(ctx context.Context, f *hexmem.Fact) error {
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	emb := toVector(f.Embedding)
	res, err := s.db.ExecContext(ctx, `
		UPDATE facts SET content = $2, subject = $3, confidence = $4, source = $5, tags = $6,
			embedding = COALESCE($7, embedding), valid_until = $8, superseded_by = $9, updated_at = now()
		WHERE id = $1`, f.ID, f.Content, f.Subject, f.Confidence, f.Source, tags, emb, f.ValidUntil, nullString(f.SupersededBy))
	if err != nil {
		return fmt.Errorf("update fact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteFact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

const factSelect = `
	SELECT id, agent_id, content, subject, confidence, source, tags, valid_from, valid_until,
		superseded_by, session_id, created_at, updated_at, access_count, last_accessed_at, decay_status
	FROM facts`

func scanFact(row rowScanner) (*hexmem.Fact, error) {
	var f hexmem.Fact
	var tags []byte
	var supersededBy, sessionID sql.NullString
	if err := row.Scan(&f.ID, &f.AgentID, &f.Content, &f.Subject, &f.Confidence, &f.Source, &tags,
		&f.ValidFrom, &f.ValidUntil, &supersededBy, &sessionID, &f.CreatedAt, &f.UpdatedAt,
		&f.AccessCount, &f.LastAccessedAt, &f.DecayStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan fact: %w", err)
	}
	if err := json.Unmarshal(tags, &f.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	f.SupersededBy = supersededBy.String
	f.SessionID = sessionID.String
	return &f, nil
}

func toVector(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t interface{ IsZero() bool }) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}

func pageOf(opts store.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 50
	}
	return limit, opts.Offset
}
