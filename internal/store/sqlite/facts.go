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

func (s *Store) CreateFact(ctx context.Context, f *hexmem.Fact) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.ValidFrom.IsZero() {
		f.ValidFrom = now
	}
	f.CreatedAt, f.UpdatedAt = now, now
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts (id, agent_id, content, subject, confidence, source, tags, embedding,
			valid_from, valid_until, session_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.AgentID, f.Content, f.Subject, f.Confidence, f.Source, tags, packEmbedding(f.Embedding),
		f.ValidFrom, f.ValidUntil, nilIfEmpty(f.SessionID), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create fact: %w", err)
	}
	return nil
}

func (s *Store) GetFact(ctx context.Context, id string) (*hexmem.Fact, error) {
	row := s.db.QueryRowContext(ctx, factSelect+` WHERE id = ?`, id)
	return scanFact(row)
}

func (s *Store) ListFacts(ctx context.Context, opts store.ListOptions) ([]*hexmem.Fact, error) {
	limit, offset := pageOf(opts)
	rows, err := s.db.QueryContext(ctx, factSelect+`
		WHERE agent_id = ? AND decay_status != 'archived'
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, opts.AgentID, limit, offset)
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
	f.UpdatedAt = time.Now().UTC()
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	var emb interface{}
	if len(f.Embedding) > 0 {
		emb = packEmbedding(f.Embedding)
	}
	q := `UPDATE facts SET content = ?, subject = ?, confidence = ?, source = ?, tags = ?,
		valid_until = ?, superseded_by = ?, updated_at = ?`
	args := []interface{}{f.Content, f.Subject, f.Confidence, f.Source, tags, f.ValidUntil, nilIfEmpty(f.SupersededBy), f.UpdatedAt}
	if emb != nil {
		q += `, embedding = ?`
		args = append(args, emb)
	}
	q += ` WHERE id = ?`
	args = append(args, f.ID)
	res, err := s.db.ExecContext(ctx, q, args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
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

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func pageOf(opts store.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 50
	}
	return limit, opts.Offset
}
