package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// tableConfig describes how to read a candidate row out of one item type's
// table for the recall arms and direct-search.
type tableConfig struct {
	table       string
	content     string // SQL expression yielding the searchable text
	metadataCol string // JSONB column name, or "" if the type has no metadata blob
}

var tableConfigs = map[hexmem.ItemType]tableConfig{
	hexmem.TypeSessionMessage: {table: "session_messages", content: "content"},
	hexmem.TypeFact:           {table: "facts", content: "content"},
	hexmem.TypeDecision:       {table: "decisions", content: "title || ': ' || decision"},
	hexmem.TypeTask:           {table: "tasks", content: "title"},
	hexmem.TypeEvent:          {table: "events", content: "title"},
}

// timeColumn returns the recency-bearing column for t (created_at for most
// tables, occurred_at for events), mirroring hexmem.Meta.
func timeColumn(t hexmem.ItemType) string {
	if meta, ok := hexmem.Meta(t); ok {
		return meta.TimeColumn
	}
	return "created_at"
}

// SemanticSearch ranks rows by cosine similarity (1 - cosine distance) using
// the pgvector `<=>` operator, restricted to rows with a non-null embedding.
func (s *Store) SemanticSearch(ctx context.Context, t hexmem.ItemType, agentID string, query []float32, limit int) ([]store.Candidate, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return nil, fmt.Errorf("semantic search: unsupported type %q", t)
	}
	vec := pgvector.NewVector(query)
	q := fmt.Sprintf(`
		SELECT id, %s AS content, %s, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE agent_id = $2 AND decay_status = 'active' AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3`, cfg.content, timeColumn(t), cfg.table)
	rows, err := s.db.QueryContext(ctx, q, vec, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var out []store.Candidate
	for rows.Next() {
		var c store.Candidate
		var sim float64
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &sim); err != nil {
			return nil, fmt.Errorf("scan semantic candidate: %w", err)
		}
		c.Type = t
		c.Semantic = &sim
		c.HasEmbed = true
		out = append(out, c)
	}
	return out, rows.Err()
}

// LexicalSearch ranks rows by pg_trgm similarity() against queryText.
func (s *Store) LexicalSearch(ctx context.Context, t hexmem.ItemType, agentID string, queryText string, limit int) ([]store.Candidate, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return nil, fmt.Errorf("lexical search: unsupported type %q", t)
	}
	q := fmt.Sprintf(`
		SELECT id, %s AS content, %s, similarity(%s, $1) AS score
		FROM %s
		WHERE agent_id = $2 AND decay_status = 'active' AND similarity(%s, $1) > 0.1
		ORDER BY score DESC
		LIMIT $3`, cfg.content, timeColumn(t), cfg.content, cfg.table, cfg.content)
	rows, err := s.db.QueryContext(ctx, q, queryText, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var out []store.Candidate
	for rows.Next() {
		var c store.Candidate
		var score float64
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("scan lexical candidate: %w", err)
		}
		c.Type = t
		c.Keyword = &score
		out = append(out, c)
	}
	return out, rows.Err()
}

// TrigramMatch finds the single closest existing row by trigram similarity,
// the first-stage dedup check.
func (s *Store) TrigramMatch(ctx context.Context, t hexmem.ItemType, agentID string, candidateText string) (string, float64, bool, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", 0, false, fmt.Errorf("trigram match: unsupported type %q", t)
	}
	q := fmt.Sprintf(`
		SELECT id, similarity(%s, $1) AS score
		FROM %s
		WHERE agent_id = $2 AND decay_status = 'active'
		ORDER BY score DESC
		LIMIT 1`, cfg.content, cfg.table)
	var id string
	var score float64
	err := s.db.QueryRowContext(ctx, q, candidateText, agentID).Scan(&id, &score)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("trigram match %s: %w", cfg.table, err)
	}
	return id, score, true, nil
}

// CosineMatch finds the single closest existing embedded row, the
// second-stage dedup check.
func (s *Store) CosineMatch(ctx context.Context, t hexmem.ItemType, agentID string, vec []float32) (string, float64, bool, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", 0, false, fmt.Errorf("cosine match: unsupported type %q", t)
	}
	v := pgvector.NewVector(vec)
	q := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE agent_id = $2 AND decay_status = 'active' AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT 1`, cfg.table)
	var id string
	var sim float64
	err := s.db.QueryRowContext(ctx, q, v, agentID).Scan(&id, &sim)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("cosine match %s: %w", cfg.table, err)
	}
	return id, sim, true, nil
}

// ResolveNode fetches a node's searchable content and a JSON metadata blob
// for graph expansion, without the dedicated Get*/scan* types of each table.
func (s *Store) ResolveNode(ctx context.Context, agentID string, t hexmem.ItemType, id string) (string, hexmem.JSONMap, bool, error) {
	if t == hexmem.TypeSession {
		return s.resolveSessionNode(ctx, agentID, id)
	}
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", nil, false, fmt.Errorf("resolve node: unsupported type %q", t)
	}
	metaExpr := "'{}'::jsonb"
	if cfg.metadataCol != "" {
		metaExpr = cfg.metadataCol
	}
	q := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE agent_id = $1 AND id = $2`, cfg.content, metaExpr, cfg.table)
	var content string
	var metaBytes []byte
	err := s.db.QueryRowContext(ctx, q, agentID, id).Scan(&content, &metaBytes)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("resolve node %s: %w", cfg.table, err)
	}
	var meta hexmem.JSONMap
	if len(metaBytes) > 0 {
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return "", nil, false, fmt.Errorf("unmarshal node metadata: %w", err)
		}
	}
	return content, meta, true, nil
}

// resolveSessionNode handles ResolveNode for TypeSession, the edge target of
// derived_from/decided_in edges. Sessions are not a recall candidate table
// so they're resolved directly rather than through tableConfigs.
func (s *Store) resolveSessionNode(ctx context.Context, agentID, id string) (string, hexmem.JSONMap, bool, error) {
	var content string
	var metaBytes []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(summary, external_id, ''), metadata FROM sessions WHERE agent_id = $1 AND id = $2`,
		agentID, id).Scan(&content, &metaBytes)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("resolve session node: %w", err)
	}
	var meta hexmem.JSONMap
	if len(metaBytes) > 0 {
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return "", nil, false, fmt.Errorf("unmarshal session metadata: %w", err)
		}
	}
	return content, meta, true, nil
}
