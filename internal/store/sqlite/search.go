package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type tableConfig struct {
	table   string
	content string // SQL expression yielding the searchable text
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

// SemanticSearch loads every embedded row for the agent and ranks by
// cosine similarity in Go, since sqlite has no native vector index. Fine
// for the dev/test data volumes this backend targets.
func (s *Store) SemanticSearch(ctx context.Context, t hexmem.ItemType, agentID string, query []float32, limit int) ([]store.Candidate, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return nil, fmt.Errorf("semantic search: unsupported type %q", t)
	}
	q := fmt.Sprintf(`
		SELECT id, %s AS content, %s, embedding FROM %s
		WHERE agent_id = ? AND decay_status = 'active' AND embedding IS NOT NULL`, cfg.content, timeColumn(t), cfg.table)
	rows, err := s.db.QueryContext(ctx, q, agentID)
	if err != nil {
		return nil, fmt.Errorf("semantic search %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var out []store.Candidate
	for rows.Next() {
		var c store.Candidate
		var emb []byte
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt, &emb); err != nil {
			return nil, fmt.Errorf("scan semantic candidate: %w", err)
		}
		sim := cosineSimilarity(query, unpackEmbedding(emb))
		c.Type = t
		c.Semantic = &sim
		c.HasEmbed = true
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Semantic > *out[j].Semantic })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LexicalSearch ranks rows by Go-computed trigram Jaccard similarity.
func (s *Store) LexicalSearch(ctx context.Context, t hexmem.ItemType, agentID string, queryText string, limit int) ([]store.Candidate, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return nil, fmt.Errorf("lexical search: unsupported type %q", t)
	}
	q := fmt.Sprintf(`
		SELECT id, %s AS content, %s FROM %s
		WHERE agent_id = ? AND decay_status = 'active'`, cfg.content, timeColumn(t), cfg.table)
	rows, err := s.db.QueryContext(ctx, q, agentID)
	if err != nil {
		return nil, fmt.Errorf("lexical search %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var out []store.Candidate
	for rows.Next() {
		var c store.Candidate
		if err := rows.Scan(&c.ID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lexical candidate: %w", err)
		}
		score := trigramSimilarity(queryText, c.Content)
		if score <= 0.1 {
			continue
		}
		c.Type = t
		c.Keyword = &score
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Keyword > *out[j].Keyword })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TrigramMatch(ctx context.Context, t hexmem.ItemType, agentID string, candidateText string) (string, float64, bool, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", 0, false, fmt.Errorf("trigram match: unsupported type %q", t)
	}
	q := fmt.Sprintf(`SELECT id, %s AS content FROM %s WHERE agent_id = ? AND decay_status = 'active'`, cfg.content, cfg.table)
	rows, err := s.db.QueryContext(ctx, q, agentID)
	if err != nil {
		return "", 0, false, fmt.Errorf("trigram match %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var bestID string
	var bestScore float64
	found := false
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return "", 0, false, fmt.Errorf("scan trigram candidate: %w", err)
		}
		score := trigramSimilarity(candidateText, content)
		if !found || score > bestScore {
			bestID, bestScore, found = id, score, true
		}
	}
	return bestID, bestScore, found, rows.Err()
}

func (s *Store) CosineMatch(ctx context.Context, t hexmem.ItemType, agentID string, vec []float32) (string, float64, bool, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", 0, false, fmt.Errorf("cosine match: unsupported type %q", t)
	}
	q := fmt.Sprintf(`SELECT id, embedding FROM %s WHERE agent_id = ? AND decay_status = 'active' AND embedding IS NOT NULL`, cfg.table)
	rows, err := s.db.QueryContext(ctx, q, agentID)
	if err != nil {
		return "", 0, false, fmt.Errorf("cosine match %s: %w", cfg.table, err)
	}
	defer rows.Close()

	var bestID string
	var bestSim float64
	found := false
	for rows.Next() {
		var id string
		var emb []byte
		if err := rows.Scan(&id, &emb); err != nil {
			return "", 0, false, fmt.Errorf("scan cosine candidate: %w", err)
		}
		sim := cosineSimilarity(vec, unpackEmbedding(emb))
		if !found || sim > bestSim {
			bestID, bestSim, found = id, sim, true
		}
	}
	return bestID, bestSim, found, rows.Err()
}

func (s *Store) ResolveNode(ctx context.Context, agentID string, t hexmem.ItemType, id string) (string, hexmem.JSONMap, bool, error) {
	if t == hexmem.TypeSession {
		return s.resolveSessionNode(ctx, agentID, id)
	}
	cfg, ok := tableConfigs[t]
	if !ok {
		return "", nil, false, fmt.Errorf("resolve node: unsupported type %q", t)
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE agent_id = ? AND id = ?`, cfg.content, cfg.table)
	var content string
	err := s.db.QueryRowContext(ctx, q, agentID, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("resolve node %s: %w", cfg.table, err)
	}
	return content, hexmem.JSONMap{}, true, nil
}

// resolveSessionNode handles ResolveNode for TypeSession, the edge target of
// derived_from/decided_in edges.
func (s *Store) resolveSessionNode(ctx context.Context, agentID, id string) (string, hexmem.JSONMap, bool, error) {
	var content sql.NullString
	var external sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT summary, external_id FROM sessions WHERE agent_id = ? AND id = ?`, agentID, id).
		Scan(&content, &external)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("resolve session node: %w", err)
	}
	text := content.String
	if text == "" {
		text = external.String
	}
	return text, hexmem.JSONMap{}, true, nil
}
