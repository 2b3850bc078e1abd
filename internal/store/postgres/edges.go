package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// UpsertEdge inserts an edge, or refreshes weight/metadata if the same
// (source, target, relation) tuple already exists (conditional
// upsert). The backing table name never appears outside this package.
func (s *Store) UpsertEdge(ctx context.Context, e *hexmem.Edge) (*hexmem.Edge, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal edge metadata: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO memory_edges (id, agent_id, source_type, source_id, target_type, target_id, relation, weight, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_type, source_id, target_type, target_id, relation)
		DO UPDATE SET weight = EXCLUDED.weight, metadata = EXCLUDED.metadata, updated_at = now()
		RETURNING id, created_at, updated_at`,
		e.ID, e.AgentID, string(e.SourceType), e.SourceID, string(e.TargetType), e.TargetID,
		e.Relation, e.Weight, meta)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert edge: %w", err)
	}
	return e, nil
}

func (s *Store) ListEdges(ctx context.Context, filter store.EdgeFilter) ([]*hexmem.Edge, error) {
	where := []string{"agent_id = $1"}
	args := []interface{}{filter.AgentID}
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("source_type", string(filter.SourceType))
	add("source_id", filter.SourceID)
	add("target_type", string(filter.TargetType))
	add("target_id", filter.TargetID)
	add("relation", filter.Relation)

	q := `SELECT id, agent_id, source_type, source_id, target_type, target_id, relation, weight, metadata, created_at, updated_at
		FROM memory_edges WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func (s *Store) EdgesForNode(ctx context.Context, agentID string, t hexmem.ItemType, id string) ([]*hexmem.Edge, []*hexmem.Edge, error) {
	outgoing, err := s.ListEdges(ctx, store.EdgeFilter{AgentID: agentID, SourceType: t, SourceID: id})
	if err != nil {
		return nil, nil, err
	}
	incoming, err := s.ListEdges(ctx, store.EdgeFilter{AgentID: agentID, TargetType: t, TargetID: id})
	if err != nil {
		return nil, nil, err
	}
	return outgoing, incoming, nil
}

func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_edges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func scanEdges(rows *sql.Rows) ([]*hexmem.Edge, error) {
	var out []*hexmem.Edge
	for rows.Next() {
		var e hexmem.Edge
		var sourceType, targetType string
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AgentID, &sourceType, &e.SourceID, &targetType, &e.TargetID,
			&e.Relation, &e.Weight, &meta, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.SourceType = hexmem.ItemType(sourceType)
		e.TargetType = hexmem.ItemType(targetType)
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal edge metadata: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
