package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) UpsertEdge(ctx context.Context, e *hexmem.Edge) (*hexmem.Edge, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal edge metadata: %w", err)
	}

	var existingID string
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM memory_edges
		WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ? AND relation = ?`,
		string(e.SourceType), e.SourceID, string(e.TargetType), e.TargetID, e.Relation).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		e.CreatedAt, e.UpdatedAt = now, now
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO memory_edges (id, agent_id, source_type, source_id, target_type, target_id, relation, weight, metadata, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.AgentID, string(e.SourceType), e.SourceID, string(e.TargetType), e.TargetID,
			e.Relation, e.Weight, meta, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert edge: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("upsert edge lookup: %w", err)
	default:
		e.ID = existingID
		e.UpdatedAt = now
		_, err = s.db.ExecContext(ctx, `UPDATE memory_edges SET weight = ?, metadata = ?, updated_at = ? WHERE id = ?`,
			e.Weight, meta, e.UpdatedAt, e.ID)
		if err != nil {
			return nil, fmt.Errorf("update edge: %w", err)
		}
	}
	return e, nil
}

func (s *Store) ListEdges(ctx context.Context, filter store.EdgeFilter) ([]*hexmem.Edge, error) {
	where := []string{"agent_id = ?"}
	args := []interface{}{filter.AgentID}
	add := func(col, val string) {
		if val == "" {
			return
		}
		where = append(where, col+" = ?")
		args = append(args, val)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_edges WHERE id = ?`, id)
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
