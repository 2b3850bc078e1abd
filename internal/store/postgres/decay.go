package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

// ResolvePolicy picks the most-specific decay policy for (agentID, t):
// an agent-scoped row wins over the type-wide default (agent_id IS NULL).
func (s *Store) ResolvePolicy(ctx context.Context, agentID string, t hexmem.ItemType) (*hexmem.DecayPolicy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, memory_type, ttl_days, access_boost, min_accesses
		FROM decay_policies
		WHERE memory_type = $1 AND (agent_id = $2 OR agent_id IS NULL)
		ORDER BY agent_id NULLS LAST
		LIMIT 1`, string(t), agentID)

	var p hexmem.DecayPolicy
	var agentIDCol sql.NullString
	var memType string
	if err := row.Scan(&p.ID, &agentIDCol, &memType, &p.TTLDays, &p.AccessBoost, &p.MinAccesses); err != nil {
		if err == sql.ErrNoRows {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("resolve policy: %w", err)
	}
	p.MemoryType = hexmem.ItemType(memType)
	if agentIDCol.Valid {
		p.AgentID = &agentIDCol.String
	}
	return &p, nil
}

// defaultPolicies holds the default TTL and access threshold per type.
var defaultPolicies = map[hexmem.ItemType]struct {
	ttlDays     int
	minAccesses int
}{
	hexmem.TypeSessionMessage: {ttlDays: 14, minAccesses: 2},
	hexmem.TypeFact:           {ttlDays: 90, minAccesses: 3},
	hexmem.TypeDecision:       {ttlDays: 180, minAccesses: 2},
	hexmem.TypeTask:           {ttlDays: 60, minAccesses: 1},
	hexmem.TypeEvent:          {ttlDays: 120, minAccesses: 2},
}

// SeedDefaultPolicies inserts the global (agent_id NULL) default policy for
// every item type if one is not already present, idempotently. ON CONFLICT
// can't do this alone: UNIQUE(agent_id, memory_type) treats every NULL
// agent_id as distinct, so it never fires for these rows. Check first,
// same as the sqlite backend.
func (s *Store) SeedDefaultPolicies(ctx context.Context) error {
	for t, d := range defaultPolicies {
		var exists int
		err := s.db.QueryRowContext(ctx, `
			SELECT count(*) FROM decay_policies WHERE agent_id IS NULL AND memory_type = $1`, string(t)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check policy for %s: %w", t, err)
		}
		if exists > 0 {
			continue
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO decay_policies (id, agent_id, memory_type, ttl_days, min_accesses)
			VALUES ($1, NULL, $2, $3, $4)`,
			uuid.NewString(), string(t), d.ttlDays, d.minAccesses)
		if err != nil {
			return fmt.Errorf("seed policy for %s: %w", t, err)
		}
	}
	return nil
}

// CoolStaleActive transitions active rows of type t belonging to agentID to
// cooling when they are under policy's min_accesses and older than
// ttl_days. The sweep orchestrator resolves a policy and
// calls this once per (agent, type) pair.
func (s *Store) CoolStaleActive(ctx context.Context, agentID string, t hexmem.ItemType, policy *hexmem.DecayPolicy) (int, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return 0, fmt.Errorf("cool stale: unsupported type %q", t)
	}
	if policy.TTLDays == nil {
		return 0, nil
	}
	meta, _ := hexmem.Meta(t)
	q := fmt.Sprintf(`
		UPDATE %s
		SET decay_status = 'cooling'
		WHERE agent_id = $1
			AND decay_status = 'active'
			AND access_count < $2
			AND COALESCE(last_accessed_at, %s) < now() - ($3 * interval '1 day')`, cfg.table, meta.TimeColumn)
	res, err := s.db.ExecContext(ctx, q, agentID, policy.MinAccesses, *policy.TTLDays)
	if err != nil {
		return 0, fmt.Errorf("cool stale %s: %w", cfg.table, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ArchiveAgedCooling transitions cooling rows of agentID to archived once
// they have sat untouched longer than olderThan (default 30
// days). The reference point is last_accessed_at, falling back to the
// type's creation timestamp when the row was never accessed.
func (s *Store) ArchiveAgedCooling(ctx context.Context, agentID string, t hexmem.ItemType, olderThan time.Duration) (int, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return 0, fmt.Errorf("archive aged cooling: unsupported type %q", t)
	}
	meta, _ := hexmem.Meta(t)
	q := fmt.Sprintf(`
		UPDATE %s
		SET decay_status = 'archived'
		WHERE agent_id = $1
			AND decay_status = 'cooling'
			AND COALESCE(last_accessed_at, %s) < now() - $2 * interval '1 second'`,
		cfg.table, meta.TimeColumn)
	res, err := s.db.ExecContext(ctx, q, agentID, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("archive aged cooling %s: %w", cfg.table, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CountImmune counts agentID's active rows whose access_count has reached
// minAccesses, making them immune to cooling regardless of age.
func (s *Store) CountImmune(ctx context.Context, agentID string, t hexmem.ItemType, minAccesses int) (int, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return 0, fmt.Errorf("count immune: unsupported type %q", t)
	}
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE agent_id = $1 AND decay_status = 'active' AND access_count >= $2`, cfg.table)
	var n int
	if err := s.db.QueryRowContext(ctx, q, agentID, minAccesses).Scan(&n); err != nil {
		return 0, fmt.Errorf("count immune %s: %w", cfg.table, err)
	}
	return n, nil
}

// Revive restores an archived or cooling row to active, used when a direct
// fetch or manual action touches a decayed item.
func (s *Store) Revive(ctx context.Context, t hexmem.ItemType, id string) error {
	cfg, ok := tableConfigs[t]
	if !ok {
		return fmt.Errorf("revive: unsupported type %q", t)
	}
	q := fmt.Sprintf(`UPDATE %s SET decay_status = 'active' WHERE id = $1`, cfg.table)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("revive %s: %w", cfg.table, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

// DecayStatusCounts reports active/cooling/archived counts per item type for
// one agent, backing the /api/v1/decay/status endpoint.
func (s *Store) DecayStatusCounts(ctx context.Context, agentID string) (map[hexmem.ItemType]map[hexmem.DecayStatus]int, error) {
	out := make(map[hexmem.ItemType]map[hexmem.DecayStatus]int)
	for t, cfg := range tableConfigs {
		q := fmt.Sprintf(`SELECT decay_status, count(*) FROM %s WHERE agent_id = $1 GROUP BY decay_status`, cfg.table)
		rows, err := s.db.QueryContext(ctx, q, agentID)
		if err != nil {
			return nil, fmt.Errorf("decay status counts %s: %w", cfg.table, err)
		}
		counts := map[hexmem.DecayStatus]int{}
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan decay status: %w", err)
			}
			counts[hexmem.DecayStatus(status)] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		out[t] = counts
	}
	return out, nil
}
