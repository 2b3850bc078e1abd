package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) ResolvePolicy(ctx context.Context, agentID string, t hexmem.ItemType) (*hexmem.DecayPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, memory_type, ttl_days, access_boost, min_accesses
		FROM decay_policies
		WHERE memory_type = ? AND (agent_id = ? OR agent_id IS NULL)`, string(t), agentID)
	if err != nil {
		return nil, fmt.Errorf("resolve policy: %w", err)
	}
	defer rows.Close()

	var best *hexmem.DecayPolicy
	for rows.Next() {
		var p hexmem.DecayPolicy
		var agentIDCol sql.NullString
		var memType string
		if err := rows.Scan(&p.ID, &agentIDCol, &memType, &p.TTLDays, &p.AccessBoost, &p.MinAccesses); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		p.MemoryType = hexmem.ItemType(memType)
		if agentIDCol.Valid {
			p.AgentID = &agentIDCol.String
		}
		// An agent-scoped row always wins over the type-wide default.
		if best == nil || p.AgentID != nil {
			best = &p
			if p.AgentID != nil {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, hexmem.ErrNotFound
	}
	return best, nil
}

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

func (s *Store) SeedDefaultPolicies(ctx context.Context) error {
	for t, d := range defaultPolicies {
		var exists int
		err := s.db.QueryRowContext(ctx, `
			SELECT count(*) FROM decay_policies WHERE agent_id IS NULL AND memory_type = ?`, string(t)).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check policy for %s: %w", t, err)
		}
		if exists > 0 {
			continue
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO decay_policies (id, agent_id, memory_type, ttl_days, min_accesses)
			VALUES (?, NULL, ?, ?, ?)`, uuid.NewString(), string(t), d.ttlDays, d.minAccesses)
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
	threshold := time.Now().UTC().Add(-time.Duration(*policy.TTLDays) * 24 * time.Hour)
	q := fmt.Sprintf(`
		UPDATE %s SET decay_status = 'cooling'
		WHERE agent_id = ? AND decay_status = 'active' AND access_count < ?
			AND COALESCE(last_accessed_at, %s) < ?`, cfg.table, meta.TimeColumn)
	res, err := s.db.ExecContext(ctx, q, agentID, policy.MinAccesses, threshold)
	if err != nil {
		return 0, fmt.Errorf("cool stale %s: %w", cfg.table, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ArchiveAgedCooling transitions cooling rows of agentID to archived once
// they have sat untouched longer than olderThan.
func (s *Store) ArchiveAgedCooling(ctx context.Context, agentID string, t hexmem.ItemType, olderThan time.Duration) (int, error) {
	cfg, ok := tableConfigs[t]
	if !ok {
		return 0, fmt.Errorf("archive aged cooling: unsupported type %q", t)
	}
	meta, _ := hexmem.Meta(t)
	threshold := time.Now().UTC().Add(-olderThan)
	q := fmt.Sprintf(`
		UPDATE %s SET decay_status = 'archived'
		WHERE agent_id = ? AND decay_status = 'cooling' AND COALESCE(last_accessed_at, %s) < ?`, cfg.table, meta.TimeColumn)
	res, err := s.db.ExecContext(ctx, q, agentID, threshold)
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
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE agent_id = ? AND decay_status = 'active' AND access_count >= ?`, cfg.table)
	var n int
	if err := s.db.QueryRowContext(ctx, q, agentID, minAccesses).Scan(&n); err != nil {
		return 0, fmt.Errorf("count immune %s: %w", cfg.table, err)
	}
	return n, nil
}

func (s *Store) Revive(ctx context.Context, t hexmem.ItemType, id string) error {
	cfg, ok := tableConfigs[t]
	if !ok {
		return fmt.Errorf("revive: unsupported type %q", t)
	}
	q := fmt.Sprintf(`UPDATE %s SET decay_status = 'active' WHERE id = ?`, cfg.table)
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

func (s *Store) DecayStatusCounts(ctx context.Context, agentID string) (map[hexmem.ItemType]map[hexmem.DecayStatus]int, error) {
	out := make(map[hexmem.ItemType]map[hexmem.DecayStatus]int)
	for t, cfg := range tableConfigs {
		q := fmt.Sprintf(`SELECT decay_status, count(*) FROM %s WHERE agent_id = ? GROUP BY decay_status`, cfg.table)
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
