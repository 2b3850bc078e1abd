package postgres

import (
	"context"
	"fmt"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

// IncrementAccess bumps access_count and last_accessed_at atomically, and
// revives a cooling row back to active (access resets the cooling
// clock).
func (s *Store) IncrementAccess(ctx context.Context, t hexmem.ItemType, id string) error {
	cfg, ok := tableConfigs[t]
	if !ok {
		return fmt.Errorf("increment access: unsupported type %q", t)
	}
	q := fmt.Sprintf(`
		UPDATE %s
		SET access_count = access_count + 1,
			last_accessed_at = now(),
			decay_status = CASE WHEN decay_status = 'cooling' THEN 'active' ELSE decay_status END
		WHERE id = $1`, cfg.table)
	_, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("increment access %s: %w", cfg.table, err)
	}
	return nil
}
