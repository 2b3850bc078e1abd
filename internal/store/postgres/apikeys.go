package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func (s *Store) CreateAPIKey(ctx context.Context, k *hexmem.ApiKey) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	perms, err := json.Marshal(k.Permissions)
	if err != nil {
		return fmt.Errorf("marshal permissions: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (id, key_hash, key_prefix, name, agent_id, permissions, rate_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		k.ID, k.KeyHash, k.KeyPrefix, k.Name, k.AgentID, perms, k.RateLimit, k.ExpiresAt)
	if err := row.Scan(&k.CreatedAt); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*hexmem.ApiKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key_hash, key_prefix, name, agent_id, permissions, rate_limit, expires_at, last_used_at, revoked_at, created_at
		FROM api_keys ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var out []*hexmem.ApiKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return hexmem.ErrNotFound
	}
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, hash string) (*hexmem.ApiKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key_hash, key_prefix, name, agent_id, permissions, rate_limit, expires_at, last_used_at, revoked_at, created_at
		FROM api_keys WHERE key_hash = $1`, hash)
	k, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hexmem.ErrUnauthenticated
	}
	return k, err
}

func (s *Store) TouchAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*hexmem.ApiKey, error) {
	var k hexmem.ApiKey
	var perms []byte
	var agentID sql.NullString
	if err := row.Scan(&k.ID, &k.KeyHash, &k.KeyPrefix, &k.Name, &agentID, &perms,
		&k.RateLimit, &k.ExpiresAt, &k.LastUsedAt, &k.RevokedAt, &k.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hexmem.ErrNotFound
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	if agentID.Valid {
		k.AgentID = &agentID.String
	}
	if err := json.Unmarshal(perms, &k.Permissions); err != nil {
		return nil, fmt.Errorf("unmarshal permissions: %w", err)
	}
	return &k, nil
}
