// Package apikeys implements API key issuance and validation: SHA-256
// hashing at rest, a display prefix, per-key rate limiting, and the
// permission-scope checks the HTTP layer enforces on every write.
package apikeys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const (
	keyPrefixLen = 8
	rawKeyBytes  = 32
)

// Issued is returned once, at creation time: the caller must record the raw
// key now, since only its hash is ever stored.
type Issued struct {
	Key *hexmem.ApiKey
	Raw string
}

// Manager hashes, validates, and rate-limits API keys.
type Manager struct {
	st store.Store

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(st store.Store) *Manager {
	return &Manager{st: st, limiters: make(map[string]*rate.Limiter)}
}

// CreateInput carries the caller-supplied subset of ApiKey fields.
type CreateInput struct {
	Name        string
	AgentID     *string
	Permissions []string
	RateLimit   float64
	ExpiresAt   *time.Time
}

// Create mints a new key: a random 32-byte secret, hashed with SHA-256
// before it ever touches storage. The raw value is returned exactly once.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Issued, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", hexmem.ErrInvalidArgument)
	}
	if len(in.Permissions) == 0 {
		in.Permissions = []string{hexmem.PermissionRead}
	}

	raw, err := randomKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	hash := hashKey(raw)

	k := &hexmem.ApiKey{
		ID:          uuid.NewString(),
		KeyHash:     hash,
		KeyPrefix:   raw[:keyPrefixLen],
		Name:        in.Name,
		AgentID:     in.AgentID,
		Permissions: in.Permissions,
		RateLimit:   in.RateLimit,
		ExpiresAt:   in.ExpiresAt,
	}
	if err := m.st.CreateAPIKey(ctx, k); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &Issued{Key: k, Raw: raw}, nil
}

func (m *Manager) List(ctx context.Context) ([]*hexmem.ApiKey, error) {
	return m.st.ListAPIKeys(ctx)
}

func (m *Manager) Revoke(ctx context.Context, id string) error {
	return m.st.RevokeAPIKey(ctx, id)
}

// Authenticate resolves a raw bearer token to its ApiKey, rejecting expired
// or revoked keys, and touches last_used_at best-effort.
func (m *Manager) Authenticate(ctx context.Context, raw string) (*hexmem.ApiKey, error) {
	k, err := m.st.GetAPIKeyByHash(ctx, hashKey(raw))
	if err != nil {
		return nil, hexmem.ErrUnauthenticated
	}
	if k.RevokedAt != nil {
		return nil, hexmem.ErrUnauthenticated
	}
	if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now().UTC()) {
		return nil, hexmem.ErrUnauthenticated
	}
	_ = m.st.TouchAPIKey(ctx, k.ID)
	return k, nil
}

// HasPermission reports whether k carries perm, or admin (which implies
// every other permission).
func HasPermission(k *hexmem.ApiKey, perm string) bool {
	for _, p := range k.Permissions {
		if p == perm || p == hexmem.PermissionAdmin {
			return true
		}
	}
	return false
}

// Limiter returns (creating if absent) the token-bucket limiter for key id,
// sized by its RateLimit (requests/second); zero or negative disables
// limiting for that key.
func (m *Manager) Limiter(k *hexmem.ApiKey) *rate.Limiter {
	if k.RateLimit <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.limiters[k.ID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(k.RateLimit), int(k.RateLimit)+1)
		m.limiters[k.ID] = l
	}
	return l
}

func randomKey() (string, error) {
	buf := make([]byte, rawKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "hxm_" + hex.EncodeToString(buf), nil
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ConstantTimeEqual compares two strings without leaking timing info,
// used by the dev-key fallback which bypasses store lookup entirely.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
