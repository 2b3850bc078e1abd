package apikeys_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/apikeys"
	"github.com/hexmem/hexmem/internal/store/sqlite"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open("file::memory:?cache=shared", "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreate_HashesKeyAndReturnsRawOnce(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	issued, err := m.Create(context.Background(), apikeys.CreateInput{
		Name:        "ci-token",
		Permissions: []string{hexmem.PermissionWrite},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Raw)
	assert.NotEqual(t, issued.Raw, issued.Key.KeyHash)
	assert.True(t, len(issued.Key.KeyPrefix) > 0)

	keys, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "ci-token", keys[0].Name)
}

func TestCreate_RequiresName(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	_, err := m.Create(context.Background(), apikeys.CreateInput{})
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)
}

func TestCreate_DefaultsToReadPermission(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	issued, err := m.Create(context.Background(), apikeys.CreateInput{Name: "default-perm"})
	require.NoError(t, err)
	assert.Equal(t, []string{hexmem.PermissionRead}, issued.Key.Permissions)
}

func TestAuthenticate_AcceptsRawKeyAndRejectsGarbage(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	issued, err := m.Create(context.Background(), apikeys.CreateInput{Name: "auth-test"})
	require.NoError(t, err)

	k, err := m.Authenticate(context.Background(), issued.Raw)
	require.NoError(t, err)
	assert.Equal(t, issued.Key.ID, k.ID)

	_, err = m.Authenticate(context.Background(), "not-a-real-key")
	assert.ErrorIs(t, err, hexmem.ErrUnauthenticated)
}

func TestAuthenticate_RejectsRevokedKey(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	issued, err := m.Create(context.Background(), apikeys.CreateInput{Name: "revoke-test"})
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), issued.Key.ID))

	_, err = m.Authenticate(context.Background(), issued.Raw)
	assert.ErrorIs(t, err, hexmem.ErrUnauthenticated)
}

func TestHasPermission_AdminImpliesEveryPermission(t *testing.T) {
	admin := &hexmem.ApiKey{Permissions: []string{hexmem.PermissionAdmin}}
	assert.True(t, apikeys.HasPermission(admin, hexmem.PermissionRead))
	assert.True(t, apikeys.HasPermission(admin, hexmem.PermissionWrite))

	readOnly := &hexmem.ApiKey{Permissions: []string{hexmem.PermissionRead}}
	assert.True(t, apikeys.HasPermission(readOnly, hexmem.PermissionRead))
	assert.False(t, apikeys.HasPermission(readOnly, hexmem.PermissionWrite))
}

func TestLimiter_NilWhenRateLimitNotPositive(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	k := &hexmem.ApiKey{ID: "k1", RateLimit: 0}
	assert.Nil(t, m.Limiter(k))
}

func TestLimiter_ReturnsSameLimiterForSameKey(t *testing.T) {
	st := newTestStore(t)
	m := apikeys.New(st)

	k := &hexmem.ApiKey{ID: "k2", RateLimit: 5}
	l1 := m.Limiter(k)
	l2 := m.Limiter(k)
	require.NotNil(t, l1)
	assert.Same(t, l1, l2)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, apikeys.ConstantTimeEqual("same", "same"))
	assert.False(t, apikeys.ConstantTimeEqual("same", "different"))
}
