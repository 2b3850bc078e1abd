package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/store/postgres"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// postgresTestDSN returns the DSN for the integration test database. These
// tests are skipped unless a real PostgreSQL instance is available, since
// they exercise pg_trgm/pgvector behavior sqlite cannot emulate.
func postgresTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("HEXMEM_POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("HEXMEM_POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	st, err := postgres.Open(postgresTestDSN(t), "../../../migrations/postgres")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestAgent creates an agent with a random slug so concurrent test runs
// against a shared database don't collide.
func newTestAgent(t *testing.T, st *postgres.Store) *hexmem.Agent {
	t.Helper()
	a := &hexmem.Agent{Slug: "pg-test-" + uuid.NewString()[:8], DisplayName: "pg test agent"}
	require.NoError(t, st.CreateAgent(context.Background(), a))
	return a
}

func TestCreateAndGetAgent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := newTestAgent(t, st)

	got, err := st.GetAgent(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestCreateProject_DuplicateSlugPerAgentConflicts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := newTestAgent(t, st)

	p := &hexmem.Project{AgentID: a.ID, Slug: "roadmap", Name: "Roadmap", Status: hexmem.ProjectActive}
	require.NoError(t, st.CreateProject(ctx, p))

	dup := &hexmem.Project{AgentID: a.ID, Slug: "roadmap", Name: "Roadmap Again", Status: hexmem.ProjectActive}
	err := st.CreateProject(ctx, dup)
	assert.ErrorIs(t, err, hexmem.ErrConflict)
}

func TestTrigramMatch_FindsNearIdenticalText(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := newTestAgent(t, st)

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{
		ID: uuid.NewString(), AgentID: a.ID, Content: "the nightly backup job runs at 2am UTC",
	}))

	id, similarity, found, err := st.TrigramMatch(ctx, hexmem.TypeFact, a.ID, "the nightly backup job runs at 2am UTC sharp")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, id)
	assert.Greater(t, similarity, 0.5)
}

func TestCosineMatch_FindsExactEmbeddingMatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := newTestAgent(t, st)

	vec := make([]float32, 768)
	vec[0] = 1.0
	f := &hexmem.Fact{ID: uuid.NewString(), AgentID: a.ID, Content: "pinned vector fact", Embedding: vec}
	require.NoError(t, st.CreateFact(ctx, f))

	id, similarity, found, err := st.CosineMatch(ctx, hexmem.TypeFact, a.ID, vec)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, f.ID, id)
	assert.InDelta(t, 1.0, similarity, 0.001)
}

func TestDecayStatusCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	a := newTestAgent(t, st)
	require.NoError(t, st.SeedDefaultPolicies(ctx))

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{ID: uuid.NewString(), AgentID: a.ID, Content: "counted fact"}))

	counts, err := st.DecayStatusCounts(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[hexmem.TypeFact][hexmem.DecayActive])
}
