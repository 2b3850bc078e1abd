package decay_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/decay"
	"github.com/hexmem/hexmem/internal/store/sqlite"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open("file::memory:?cache=shared", "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SeedDefaultPolicies(context.Background()))
	return st
}

func newTestAgent(t *testing.T, st *sqlite.Store) *hexmem.Agent {
	t.Helper()
	a := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "test agent"}
	require.NoError(t, st.CreateAgent(context.Background(), a))
	return a
}

func TestSweep_ScopedToSingleAgentLeavesOthersUntouched(t *testing.T) {
	st := newTestStore(t)
	agentA := newTestAgent(t, st)
	agentB := newTestAgent(t, st)
	ctx := context.Background()

	for _, aid := range []string{agentA.ID, agentB.ID} {
		f := &hexmem.Fact{ID: uuid.NewString(), AgentID: aid, Content: "stale fact", ValidFrom: time.Now().Add(-999 * 24 * time.Hour)}
		require.NoError(t, st.CreateFact(ctx, f))
	}

	engine := decay.New(st, 30*24*time.Hour)
	stats, err := engine.Sweep(ctx, agentA.ID)
	require.NoError(t, err)

	statusA, err := engine.Status(ctx, agentA.ID)
	require.NoError(t, err)
	statusB, err := engine.Status(ctx, agentB.ID)
	require.NoError(t, err)

	require.GreaterOrEqual(t, stats.ToCooling, 0)
	require.NotNil(t, statusA)
	require.NotNil(t, statusB)
	require.Equal(t, 1, statusB[hexmem.TypeFact][hexmem.DecayActive])
}

func TestSweep_EmptyAgentIDSweepsEveryAgent(t *testing.T) {
	st := newTestStore(t)
	_ = newTestAgent(t, st)
	_ = newTestAgent(t, st)
	ctx := context.Background()

	engine := decay.New(st, 30*24*time.Hour)
	_, err := engine.Sweep(ctx, "")
	require.NoError(t, err)
}

func TestRevive_RestoresDecayedItemToActive(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	ctx := context.Background()

	f := &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "a fact", ValidFrom: time.Now()}
	require.NoError(t, st.CreateFact(ctx, f))

	ttl := -1
	cooled, err := st.CoolStaleActive(ctx, agent.ID, hexmem.TypeFact, &hexmem.DecayPolicy{MemoryType: hexmem.TypeFact, TTLDays: &ttl, MinAccesses: 1})
	require.NoError(t, err)
	require.Equal(t, 1, cooled)

	engine := decay.New(st, 30*24*time.Hour)
	require.NoError(t, engine.Revive(ctx, hexmem.TypeFact, f.ID))

	status, err := engine.Status(ctx, agent.ID)
	require.NoError(t, err)
	require.Equal(t, 1, status[hexmem.TypeFact][hexmem.DecayActive])
	require.Equal(t, 0, status[hexmem.TypeFact][hexmem.DecayCooling])
}

func TestStatus_ReportsCountsPerTypeAndDecayStatus(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "fact one", ValidFrom: time.Now()}))

	engine := decay.New(st, 30*24*time.Hour)
	status, err := engine.Status(ctx, agent.ID)
	require.NoError(t, err)
	require.Contains(t, status, hexmem.TypeFact)
	require.Equal(t, 1, status[hexmem.TypeFact][hexmem.DecayActive])
}
