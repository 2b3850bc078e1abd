package recall_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/recall"
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

func newTestAgent(t *testing.T, st *sqlite.Store) *hexmem.Agent {
	t.Helper()
	a := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "test agent"}
	require.NoError(t, st.CreateAgent(context.Background(), a))
	return a
}

func TestRecall_RequiresAgentIDAndQuery(t *testing.T) {
	st := newTestStore(t)
	p := recall.New(st, embed.NewStub(8))

	_, err := p.Recall(context.Background(), recall.Options{Query: "anything"})
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)

	_, err = p.Recall(context.Background(), recall.Options{AgentID: uuid.NewString()})
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)
}

func TestRecall_FindsLexicalMatchAndAppliesDefaultWeights(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	ctx := context.Background()

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{
		ID: uuid.NewString(), AgentID: agent.ID,
		Content: "the deploy pipeline uses blue-green rollout", ValidFrom: time.Now(),
	}))

	p := recall.New(st, embed.NewStub(8))
	resp, err := p.Recall(ctx, recall.Options{Query: "deploy pipeline", AgentID: agent.ID})
	require.NoError(t, err)

	assert.Equal(t, 0.7, resp.Weights.Semantic)
	assert.Equal(t, 0.2, resp.Weights.Keyword)
	assert.Equal(t, 0.1, resp.Weights.Recency)
	assert.GreaterOrEqual(t, len(resp.Results), 1)
}

func TestRecall_RespectsExplicitZeroRecencyWeight(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)

	p := recall.New(st, embed.NewStub(8))
	zero := 0.0
	resp, err := p.Recall(context.Background(), recall.Options{
		Query: "anything", AgentID: agent.ID, RecencyWeight: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Weights.Recency)
}

func TestRecall_LimitDefaultsTo20(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	for i := 0; i < 25; i++ {
		require.NoError(t, st.CreateFact(context.Background(), &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "anything", ValidFrom: time.Now()}))
	}

	p := recall.New(st, embed.NewStub(8))
	resp, err := p.Recall(context.Background(), recall.Options{Query: "anything", AgentID: agent.ID})
	require.NoError(t, err)
	assert.Equal(t, "anything", resp.Query)
	assert.Len(t, resp.Results, 20)
}
