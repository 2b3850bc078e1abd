package dedup_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/internal/embed"
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

func TestCheck_TrigramMatchOnNearIdenticalText(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	ctx := context.Background()

	existing := &hexmem.Fact{ID: uuid.NewString(), AgentID: agentID, Content: "the deploy pipeline uses blue-green rollout"}
	require.NoError(t, st.CreateFact(ctx, existing))

	checker := dedup.New(st, embed.NewStub(8))
	match, err := checker.Check(ctx, hexmem.TypeFact, agentID, "the deploy pipeline uses blue-green rollout")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, existing.ID, match.ExistingID)
}

func TestCheck_NoMatchForUnrelatedText(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	ctx := context.Background()

	existing := &hexmem.Fact{ID: uuid.NewString(), AgentID: agentID, Content: "the deploy pipeline uses blue-green rollout"}
	require.NoError(t, st.CreateFact(ctx, existing))

	checker := dedup.New(st, embed.NewStub(8))
	match, err := checker.Check(ctx, hexmem.TypeFact, agentID, "the cafeteria menu changed on friday")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCheck_NoMatchAgainstEmptyStore(t *testing.T) {
	st := newTestStore(t)
	checker := dedup.New(st, embed.NewStub(8))

	match, err := checker.Check(context.Background(), hexmem.TypeFact, uuid.NewString(), "anything at all")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCheck_NilEmbedderSkipsSemanticStage(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	ctx := context.Background()

	existing := &hexmem.Fact{ID: uuid.NewString(), AgentID: agentID, Content: "totally distinct wording here"}
	require.NoError(t, st.CreateFact(ctx, existing))

	checker := dedup.New(st, nil)
	match, err := checker.Check(ctx, hexmem.TypeFact, agentID, "a completely different sentence")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCanonicalText_PerType(t *testing.T) {
	assert.Equal(t, "hello", dedup.CanonicalText(hexmem.TypeFact, map[string]string{"content": "hello"}))
	assert.Equal(t, "title: decision body", dedup.CanonicalText(hexmem.TypeDecision, map[string]string{"title": "title", "decision": "decision body"}))
	assert.Equal(t, "a title", dedup.CanonicalText(hexmem.TypeTask, map[string]string{"title": "a title"}))
	assert.Equal(t, "an event", dedup.CanonicalText(hexmem.TypeEvent, map[string]string{"title": "an event"}))
	assert.Equal(t, "", dedup.CanonicalText(hexmem.TypeSession, map[string]string{"content": "ignored"}))
}
