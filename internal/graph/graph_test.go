package graph_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/graph"
	"github.com/hexmem/hexmem/internal/store"
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

func seedFact(t *testing.T, st *sqlite.Store, agentID, content string) *hexmem.Fact {
	t.Helper()
	f := &hexmem.Fact{ID: uuid.NewString(), AgentID: agentID, Content: content}
	require.NoError(t, st.CreateFact(context.Background(), f))
	return f
}

func TestUpsert_AppliesWeightAndMetadataDefaults(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	src := seedFact(t, st, agentID, "source fact")
	dst := seedFact(t, st, agentID, "target fact")
	svc := graph.New(st)

	edge, err := svc.Upsert(context.Background(), graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: src.ID,
		TargetType: hexmem.TypeFact, TargetID: dst.ID, Relation: hexmem.RelationRelatesTo,
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, edge.Weight)
	assert.NotNil(t, edge.Metadata)
}

func TestUpsert_HonorsExplicitWeight(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	src := seedFact(t, st, agentID, "source fact")
	dst := seedFact(t, st, agentID, "target fact")
	svc := graph.New(st)

	w := 0.25
	edge, err := svc.Upsert(context.Background(), graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: src.ID,
		TargetType: hexmem.TypeFact, TargetID: dst.ID, Relation: hexmem.RelationRelatesTo,
		Weight: &w,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.25, edge.Weight)
}

func TestList_FiltersByAgent(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	src := seedFact(t, st, agentID, "a")
	dst := seedFact(t, st, agentID, "b")
	svc := graph.New(st)

	_, err := svc.Upsert(context.Background(), graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: src.ID,
		TargetType: hexmem.TypeFact, TargetID: dst.ID, Relation: hexmem.RelationRelatesTo,
	})
	require.NoError(t, err)

	edges, err := svc.List(context.Background(), store.EdgeFilter{AgentID: agentID})
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	edges, err = svc.List(context.Background(), store.EdgeFilter{AgentID: uuid.NewString()})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestDelete_RemovesEdge(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	src := seedFact(t, st, agentID, "a")
	dst := seedFact(t, st, agentID, "b")
	svc := graph.New(st)

	edge, err := svc.Upsert(context.Background(), graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: src.ID,
		TargetType: hexmem.TypeFact, TargetID: dst.ID, Relation: hexmem.RelationRelatesTo,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), edge.ID))

	edges, err := svc.List(context.Background(), store.EdgeFilter{AgentID: agentID})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestNodeView_ReturnsOutgoingAndIncoming(t *testing.T) {
	st := newTestStore(t)
	agentID := uuid.NewString()
	a := seedFact(t, st, agentID, "a")
	b := seedFact(t, st, agentID, "b")
	c := seedFact(t, st, agentID, "c")
	svc := graph.New(st)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: a.ID,
		TargetType: hexmem.TypeFact, TargetID: b.ID, Relation: hexmem.RelationRelatesTo,
	})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, graph.EdgeInput{
		AgentID: agentID, SourceType: hexmem.TypeFact, SourceID: c.ID,
		TargetType: hexmem.TypeFact, TargetID: a.ID, Relation: hexmem.RelationRelatesTo,
	})
	require.NoError(t, err)

	view, err := svc.NodeView(ctx, agentID, hexmem.TypeFact, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", view.Node.Content)
	assert.Len(t, view.Outgoing, 1)
	assert.Len(t, view.Incoming, 1)
	assert.Equal(t, 2, view.Total)
}

func TestNodeView_NotFoundForUnknownNode(t *testing.T) {
	st := newTestStore(t)
	svc := graph.New(st)

	_, err := svc.NodeView(context.Background(), uuid.NewString(), hexmem.TypeFact, uuid.NewString())
	assert.ErrorIs(t, err, hexmem.ErrNotFound)
}
