package recall_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/recall"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func TestSearch_RequiresEmbedderConfigured(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	p := recall.New(st, nil)

	_, err := p.Search(context.Background(), recall.SearchOptions{Query: "anything", AgentID: agent.ID})
	assert.ErrorIs(t, err, hexmem.ErrEmbeddingUnavailable)
}

func TestSearch_RequiresAgentIDAndQuery(t *testing.T) {
	st := newTestStore(t)
	p := recall.New(st, embed.NewStub(8))

	_, err := p.Search(context.Background(), recall.SearchOptions{Query: "anything"})
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)

	_, err = p.Search(context.Background(), recall.SearchOptions{AgentID: uuid.NewString()})
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)
}

func TestSearch_FindsExactEmbeddingMatch(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	ctx := context.Background()
	embedder := embed.NewStub(8)

	text := "the release pipeline runs blue-green deploys"
	vec, err := embedder.Embed(ctx, text)
	require.NoError(t, err)

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: text, Embedding: vec}))

	p := recall.New(st, embedder)
	results, err := p.Search(ctx, recall.SearchOptions{Query: text, AgentID: agent.ID})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 1)
	assert.Equal(t, text, results[0].Content)
}

func TestSearch_ThresholdFiltersWeakMatches(t *testing.T) {
	st := newTestStore(t)
	agent := newTestAgent(t, st)
	ctx := context.Background()
	embedder := embed.NewStub(8)

	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{
		ID: uuid.NewString(), AgentID: agent.ID, Content: "unrelated content entirely",
		Embedding: mustEmbed(ctx, embedder, "unrelated content entirely"),
	}))

	p := recall.New(st, embedder)
	strict := 0.999
	results, err := p.Search(ctx, recall.SearchOptions{Query: "a completely different query", AgentID: agent.ID, Threshold: &strict})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func mustEmbed(ctx context.Context, e interface {
	Embed(context.Context, string) ([]float32, error)
}, text string) []float32 {
	v, err := e.Embed(ctx, text)
	if err != nil {
		panic(err)
	}
	return v
}
