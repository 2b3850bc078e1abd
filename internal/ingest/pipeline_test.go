package ingest_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/internal/ingest"
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

func newTestAgentAndSession(t *testing.T, st *sqlite.Store) (*hexmem.Agent, *hexmem.Session) {
	t.Helper()
	ctx := context.Background()
	a := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "test agent"}
	require.NoError(t, st.CreateAgent(ctx, a))
	s := &hexmem.Session{ID: uuid.NewString(), AgentID: a.ID}
	require.NoError(t, st.CreateSession(ctx, s))
	return a, s
}

func newTestPipeline(st *sqlite.Store) *ingest.Pipeline {
	embedder := embed.NewStub(8)
	dd := dedup.New(st, embedder)
	return ingest.New(st, embedder, extract.NewStub(), dd)
}

func TestAddMessage_PersistsAndReturnsZeroCountsForStubExtractor(t *testing.T) {
	st := newTestStore(t)
	_, sess := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)

	msg, counts, err := p.AddMessage(context.Background(), sess.ID, "user", "hello there", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello there", msg.Content)
	assert.Equal(t, hexmem.DecayActive, msg.DecayStatus)
	assert.Equal(t, ingest.ExtractionCounts{}, counts)
}

func TestAddMessage_RejectsEndedSession(t *testing.T) {
	st := newTestStore(t)
	_, sess := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)
	ctx := context.Background()

	require.NoError(t, st.EndSession(ctx, sess.ID, "wrapped up"))

	_, _, err := p.AddMessage(ctx, sess.ID, "user", "are you still there", nil)
	assert.ErrorIs(t, err, hexmem.ErrInvalidArgument)
}

func TestCreateFact_FirstWriteSucceedsSecondConflicts(t *testing.T) {
	st := newTestStore(t)
	agent, _ := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)
	ctx := context.Background()

	f, err := p.CreateFact(ctx, agent.ID, ingest.FactInput{Content: "the on-call rotation is weekly"})
	require.NoError(t, err)
	require.NotEmpty(t, f.ID)

	_, err = p.CreateFact(ctx, agent.ID, ingest.FactInput{Content: "the on-call rotation is weekly"})
	assert.ErrorIs(t, err, hexmem.ErrConflict)
	var conflict *hexmem.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, f.ID, conflict.ExistingID)
}

func TestCreateDecision_DefaultsAndDedup(t *testing.T) {
	st := newTestStore(t)
	agent, _ := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)
	ctx := context.Background()

	d, err := p.CreateDecision(ctx, agent.ID, ingest.DecisionInput{Title: "adopt postgres", Decision: "use postgres for storage"})
	require.NoError(t, err)
	assert.Equal(t, "adopt postgres", d.Title)

	_, err = p.CreateDecision(ctx, agent.ID, ingest.DecisionInput{Title: "adopt postgres", Decision: "use postgres for storage"})
	assert.ErrorIs(t, err, hexmem.ErrConflict)
}

func TestCreateTask_DefaultsStatusAndPriority(t *testing.T) {
	st := newTestStore(t)
	agent, _ := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)

	task, err := p.CreateTask(context.Background(), agent.ID, ingest.TaskInput{Title: "write release notes"})
	require.NoError(t, err)
	assert.Equal(t, hexmem.TaskNotStarted, task.Status)
	assert.Equal(t, 50, task.Priority)
}

func TestCreateEvent_DefaultsSeverityAndOccurredAt(t *testing.T) {
	st := newTestStore(t)
	agent, _ := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)

	event, err := p.CreateEvent(context.Background(), agent.ID, ingest.EventInput{Title: "deploy failed"})
	require.NoError(t, err)
	assert.Equal(t, hexmem.SeverityInfo, event.Severity)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestCreateProject_NeverDedupsAndSlugifiesName(t *testing.T) {
	st := newTestStore(t)
	agent, _ := newTestAgentAndSession(t, st)
	p := newTestPipeline(st)
	ctx := context.Background()

	p1, err := p.CreateProject(ctx, agent.ID, ingest.ProjectInput{Name: "Memory Service"})
	require.NoError(t, err)
	assert.Equal(t, "memory-service", p1.Slug)
	assert.Equal(t, hexmem.ProjectActive, p1.Status)

	p2, err := p.CreateProject(ctx, agent.ID, ingest.ProjectInput{Name: "Memory Services"})
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p2.ID)
}
