package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/analytics"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/internal/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open("file::memory:?cache=shared", "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLog_NeverFailsOnBadEntry(t *testing.T) {
	st := newTestStore(t)
	l := analytics.New(st, 30*24*time.Hour)

	assert.NotPanics(t, func() {
		l.Log(context.Background(), store.AnalyticsEntry{AgentID: uuid.NewString(), Endpoint: "/api/v1/recall", QueryText: "q", LatencyMS: 5})
	})
}

func TestSummary_ReflectsLoggedEntries(t *testing.T) {
	st := newTestStore(t)
	l := analytics.New(st, 30*24*time.Hour)
	ctx := context.Background()
	agentID := uuid.NewString()

	l.Log(ctx, store.AnalyticsEntry{AgentID: agentID, Endpoint: "/api/v1/search", QueryText: "q1", LatencyMS: 10})
	l.Log(ctx, store.AnalyticsEntry{AgentID: agentID, Endpoint: "/api/v1/recall", QueryText: "q2", LatencyMS: 20})

	summary, err := l.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalQueries)
	assert.Contains(t, summary.ByEndpoint, "/api/v1/search")
	assert.Contains(t, summary.ByEndpoint, "/api/v1/recall")
}

func TestStartStop_DoesNotPanicAndIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	l := analytics.New(st, 30*24*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Start(ctx, time.Hour)
	l.Stop()
	l.Stop()
}
