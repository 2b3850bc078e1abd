package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/internal/analytics"
	"github.com/hexmem/hexmem/internal/apikeys"
	"github.com/hexmem/hexmem/internal/decay"
	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/internal/graph"
	"github.com/hexmem/hexmem/internal/ingest"
	"github.com/hexmem/hexmem/internal/recall"
	"github.com/hexmem/hexmem/internal/server"
	"github.com/hexmem/hexmem/internal/store/sqlite"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const testDevKey = "test-dev-key"

func newTestServer(t *testing.T) (*server.Server, *sqlite.Store, *apikeys.Manager) {
	t.Helper()
	st, err := sqlite.Open("file::memory:?cache=shared", "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.SeedDefaultPolicies(context.Background()))

	embedder := embed.NewStub(8)
	extractor := extract.NewStub()
	dd := dedup.New(st, embedder)
	keys := apikeys.New(st)

	srv := server.New(server.Deps{
		Store:      st,
		Ingest:     ingest.New(st, embedder, extractor, dd),
		Recall:     recall.New(st, embedder),
		Graph:      graph.New(st),
		Decay:      decay.New(st, 30*24*time.Hour),
		Analytics:  analytics.New(st, 30*24*time.Hour),
		Keys:       keys,
		Summarizer: extract.NewStubSummarizer(),
		DevKey:     testDevKey,
		EmbedderOK: true,
		EmbedName:  "stub",
	})
	return srv, st, keys
}

func authedRequest(method, path string, body interface{}) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testDevKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["embedder_reachable"])
}

func TestAuth_MissingTokenIsUnauthorized(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_InvalidTokenIsUnauthorized(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer garbage-token")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_DevKeyGrantsFullAccess(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := authedRequest(http.MethodGet, "/api/v1/agents", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_ReadOnlyKeyDeniedOnWriteRoute(t *testing.T) {
	srv, _, keys := newTestServer(t)

	issued, err := keys.Create(context.Background(), apikeys.CreateInput{
		Name: "read-only", Permissions: []string{hexmem.PermissionRead},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decay/sweep", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+issued.Raw)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFacts_CreateThenDuplicateConflicts(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))

	body := map[string]interface{}{"agent_id": agent.ID, "content": "the backup job runs nightly"}

	req := authedRequest(http.MethodPost, "/api/v1/facts", body)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	req2 := authedRequest(http.MethodPost, "/api/v1/facts", body)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusConflict, w2.Code)

	var errBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &errBody))
	assert.NotEmpty(t, errBody["existing_id"])
}

func TestFacts_ListRequiresAgentID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := authedRequest(http.MethodGet, "/api/v1/facts", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecall_EndToEndThroughHTTP(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))
	require.NoError(t, st.CreateFact(context.Background(), &hexmem.Fact{
		ID: uuid.NewString(), AgentID: agent.ID, Content: "on-call escalates after 15 minutes",
	}))

	req := authedRequest(http.MethodPost, "/api/v1/recall", map[string]interface{}{
		"query": "on-call escalation", "agent_id": agent.ID,
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp recall.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, len(resp.Results), 1)
}

func TestSessionEnd_AutoSummarizesWhenNoneSupplied(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(ctx, agent))
	sess := &hexmem.Session{ID: uuid.NewString(), AgentID: agent.ID}
	require.NoError(t, st.CreateSession(ctx, sess))
	require.NoError(t, st.InsertMessage(ctx, &hexmem.SessionMessage{
		ID: uuid.NewString(), SessionID: sess.ID, AgentID: agent.ID, Role: "user", Content: "let's ship it",
		DecayStatus: hexmem.DecayActive,
	}))

	req := authedRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/end", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var updated hexmem.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Contains(t, updated.Summary, "let's ship it")
	require.NotNil(t, updated.EndedAt)
}

func TestSessionEnd_ExplicitSummaryIsNotOverridden(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(ctx, agent))
	sess := &hexmem.Session{ID: uuid.NewString(), AgentID: agent.ID}
	require.NoError(t, st.CreateSession(ctx, sess))

	req := authedRequest(http.MethodPost, "/api/v1/sessions/"+sess.ID+"/end", map[string]interface{}{
		"summary": "manually written summary",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var updated hexmem.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "manually written summary", updated.Summary)
}
