package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

func TestDecisions_CreateThenGet(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))

	req := authedRequest(http.MethodPost, "/api/v1/decisions", map[string]interface{}{
		"agent_id": agent.ID, "title": "adopt postgres", "decision": "use postgres for storage",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created hexmem.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	getReq := authedRequest(http.MethodGet, "/api/v1/decisions/"+created.ID, nil)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, getReq)
	assert.Equal(t, http.StatusOK, w2.Code)
}

func TestTasks_CreateAppliesDefaults(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))

	req := authedRequest(http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"agent_id": agent.ID, "title": "rotate credentials",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created hexmem.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, hexmem.TaskNotStarted, created.Status)
	assert.Equal(t, 50, created.Priority)
}

func TestEvents_ListRequiresAgentID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := authedRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjects_CreateThenListBySlug(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))

	req := authedRequest(http.MethodPost, "/api/v1/projects", map[string]interface{}{
		"agent_id": agent.ID, "name": "Memory Service",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created hexmem.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "memory-service", created.Slug)
	assert.Equal(t, hexmem.ProjectActive, created.Status)

	listReq := authedRequest(http.MethodGet, "/api/v1/projects?agent_id="+agent.ID, nil)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, listReq)
	require.Equal(t, http.StatusOK, w2.Code)
}

func TestEdges_CreateThenGraphView(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(ctx, agent))

	f1 := &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "fact one"}
	f2 := &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "fact two"}
	require.NoError(t, st.CreateFact(ctx, f1))
	require.NoError(t, st.CreateFact(ctx, f2))

	req := authedRequest(http.MethodPost, "/api/v1/edges", map[string]interface{}{
		"agent_id": agent.ID, "source_type": "fact", "source_id": f1.ID,
		"target_type": "fact", "target_id": f2.ID, "relation": "relates_to",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	viewReq := authedRequest(http.MethodGet, "/api/v1/edges/graph/fact/"+f1.ID+"?agent_id="+agent.ID, nil)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, viewReq)
	require.Equal(t, http.StatusOK, w2.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &body))
	outgoing, ok := body["outgoing"].([]interface{})
	require.True(t, ok)
	assert.Len(t, outgoing, 1)
}

func TestDecayStatus_ReportsCountsAfterSweep(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(ctx, agent))
	require.NoError(t, st.CreateFact(ctx, &hexmem.Fact{ID: uuid.NewString(), AgentID: agent.ID, Content: "decay-tracked fact"}))

	statusReq := authedRequest(http.MethodGet, "/api/v1/decay/status?agent_id="+agent.ID, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, statusReq)
	require.Equal(t, http.StatusOK, w.Code)

	sweepReq := authedRequest(http.MethodPost, "/api/v1/decay/sweep", map[string]interface{}{"agent_id": agent.ID})
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, sweepReq)
	assert.Equal(t, http.StatusOK, w2.Code)

	w3 := httptest.NewRecorder()
	srv.ServeHTTP(w3, authedRequest(http.MethodGet, "/api/v1/decay/status?agent_id="+agent.ID, nil))
	require.Equal(t, http.StatusOK, w3.Code)
	var body struct {
		Counts map[string]map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Counts["fact"]["active"])
}

func TestAnalytics_ReflectsLoggedSearchCall(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(ctx, agent))

	searchReq := authedRequest(http.MethodPost, "/api/v1/search", map[string]interface{}{
		"agent_id": agent.ID, "query": "anything",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, searchReq)
	require.Equal(t, http.StatusOK, w.Code)

	analyticsReq := authedRequest(http.MethodGet, "/api/v1/analytics/queries", nil)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, analyticsReq)
	require.Equal(t, http.StatusOK, w2.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &body))
	assert.GreaterOrEqual(t, body["TotalQueries"], float64(1))
}

func TestKeys_CreateThenRevoke(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := authedRequest(http.MethodPost, "/api/v1/keys", map[string]interface{}{
		"name": "ci-runner", "permissions": []string{"read", "write"},
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	keyBody, ok := created["key"].(map[string]interface{})
	require.True(t, ok)
	id, ok := keyBody["id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, created["raw_key"])

	delReq := authedRequest(http.MethodDelete, "/api/v1/keys/"+id, nil)
	w2 := httptest.NewRecorder()
	srv.ServeHTTP(w2, delReq)
	assert.Equal(t, http.StatusNoContent, w2.Code)
}

func TestAgents_PatchCoreMemory(t *testing.T) {
	srv, st, _ := newTestServer(t)
	agent := &hexmem.Agent{ID: uuid.NewString(), Slug: "agent-" + uuid.NewString()[:8], DisplayName: "a"}
	require.NoError(t, st.CreateAgent(context.Background(), agent))

	req := authedRequest(http.MethodPatch, "/api/v1/agents/"+agent.ID+"/core-memory", map[string]interface{}{
		"persona": "terse and direct",
	})
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var updated hexmem.Agent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "terse and direct", updated.CoreMemory["persona"])
}
