package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open("file::memory:?cache=shared", "../../../migrations/sqlite")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateAndGetAgent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "sre-bot", DisplayName: "SRE Bot"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}
	if a.ID == "" {
		t.Fatal("CreateAgent() did not assign an ID")
	}

	got, err := st.GetAgent(ctx, a.Slug)
	if err != nil {
		t.Fatalf("GetAgent() by slug failed: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("GetAgent() by slug: got id %q, want %q", got.ID, a.ID)
	}

	got2, err := st.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAgent() by id failed: %v", err)
	}
	if got2.Slug != "sre-bot" {
		t.Errorf("GetAgent() by id: got slug %q, want %q", got2.Slug, "sre-bot")
	}
}

func TestCreateAgent_DuplicateSlugConflicts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "dup-agent", DisplayName: "first"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("first CreateAgent() failed: %v", err)
	}
	b := &hexmem.Agent{Slug: "dup-agent", DisplayName: "second"}
	err := st.CreateAgent(ctx, b)
	if err == nil {
		t.Fatal("second CreateAgent() with the same slug: expected an error, got nil")
	}
	if !isUniqueViolation(err) {
		t.Errorf("CreateAgent() duplicate slug error should wrap a unique-constraint violation, got: %v", err)
	}
}

func TestGetAgent_NotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.GetAgent(ctx, "does-not-exist")
	if err != hexmem.ErrNotFound {
		t.Errorf("GetAgent() on missing agent: got %v, want %v", err, hexmem.ErrNotFound)
	}
}

func TestListAgents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, slug := range []string{"agent-one", "agent-two"} {
		if err := st.CreateAgent(ctx, &hexmem.Agent{Slug: slug, DisplayName: slug}); err != nil {
			t.Fatalf("CreateAgent(%q) failed: %v", slug, err)
		}
	}

	agents, err := st.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() failed: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("ListAgents(): got %d agents, want 2", len(agents))
	}
}

func TestUpdateAgent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "update-me", DisplayName: "before"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}

	newName := "after"
	updated, err := st.UpdateAgent(ctx, a.ID, store.AgentPatch{DisplayName: &newName})
	if err != nil {
		t.Fatalf("UpdateAgent() failed: %v", err)
	}
	if updated.DisplayName != "after" {
		t.Errorf("UpdateAgent(): got display_name %q, want %q", updated.DisplayName, "after")
	}

	got, err := st.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAgent() after update failed: %v", err)
	}
	if got.DisplayName != "after" {
		t.Errorf("GetAgent() after update: got %q, want %q", got.DisplayName, "after")
	}
}

func TestPatchCoreMemory(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "core-mem-agent", DisplayName: "a", CoreMemory: hexmem.JSONMap{"role": "sre"}}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}

	updated, err := st.PatchCoreMemory(ctx, a.ID, hexmem.JSONMap{"team": "platform", "role": nil})
	if err != nil {
		t.Fatalf("PatchCoreMemory() failed: %v", err)
	}
	if updated.CoreMemory["team"] != "platform" {
		t.Errorf("PatchCoreMemory(): got team %v, want %q", updated.CoreMemory["team"], "platform")
	}
	if _, stillThere := updated.CoreMemory["role"]; stillThere {
		t.Error("PatchCoreMemory(): a nil-valued key should delete the existing entry, but it's still present")
	}
}

func TestAgentCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "counted-agent", DisplayName: "a"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}
	if err := st.CreateFact(ctx, &hexmem.Fact{ID: uuid.NewString(), AgentID: a.ID, Content: "fact one"}); err != nil {
		t.Fatalf("CreateFact() failed: %v", err)
	}

	counts, err := st.AgentCounts(ctx, a.ID)
	if err != nil {
		t.Fatalf("AgentCounts() failed: %v", err)
	}
	if counts["facts"] != 1 {
		t.Errorf("AgentCounts()[facts]: got %d, want 1", counts["facts"])
	}
	if counts["tasks"] != 0 {
		t.Errorf("AgentCounts()[tasks]: got %d, want 0", counts["tasks"])
	}
}

func TestResolveAgentID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "resolve-me", DisplayName: "a"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}

	id, err := st.ResolveAgentID(ctx, "resolve-me")
	if err != nil {
		t.Fatalf("ResolveAgentID() by slug failed: %v", err)
	}
	if id != a.ID {
		t.Errorf("ResolveAgentID() by slug: got %q, want %q", id, a.ID)
	}

	if _, err := st.ResolveAgentID(ctx, "nope"); err != hexmem.ErrNotFound {
		t.Errorf("ResolveAgentID() on unknown slug: got %v, want %v", err, hexmem.ErrNotFound)
	}
}

func TestCreateProject_SlugUniquePerAgent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "proj-agent", DisplayName: "a"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}

	p := &hexmem.Project{AgentID: a.ID, Slug: "memory-service", Name: "Memory Service", Status: hexmem.ProjectActive}
	if err := st.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}

	dup := &hexmem.Project{AgentID: a.ID, Slug: "memory-service", Name: "Memory Service Again", Status: hexmem.ProjectActive}
	if err := st.CreateProject(ctx, dup); err == nil {
		t.Fatal("CreateProject() with a duplicate slug for the same agent: expected an error, got nil")
	}

	got, err := st.GetProject(ctx, "memory-service", a.ID)
	if err != nil {
		t.Fatalf("GetProject() by slug failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("GetProject() by slug: got id %q, want %q", got.ID, p.ID)
	}
}

func TestListProjects(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "list-proj-agent", DisplayName: "a"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}
	for _, slug := range []string{"alpha", "beta"} {
		p := &hexmem.Project{AgentID: a.ID, Slug: slug, Name: slug, Status: hexmem.ProjectActive}
		if err := st.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject(%q) failed: %v", slug, err)
		}
	}

	projects, err := st.ListProjects(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListProjects() failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("ListProjects(): got %d, want 2", len(projects))
	}
}

func TestDeleteProject_NotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.DeleteProject(ctx, "does-not-exist"); err != hexmem.ErrNotFound {
		t.Errorf("DeleteProject() on missing project: got %v, want %v", err, hexmem.ErrNotFound)
	}
}

func TestLexicalSearch_RanksByTrigramSimilarity(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := &hexmem.Agent{Slug: "search-agent", DisplayName: "a"}
	if err := st.CreateAgent(ctx, a); err != nil {
		t.Fatalf("CreateAgent() failed: %v", err)
	}
	if err := st.CreateFact(ctx, &hexmem.Fact{
		ID: uuid.NewString(), AgentID: a.ID, Content: "the backup job runs nightly at 2am",
	}); err != nil {
		t.Fatalf("CreateFact() failed: %v", err)
	}
	if err := st.CreateFact(ctx, &hexmem.Fact{
		ID: uuid.NewString(), AgentID: a.ID, Content: "unrelated content about the weather",
	}); err != nil {
		t.Fatalf("CreateFact() #2 failed: %v", err)
	}

	candidates, err := st.LexicalSearch(ctx, hexmem.TypeFact, a.ID, "the backup job runs nightly", 5)
	if err != nil {
		t.Fatalf("LexicalSearch() failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("LexicalSearch(): expected at least one match, got none")
	}
	if candidates[0].Keyword == nil || *candidates[0].Keyword <= 0.1 {
		t.Errorf("LexicalSearch(): top candidate keyword score should exceed 0.1, got %v", candidates[0].Keyword)
	}
}

func TestSemanticSearch_UnsupportedType(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SemanticSearch(ctx, hexmem.TypeSession, "agent-id", []float32{0, 1}, 5)
	if err == nil {
		t.Fatal("SemanticSearch() with an unsupported item type: expected an error, got nil")
	}
}
