// Package store defines the storage contract: parameterized
// queries, vector cosine distance, trigram similarity, JSON merge-patch,
// conditional upsert, atomic access accounting, and a migration ledger.
// Two backends implement it: postgres (primary) and sqlite (dev/test).
package store

import (
	"context"
	"time"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

// AgentPatch carries the mutable subset of Agent fields for PATCH.
type AgentPatch struct {
	DisplayName *string
	Description *string
	Config      hexmem.JSONMap
}

// ListOptions is shared pagination/filtering for item listings.
type ListOptions struct {
	AgentID string
	Limit   int
	Offset  int
	// ProjectID optionally filters tasks/events by project.
	ProjectID string
}

// Candidate is one row surfaced by a semantic or lexical recall arm, or by
// direct search. Signal fields are populated independently per arm and
// merged by ID by the recall planner.
type Candidate struct {
	ID         string
	Type       hexmem.ItemType
	Content    string
	Metadata   hexmem.JSONMap
	CreatedAt  time.Time
	Semantic   *float64
	Keyword    *float64
	HasEmbed   bool
}

// EdgeFilter selects edges by any subset of fields; zero values are ignored.
type EdgeFilter struct {
	AgentID    string
	SourceType hexmem.ItemType
	SourceID   string
	TargetType hexmem.ItemType
	TargetID   string
	Relation   string
}

// AnalyticsEntry is one append-only query-log row.
type AnalyticsEntry struct {
	AgentID    string
	Endpoint   string
	QueryText  string
	LatencyMS  int64
	Metadata   hexmem.JSONMap
	OccurredAt time.Time
}

// AnalyticsSummary is the response shape for GET /api/v1/analytics/queries.
type AnalyticsSummary struct {
	TotalQueries   int
	AvgLatencyMS   float64
	ByEndpoint     map[string]int
	RecentEntries  []AnalyticsEntry
}

// Store is the full storage contract consumed by the ingestion, recall,
// decay, dedup, and graph components, plus the HTTP handlers for direct
// CRUD. Implementations: postgres.Store (primary), sqlite.Store (dev/test).
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, a *hexmem.Agent) error
	GetAgent(ctx context.Context, idOrSlug string) (*hexmem.Agent, error)
	ListAgents(ctx context.Context) ([]*hexmem.Agent, error)
	UpdateAgent(ctx context.Context, id string, patch AgentPatch) (*hexmem.Agent, error)
	PatchCoreMemory(ctx context.Context, id string, patch hexmem.JSONMap) (*hexmem.Agent, error)
	AgentCounts(ctx context.Context, id string) (map[string]int, error)
	ResolveAgentID(ctx context.Context, idOrSlug string) (string, error)

	// API keys
	CreateAPIKey(ctx context.Context, k *hexmem.ApiKey) error
	ListAPIKeys(ctx context.Context) ([]*hexmem.ApiKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*hexmem.ApiKey, error)
	TouchAPIKey(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, s *hexmem.Session) error
	GetSession(ctx context.Context, id string) (*hexmem.Session, error)
	ListSessions(ctx context.Context, agentID string) ([]*hexmem.Session, error)
	EndSession(ctx context.Context, id string, summary string) error
	CountMessages(ctx context.Context, sessionID string) (int, error)

	// Session messages
	InsertMessage(ctx context.Context, m *hexmem.SessionMessage) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*hexmem.SessionMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]*hexmem.SessionMessage, error)

	// Facts
	CreateFact(ctx context.Context, f *hexmem.Fact) error
	GetFact(ctx context.Context, id string) (*hexmem.Fact, error)
	ListFacts(ctx context.Context, opts ListOptions) ([]*hexmem.Fact, error)
	UpdateFact(ctx context.Context, f *hexmem.Fact) error
	DeleteFact(ctx context.Context, id string) error

	// Decisions
	CreateDecision(ctx context.Context, d *hexmem.Decision) error
	GetDecision(ctx context.Context, id string) (*hexmem.Decision, error)
	ListDecisions(ctx context.Context, opts ListOptions) ([]*hexmem.Decision, error)
	UpdateDecision(ctx context.Context, d *hexmem.Decision) error
	DeleteDecision(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, t *hexmem.Task) error
	GetTask(ctx context.Context, id string) (*hexmem.Task, error)
	ListTasks(ctx context.Context, opts ListOptions) ([]*hexmem.Task, error)
	UpdateTask(ctx context.Context, t *hexmem.Task) error
	DeleteTask(ctx context.Context, id string) error

	// Events
	CreateEvent(ctx context.Context, e *hexmem.Event) error
	GetEvent(ctx context.Context, id string) (*hexmem.Event, error)
	ListEvents(ctx context.Context, opts ListOptions) ([]*hexmem.Event, error)
	UpdateEvent(ctx context.Context, e *hexmem.Event) error
	DeleteEvent(ctx context.Context, id string) error

	// Projects
	CreateProject(ctx context.Context, p *hexmem.Project) error
	GetProject(ctx context.Context, idOrSlug string, agentID string) (*hexmem.Project, error)
	ListProjects(ctx context.Context, agentID string) ([]*hexmem.Project, error)
	UpdateProject(ctx context.Context, p *hexmem.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Recall / search arms, shared across the five candidate tables.
	SemanticSearch(ctx context.Context, t hexmem.ItemType, agentID string, query []float32, limit int) ([]Candidate, error)
	LexicalSearch(ctx context.Context, t hexmem.ItemType, agentID string, queryText string, limit int) ([]Candidate, error)

	// Dedup support.
	TrigramMatch(ctx context.Context, t hexmem.ItemType, agentID string, candidateText string) (id string, similarity float64, found bool, err error)
	CosineMatch(ctx context.Context, t hexmem.ItemType, agentID string, vec []float32) (id string, similarity float64, found bool, err error)

	// Access accounting.
	IncrementAccess(ctx context.Context, t hexmem.ItemType, id string) error

	// Decay.
	ResolvePolicy(ctx context.Context, agentID string, t hexmem.ItemType) (*hexmem.DecayPolicy, error)
	SeedDefaultPolicies(ctx context.Context) error
	CoolStaleActive(ctx context.Context, agentID string, t hexmem.ItemType, policy *hexmem.DecayPolicy) (int, error)
	ArchiveAgedCooling(ctx context.Context, agentID string, t hexmem.ItemType, olderThan time.Duration) (int, error)
	CountImmune(ctx context.Context, agentID string, t hexmem.ItemType, minAccesses int) (int, error)
	Revive(ctx context.Context, t hexmem.ItemType, id string) error
	DecayStatusCounts(ctx context.Context, agentID string) (map[hexmem.ItemType]map[hexmem.DecayStatus]int, error)

	// Edges.
	UpsertEdge(ctx context.Context, e *hexmem.Edge) (*hexmem.Edge, error)
	ListEdges(ctx context.Context, filter EdgeFilter) ([]*hexmem.Edge, error)
	EdgesForNode(ctx context.Context, agentID string, t hexmem.ItemType, id string) (outgoing, incoming []*hexmem.Edge, err error)
	DeleteEdge(ctx context.Context, id string) error
	ResolveNode(ctx context.Context, agentID string, t hexmem.ItemType, id string) (content string, metadata hexmem.JSONMap, found bool, err error)

	// Analytics.
	LogQuery(ctx context.Context, e AnalyticsEntry) error
	PruneAnalytics(ctx context.Context, before time.Time) (int, error)
	Analytics(ctx context.Context) (AnalyticsSummary, error)

	// Close releases any resources held by the store.
	Close() error

	// Ping verifies connectivity for /health.
	Ping(ctx context.Context) error
}
