// Package hexmem defines the shared domain types for the memory service:
// the tagged set of memory item kinds, their fields, and the small value
// table the recall planner and decay engine iterate over instead of
// dispatching on type strings.
package hexmem

import "time"

// EmbeddingDim is the system-wide embedding vector length. All memory
// tables assume this single dimension.
const EmbeddingDim = 768

// DecayStatus is the lifecycle state of a memory item.
type DecayStatus string

const (
	DecayActive   DecayStatus = "active"
	DecayCooling  DecayStatus = "cooling"
	DecayArchived DecayStatus = "archived"
)

// ItemType is the closed set of memory item kinds recall/decay/dedup operate over.
type ItemType string

const (
	TypeSessionMessage ItemType = "session_message"
	TypeFact           ItemType = "fact"
	TypeDecision       ItemType = "decision"
	TypeTask           ItemType = "task"
	TypeEvent          ItemType = "event"

	// TypeSession identifies a Session as an edge endpoint. Sessions are not
	// a recall/decay/dedup candidate table — they only appear as derived_from
	// / decided_in edge targets — so this is deliberately excluded from
	// AllItemTypes.
	TypeSession ItemType = "session"
)

// AllItemTypes is the ordered closed set consulted by recall and decay sweeps.
var AllItemTypes = []ItemType{TypeSessionMessage, TypeFact, TypeDecision, TypeTask, TypeEvent}

// TypeMeta is the small value table described in the design notes:
// backing table name and the time column used
// for recency/TTL computation, indexed by ItemType rather than dispatched
// on strings at call sites.
type TypeMeta struct {
	Table      string
	TimeColumn string
}

var typeMeta = map[ItemType]TypeMeta{
	TypeSessionMessage: {Table: "session_messages", TimeColumn: "created_at"},
	TypeFact:           {Table: "facts", TimeColumn: "created_at"},
	TypeDecision:       {Table: "decisions", TimeColumn: "created_at"},
	TypeTask:           {Table: "tasks", TimeColumn: "created_at"},
	TypeEvent:          {Table: "events", TimeColumn: "occurred_at"},
}

// Meta returns the table/time-column metadata for an item type. The second
// return value is false for an unknown type.
func Meta(t ItemType) (TypeMeta, bool) {
	m, ok := typeMeta[t]
	return m, ok
}

// Agent owns a private memory namespace.
type Agent struct {
	ID          string                 `json:"id"`
	Slug        string                 `json:"slug"`
	DisplayName string                 `json:"display_name"`
	Description string                 `json:"description,omitempty"`
	CoreMemory  map[string]interface{} `json:"core_memory,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Session is an ordered sequence of role-tagged messages.
type Session struct {
	ID         string     `json:"id"`
	AgentID    string     `json:"agent_id"`
	ExternalID string     `json:"external_id,omitempty"`
	Metadata   JSONMap    `json:"metadata,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Summary    string     `json:"summary,omitempty"`
}

// SessionMessage is one immutable role-tagged message within a session.
type SessionMessage struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	AgentID        string     `json:"agent_id"`
	Role           string     `json:"role"`
	Content        string     `json:"content"`
	Embedding      []float32  `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	DecayStatus    DecayStatus `json:"decay_status"`
}

// Fact is a piece of asserted knowledge about the agent's world.
type Fact struct {
	ID             string     `json:"id"`
	AgentID        string     `json:"agent_id"`
	Content        string     `json:"content"`
	Subject        string     `json:"subject,omitempty"`
	Confidence     float64    `json:"confidence"`
	Source         string     `json:"source,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Embedding      []float32  `json:"-"`
	ValidFrom      time.Time  `json:"valid_from"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	SupersededBy   string     `json:"superseded_by,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	DecayStatus    DecayStatus `json:"decay_status"`
}

// Decision records an append-only choice and its rationale.
type Decision struct {
	ID             string     `json:"id"`
	AgentID        string     `json:"agent_id"`
	Title          string     `json:"title"`
	DecisionText   string     `json:"decision"`
	Rationale      string     `json:"rationale,omitempty"`
	Alternatives   []string   `json:"alternatives,omitempty"`
	Context        string     `json:"context,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Embedding      []float32  `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	DecayStatus    DecayStatus `json:"decay_status"`
}

// TaskStatus is the free-transition status enum for Task.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskComplete   TaskStatus = "complete"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is a unit of work, optionally grouped under a Project.
type Task struct {
	ID             string     `json:"id"`
	AgentID        string     `json:"agent_id"`
	ProjectID      string     `json:"project_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       int        `json:"priority"`
	Assignee       string     `json:"assignee,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	BlockedBy      string     `json:"blocked_by,omitempty"`
	SessionID      string     `json:"session_id,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Embedding      []float32  `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	DecayStatus    DecayStatus `json:"decay_status"`
}

// EventSeverity is the severity enum for Event.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is a time-indexed occurrence (incident, milestone, release, ...).
type Event struct {
	ID             string        `json:"id"`
	AgentID        string        `json:"agent_id"`
	ProjectID      string        `json:"project_id,omitempty"`
	Title          string        `json:"title"`
	EventType      string        `json:"event_type"`
	Description    string        `json:"description,omitempty"`
	Outcome        string        `json:"outcome,omitempty"`
	CausedBy       string        `json:"caused_by,omitempty"`
	Severity       EventSeverity `json:"severity"`
	SessionID      string        `json:"session_id,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	Embedding      []float32     `json:"-"`
	OccurredAt     time.Time     `json:"occurred_at"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	AccessCount    int           `json:"access_count"`
	LastAccessedAt *time.Time    `json:"last_accessed_at,omitempty"`
	DecayStatus    DecayStatus   `json:"decay_status"`
}

// ProjectStatus is the status enum for Project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Project groups tasks, decisions, and events.
type Project struct {
	ID          string        `json:"id"`
	AgentID     string        `json:"agent_id"`
	Slug        string        `json:"slug"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Tags        []string      `json:"tags,omitempty"`
	Embedding   []float32     `json:"-"`
	Metadata    JSONMap       `json:"metadata,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Edge is a typed directed relation between two memory nodes, identified by
// (type, id) pairs rather than a foreign key.
type Edge struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	SourceType ItemType  `json:"source_type"`
	SourceID   string    `json:"source_id"`
	TargetType ItemType  `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Relation   string    `json:"relation"`
	Weight     float64   `json:"weight"`
	Metadata   JSONMap   `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Relation values recognized by the edge graph. Not enforced at the store
// layer (callers may pass any string) but documented here as the contract.
const (
	RelationCausedBy   = "caused_by"
	RelationDecidedIn  = "decided_in"
	RelationBlocks     = "blocks"
	RelationRelatesTo  = "relates_to"
	RelationSupersedes = "supersedes"
	RelationPartOf     = "part_of"
	RelationLedTo      = "led_to"
	RelationReferences = "references"
	RelationDependsOn  = "depends_on"
	RelationDerivedFrom = "derived_from"
)

// DecayPolicy controls the active→cooling→archived transition for a
// (agent_id?, memory_type). A nil AgentID resolves to the global default.
type DecayPolicy struct {
	ID          string   `json:"id"`
	AgentID     *string  `json:"agent_id,omitempty"`
	MemoryType  ItemType `json:"memory_type"`
	TTLDays     *int     `json:"ttl_days,omitempty"`
	AccessBoost float64  `json:"access_boost"`
	MinAccesses int      `json:"min_accesses"`
}

// ApiKey scopes a caller to an agent and a set of permissions.
type ApiKey struct {
	ID          string     `json:"id"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"key_prefix"`
	Name        string     `json:"name"`
	AgentID     *string    `json:"agent_id,omitempty"`
	Permissions []string   `json:"permissions"`
	RateLimit   float64    `json:"rate_limit"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionAdmin = "admin"
)

// JSONMap is a loosely typed JSON object, used for metadata/config/core_memory.
type JSONMap map[string]interface{}
