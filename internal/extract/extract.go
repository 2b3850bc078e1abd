// Package extract provides the pluggable Extractor capability:
// given the current message and up to 4 prior messages of context, return
// four arrays of candidate memory items. Failure yields four empty arrays;
// ingestion proceeds regardless.
package extract

import "context"

// ExtractedFact mirrors the fields accepted by storeItem for a fact.
type ExtractedFact struct {
	Content    string   `json:"content"`
	Subject    string   `json:"subject,omitempty"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
}

// ExtractedDecision mirrors the fields accepted by storeItem for a decision.
type ExtractedDecision struct {
	Title        string   `json:"title"`
	Decision     string   `json:"decision"`
	Rationale    string   `json:"rationale,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// ExtractedTask mirrors the fields accepted by storeItem for a task.
type ExtractedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority"`
	Tags        []string `json:"tags,omitempty"`
}

// ExtractedEvent mirrors the fields accepted by storeItem for an event.
type ExtractedEvent struct {
	Title       string   `json:"title"`
	EventType   string   `json:"event_type"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity"`
	Tags        []string `json:"tags,omitempty"`
}

// Result is the deterministic four-array return shape of extract().
type Result struct {
	Facts     []ExtractedFact
	Decisions []ExtractedDecision
	Tasks     []ExtractedTask
	Events    []ExtractedEvent
}

// Message is the minimal shape the extractor needs from a session message.
type Message struct {
	Role    string
	Content string
}

// Extractor is the pluggable extraction capability.
type Extractor interface {
	// Extract returns candidate memory items found in current, using
	// recentContext (oldest-first, at most 4 entries) as supporting
	// context. On any failure it returns a zero Result and a non-nil
	// error; callers must treat this as non-fatal.
	Extract(ctx context.Context, current Message, recentContext []Message) (Result, error)
}

// emptyResult is returned (with the underlying error) on extractor failure.
func emptyResult() Result {
	return Result{Facts: nil, Decisions: nil, Tasks: nil, Events: nil}
}
