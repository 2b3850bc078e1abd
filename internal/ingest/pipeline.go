// Package ingest implements the ingestion pipeline: message
// persistence, tail-context assembly, extraction, best-effort embedding,
// structured insert, and derivation-edge creation. It also backs the
// direct-write API (facts/decisions/tasks/events/projects), which differs
// from the extraction path in one respect: it runs dedup first and refuses
// to insert on a match.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const recentContextSize = 4

// Pipeline wires the storage, embedding, extraction, and dedup capabilities
// behind the ingestion and direct-write operations.
type Pipeline struct {
	st        store.Store
	embedder  embed.Provider
	extractor extract.Extractor
	dedup     *dedup.Checker
}

// New builds a Pipeline. embedder/extractor may be stubs; dedup is always
// non-nil (it degrades gracefully when its own embedder is nil).
func New(st store.Store, embedder embed.Provider, extractor extract.Extractor, dd *dedup.Checker) *Pipeline {
	return &Pipeline{st: st, embedder: embedder, extractor: extractor, dedup: dd}
}

// ExtractionCounts is the per-type tally returned alongside a persisted
// message.
type ExtractionCounts struct {
	Facts     int `json:"facts"`
	Decisions int `json:"decisions"`
	Tasks     int `json:"tasks"`
	Events    int `json:"events"`
}

// bestEffortEmbed embeds text, swallowing failure: the caller persists the
// item with a nil embedding rather than rejecting it.
func (p *Pipeline) bestEffortEmbed(ctx context.Context, text string) []float32 {
	if p.embedder == nil || text == "" {
		return nil
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("ingest: embed failed, storing without vector: %v", err)
		return nil
	}
	return vec
}

// AddMessage implements addMessage(session_id, role, content, metadata?)
// It persists the message unconditionally, then fires extraction as
// a best-effort side pipeline: extraction/embedding/edge-creation failures
// never affect the return value below the message itself.
func (p *Pipeline) AddMessage(ctx context.Context, sessionID, role, content string, metadata hexmem.JSONMap) (*hexmem.SessionMessage, ExtractionCounts, error) {
	sess, err := p.st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, ExtractionCounts{}, err
	}
	if sess.EndedAt != nil {
		return nil, ExtractionCounts{}, fmt.Errorf("%w: session already ended", hexmem.ErrInvalidArgument)
	}

	// Tail context is fetched before the current message is persisted so it
	// naturally contains only prior messages, oldest-first.
	priorCtx, err := p.st.RecentMessages(ctx, sessionID, recentContextSize)
	if err != nil {
		log.Printf("ingest: failed to fetch tail context for session %s: %v", sessionID, err)
		priorCtx = nil
	}

	msg := &hexmem.SessionMessage{
		SessionID:   sessionID,
		AgentID:     sess.AgentID,
		Role:        role,
		Content:     content,
		Embedding:   p.bestEffortEmbed(ctx, content),
		DecayStatus: hexmem.DecayActive,
	}
	if err := p.st.InsertMessage(ctx, msg); err != nil {
		return nil, ExtractionCounts{}, fmt.Errorf("persist message: %w", err)
	}

	counts := p.extractAndStore(ctx, sess.AgentID, sessionID, msg, priorCtx)
	return msg, counts, nil
}

// extractAndStore runs the extractor and stores each returned item without
// dedup rejection (extraction is authoritative; duplicates receive a
// derivation edge instead of being refused). Every failure here is logged
// and swallowed; extraction is always best-effort.
func (p *Pipeline) extractAndStore(ctx context.Context, agentID, sessionID string, current *hexmem.SessionMessage, priorCtx []*hexmem.SessionMessage) ExtractionCounts {
	var counts ExtractionCounts

	result, err := p.extractor.Extract(ctx, extract.Message{Role: current.Role, Content: current.Content}, toExtractMessages(priorCtx))
	if err != nil {
		log.Printf("ingest: extraction failed for message %s, returning empty counts: %v", current.ID, err)
		return counts
	}

	for _, f := range result.Facts {
		if _, _, err := p.insertFact(ctx, agentID, sessionID, FactInput{
			Content: f.Content, Subject: f.Subject, Confidence: f.Confidence, Tags: f.Tags,
		}, false); err != nil {
			log.Printf("ingest: failed to store extracted fact: %v", err)
			continue
		}
		counts.Facts++
	}
	for _, d := range result.Decisions {
		if _, _, err := p.insertDecision(ctx, agentID, sessionID, DecisionInput{
			Title: d.Title, Decision: d.Decision, Rationale: d.Rationale, Alternatives: d.Alternatives, Tags: d.Tags,
		}, false); err != nil {
			log.Printf("ingest: failed to store extracted decision: %v", err)
			continue
		}
		counts.Decisions++
	}
	for _, t := range result.Tasks {
		if _, _, err := p.insertTask(ctx, agentID, sessionID, TaskInput{
			Title: t.Title, Description: t.Description, Priority: t.Priority, Tags: t.Tags,
		}, false); err != nil {
			log.Printf("ingest: failed to store extracted task: %v", err)
			continue
		}
		counts.Tasks++
	}
	for _, e := range result.Events {
		if _, _, err := p.insertEvent(ctx, agentID, sessionID, EventInput{
			Title: e.Title, EventType: e.EventType, Description: e.Description, Severity: hexmem.EventSeverity(e.Severity), Tags: e.Tags,
		}, false); err != nil {
			log.Printf("ingest: failed to store extracted event: %v", err)
			continue
		}
		counts.Events++
	}
	return counts
}

func toExtractMessages(msgs []*hexmem.SessionMessage) []extract.Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]extract.Message, len(msgs))
	for i, m := range msgs {
		out[i] = extract.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// createDerivationEdge inserts the idempotent edge (type,id) -relation->
// (session, sessionID). Failures are logged, never
// propagated: edge creation is a best-effort pipeline stage.
func (p *Pipeline) createDerivationEdge(ctx context.Context, agentID string, srcType hexmem.ItemType, srcID, sessionID, relation string) {
	if sessionID == "" {
		return
	}
	_, err := p.st.UpsertEdge(ctx, &hexmem.Edge{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		SourceType: srcType,
		SourceID:   srcID,
		TargetType: hexmem.TypeSession,
		TargetID:   sessionID,
		Relation:   relation,
		Weight:     1.0,
		Metadata:   hexmem.JSONMap{},
	})
	if err != nil {
		log.Printf("ingest: failed to create derivation edge %s/%s -> session %s: %v", srcType, srcID, sessionID, err)
	}
}

func now() time.Time { return time.Now().UTC() }
