package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/hexmem/hexmem/internal/dedup"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// FactInput carries the caller-supplied subset of Fact fields, shared by the
// extraction pipeline and the direct-write API.
type FactInput struct {
	Content    string
	Subject    string
	Confidence float64
	Source     string
	Tags       []string
	ValidFrom  time.Time
	ValidUntil *time.Time
}

// DecisionInput carries the caller-supplied subset of Decision fields.
type DecisionInput struct {
	Title        string
	Decision     string
	Rationale    string
	Alternatives []string
	Context      string
	Tags         []string
}

// TaskInput carries the caller-supplied subset of Task fields.
type TaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Status      hexmem.TaskStatus
	Priority    int
	Assignee    string
	DueDate     *time.Time
	BlockedBy   string
	Tags        []string
}

// EventInput carries the caller-supplied subset of Event fields.
type EventInput struct {
	ProjectID   string
	Title       string
	EventType   string
	Description string
	Outcome     string
	CausedBy    string
	Severity    hexmem.EventSeverity
	OccurredAt  time.Time
	Tags        []string
}

// ProjectInput carries the caller-supplied subset of Project fields.
// Projects don't participate in dedup.
type ProjectInput struct {
	Name        string
	Description string
	Status      hexmem.ProjectStatus
	Tags        []string
	Metadata    hexmem.JSONMap
}

// CreateFact is the direct-write API path: dedup runs first and a
// match is returned as a *hexmem.ConflictError (built by
// hexmem.NewDedupConflict from the *dedup.Match) rather than inserting.
func (p *Pipeline) CreateFact(ctx context.Context, agentID string, in FactInput) (*hexmem.Fact, error) {
	f, match, err := p.insertFact(ctx, agentID, "", in, true)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, hexmem.NewDedupConflict(match.ExistingID, match.Similarity)
	}
	return f, nil
}

func (p *Pipeline) insertFact(ctx context.Context, agentID, sessionID string, in FactInput, checkDedup bool) (*hexmem.Fact, *dedup.Match, error) {
	canonical := dedup.CanonicalText(hexmem.TypeFact, map[string]string{"content": in.Content})
	if checkDedup {
		match, err := p.dedup.Check(ctx, hexmem.TypeFact, agentID, canonical)
		if err != nil {
			return nil, nil, fmt.Errorf("dedup check: %w", err)
		}
		if match != nil {
			return nil, match, nil
		}
	}

	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = now()
	}
	f := &hexmem.Fact{
		AgentID:     agentID,
		Content:     in.Content,
		Subject:     in.Subject,
		Confidence:  in.Confidence,
		Source:      in.Source,
		Tags:        in.Tags,
		Embedding:   p.bestEffortEmbed(ctx, canonical),
		ValidFrom:   validFrom,
		ValidUntil:  in.ValidUntil,
		SessionID:   sessionID,
		DecayStatus: hexmem.DecayActive,
	}
	if err := p.st.CreateFact(ctx, f); err != nil {
		return nil, nil, fmt.Errorf("create fact: %w", err)
	}
	p.createDerivationEdge(ctx, agentID, hexmem.TypeFact, f.ID, sessionID, hexmem.RelationDerivedFrom)
	return f, nil, nil
}

// CreateDecision is the direct-write API path; see CreateFact.
func (p *Pipeline) CreateDecision(ctx context.Context, agentID string, in DecisionInput) (*hexmem.Decision, error) {
	d, match, err := p.insertDecision(ctx, agentID, "", in, true)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, hexmem.NewDedupConflict(match.ExistingID, match.Similarity)
	}
	return d, nil
}

func (p *Pipeline) insertDecision(ctx context.Context, agentID, sessionID string, in DecisionInput, checkDedup bool) (*hexmem.Decision, *dedup.Match, error) {
	canonical := dedup.CanonicalText(hexmem.TypeDecision, map[string]string{"title": in.Title, "decision": in.Decision})
	if checkDedup {
		match, err := p.dedup.Check(ctx, hexmem.TypeDecision, agentID, canonical)
		if err != nil {
			return nil, nil, fmt.Errorf("dedup check: %w", err)
		}
		if match != nil {
			return nil, match, nil
		}
	}

	d := &hexmem.Decision{
		AgentID:      agentID,
		Title:        in.Title,
		DecisionText: in.Decision,
		Rationale:    in.Rationale,
		Alternatives: in.Alternatives,
		Context:      in.Context,
		SessionID:    sessionID,
		Tags:         in.Tags,
		Embedding:    p.bestEffortEmbed(ctx, canonical),
		DecayStatus:  hexmem.DecayActive,
	}
	if err := p.st.CreateDecision(ctx, d); err != nil {
		return nil, nil, fmt.Errorf("create decision: %w", err)
	}
	p.createDerivationEdge(ctx, agentID, hexmem.TypeDecision, d.ID, sessionID, hexmem.RelationDecidedIn)
	return d, nil, nil
}

// CreateTask is the direct-write API path; see CreateFact.
func (p *Pipeline) CreateTask(ctx context.Context, agentID string, in TaskInput) (*hexmem.Task, error) {
	t, match, err := p.insertTask(ctx, agentID, "", in, true)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, hexmem.NewDedupConflict(match.ExistingID, match.Similarity)
	}
	return t, nil
}

func (p *Pipeline) insertTask(ctx context.Context, agentID, sessionID string, in TaskInput, checkDedup bool) (*hexmem.Task, *dedup.Match, error) {
	canonical := dedup.CanonicalText(hexmem.TypeTask, map[string]string{"title": in.Title})
	if checkDedup {
		match, err := p.dedup.Check(ctx, hexmem.TypeTask, agentID, canonical)
		if err != nil {
			return nil, nil, fmt.Errorf("dedup check: %w", err)
		}
		if match != nil {
			return nil, match, nil
		}
	}

	status := in.Status
	if status == "" {
		status = hexmem.TaskNotStarted
	}
	priority := in.Priority
	if priority == 0 {
		priority = 50
	}
	t := &hexmem.Task{
		AgentID:     agentID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		Assignee:    in.Assignee,
		DueDate:     in.DueDate,
		BlockedBy:   in.BlockedBy,
		SessionID:   sessionID,
		Tags:        in.Tags,
		Embedding:   p.bestEffortEmbed(ctx, canonical),
		DecayStatus: hexmem.DecayActive,
	}
	if err := p.st.CreateTask(ctx, t); err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}
	p.createDerivationEdge(ctx, agentID, hexmem.TypeTask, t.ID, sessionID, hexmem.RelationDerivedFrom)
	return t, nil, nil
}

// CreateEvent is the direct-write API path; see CreateFact.
func (p *Pipeline) CreateEvent(ctx context.Context, agentID string, in EventInput) (*hexmem.Event, error) {
	e, match, err := p.insertEvent(ctx, agentID, "", in, true)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, hexmem.NewDedupConflict(match.ExistingID, match.Similarity)
	}
	return e, nil
}

func (p *Pipeline) insertEvent(ctx context.Context, agentID, sessionID string, in EventInput, checkDedup bool) (*hexmem.Event, *dedup.Match, error) {
	canonical := dedup.CanonicalText(hexmem.TypeEvent, map[string]string{"title": in.Title})
	if checkDedup {
		match, err := p.dedup.Check(ctx, hexmem.TypeEvent, agentID, canonical)
		if err != nil {
			return nil, nil, fmt.Errorf("dedup check: %w", err)
		}
		if match != nil {
			return nil, match, nil
		}
	}

	severity := in.Severity
	if severity == "" {
		severity = hexmem.SeverityInfo
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now()
	}
	e := &hexmem.Event{
		AgentID:     agentID,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		EventType:   in.EventType,
		Description: in.Description,
		Outcome:     in.Outcome,
		CausedBy:    in.CausedBy,
		Severity:    severity,
		SessionID:   sessionID,
		Tags:        in.Tags,
		Embedding:   p.bestEffortEmbed(ctx, canonical),
		OccurredAt:  occurredAt,
		DecayStatus: hexmem.DecayActive,
	}
	if err := p.st.CreateEvent(ctx, e); err != nil {
		return nil, nil, fmt.Errorf("create event: %w", err)
	}
	p.createDerivationEdge(ctx, agentID, hexmem.TypeEvent, e.ID, sessionID, hexmem.RelationDerivedFrom)
	return e, nil, nil
}

// CreateProject creates a Project. Projects don't dedup; the slug is
// derived from Name and a collision surfaces as hexmem.ErrConflict from
// the store's unique constraint.
func (p *Pipeline) CreateProject(ctx context.Context, agentID string, in ProjectInput) (*hexmem.Project, error) {
	status := in.Status
	if status == "" {
		status = hexmem.ProjectActive
	}
	proj := &hexmem.Project{
		AgentID:     agentID,
		Slug:        hexmem.Slugify(in.Name),
		Name:        in.Name,
		Description: in.Description,
		Status:      status,
		Tags:        in.Tags,
		Embedding:   p.bestEffortEmbed(ctx, in.Name+" "+in.Description),
		Metadata:    in.Metadata,
	}
	if err := p.st.CreateProject(ctx, proj); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return proj, nil
}
