package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hexmem/hexmem/internal/ingest"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

func listOptionsFromQuery(r *http.Request) (store.ListOptions, error) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		return store.ListOptions{}, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument)
	}
	return store.ListOptions{
		AgentID:   agentID,
		ProjectID: r.URL.Query().Get("project_id"),
	}, nil
}

// --- Facts ---

type factRequest struct {
	AgentID    string     `json:"agent_id"`
	Content    string     `json:"content"`
	Subject    string     `json:"subject,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Source     string     `json:"source,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		opts, err := listOptionsFromQuery(r)
		if err != nil {
			respondError(w, err)
			return
		}
		facts, err := s.st.ListFacts(r.Context(), opts)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"facts": facts})
	case http.MethodPost:
		requirePermission(writePerm, s.createFact)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createFact(w http.ResponseWriter, r *http.Request) {
	var req factRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.Content == "" {
		respondError(w, fmt.Errorf("%w: agent_id and content are required", hexmem.ErrInvalidArgument))
		return
	}
	in := ingest.FactInput{Content: req.Content, Subject: req.Subject, Confidence: req.Confidence, Source: req.Source, Tags: req.Tags}
	if req.ValidFrom != nil {
		in.ValidFrom = *req.ValidFrom
	}
	in.ValidUntil = req.ValidUntil
	f, err := s.ingest.CreateFact(r.Context(), req.AgentID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (s *Server) handleFact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		f, err := s.st.GetFact(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, f)
	case http.MethodPut:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.updateFact(w, r, id) })(w, r)
	case http.MethodDelete:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.deleteFact(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateFact(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := s.st.GetFact(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	var req factRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Content != "" {
		existing.Content = req.Content
	}
	if req.Subject != "" {
		existing.Subject = req.Subject
	}
	if req.Confidence != 0 {
		existing.Confidence = req.Confidence
	}
	if req.Source != "" {
		existing.Source = req.Source
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if req.ValidUntil != nil {
		existing.ValidUntil = req.ValidUntil
	}
	if err := s.st.UpdateFact(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteFact(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.st.DeleteFact(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- Decisions ---

type decisionRequest struct {
	AgentID      string   `json:"agent_id"`
	Title        string   `json:"title"`
	Decision     string   `json:"decision"`
	Rationale    string   `json:"rationale,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
	Context      string   `json:"context,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		opts, err := listOptionsFromQuery(r)
		if err != nil {
			respondError(w, err)
			return
		}
		decisions, err := s.st.ListDecisions(r.Context(), opts)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"decisions": decisions})
	case http.MethodPost:
		requirePermission(writePerm, s.createDecision)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.Title == "" || req.Decision == "" {
		respondError(w, fmt.Errorf("%w: agent_id, title and decision are required", hexmem.ErrInvalidArgument))
		return
	}
	d, err := s.ingest.CreateDecision(r.Context(), req.AgentID, ingest.DecisionInput{
		Title: req.Title, Decision: req.Decision, Rationale: req.Rationale,
		Alternatives: req.Alternatives, Context: req.Context, Tags: req.Tags,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		d, err := s.st.GetDecision(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
	case http.MethodPut:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.updateDecision(w, r, id) })(w, r)
	case http.MethodDelete:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.deleteDecision(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateDecision(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := s.st.GetDecision(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Rationale != "" {
		existing.Rationale = req.Rationale
	}
	if req.Alternatives != nil {
		existing.Alternatives = req.Alternatives
	}
	if req.Context != "" {
		existing.Context = req.Context
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if err := s.st.UpdateDecision(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteDecision(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.st.DeleteDecision(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- Tasks ---

type taskRequest struct {
	AgentID     string            `json:"agent_id"`
	ProjectID   string            `json:"project_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      hexmem.TaskStatus `json:"status,omitempty"`
	Priority    int               `json:"priority,omitempty"`
	Assignee    string            `json:"assignee,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	BlockedBy   string            `json:"blocked_by,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		opts, err := listOptionsFromQuery(r)
		if err != nil {
			respondError(w, err)
			return
		}
		tasks, err := s.st.ListTasks(r.Context(), opts)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
	case http.MethodPost:
		requirePermission(writePerm, s.createTask)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.Title == "" {
		respondError(w, fmt.Errorf("%w: agent_id and title are required", hexmem.ErrInvalidArgument))
		return
	}
	t, err := s.ingest.CreateTask(r.Context(), req.AgentID, ingest.TaskInput{
		ProjectID: req.ProjectID, Title: req.Title, Description: req.Description, Status: req.Status,
		Priority: req.Priority, Assignee: req.Assignee, DueDate: req.DueDate, BlockedBy: req.BlockedBy, Tags: req.Tags,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		t, err := s.st.GetTask(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	case http.MethodPut:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.updateTask(w, r, id) })(w, r)
	case http.MethodDelete:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.deleteTask(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := s.st.GetTask(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.Priority != 0 {
		existing.Priority = req.Priority
	}
	if req.Assignee != "" {
		existing.Assignee = req.Assignee
	}
	if req.DueDate != nil {
		existing.DueDate = req.DueDate
	}
	if req.BlockedBy != "" {
		existing.BlockedBy = req.BlockedBy
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if err := s.st.UpdateTask(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.st.DeleteTask(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// --- Events ---

type eventRequest struct {
	AgentID     string               `json:"agent_id"`
	ProjectID   string               `json:"project_id,omitempty"`
	Title       string               `json:"title"`
	EventType   string               `json:"event_type,omitempty"`
	Description string               `json:"description,omitempty"`
	Outcome     string               `json:"outcome,omitempty"`
	CausedBy    string               `json:"caused_by,omitempty"`
	Severity    hexmem.EventSeverity `json:"severity,omitempty"`
	OccurredAt  *time.Time           `json:"occurred_at,omitempty"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		opts, err := listOptionsFromQuery(r)
		if err != nil {
			respondError(w, err)
			return
		}
		events, err := s.st.ListEvents(r.Context(), opts)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
	case http.MethodPost:
		requirePermission(writePerm, s.createEvent)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.Title == "" {
		respondError(w, fmt.Errorf("%w: agent_id and title are required", hexmem.ErrInvalidArgument))
		return
	}
	in := ingest.EventInput{
		ProjectID: req.ProjectID, Title: req.Title, EventType: req.EventType, Description: req.Description,
		Outcome: req.Outcome, CausedBy: req.CausedBy, Severity: req.Severity, Tags: req.Tags,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}
	e, err := s.ingest.CreateEvent(r.Context(), req.AgentID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		e, err := s.st.GetEvent(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, e)
	case http.MethodPut:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.updateEvent(w, r, id) })(w, r)
	case http.MethodDelete:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.deleteEvent(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := s.st.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Outcome != "" {
		existing.Outcome = req.Outcome
	}
	if req.CausedBy != "" {
		existing.CausedBy = req.CausedBy
	}
	if req.Severity != "" {
		existing.Severity = req.Severity
	}
	if req.ResolvedAt != nil {
		existing.ResolvedAt = req.ResolvedAt
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if err := s.st.UpdateEvent(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.st.DeleteEvent(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
