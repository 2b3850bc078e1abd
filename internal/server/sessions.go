package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hexmem/hexmem/internal/extract"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type createSessionRequest struct {
	AgentID    string         `json:"agent_id"`
	ExternalID string         `json:"external_id,omitempty"`
	Metadata   hexmem.JSONMap `json:"metadata,omitempty"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" {
			respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
			return
		}
		sessions, err := s.st.ListSessions(r.Context(), agentID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
	case http.MethodPost:
		requirePermission(writePerm, s.createSession)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" {
		respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
		return
	}
	sess := &hexmem.Session{
		AgentID:    req.AgentID,
		ExternalID: req.ExternalID,
		Metadata:   req.Metadata,
	}
	if err := s.st.CreateSession(r.Context(), sess); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	sess, err := s.st.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	count, err := s.st.CountMessages(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session":       sess,
		"message_count": count,
	})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	var req struct {
		Summary string `json:"summary"`
	}
	_ = decodeJSON(r, &req) // a body is optional; an empty/absent one is fine

	summary := req.Summary
	if summary == "" {
		summary = s.summarizeSession(r.Context(), id)
	}

	if err := s.st.EndSession(r.Context(), id, summary); err != nil {
		respondError(w, err)
		return
	}
	sess, err := s.st.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type addMessageRequest struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata hexmem.JSONMap `json:"metadata,omitempty"`
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		msgs, err := s.st.ListMessages(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
	case http.MethodPost:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.addMessage(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) addMessage(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req addMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Role == "" || req.Content == "" {
		respondError(w, fmt.Errorf("%w: role and content are required", hexmem.ErrInvalidArgument))
		return
	}
	msg, counts, err := s.ingest.AddMessage(r.Context(), sessionID, req.Role, req.Content, req.Metadata)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    msg,
		"extraction": counts,
	})
}

// summarizeSession runs the configured Summarizer over the session's
// messages when the caller didn't supply one explicitly. Failure yields an
// empty string, matching the summarizer's null-on-failure contract: ending
// a session never fails because summarization did.
func (s *Server) summarizeSession(ctx context.Context, sessionID string) string {
	if s.summarizer == nil {
		return ""
	}
	msgs, err := s.st.ListMessages(ctx, sessionID)
	if err != nil {
		log.Printf("server: failed to list messages for session summary %s: %v", sessionID, err)
		return ""
	}
	summary, err := s.summarizer.Summarize(ctx, toSummarizeMessages(msgs))
	if err != nil {
		log.Printf("server: summarizer failed for session %s: %v", sessionID, err)
		return ""
	}
	return summary
}

func toSummarizeMessages(msgs []*hexmem.SessionMessage) []extract.Message {
	out := make([]extract.Message, len(msgs))
	for i, m := range msgs {
		out[i] = extract.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
