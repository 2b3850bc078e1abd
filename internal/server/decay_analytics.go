package server

import (
	"net/http"
)

func (s *Server) handleDecayStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	agentID := r.URL.Query().Get("agent_id")
	counts, err := s.decay.Status(r.Context(), agentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

func (s *Server) handleDecaySweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		AgentID string `json:"agent_id"`
	}
	_ = decodeJSON(r, &req) // an absent/empty body sweeps every agent

	stats, err := s.decay.Sweep(r.Context(), req.AgentID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	summary, err := s.analytics.Summary(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
