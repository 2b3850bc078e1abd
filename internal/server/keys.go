package server

import (
	"net/http"

	"github.com/hexmem/hexmem/internal/apikeys"
)

type createKeyRequest struct {
	Name        string   `json:"name"`
	AgentID     *string  `json:"agent_id"`
	Permissions []string `json:"permissions"`
	RateLimit   float64  `json:"rate_limit"`
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		keys, err := s.keys.List(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
	case http.MethodPost:
		requirePermission(adminPerm, s.createKey)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	issued, err := s.keys.Create(r.Context(), apikeys.CreateInput{
		Name:        req.Name,
		AgentID:     req.AgentID,
		Permissions: req.Permissions,
		RateLimit:   req.RateLimit,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"key":     issued.Key,
		"raw_key": issued.Raw,
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	if err := s.keys.Revoke(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
