package server

import (
	"fmt"
	"net/http"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type createAgentRequest struct {
	Slug        string                 `json:"slug"`
	DisplayName string                 `json:"display_name"`
	Description string                 `json:"description,omitempty"`
	CoreMemory  map[string]interface{} `json:"core_memory,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agents, err := s.st.ListAgents(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
	case http.MethodPost:
		requirePermission(writePerm, s.createAgent)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Slug == "" || !hexmem.ValidSlug(req.Slug) {
		respondError(w, fmt.Errorf("%w: slug must match %s", hexmem.ErrInvalidArgument, hexmem.SlugPattern))
		return
	}
	if req.DisplayName == "" {
		respondError(w, fmt.Errorf("%w: display_name is required", hexmem.ErrInvalidArgument))
		return
	}
	a := &hexmem.Agent{
		Slug:        req.Slug,
		DisplayName: req.DisplayName,
		Description: req.Description,
		CoreMemory:  req.CoreMemory,
		Config:      req.Config,
	}
	if err := s.st.CreateAgent(r.Context(), a); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		agent, err := s.st.GetAgent(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		counts, err := s.st.AgentCounts(r.Context(), agent.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"agent":  agent,
			"counts": counts,
		})
	case http.MethodPatch:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.patchAgent(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

type patchAgentRequest struct {
	DisplayName *string                `json:"display_name"`
	Description *string                `json:"description"`
	Config      map[string]interface{} `json:"config"`
}

func (s *Server) patchAgent(w http.ResponseWriter, r *http.Request, id string) {
	var req patchAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	agentID, err := s.st.ResolveAgentID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	updated, err := s.st.UpdateAgent(r.Context(), agentID, store.AgentPatch{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Config:      req.Config,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCoreMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	var patch hexmem.JSONMap
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, err)
		return
	}
	agentID, err := s.st.ResolveAgentID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	updated, err := s.st.PatchCoreMemory(r.Context(), agentID, patch)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
