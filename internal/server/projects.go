package server

import (
	"fmt"
	"net/http"

	"github.com/hexmem/hexmem/internal/ingest"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type projectRequest struct {
	AgentID     string               `json:"agent_id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Status      hexmem.ProjectStatus `json:"status,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Metadata    hexmem.JSONMap       `json:"metadata,omitempty"`
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" {
			respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
			return
		}
		projects, err := s.st.ListProjects(r.Context(), agentID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
	case http.MethodPost:
		requirePermission(writePerm, s.createProject)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.Name == "" {
		respondError(w, fmt.Errorf("%w: agent_id and name are required", hexmem.ErrInvalidArgument))
		return
	}
	p, err := s.ingest.CreateProject(r.Context(), req.AgentID, ingest.ProjectInput{
		Name: req.Name, Description: req.Description, Status: req.Status, Tags: req.Tags, Metadata: req.Metadata,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		agentID := r.URL.Query().Get("agent_id")
		if agentID == "" {
			respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
			return
		}
		p, err := s.st.GetProject(r.Context(), id, agentID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	case http.MethodPut:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.updateProject(w, r, id) })(w, r)
	case http.MethodDelete:
		requirePermission(writePerm, func(w http.ResponseWriter, r *http.Request) { s.deleteProject(w, r, id) })(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request, id string) {
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
		return
	}
	existing, err := s.st.GetProject(r.Context(), id, agentID)
	if err != nil {
		respondError(w, err)
		return
	}
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	if req.Status != "" {
		existing.Status = req.Status
	}
	if req.Metadata != nil {
		existing.Metadata = req.Metadata
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}
	if err := s.st.UpdateProject(r.Context(), existing); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.st.DeleteProject(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
