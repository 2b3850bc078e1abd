package server

import (
	"fmt"
	"net/http"

	"github.com/hexmem/hexmem/internal/graph"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type edgeRequest struct {
	AgentID    string          `json:"agent_id"`
	SourceType hexmem.ItemType `json:"source_type"`
	SourceID   string          `json:"source_id"`
	TargetType hexmem.ItemType `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Relation   string          `json:"relation"`
	Weight     *float64        `json:"weight,omitempty"`
	Metadata   hexmem.JSONMap  `json:"metadata,omitempty"`
}

func (s *Server) handleEdges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := store.EdgeFilter{
			AgentID:    r.URL.Query().Get("agent_id"),
			SourceType: hexmem.ItemType(r.URL.Query().Get("source_type")),
			SourceID:   r.URL.Query().Get("source_id"),
			TargetType: hexmem.ItemType(r.URL.Query().Get("target_type")),
			TargetID:   r.URL.Query().Get("target_id"),
			Relation:   r.URL.Query().Get("relation"),
		}
		if filter.AgentID == "" {
			respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
			return
		}
		edges, err := s.graph.List(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"edges": edges})
	case http.MethodPost:
		requirePermission(writePerm, s.createEdge)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createEdge(w http.ResponseWriter, r *http.Request) {
	var req edgeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.AgentID == "" || req.SourceType == "" || req.SourceID == "" || req.TargetType == "" || req.TargetID == "" || req.Relation == "" {
		respondError(w, fmt.Errorf("%w: agent_id, source_type, source_id, target_type, target_id and relation are required", hexmem.ErrInvalidArgument))
		return
	}
	e, err := s.graph.Upsert(r.Context(), graph.EdgeInput{
		AgentID: req.AgentID, SourceType: req.SourceType, SourceID: req.SourceID,
		TargetType: req.TargetType, TargetID: req.TargetID, Relation: req.Relation,
		Weight: req.Weight, Metadata: req.Metadata,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleEdge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	if err := s.graph.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleEdgeGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		respondError(w, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument))
		return
	}
	t := hexmem.ItemType(r.PathValue("type"))
	id := r.PathValue("id")
	view, err := s.graph.NodeView(r.Context(), agentID, t, id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}
