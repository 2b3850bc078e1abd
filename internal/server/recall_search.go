package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hexmem/hexmem/internal/recall"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

type searchRequest struct {
	Query     string          `json:"query"`
	AgentID   string          `json:"agent_id"`
	Types     []hexmem.ItemType `json:"types,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Threshold *float64        `json:"threshold,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	start := time.Now()
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	results, err := s.recall.Search(r.Context(), recall.SearchOptions{
		Query: req.Query, AgentID: req.AgentID, Types: req.Types, Limit: req.Limit, Threshold: req.Threshold,
	})
	status := http.StatusOK
	if err != nil {
		status = hexmem.StatusCode(hexmem.KindOf(err))
	}
	s.logQuery(r.Context(), req.AgentID, "search", req.Query, start, status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results, "total": len(results)})
}

type recallRequest struct {
	Query          string            `json:"query"`
	AgentID        string            `json:"agent_id"`
	Types          []hexmem.ItemType `json:"types,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	SemanticWeight *float64          `json:"semantic_weight,omitempty"`
	KeywordWeight  *float64          `json:"keyword_weight,omitempty"`
	RecencyWeight  *float64          `json:"recency_weight,omitempty"`
	IncludeRelated *bool             `json:"include_related,omitempty"`
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	start := time.Now()
	var req recallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	resp, err := s.recall.Recall(r.Context(), recall.Options{
		Query: req.Query, AgentID: req.AgentID, Types: req.Types, Limit: req.Limit,
		SemanticWeight: req.SemanticWeight, KeywordWeight: req.KeywordWeight, RecencyWeight: req.RecencyWeight,
		IncludeRelated: req.IncludeRelated,
	})
	status := http.StatusOK
	if err != nil {
		status = hexmem.StatusCode(hexmem.KindOf(err))
	}
	s.logQuery(r.Context(), req.AgentID, "recall", req.Query, start, status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// logQuery records a best-effort analytics entry for a search/recall call.
func (s *Server) logQuery(ctx context.Context, agentID, endpoint, query string, start time.Time, status int) {
	s.analytics.Log(ctx, store.AnalyticsEntry{
		AgentID:   agentID,
		Endpoint:  endpoint,
		QueryText: query,
		LatencyMS: time.Since(start).Milliseconds(),
		Metadata:  hexmem.JSONMap{"method": "POST", "status_code": status},
	})
}
