// Package graph implements the edge graph operations: upsert with
// defaults, filtered listing, and the bidirectional node view consumed by
// GET /api/v1/edges/graph/:type/:id. This is the direct graph surface;
// the one-hop expansion folded into recall results lives in package recall.
package graph

import (
	"context"
	"fmt"

	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const defaultWeight = 1.0

// Service wraps the store's edge operations with the request-shape
// defaults and node-resolution logic the direct graph endpoints need.
type Service struct {
	st store.Store
}

func New(st store.Store) *Service {
	return &Service{st: st}
}

// EdgeInput carries the caller-supplied subset of Edge fields for upsert.
type EdgeInput struct {
	AgentID    string
	SourceType hexmem.ItemType
	SourceID   string
	TargetType hexmem.ItemType
	TargetID   string
	Relation   string
	Weight     *float64
	Metadata   hexmem.JSONMap
}

// Upsert creates or updates an edge keyed on the (source, target, relation)
// tuple; agent_id is not part of the key, applying the weight=1.0 / metadata={} defaults.
func (s *Service) Upsert(ctx context.Context, in EdgeInput) (*hexmem.Edge, error) {
	weight := defaultWeight
	if in.Weight != nil {
		weight = *in.Weight
	}
	meta := in.Metadata
	if meta == nil {
		meta = hexmem.JSONMap{}
	}
	e := &hexmem.Edge{
		AgentID:    in.AgentID,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Relation:   in.Relation,
		Weight:     weight,
		Metadata:   meta,
	}
	saved, err := s.st.UpsertEdge(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("upsert edge: %w", err)
	}
	return saved, nil
}

// List returns edges matching any subset of filter's fields.
func (s *Service) List(ctx context.Context, filter store.EdgeFilter) ([]*hexmem.Edge, error) {
	return s.st.ListEdges(ctx, filter)
}

// Delete removes an edge by id; idempotent-safe at the HTTP layer (404 if
// not found) since the store already returns hexmem.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.st.DeleteEdge(ctx, id)
}

// Node is a resolved graph endpoint: the content/metadata the node
// currently holds, independent of which table backs it.
type Node struct {
	Type     hexmem.ItemType `json:"type"`
	ID       string          `json:"id"`
	Content  string          `json:"content"`
	Metadata hexmem.JSONMap  `json:"metadata,omitempty"`
}

// View is the bidirectional node view: the node itself plus its
// outgoing and incoming edges. A rare self-edge (source == target) appears
// in both lists without deduplication.
type View struct {
	Node     Node          `json:"node"`
	Outgoing []*hexmem.Edge `json:"outgoing"`
	Incoming []*hexmem.Edge `json:"incoming"`
	Total    int           `json:"total"`
}

// NodeView resolves a node and its incident edges for the graph endpoint.
func (s *Service) NodeView(ctx context.Context, agentID string, t hexmem.ItemType, id string) (*View, error) {
	content, meta, found, err := s.st.ResolveNode(ctx, agentID, t, id)
	if err != nil {
		return nil, fmt.Errorf("resolve node: %w", err)
	}
	if !found {
		return nil, hexmem.ErrNotFound
	}
	outgoing, incoming, err := s.st.EdgesForNode(ctx, agentID, t, id)
	if err != nil {
		return nil, fmt.Errorf("edges for node: %w", err)
	}
	return &View{
		Node:     Node{Type: t, ID: id, Content: content, Metadata: meta},
		Outgoing: outgoing,
		Incoming: incoming,
		Total:    len(outgoing) + len(incoming),
	}, nil
}
