package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/hexmem/hexmem/pkg/hexmem"
)

const defaultSearchThreshold = 0.3

// SearchResult is one row of a direct vector search.
type SearchResult struct {
	ID         string          `json:"id"`
	Type       hexmem.ItemType `json:"type"`
	Content    string          `json:"content"`
	Similarity float64         `json:"similarity"`
}

// SearchOptions carries one direct-search request.
type SearchOptions struct {
	Query     string
	AgentID   string
	Types     []hexmem.ItemType
	Limit     int
	Threshold *float64
}

// Search runs the direct vector search: embedder-required,
// unblended by lexical or recency signals, merged across types and
// re-sorted by similarity. Fails with ErrEmbeddingUnavailable when no
// embedder is configured, surfaced as 503 by the HTTP layer.
func (p *Planner) Search(ctx context.Context, opts SearchOptions) ([]*SearchResult, error) {
	if opts.AgentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument)
	}
	if opts.Query == "" {
		return nil, fmt.Errorf("%w: query is required", hexmem.ErrInvalidArgument)
	}
	if p.embedder == nil {
		return nil, hexmem.ErrEmbeddingUnavailable
	}

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	threshold := defaultSearchThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}

	vec, err := p.embedder.Embed(ctx, opts.Query)
	if err != nil {
		return nil, hexmem.ErrEmbeddingUnavailable
	}

	types := opts.Types
	if len(types) == 0 {
		types = hexmem.AllItemTypes
	}

	var out []*SearchResult
	for _, t := range types {
		candidates, err := p.st.SemanticSearch(ctx, t, opts.AgentID, vec, limit)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", t, err)
		}
		for _, c := range candidates {
			if c.Semantic == nil || *c.Semantic <= threshold {
				continue
			}
			out = append(out, &SearchResult{ID: c.ID, Type: t, Content: c.Content, Similarity: *c.Semantic})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
