// Package recall implements the hybrid recall planner: fan-out
// semantic + lexical search per candidate table, merge by id, recency and
// weighted-score fusion, top-K cut, optional one-hop graph expansion, and
// best-effort access accounting.
package recall

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const (
	defaultLimit          = 20
	defaultSemanticWeight = 0.7
	defaultKeywordWeight  = 0.2
	defaultRecencyWeight  = 0.1
	graphBoostWeight      = 0.1
	maxAge                = 90 * 24 * time.Hour
	expansionCap          = 5
)

// Weights is the echoed per-request fusion weights.
type Weights struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Recency  float64 `json:"recency"`
}

// Signals holds the independently-populated per-arm scores behind a result.
// Semantic is omitted (nil) when the semantic arm didn't run or skipped
// this row; same for Keyword. GraphBoost is only set on expansion results.
type Signals struct {
	Semantic   *float64 `json:"semantic,omitempty"`
	Keyword    *float64 `json:"keyword,omitempty"`
	Recency    *float64 `json:"recency,omitempty"`
	GraphBoost *float64 `json:"graph_boost,omitempty"`
}

// Result is one recalled node, optionally carrying its one-hop neighbors.
type Result struct {
	ID        string         `json:"id"`
	Type      hexmem.ItemType `json:"type"`
	Content   string         `json:"content"`
	Score     float64        `json:"score"`
	Signals   Signals        `json:"signals"`
	Metadata  hexmem.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Related   []*Result      `json:"related,omitempty"`
}

// Response is the full /api/v1/recall response shape.
type Response struct {
	Results []*Result `json:"results"`
	Total   int       `json:"total"`
	Query   string    `json:"query"`
	Weights Weights   `json:"weights"`
}

// Options carries one recall request. The weight and IncludeRelated fields
// are pointers so the planner can distinguish "not supplied" (apply
// defaults) from an explicit zero, which
// TestRecall_RespectsExplicitZeroRecencyWeight exercises for recency_weight.
// Limit is a plain int: zero or negative applies the default limit.
type Options struct {
	Query          string
	AgentID        string
	Types          []hexmem.ItemType
	Limit          int
	SemanticWeight *float64
	KeywordWeight  *float64
	RecencyWeight  *float64
	IncludeRelated *bool
}

// Planner runs the recall operation over a Store and an optional Embedder.
type Planner struct {
	st       store.Store
	embedder embed.Provider
}

// New builds a Planner. embedder may be nil (or configured but failing);
// recall degrades to a lexical-only response.
func New(st store.Store, embedder embed.Provider) *Planner {
	return &Planner{st: st, embedder: embedder}
}

type merged struct {
	Type      hexmem.ItemType
	Content   string
	Metadata  hexmem.JSONMap
	CreatedAt time.Time
	Semantic  *float64
	Keyword   *float64
}

// Recall runs the full hybrid recall pipeline.
func (p *Planner) Recall(ctx context.Context, opts Options) (*Response, error) {
	if opts.AgentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", hexmem.ErrInvalidArgument)
	}
	if opts.Query == "" {
		return nil, fmt.Errorf("%w: query is required", hexmem.ErrInvalidArgument)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	weights := Weights{
		Semantic: floatOr(opts.SemanticWeight, defaultSemanticWeight),
		Keyword:  floatOr(opts.KeywordWeight, defaultKeywordWeight),
		Recency:  floatOr(opts.RecencyWeight, defaultRecencyWeight),
	}
	includeRelated := opts.IncludeRelated == nil || *opts.IncludeRelated
	types := opts.Types
	if len(types) == 0 {
		types = hexmem.AllItemTypes
	}

	var queryVec []float32
	if p.embedder != nil {
		v, err := p.embedder.Embed(ctx, opts.Query)
		if err != nil {
			log.Printf("recall: query embed failed, falling back to lexical-only: %v", err)
		} else {
			queryVec = v
		}
	}

	candidates := make(map[string]*merged)
	for _, t := range types {
		if queryVec != nil {
			sem, err := p.st.SemanticSearch(ctx, t, opts.AgentID, queryVec, limit)
			if err != nil {
				log.Printf("recall: semantic arm failed for %s: %v", t, err)
			}
			for _, c := range sem {
				mergeCandidate(candidates, t, c)
			}
		}
		lex, err := p.st.LexicalSearch(ctx, t, opts.AgentID, opts.Query, limit)
		if err != nil {
			log.Printf("recall: lexical arm failed for %s: %v", t, err)
		}
		for _, c := range lex {
			mergeCandidate(candidates, t, c)
		}
	}

	now := time.Now().UTC()
	results := make([]*Result, 0, len(candidates))
	for id, m := range candidates {
		recency := recencyOf(now, m.CreatedAt)
		score := weights.Semantic*valueOr(m.Semantic) + weights.Keyword*valueOr(m.Keyword) + weights.Recency*recency
		results = append(results, &Result{
			ID:      id,
			Type:    m.Type,
			Content: m.Content,
			Score:   score,
			Signals: Signals{
				Semantic: m.Semantic,
				Keyword:  m.Keyword,
				Recency:  &recency,
			},
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	if includeRelated {
		p.expand(ctx, opts.AgentID, results)
	}

	for _, r := range results {
		if err := p.st.IncrementAccess(ctx, r.Type, r.ID); err != nil {
			log.Printf("recall: access accounting failed for %s/%s: %v", r.Type, r.ID, err)
		}
	}

	return &Response{Results: results, Total: len(results), Query: opts.Query, Weights: weights}, nil
}

func mergeCandidate(out map[string]*merged, t hexmem.ItemType, c store.Candidate) {
	m, ok := out[c.ID]
	if !ok {
		m = &merged{Type: t, Content: c.Content, Metadata: c.Metadata, CreatedAt: c.CreatedAt}
		out[c.ID] = m
	}
	if c.Semantic != nil {
		m.Semantic = c.Semantic
	}
	if c.Keyword != nil {
		m.Keyword = c.Keyword
	}
}

func recencyOf(now, createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := now.Sub(createdAt)
	r := 1 - float64(age)/float64(maxAge)
	if r < 0 {
		return 0
	}
	return r
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// expand performs the one-hop graph expansion over the first
// expansionCap results, mutating each result's Related field in place.
// Dangling edges (neighbor row absent) are skipped, not errored.
func (p *Planner) expand(ctx context.Context, agentID string, results []*Result) {
	n := len(results)
	if n > expansionCap {
		n = expansionCap
	}
	for _, r := range results[:n] {
		outgoing, incoming, err := p.st.EdgesForNode(ctx, agentID, r.Type, r.ID)
		if err != nil {
			log.Printf("recall: edge expansion failed for %s/%s: %v", r.Type, r.ID, err)
			continue
		}
		for _, e := range outgoing {
			if rel := p.resolveRelated(ctx, agentID, e, e.TargetType, e.TargetID, "outgoing"); rel != nil {
				r.Related = append(r.Related, rel)
			}
		}
		for _, e := range incoming {
			if rel := p.resolveRelated(ctx, agentID, e, e.SourceType, e.SourceID, "incoming"); rel != nil {
				r.Related = append(r.Related, rel)
			}
		}
	}
}

func (p *Planner) resolveRelated(ctx context.Context, agentID string, e *hexmem.Edge, neighborType hexmem.ItemType, neighborID, direction string) *Result {
	content, _, found, err := p.st.ResolveNode(ctx, agentID, neighborType, neighborID)
	if err != nil {
		log.Printf("recall: resolve neighbor %s/%s failed: %v", neighborType, neighborID, err)
		return nil
	}
	if !found {
		return nil
	}
	weight := e.Weight
	return &Result{
		ID:      neighborID,
		Type:    neighborType,
		Content: content,
		Score:   e.Weight,
		Signals: Signals{GraphBoost: &weight},
		Metadata: hexmem.JSONMap{
			"relation":  e.Relation,
			"direction": direction,
		},
	}
}
