// Package dedup implements the two-stage near-duplicate detector used by
// the direct-write API: trigram similarity first, then cosine
// similarity over embeddings when the syntactic stage finds nothing.
package dedup

import (
	"context"

	"github.com/hexmem/hexmem/internal/embed"
	"github.com/hexmem/hexmem/internal/store"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

const (
	trigramThreshold = 0.6
	semanticThreshold = 0.92
)

// Match is a positive dedup result: the candidate text is considered the
// same item as ExistingID.
type Match struct {
	ExistingID string
	Similarity float64
}

// Checker runs the two-stage check for one item type, scoped to an agent.
type Checker struct {
	st    store.Store
	embed embed.Provider // may be nil: semantic stage is then skipped
}

func New(st store.Store, embedder embed.Provider) *Checker {
	return &Checker{st: st, embed: embedder}
}

// Check returns a Match if canonicalText duplicates an existing active row
// of type t for agentID, per the fixed thresholds above. A nil Match with a nil
// error means no duplicate was found. Dedup infrastructure failures
// (missing index, embedder error) fall through to "no match" rather than
// propagating.
func (c *Checker) Check(ctx context.Context, t hexmem.ItemType, agentID string, canonicalText string) (*Match, error) {
	if id, sim, found, err := c.st.TrigramMatch(ctx, t, agentID, canonicalText); err == nil && found && sim >= trigramThreshold {
		return &Match{ExistingID: id, Similarity: sim}, nil
	}

	if c.embed == nil {
		return nil, nil
	}
	vec, err := c.embed.Embed(ctx, canonicalText)
	if err != nil {
		return nil, nil
	}
	id, sim, found, err := c.st.CosineMatch(ctx, t, agentID, vec)
	if err != nil || !found || sim < semanticThreshold {
		return nil, nil
	}
	return &Match{ExistingID: id, Similarity: sim}, nil
}

// CanonicalText builds the canonical embedding/comparison text for an item
// type, matching the table's lexical search expression.
func CanonicalText(t hexmem.ItemType, fields map[string]string) string {
	switch t {
	case hexmem.TypeFact:
		return fields["content"]
	case hexmem.TypeDecision:
		return fields["title"] + ": " + fields["decision"]
	case hexmem.TypeTask:
		return fields["title"]
	case hexmem.TypeEvent:
		return fields["title"]
	case hexmem.TypeSessionMessage:
		return fields["content"]
	default:
		return ""
	}
}
