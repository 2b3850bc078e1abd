// Package embed provides the pluggable Embedder capability: embed,
// embedBatch, dimensions, name. The HTTP adapters (ollama, openai) wrap their
// provider call in a circuit breaker so a flapping provider surfaces ErrEmbeddingUnavailable
// quickly instead of stalling the ingestion or recall path.
package embed

import (
	"context"
)

// Provider is the Embedder capability contract.
type Provider interface {
	// Embed returns a dense vector of length Dimensions() for text, or
	// hexmem.ErrEmbeddingUnavailable if the provider cannot serve the
	// request. Callers must treat failure as non-fatal.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds each text, preserving input order. Implementations
	// may simply loop over Embed; providers with native batch endpoints
	// should override it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the fixed vector length this adapter produces.
	Dimensions() int

	// Name identifies the adapter/model for /health reporting.
	Name() string
}

// embedBatchSequential is the default EmbedBatch behavior shared by adapters
// without a native batch endpoint: embed one at a time, order preserved,
// first failure aborts the whole batch (the caller already treats embedding
// as best-effort at a higher level).
func embedBatchSequential(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
