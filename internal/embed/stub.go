package embed

import (
	"context"
	"hash/fnv"
)

// Stub is a deterministic embedder used in tests and when no provider is
// configured. It hashes the text into a repeatable pseudo-vector: identical
// inputs get identical vectors, while inputs that differ at all (even
// slightly) get unrelated vectors.
type Stub struct {
	dims int
}

// NewStub builds a deterministic embedder producing vectors of length dims.
func NewStub(dims int) *Stub {
	return &Stub{dims: dims}
}

func (s *Stub) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	v := make([]float32, s.dims)
	state := seed
	for i := range v {
		state = state*6364136223846793005 + 1442695040888963407
		v[i] = float32(int64(state>>40)%1000) / 1000.0
	}
	return v, nil
}

func (s *Stub) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatchSequential(ctx, s, texts)
}

func (s *Stub) Dimensions() int { return s.dims }
func (s *Stub) Name() string    { return "stub" }

var _ Provider = (*Stub)(nil)
