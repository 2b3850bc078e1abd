package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hexmem/hexmem/internal/resilience"
	"github.com/hexmem/hexmem/pkg/hexmem"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OllamaEmbedder calls a local Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
	breaker *resilience.Breaker
}

// NewOllamaEmbedder builds an OllamaEmbedder with sensible defaults.
func NewOllamaEmbedder(cfg OllamaConfig, dims int) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &OllamaEmbedder{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		dims:    dims,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.New("embed:ollama", resilience.DefaultConfig()),
	}
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := o.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return o.embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hexmem.ErrEmbeddingUnavailable, err)
	}
	return result.([]float32), nil
}

func (o *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned status %d: %s", resp.StatusCode, string(b))
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}
	return out.Embeddings[0], nil
}

func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatchSequential(ctx, o, texts)
}

func (o *OllamaEmbedder) Dimensions() int { return o.dims }
func (o *OllamaEmbedder) Name() string    { return "ollama:" + o.model }

var _ Provider = (*OllamaEmbedder)(nil)
