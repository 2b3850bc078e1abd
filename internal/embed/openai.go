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

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint. When the native model
// dimension differs from the system-wide EmbeddingDim, the result is
// truncated or zero-padded to match — the store assumes a single dimension
// across every table.
type OpenAIEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	dims    int
	client  *http.Client
	breaker *resilience.Breaker
}

// NewOpenAIEmbedder builds an OpenAIEmbedder targeting dims output length.
func NewOpenAIEmbedder(cfg OpenAIConfig, dims int) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &OpenAIEmbedder{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		dims:    dims,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.New("embed:openai", resilience.DefaultConfig()),
	}
}

type openaiEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := o.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return o.embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hexmem.ErrEmbeddingUnavailable, err)
	}
	return result.([]float32), nil
}

func (o *OpenAIEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(openaiEmbedRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embed returned status %d: %s", resp.StatusCode, string(b))
	}

	var out openaiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding data")
	}
	return fitDimension(out.Data[0].Embedding, o.dims), nil
}

// fitDimension truncates or zero-pads v to length dims.
func fitDimension(v []float32, dims int) []float32 {
	if len(v) == dims {
		return v
	}
	out := make([]float32, dims)
	copy(out, v)
	return out
}

func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatchSequential(ctx, o, texts)
}

func (o *OpenAIEmbedder) Dimensions() int { return o.dims }
func (o *OpenAIEmbedder) Name() string    { return "openai:" + o.model }

var _ Provider = (*OpenAIEmbedder)(nil)
