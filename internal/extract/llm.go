package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hexmem/hexmem/internal/resilience"
)

// LLMConfig configures an LLMExtractor. Only Ollama's /api/generate shape is
// spoken directly; OpenAI-compatible providers can be pointed at the same
// adapter by setting BaseURL/Model accordingly since both expose a simple
// prompt-completion endpoint at this level of the stack.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMExtractor asks a single structured-JSON completion prompt for
// {facts, decisions, tasks, events} and parses the response defensively:
// it tolerates a ```json fenced block and leading/trailing commentary
// around the JSON object, since real models rarely return bare JSON.
type LLMExtractor struct {
	baseURL string
	model   string
	client  *http.Client
	breaker *resilience.Breaker
}

// NewLLMExtractor builds an LLMExtractor.
func NewLLMExtractor(cfg LLMConfig) *LLMExtractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen2.5:7b"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &LLMExtractor{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: resilience.New("extract:llm", resilience.DefaultConfig()),
	}
}

func (e *LLMExtractor) Extract(ctx context.Context, current Message, recentContext []Message) (Result, error) {
	result, err := e.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return e.extract(ctx, current, recentContext)
	})
	if err != nil {
		return emptyResult(), err
	}
	return result.(Result), nil
}

func (e *LLMExtractor) extract(ctx context.Context, current Message, recentContext []Message) (Result, error) {
	prompt := buildPrompt(current, recentContext)

	body, err := json.Marshal(map[string]interface{}{
		"model":  e.model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("extractor returned status %d: %s", resp.StatusCode, string(b))
	}

	var gen struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return Result{}, err
	}

	return parseResponse(gen.Response)
}

func buildPrompt(current Message, recentContext []Message) string {
	var b strings.Builder
	b.WriteString("You extract structured memory items from a conversation message.\n")
	b.WriteString("Return ONLY a JSON object with keys facts, decisions, tasks, events (arrays, possibly empty).\n")
	b.WriteString("facts: {content, subject, confidence, tags}\n")
	b.WriteString("decisions: {title, decision, rationale, alternatives, tags}\n")
	b.WriteString("tasks: {title, description, priority, tags}\n")
	b.WriteString("events: {title, event_type, description, severity, tags}\n\n")
	if len(recentContext) > 0 {
		b.WriteString("Recent context:\n")
		for _, m := range recentContext {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Current message (%s): %s\n", current.Role, current.Content)
	return b.String()
}

// parseResponse tolerates a fenced ```json block and any leading/trailing
// commentary around the JSON object.
func parseResponse(raw string) (Result, error) {
	jsonStr := extractJSONObject(raw)
	if jsonStr == "" {
		return Result{}, fmt.Errorf("extractor: no JSON object found in response")
	}

	var payload struct {
		Facts     []ExtractedFact     `json:"facts"`
		Decisions []ExtractedDecision `json:"decisions"`
		Tasks     []ExtractedTask     `json:"tasks"`
		Events    []ExtractedEvent    `json:"events"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return Result{}, fmt.Errorf("extractor: malformed JSON: %w", err)
	}

	for i := range payload.Tasks {
		if payload.Tasks[i].Priority == 0 {
			payload.Tasks[i].Priority = 50
		}
	}

	return Result{
		Facts:     payload.Facts,
		Decisions: payload.Decisions,
		Tasks:     payload.Tasks,
		Events:    payload.Events,
	}, nil
}

// extractJSONObject strips a ```json fence if present and returns the
// substring spanning the first '{' through its matching last '}'.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

var _ Extractor = (*LLMExtractor)(nil)
