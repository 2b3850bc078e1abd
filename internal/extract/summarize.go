package extract

import (
	"context"
	"strings"
)

// Summarizer is the pluggable capability `summarize(sessionMessages) ->
// string|null` used when a session ends.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message) (string, error)
}

// StubSummarizer concatenates every message's content, space-separated, as a
// naive summary, used in tests and when no LLM summarizer is configured.
type StubSummarizer struct{}

func NewStubSummarizer() *StubSummarizer { return &StubSummarizer{} }

func (s *StubSummarizer) Summarize(_ context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	var parts []string
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " "), nil
}

var _ Summarizer = (*StubSummarizer)(nil)
