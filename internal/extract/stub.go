package extract

import "context"

// Stub always returns four empty arrays. Used in tests and when no
// extraction provider is configured — extraction is always best-effort, so
// an always-empty extractor is a valid configuration.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Extract(_ context.Context, _ Message, _ []Message) (Result, error) {
	return emptyResult(), nil
}

var _ Extractor = (*Stub)(nil)
