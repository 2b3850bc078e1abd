package extract

import "github.com/hexmem/hexmem/internal/config"

// New builds the configured Extractor.
func New(cfg config.ExtractConfig) Extractor {
	switch cfg.Provider {
	case "ollama", "openai":
		return NewLLMExtractor(LLMConfig{BaseURL: cfg.OllamaURL, Model: cfg.Model})
	default:
		return NewStub()
	}
}
