package embed

import "github.com/hexmem/hexmem/internal/config"

// New builds the configured Provider.
func New(cfg config.EmbedConfig) Provider {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(OpenAIConfig{APIKey: cfg.OpenAIKey, Model: cfg.Model}, cfg.Dimensions)
	case "ollama":
		return NewOllamaEmbedder(OllamaConfig{BaseURL: cfg.OllamaURL, Model: cfg.Model}, cfg.Dimensions)
	default:
		return NewStub(cfg.Dimensions)
	}
}
