package ai

import (
	"fmt"
	"tender-marketplace-api/internal/config"
)

// NewProvider selects the provider named in the configuration. Providers
// without credentials are still returned and fail with ErrNotConfigured.
func NewProvider(cfg config.AIConfig) (Provider, error) {
	text := NewDocumentTextExtractor()

	switch cfg.Provider {
	case "", "mock":
		return NewMockProvider(text), nil
	case "gemini":
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout, text), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, "", text), nil
	}

	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}
