package llm

import (
	"fmt"
	"net/http"

	"testcrafter/internal/config"
	"testcrafter/internal/logging"
)

// NewClientFromConfig builds the client for cfg.Provider. A missing key is
// not an error here; it surfaces as a ConfigError on the first call.
func NewClientFromConfig(cfg config.LLMConfig) (LLMClient, error) {
	return newClient(cfg, nil)
}

// NewClientWithHTTP is NewClientFromConfig with an explicit HTTP client for
// the OpenAI-compatible providers.
func NewClientWithHTTP(cfg config.LLMConfig, httpClient *http.Client) (LLMClient, error) {
	return newClient(cfg, httpClient)
}

func newClient(cfg config.LLMConfig, httpClient *http.Client) (LLMClient, error) {
	apiKey := cfg.ResolveAPIKey()
	envVar := config.APIKeyEnvVar(cfg.Provider)
	logging.BootDebug("Creating %s client: model=%s has_key=%t", cfg.Provider, cfg.Model, apiKey != "")

	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			Provider:     cfg.Provider,
			APIKey:       apiKey,
			EnvVar:       envVar,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Timeout:      cfg.GetTimeout(),
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			TopP:         cfg.TopP,
			SystemPrompt: cfg.SystemPrompt,
			HTTPClient:   httpClient,
		}), nil
	case config.ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:       apiKey,
			EnvVar:       envVar,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Timeout:      cfg.GetTimeout(),
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			TopP:         cfg.TopP,
			SystemPrompt: cfg.SystemPrompt,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (valid: %v)", cfg.Provider, config.ValidProviders)
	}
}
