package config

import (
	"os"
	"time"
)

// Providers supported by the completion client.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ValidProviders lists every accepted llm.provider value.
var ValidProviders = []string{ProviderGroq, ProviderOpenAI, ProviderGemini}

// DefaultSystemPrompt frames every generation request.
const DefaultSystemPrompt = "You are a test case generator assistant. Generate test cases in JSON format based on the provided code and requirements."

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider     string  `yaml:"provider"` // groq, openai, gemini
	APIKey       string  `yaml:"api_key,omitempty"`
	Model        string  `yaml:"model"`
	BaseURL      string  `yaml:"base_url,omitempty"`
	Timeout      string  `yaml:"timeout"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TopP         float64 `yaml:"top_p"`
	SystemPrompt string  `yaml:"system_prompt,omitempty"`
}

// DefaultLLMConfig returns the defaults for a provider.
func DefaultLLMConfig(provider string) LLMConfig {
	cfg := LLMConfig{
		Provider:     provider,
		Timeout:      "120s",
		Temperature:  0.7,
		MaxTokens:    4000,
		TopP:         1,
		SystemPrompt: DefaultSystemPrompt,
	}
	cfg.fillProviderDefaults()
	return cfg
}

// fillProviderDefaults sets model and base URL for the provider when unset.
func (c *LLMConfig) fillProviderDefaults() {
	switch c.Provider {
	case ProviderGroq:
		if c.Model == "" {
			c.Model = "mixtral-8x7b-32768"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.groq.com/openai/v1"
		}
	case ProviderOpenAI:
		if c.Model == "" {
			c.Model = "gpt-4o-mini"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
	case ProviderGemini:
		if c.Model == "" {
			c.Model = "gemini-2.0-flash"
		}
	}
}

// switchProvider moves to provider p. Model and base URL that still hold the
// previous provider's defaults are replaced; values set by the user are kept.
func (c *LLMConfig) switchProvider(p string) {
	if p == c.Provider {
		c.fillProviderDefaults()
		return
	}
	prev := DefaultLLMConfig(c.Provider)
	if c.Model == prev.Model {
		c.Model = ""
	}
	if c.BaseURL == prev.BaseURL {
		c.BaseURL = ""
	}
	c.Provider = p
	c.fillProviderDefaults()
}

// APIKeyEnvVar names the fallback environment variable for a provider's key.
func APIKeyEnvVar(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return "GROQ_API_KEY"
	}
}

// ResolveAPIKey returns the credential: the configured key first, then the
// provider's environment variable. Empty means no credential is available.
func (c *LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(APIKeyEnvVar(c.Provider))
}

// GetTimeout returns the per-call timeout.
func (c *LLMConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 120*time.Second)
}
