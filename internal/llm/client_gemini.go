package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"testcrafter/internal/config"
	"testcrafter/internal/logging"
)

// =============================================================================
// GOOGLE GENAI COMPLETION CLIENT
// =============================================================================

// GeminiClient implements LLMClient on the Google GenAI SDK.
type GeminiClient struct {
	cfg GeminiConfig

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiClient creates a Gemini client. The SDK client is built on the
// first call so a missing key surfaces as a ConfigError there.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &GeminiClient{cfg: cfg}
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  c.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = client
	return client, nil
}

// Complete sends a prompt with the configured default system instruction.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends one GenerateContent request.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.cfg.APIKey == "" {
		logging.APIError("[gemini] CompleteWithSystem: API key not configured")
		return "", &ConfigError{Provider: config.ProviderGemini, EnvVar: c.cfg.EnvVar}
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	client, err := c.sdk(ctx)
	if err != nil {
		return "", &UpstreamError{Provider: config.ProviderGemini, Err: err}
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = c.cfg.SystemPrompt
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.cfg.Temperature)),
		TopP:        genai.Ptr(float32(c.cfg.TopP)),
	}
	if c.cfg.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	if strings.TrimSpace(systemPrompt) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		logging.APIError("[gemini] CompleteWithSystem: failed after %v: %v", time.Since(start), err)
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{Provider: config.ProviderGemini, StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return "", &UpstreamError{Provider: config.ProviderGemini, Err: err}
	}

	text := resp.Text()
	logging.API("[gemini] CompleteWithSystem: completed in %v response_len=%d", time.Since(start), len(text))
	return text, nil
}
