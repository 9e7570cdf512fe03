package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"testcrafter/internal/logging"
)

// OpenAIClient implements LLMClient for OpenAI-compatible chat-completion
// endpoints. Groq and OpenAI both speak this protocol.
type OpenAIClient struct {
	provider     string
	apiKey       string
	envVar       string
	baseURL      string
	model        string
	temperature  float64
	maxTokens    int
	topP         float64
	systemPrompt string
	timeout      time.Duration
	httpClient   *http.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		provider:     cfg.Provider,
		apiKey:       cfg.APIKey,
		envVar:       cfg.EnvVar,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		topP:         cfg.TopP,
		systemPrompt: cfg.SystemPrompt,
		timeout:      cfg.Timeout,
		httpClient:   httpClient,
	}
}

// Complete sends a prompt with the configured default system message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message. An empty
// systemPrompt falls back to the configured default; when that is empty too,
// only the user message is sent.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		logging.APIError("[%s] CompleteWithSystem: API key not configured", c.provider)
		return "", &ConfigError{Provider: c.provider, EnvVar: c.envVar}
	}

	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[%s] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.provider, c.model, len(systemPrompt), len(userPrompt))

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = c.systemPrompt
	}

	messages := make([]ChatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userPrompt})

	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
		Stream:      false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		logging.APIError("[%s] CompleteWithSystem: request failed after %v: %v", c.provider, time.Since(startTime), err)
		return "", &UpstreamError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: c.provider, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := upstreamMessage(resp.StatusCode, body)
		logging.APIError("[%s] CompleteWithSystem: status %d: %s", c.provider, resp.StatusCode, msg)
		return "", &UpstreamError{Provider: c.provider, StatusCode: resp.StatusCode, Message: msg}
	}

	var completion ChatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", &UpstreamError{Provider: c.provider, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if completion.Error != nil {
		return "", &UpstreamError{Provider: c.provider, Message: completion.Error.Message}
	}

	if len(completion.Choices) == 0 {
		logging.APIError("[%s] CompleteWithSystem: no completion returned", c.provider)
		return "", &UpstreamError{Provider: c.provider, Message: "no completion returned"}
	}

	content := completion.Choices[0].Message.Content
	logging.API("[%s] CompleteWithSystem: completed in %v response_len=%d", c.provider, time.Since(startTime), len(content))
	return content, nil
}

// upstreamMessage extracts error.message from an error body, falling back to
// the raw body and then the status text.
func upstreamMessage(status int, body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return http.StatusText(status)
}
