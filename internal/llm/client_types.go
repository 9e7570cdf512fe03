package llm

import (
	"net/http"
	"time"
)

// OpenAIConfig holds configuration for an OpenAI-compatible client.
type OpenAIConfig struct {
	Provider     string // groq or openai, used in errors and logs
	APIKey       string
	EnvVar       string // named in the ConfigError when APIKey is empty
	BaseURL      string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	TopP         float64
	SystemPrompt string
	HTTPClient   *http.Client // nil = default client
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey       string
	EnvVar       string
	BaseURL      string // optional endpoint override
	Model        string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	TopP         float64
	SystemPrompt string
}

// ChatMessage is one message in a chat-completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the chat-completion request body. Stream is always
// sent so the endpoint never defaults to streaming.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

// ChatCompletionResponse is the subset of the reply the client reads.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *apiErrorBody `json:"error,omitempty"`
}

type apiErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type errorEnvelope struct {
	Error *apiErrorBody `json:"error"`
}
