// Package llm talks to chat-completion providers. Every client sends exactly
// one request per call; there is no retry and no streaming.
package llm

import "testcrafter/internal/types"

// LLMClient is the completion interface the generator and chat router use.
type LLMClient = types.LLMClient

var (
	_ LLMClient = (*OpenAIClient)(nil)
	_ LLMClient = (*GeminiClient)(nil)
)
