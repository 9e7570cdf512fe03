package llm

import (
	"context"
	"fmt"

	"testcrafter/internal/types"
)

const chatSystemPrompt = "You are a helpful coding assistant. Answer questions about the user's code and test cases concisely."

const debugSystemPrompt = "You are a debugging assistant. Analyze the error in the context of the code and suggest concrete fixes."

// Chat continues a conversation. The transcript is sent as "role: content"
// lines in a single user message.
func Chat(ctx context.Context, client LLMClient, messages []types.ChatMessage) (string, error) {
	return client.CompleteWithSystem(ctx, chatSystemPrompt, types.Transcript(messages))
}

// DebugSuggestions asks for an analysis of a failing piece of code.
func DebugSuggestions(ctx context.Context, client LLMClient, code, errorText string) (string, error) {
	prompt := fmt.Sprintf(`Debug the following code and error:

Code:
%s

Error:
%s

Please provide:
1. Analysis of the error
2. Potential fixes
3. Best practices to prevent similar issues`, code, errorText)
	return client.CompleteWithSystem(ctx, debugSystemPrompt, prompt)
}
