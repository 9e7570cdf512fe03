package types

import (
	"context"
)

// LLMClient defines the interface for completion providers.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends one user message preceded by a system message.
	// An empty systemPrompt selects the client's configured default.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TestGenerator produces test cases for a source document.
type TestGenerator interface {
	Generate(ctx context.Context, doc Document) (*Generation, error)
}

// TestRunner executes a single test case. A nil error marks the test passed.
type TestRunner interface {
	RunTest(ctx context.Context, tc TestCase, languageID string) error
}
