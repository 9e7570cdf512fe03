// Package chat answers free-text messages from the chat panel. Intent is
// picked by substring matching over an ordered route list.
package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"testcrafter/internal/llm"
	"testcrafter/internal/logging"
	"testcrafter/internal/types"
)

// Canned replies.
const (
	GeneratedText = "I've generated some test cases for your code:"
	AnalysisText  = "Here's my analysis of %s:\n\nThe code appears to be well-structured. Here are some suggestions:"
	AnalysisCode  = "// Consider adding error handling\ntry {\n    // Your code\n} catch (error) {\n    // Handle error\n}"
	HelpText      = "I can help you with code analysis and test generation. Try asking me to \"analyze this code\" or \"generate tests\"."
)

var (
	// ErrNoDocument is returned by routes that need an open file.
	ErrNoDocument = errors.New("no file selected")

	// ErrNoClient is returned by Ask when no completion client is configured.
	ErrNoClient = errors.New("no completion client configured")
)

// Response is the router's reply.
type Response struct {
	Text       string
	CodeBlocks []types.CodeBlock

	// Generation is set by the generate route so callers can hand it to the
	// registry.
	Generation *types.Generation
}

// Request is what a route handler sees.
type Request struct {
	Text     string
	Lower    string
	Document types.Document
}

// Route pairs a predicate over the lowercased text with its handler.
type Route struct {
	Name   string
	Match  func(lower string) bool
	Handle func(ctx context.Context, req Request) (Response, error)
}

// Router evaluates routes top to bottom; the first match answers.
type Router struct {
	routes   []Route
	fallback func(ctx context.Context, req Request) (Response, error)
	client   types.LLMClient
}

// NewRouter builds the standard route list. client may be nil, in which case
// the debug route is left out.
func NewRouter(gen types.TestGenerator, client types.LLMClient) *Router {
	r := &Router{fallback: helpResponse, client: client}

	r.routes = append(r.routes, Route{
		Name:   "generate",
		Match:  containsAny("generate test", "create test"),
		Handle: generateHandler(gen),
	})
	r.routes = append(r.routes, Route{
		Name:   "analyze",
		Match:  containsAny("analyze", "review"),
		Handle: analyzeResponse,
	})
	if client != nil {
		r.routes = append(r.routes, Route{
			Name:   "debug",
			Match:  containsAny("debug", "fix"),
			Handle: debugHandler(client),
		})
	}
	return r
}

// Routes returns the route names in evaluation order.
func (r *Router) Routes() []string {
	names := make([]string, 0, len(r.routes))
	for _, route := range r.routes {
		names = append(names, route.Name)
	}
	return names
}

// Respond answers text in the context of doc.
func (r *Router) Respond(ctx context.Context, text string, doc types.Document) (Response, error) {
	req := Request{Text: text, Lower: strings.ToLower(text), Document: doc}
	for _, route := range r.routes {
		if route.Match(req.Lower) {
			logging.ChatDebug("Respond: route=%s", route.Name)
			return route.Handle(ctx, req)
		}
	}
	logging.ChatDebug("Respond: route=help")
	return r.fallback(ctx, req)
}

// Ask sends the whole conversation to the completion client and returns its
// reply. Code fences in the reply become code blocks in language.
func (r *Router) Ask(ctx context.Context, history []types.ChatMessage, language string) (Response, error) {
	if r.client == nil {
		return Response{}, ErrNoClient
	}
	logging.ChatDebug("Ask: %d messages", len(history))
	reply, err := llm.Chat(ctx, r.client, history)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}
	text, blocks := SplitCodeBlocks(reply, language)
	return Response{Text: text, CodeBlocks: blocks}, nil
}

func containsAny(needles ...string) func(string) bool {
	return func(lower string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}
}

func generateHandler(gen types.TestGenerator) func(context.Context, Request) (Response, error) {
	return func(ctx context.Context, req Request) (Response, error) {
		if req.Document.IsZero() {
			return Response{}, fmt.Errorf("failed to generate tests: %w", ErrNoDocument)
		}
		result, err := gen.Generate(ctx, req.Document)
		if err != nil {
			return Response{}, fmt.Errorf("failed to generate tests: %w", err)
		}

		blocks := make([]types.CodeBlock, 0, len(result.Tests))
		for _, tc := range result.Tests {
			blocks = append(blocks, types.CodeBlock{Code: tc.Code, Language: req.Document.LanguageID})
		}
		logging.Chat("generated %d tests from chat", len(result.Tests))
		return Response{Text: GeneratedText, CodeBlocks: blocks, Generation: result}, nil
	}
}

func analyzeResponse(_ context.Context, req Request) (Response, error) {
	return Response{
		Text:       fmt.Sprintf(AnalysisText, displayName(req.Document.Path)),
		CodeBlocks: []types.CodeBlock{{Code: AnalysisCode, Language: req.Document.LanguageID}},
	}, nil
}

func debugHandler(client types.LLMClient) func(context.Context, Request) (Response, error) {
	return func(ctx context.Context, req Request) (Response, error) {
		if req.Document.IsZero() {
			return Response{}, ErrNoDocument
		}
		reply, err := llm.DebugSuggestions(ctx, client, req.Document.Text, req.Text)
		if err != nil {
			return Response{}, fmt.Errorf("failed to get debug suggestions: %w", err)
		}
		text, blocks := SplitCodeBlocks(reply, req.Document.LanguageID)
		return Response{Text: text, CodeBlocks: blocks}, nil
	}
}

func helpResponse(context.Context, Request) (Response, error) {
	return Response{Text: HelpText}, nil
}

func displayName(path string) string {
	if path == "" {
		return "the current file"
	}
	return filepath.Base(path)
}
