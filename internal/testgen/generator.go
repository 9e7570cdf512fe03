// Package testgen turns source text into test cases: one completion call per
// category, replies scanned for JSON fragments, results flattened in category
// order.
package testgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"testcrafter/internal/llm"
	"testcrafter/internal/logging"
	"testcrafter/internal/types"
)

// GenerationError is returned when every category failed. Err is the first
// failure in category order.
type GenerationError struct {
	Category string
	Failed   int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("all %d categories failed (first: %s): %v", e.Failed, e.Category, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator fans out one prompt per category to an LLM client.
type Generator struct {
	client         types.LLMClient
	categories     []string
	concurrency    int
	maxPerCategory int

	now   func() time.Time
	newID func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithConcurrency caps simultaneous completion calls. n <= 0 means no cap.
func WithConcurrency(n int) Option {
	return func(g *Generator) { g.concurrency = n }
}

// WithMaxPerCategory sets the "up to N" count in each prompt.
func WithMaxPerCategory(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxPerCategory = n
		}
	}
}

// WithCategories replaces the category list.
func WithCategories(categories []string) Option {
	return func(g *Generator) {
		g.categories = append([]string(nil), categories...)
	}
}

// NewGenerator creates a generator over client.
func NewGenerator(client types.LLMClient, opts ...Option) *Generator {
	g := &Generator{
		client:         client,
		categories:     append([]string(nil), Categories...),
		maxPerCategory: 3,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ types.TestGenerator = (*Generator)(nil)

// Generate issues exactly one completion call per category and returns the
// parsed tests in category order, all pending.
//
// A failing category contributes nothing and is listed in FailedCategories.
// Generate itself fails only on a missing credential (the ConfigError is
// returned unwrapped), on cancellation of ctx, or when every category failed.
func (g *Generator) Generate(ctx context.Context, doc types.Document) (*types.Generation, error) {
	start := time.Now()
	n := len(g.categories)
	logging.Generator("Generate: path=%s language=%s categories=%d", doc.Path, doc.LanguageID, n)

	results := make([][]types.TestCase, n)
	failures := make([]error, n)

	eg, egCtx := errgroup.WithContext(ctx)
	if g.concurrency > 0 && g.concurrency < n {
		eg.SetLimit(g.concurrency)
	}

	var parseErrors int
	var mu sync.Mutex

	for i, category := range g.categories {
		eg.Go(func() error {
			prompt := BuildPrompt(doc.Text, doc.LanguageID, category, g.maxPerCategory)
			reply, err := g.client.Complete(egCtx, prompt)
			if err != nil {
				if llm.IsConfigError(err) {
					return err
				}
				logging.GeneratorWarn("category %q failed: %v", category, err)
				failures[i] = err
				return nil
			}

			fragments, problems := ExtractFragments(reply)
			if len(problems) > 0 {
				mu.Lock()
				parseErrors += len(problems)
				mu.Unlock()
				for _, p := range problems {
					logging.GeneratorDebug("category %q: %v", category, p)
				}
			}

			tests := make([]types.TestCase, 0, len(fragments))
			for idx, f := range fragments {
				tests = append(tests, types.TestCase{
					ID:             types.TestCaseID(category, idx),
					Title:          f.Title,
					Category:       category,
					Code:           f.Code,
					Input:          f.Input,
					ExpectedOutput: f.ExpectedOutput,
					Status:         types.StatusPending,
				})
			}
			results[i] = tests
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		logging.Get(logging.CategoryGenerator).Error("Generate aborted: %v", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen := &types.Generation{
		RunID:      g.newID(),
		SourcePath: doc.Path,
		LanguageID: doc.LanguageID,
		CreatedAt:  g.now(),
		Tests:      []types.TestCase{},
	}

	var first error
	firstCategory := ""
	for i, category := range g.categories {
		if failures[i] != nil {
			gen.FailedCategories = append(gen.FailedCategories, category)
			if first == nil {
				first = failures[i]
				firstCategory = category
			}
			continue
		}
		gen.Tests = append(gen.Tests, results[i]...)
	}

	if n > 0 && len(gen.FailedCategories) == n {
		return nil, &GenerationError{Category: firstCategory, Failed: n, Err: first}
	}

	logging.Generator("Generate: %d tests, %d failed categories, %d malformed fragments in %v",
		len(gen.Tests), len(gen.FailedCategories), parseErrors, time.Since(start))
	return gen, nil
}

// IsGenerationError reports whether err is (or wraps) a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
