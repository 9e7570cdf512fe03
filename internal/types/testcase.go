// Package types holds the records shared by the generator, the registry, the
// chat router and the panel protocol.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TEST CASE
// =============================================================================

// Status is the lifecycle state of a generated test case.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPassed, StatusFailed, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// TestCase is one generated test record.
// ID is "<category>-<index>" and is only unique within a single generation.
type TestCase struct {
	ID             string `json:"id" yaml:"id"`
	Title          string `json:"title" yaml:"title"`
	Category       string `json:"category" yaml:"category"`
	Code           string `json:"code" yaml:"code"`
	Input          string `json:"input" yaml:"input"`
	ExpectedOutput string `json:"expectedOutput" yaml:"expected_output"`
	Status         Status `json:"status" yaml:"status"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// TestCaseID builds the per-generation identifier for the index-th fragment of a category.
func TestCaseID(category string, index int) string {
	return fmt.Sprintf("%s-%d", category, index)
}

// Generation is the full result of one generate call.
type Generation struct {
	RunID            string     `json:"runId" yaml:"run_id"`
	SourcePath       string     `json:"sourcePath,omitempty" yaml:"source_path,omitempty"`
	LanguageID       string     `json:"languageId" yaml:"language_id"`
	CreatedAt        time.Time  `json:"createdAt" yaml:"created_at"`
	Tests            []TestCase `json:"tests" yaml:"tests"`
	FailedCategories []string   `json:"failedCategories,omitempty" yaml:"failed_categories,omitempty"`
}

// CountByStatus tallies the tests of a generation per status.
func (g Generation) CountByStatus() map[Status]int {
	counts := make(map[Status]int)
	for _, tc := range g.Tests {
		counts[tc.Status]++
	}
	return counts
}

// CloneTests returns a deep copy of the test slice so callers can hand it out
// without sharing backing arrays.
func CloneTests(tests []TestCase) []TestCase {
	if tests == nil {
		return nil
	}
	out := make([]TestCase, len(tests))
	copy(out, tests)
	return out
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the source file tests are generated for.
type Document struct {
	Path       string `json:"path"`
	LanguageID string `json:"languageId"`
	Text       string `json:"-"`
}

// IsZero reports whether no document is selected.
func (d *Document) IsZero() bool {
	return d == nil || (d.Path == "" && d.Text == "")
}

// =============================================================================
// CHAT
// =============================================================================

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// CodeBlock is a snippet attached to an assistant reply.
type CodeBlock struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// ChatMessage is one entry of a conversation.
type ChatMessage struct {
	Role       Role        `json:"type"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	CodeBlocks []CodeBlock `json:"codeBlocks,omitempty"`
}

// Transcript renders messages as "role: content" lines.
func Transcript(messages []ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
