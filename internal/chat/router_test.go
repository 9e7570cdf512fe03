package chat

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testcrafter/internal/types"
)

type stubGenerator struct {
	calls int
	gen   *types.Generation
	err   error
}

func (g *stubGenerator) Generate(context.Context, types.Document) (*types.Generation, error) {
	g.calls++
	return g.gen, g.err
}

type stubClient struct {
	system, user string
	reply        string
	err          error
}

func (c *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *stubClient) CompleteWithSystem(_ context.Context, system, user string) (string, error) {
	c.system, c.user = system, user
	return c.reply, c.err
}

var doc = types.Document{Path: "/src/add.js", LanguageID: "javascript", Text: "function add(a,b){return a+b;}"}

func TestRouterGenerate(t *testing.T) {
	gen := &stubGenerator{gen: &types.Generation{Tests: []types.TestCase{
		{ID: "Basic Test Cases-0", Code: "assert(add(1,2)===3)"},
		{ID: "Unit Test Cases-0", Code: "assert(add(0,0)===0)"},
	}}}
	r := NewRouter(gen, nil)

	for _, text := range []string{"Please GENERATE TESTS", "can you create tests for this?"} {
		resp, err := r.Respond(context.Background(), text, doc)
		require.NoError(t, err)
		assert.Equal(t, GeneratedText, resp.Text)
		want := []types.CodeBlock{
			{Code: "assert(add(1,2)===3)", Language: "javascript"},
			{Code: "assert(add(0,0)===0)", Language: "javascript"},
		}
		if diff := cmp.Diff(want, resp.CodeBlocks); diff != "" {
			t.Errorf("CodeBlocks mismatch (-want +got):\n%s", diff)
		}
		assert.NotNil(t, resp.Generation)
	}
	assert.Equal(t, 2, gen.calls)
}

func TestRouterGenerateFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("groq API request failed with status 401: Invalid API Key")}
	r := NewRouter(gen, nil)

	_, err := r.Respond(context.Background(), "generate tests", doc)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to generate tests: "))
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestRouterGenerateNoDocument(t *testing.T) {
	gen := &stubGenerator{}
	_, err := NewRouter(gen, nil).Respond(context.Background(), "generate tests", types.Document{})
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Zero(t, gen.calls)
}

func TestRouterAnalyze(t *testing.T) {
	r := NewRouter(&stubGenerator{}, nil)

	resp, err := r.Respond(context.Background(), "Could you review this?", doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Text, "Here's my analysis of add.js:"))
	require.Len(t, resp.CodeBlocks, 1)
	assert.Equal(t, AnalysisCode, resp.CodeBlocks[0].Code)
	assert.Equal(t, "javascript", resp.CodeBlocks[0].Language)
}

func TestRouterOrderGenerateBeforeAnalyze(t *testing.T) {
	gen := &stubGenerator{gen: &types.Generation{}}
	resp, err := NewRouter(gen, nil).Respond(context.Background(), "analyze and generate tests", doc)
	require.NoError(t, err)
	assert.Equal(t, GeneratedText, resp.Text)
}

func TestRouterHelp(t *testing.T) {
	resp, err := NewRouter(&stubGenerator{}, nil).Respond(context.Background(), "hello there", doc)
	require.NoError(t, err)
	assert.Equal(t, HelpText, resp.Text)
	assert.Empty(t, resp.CodeBlocks)
}

func TestRouterDebug(t *testing.T) {
	client := &stubClient{reply: "The loop is off by one.\n```\nfor (let i = 0; i < n; i++) {}\n```\nAdd a test."}
	r := NewRouter(&stubGenerator{}, client)
	assert.Equal(t, []string{"generate", "analyze", "debug"}, r.Routes())

	resp, err := r.Respond(context.Background(), "help me fix: index out of range", doc)
	require.NoError(t, err)
	assert.Equal(t, "The loop is off by one.\nAdd a test.", resp.Text)
	require.Len(t, resp.CodeBlocks, 1)
	assert.Equal(t, "javascript", resp.CodeBlocks[0].Language)
	assert.Contains(t, client.user, doc.Text)
	assert.Contains(t, client.user, "index out of range")
}

func TestRouterAskSendsHistory(t *testing.T) {
	client := &stubClient{reply: "Use a table test.\n```\nassert(add(0, 0) === 0)\n```"}
	r := NewRouter(&stubGenerator{}, client)

	history := []types.ChatMessage{
		{Role: types.RoleUser, Content: "what does add do?"},
		{Role: types.RoleAssistant, Content: "It sums two numbers."},
		{Role: types.RoleUser, Content: "how should I test zero?"},
	}
	resp, err := r.Ask(context.Background(), history, "javascript")
	require.NoError(t, err)
	assert.Equal(t, "Use a table test.", resp.Text)
	require.Len(t, resp.CodeBlocks, 1)
	assert.Equal(t, types.CodeBlock{Code: "assert(add(0, 0) === 0)", Language: "javascript"}, resp.CodeBlocks[0])
	assert.Equal(t, types.Transcript(history), client.user)
	assert.NotEmpty(t, client.system)
	assert.Nil(t, resp.Generation)
}

func TestRouterAskErrors(t *testing.T) {
	_, err := NewRouter(&stubGenerator{}, nil).Ask(context.Background(), nil, "go")
	assert.ErrorIs(t, err, ErrNoClient)

	client := &stubClient{err: errors.New("upstream down")}
	_, err = NewRouter(&stubGenerator{}, client).Ask(context.Background(), nil, "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestRouterWithoutClientHasNoDebugRoute(t *testing.T) {
	r := NewRouter(&stubGenerator{}, nil)
	assert.Equal(t, []string{"generate", "analyze"}, r.Routes())

	resp, err := r.Respond(context.Background(), "debug this", doc)
	require.NoError(t, err)
	assert.Equal(t, HelpText, resp.Text)
}

func TestSplitCodeBlocks(t *testing.T) {
	text, blocks := SplitCodeBlocks("intro\n```python\nprint(1)\n```\noutro\n```\nunterminated", "go")
	assert.Equal(t, "intro\noutro", text)
	want := []types.CodeBlock{
		{Code: "print(1)", Language: "python"},
		{Code: "unterminated", Language: "go"},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestConversation(t *testing.T) {
	c := NewConversation()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	c.Append(types.RoleUser, "generate tests", nil)
	msg := c.Append(types.RoleAssistant, GeneratedText, []types.CodeBlock{{Code: "x", Language: "go"}})
	assert.Equal(t, fixed, msg.Timestamp)
	assert.Equal(t, 2, c.Len())

	msgs := c.Messages()
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)

	msgs[0].Content = "mutated"
	assert.Equal(t, "generate tests", c.Messages()[0].Content)

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestSinks(t *testing.T) {
	var buf bytes.Buffer
	ws := &WriterSink{W: &buf}
	require.NoError(t, ws.Accept("a := 1"))
	assert.Equal(t, "a := 1\n", buf.String())

	path := filepath.Join(t.TempDir(), "out", "accepted.js")
	fs := &FileSink{Path: path}
	require.NoError(t, fs.Accept("one()"))
	require.NoError(t, fs.Accept("two()\n"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one()\ntwo()\n", string(data))

	RejectCode("nope()")
}
