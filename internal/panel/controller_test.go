package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testcrafter/internal/chat"
	"testcrafter/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) ofType(kind string) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) statuses() []string {
	var out []string
	for _, ev := range l.ofType(EventUpdateStatus) {
		out = append(out, ev.Message)
	}
	return out
}

type stubGenerator struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, doc types.Document) (*types.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &types.Generation{
		RunID:      "run-" + string(rune('0'+g.calls)),
		SourcePath: doc.Path,
		LanguageID: doc.LanguageID,
		CreatedAt:  time.Now(),
		Tests: []types.TestCase{
			{ID: "Basic Test Cases-0", Title: "adds", Category: "Basic Test Cases", Code: "assert(add(1,2)===3)", Status: types.StatusPending},
			{ID: "Edge Case Test Cases-0", Title: "zero", Category: "Edge Case Test Cases", Code: "assert(add(0,0)===0)", Status: types.StatusPending},
		},
	}, nil
}

func (g *stubGenerator) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

type fakeArchive struct {
	mu      sync.Mutex
	saved   []string
	updates map[string]int
}

func (a *fakeArchive) SaveGeneration(_ context.Context, gen *types.Generation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, gen.RunID)
	return nil
}

func (a *fakeArchive) UpdateStatuses(_ context.Context, runID string, tests []types.TestCase) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.updates == nil {
		a.updates = make(map[string]int)
	}
	a.updates[runID] += len(tests)
	return nil
}

type fixture struct {
	ctrl    *Controller
	log     *eventLog
	gen     *stubGenerator
	archive *fakeArchive
	sink    *bytes.Buffer
	path    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "add.js")
	require.NoError(t, os.WriteFile(path, []byte("function add(a,b){return a+b;}"), 0644))

	f := &fixture{
		log:     &eventLog{},
		gen:     &stubGenerator{},
		archive: &fakeArchive{},
		sink:    &bytes.Buffer{},
		path:    path,
	}
	f.ctrl = NewController(Deps{
		Generator: f.gen,
		Archive:   f.archive,
		Sink:      &chat.WriterSink{W: f.sink},
		Debounce:  20 * time.Millisecond,
		Emit:      f.log.emit,
	})
	t.Cleanup(f.ctrl.Close)
	return f
}

func (f *fixture) open(t *testing.T) {
	t.Helper()
	require.NoError(t, f.ctrl.Handle(context.Background(), Message{Type: MsgOpenFile, Path: f.path}))
}

func TestGenerateWithoutDocument(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Handle(context.Background(), Message{Type: MsgGenerateTests})
	assert.ErrorIs(t, err, ErrNoEditor)
	assert.Equal(t, "no active editor found", err.Error())
	errs := f.log.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "No active editor found", errs[0].Message)
	assert.Zero(t, f.gen.calls)
}

func TestGenerateTests(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Welcome()
	f.open(t)

	require.NoError(t, f.ctrl.Handle(context.Background(), Message{Command: MsgGenerateTests}))

	assert.Equal(t, []string{
		StatusWelcome,
		"Current file: " + f.path,
		StatusGenerating,
		StatusGenerated,
	}, f.log.statuses())

	updates := f.log.ofType(EventTestsUpdated)
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Tests, 2)
	assert.Equal(t, "javascript", f.ctrl.Store().Current().LanguageID)
	assert.Equal(t, []string{"run-1"}, f.archive.saved)
}

func TestFailedGenerateKeepsTests(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Generate(ctx))
	before := f.ctrl.Store().Snapshot()

	f.gen.fail(errors.New("all 25 categories failed"))
	err := f.ctrl.Generate(ctx)
	require.Error(t, err)

	assert.Equal(t, before, f.ctrl.Store().Snapshot())
	statuses := f.log.statuses()
	assert.Equal(t, "Error: all 25 categories failed", statuses[len(statuses)-1])
	errs := f.log.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to generate tests: all 25 categories failed", errs[0].Message)
	assert.Len(t, f.log.ofType(EventTestsUpdated), 1)
}

func TestAcceptAndRejectTest(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Generate(ctx))

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgAcceptTest, TestID: "Basic Test Cases-0"}))
	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgRejectTest, TestID: "Edge Case Test Cases-0"}))
	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgAcceptTest, TestID: "nope"}))

	tests := f.ctrl.Store().Snapshot()
	assert.Equal(t, types.StatusAccepted, tests[0].Status)
	assert.Equal(t, types.StatusRejected, tests[1].Status)
	assert.Len(t, f.log.ofType(EventTestsUpdated), 3)
	assert.Equal(t, 2, f.archive.updates["run-1"])
}

func TestRunTests(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Generate(ctx))

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgRunAllTests}))

	for _, tc := range f.ctrl.Store().Snapshot() {
		assert.Equal(t, types.StatusPassed, tc.Status, tc.ID)
	}
	statuses := f.log.statuses()
	assert.Equal(t, []string{StatusRunning, StatusCompleted}, statuses[len(statuses)-2:])
	assert.Equal(t, 2, f.archive.updates["run-1"])
}

func TestRunTestsWithNothingHeld(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Handle(context.Background(), Message{Type: MsgRunTests})
	require.Error(t, err)
	errs := f.log.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Failed to run tests")
}

func TestSendMessageGenerate(t *testing.T) {
	f := newFixture(t)
	f.open(t)

	require.NoError(t, f.ctrl.Handle(context.Background(), Message{Type: MsgSendMessage, Message: "Please generate tests"}))

	typing := f.log.ofType(EventSetTyping)
	require.Len(t, typing, 2)
	assert.True(t, typing[0].Value)
	assert.False(t, typing[1].Value)

	replies := f.log.ofType(EventReceiveMessage)
	require.Len(t, replies, 1)
	assert.Equal(t, types.RoleAssistant, replies[0].Chat.Role)
	assert.Equal(t, chat.GeneratedText, replies[0].Chat.Content)
	assert.Len(t, replies[0].Chat.CodeBlocks, 2)

	assert.Len(t, f.ctrl.Store().Snapshot(), 2)
	assert.Equal(t, 2, f.ctrl.Conversation().Len())
}

func TestSendMessageHelp(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.Handle(context.Background(), Message{Type: MsgSendMessage, Message: "hello"}))
	replies := f.log.ofType(EventReceiveMessage)
	require.Len(t, replies, 1)
	assert.Equal(t, chat.HelpText, replies[0].Chat.Content)
	assert.Empty(t, f.ctrl.Store().Snapshot())
}

func TestSendMessageWithoutDocument(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Handle(context.Background(), Message{Type: MsgSendMessage, Message: "create tests"})
	require.Error(t, err)
	errs := f.log.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Failed to process message")
	assert.Len(t, f.log.ofType(EventSetTyping), 2)
}

type cannedClient struct {
	mu   sync.Mutex
	user string
}

func (c *cannedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *cannedClient) CompleteWithSystem(_ context.Context, _, user string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	return "Check negative numbers too.", nil
}

func TestAskQuestionSendsConversation(t *testing.T) {
	f := newFixture(t)
	client := &cannedClient{}
	f.ctrl.router = chat.NewRouter(f.gen, client)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgSendMessage, Message: "hello"}))
	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgAskQuestion, Message: "what about negatives?"}))

	replies := f.log.ofType(EventReceiveMessage)
	require.Len(t, replies, 2)
	assert.Equal(t, "Check negative numbers too.", replies[1].Chat.Content)
	assert.Equal(t, 4, f.ctrl.Conversation().Len())

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Contains(t, client.user, "user: hello")
	assert.Contains(t, client.user, "assistant: "+chat.HelpText)
	assert.Contains(t, client.user, "user: what about negatives?")
	assert.Empty(t, f.ctrl.Store().Snapshot())
}

func TestAskQuestionWithoutClient(t *testing.T) {
	f := newFixture(t)

	err := f.ctrl.Handle(context.Background(), Message{Command: MsgAskQuestion, Message: "hi"})
	assert.ErrorIs(t, err, chat.ErrNoClient)
	errs := f.log.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to process message: no completion client configured", errs[0].Message)
}

func TestAcceptAndRejectCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgAcceptCode, Code: "x := 1"}))
	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgRejectCode, Code: "y := 2"}))

	assert.Equal(t, "x := 1\n", f.sink.String())
	infos := f.log.ofType(EventInfo)
	require.Len(t, infos, 2)
	assert.Equal(t, "Code inserted successfully", infos[0].Message)
	assert.Equal(t, "Code suggestion rejected", infos[1].Message)
}

func TestToggleAutoDetect(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgToggleAutoDetect, Enabled: true}))
	assert.Eventually(t, func() bool {
		return len(f.log.ofType(EventTestsUpdated)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgToggleAutoDetect, Enabled: false}))
	assert.False(t, f.ctrl.AutoDetect().Enabled())
	statuses := f.log.statuses()
	assert.Contains(t, statuses, "Auto-detect enabled. Tests will be generated automatically.")
	assert.Equal(t, "Auto-detect disabled. Click Generate Tests to manually create tests.", statuses[len(statuses)-1])
}

func TestUnknownMessage(t *testing.T) {
	f := newFixture(t)
	err := f.ctrl.Handle(context.Background(), Message{Type: "frobnicate"})
	require.Error(t, err)
	assert.Len(t, f.log.ofType(EventError), 1)
}

func TestCloseDropsState(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	ctx := context.Background()
	require.NoError(t, f.ctrl.Handle(ctx, Message{Type: MsgSendMessage, Message: "generate tests"}))

	f.ctrl.Close()
	assert.Zero(t, f.ctrl.Conversation().Len())
	assert.Nil(t, f.ctrl.Store().Current())
}

func TestMessageKindAlias(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"command":"acceptTest","testId":"Basic Test Cases-0"}`), &m))
	assert.Equal(t, MsgAcceptTest, m.Kind())
	assert.Equal(t, "Basic Test Cases-0", m.TestID)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"toggleAutoDetect","enabled":true}`), &m))
	assert.Equal(t, MsgToggleAutoDetect, m.Kind())
	assert.True(t, m.Enabled)
}

func TestEventWireShape(t *testing.T) {
	cases := []struct {
		ev   Event
		want string
	}{
		{Event{Type: EventTestsUpdated}, `{"type":"testsUpdated","tests":[]}`},
		{Event{Type: EventUpdateStatus, Message: "Running tests...", Loading: true}, `{"type":"updateStatus","message":"Running tests...","loading":true}`},
		{Event{Type: EventSetTyping, Value: true}, `{"type":"setTyping","value":true}`},
		{Event{Type: EventError, Message: "boom"}, `{"type":"error","message":"boom"}`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.ev)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(data))
	}
}
