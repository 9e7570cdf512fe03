package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testcrafter/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects triggers and status messages.
type recorder struct {
	mu       sync.Mutex
	docs     []types.Document
	statuses []string
	block    bool
	cancels  int
}

func (r *recorder) trigger(ctx context.Context, doc types.Document) {
	r.mu.Lock()
	r.docs = append(r.docs, doc)
	block := r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		r.mu.Lock()
		r.cancels++
		r.mu.Unlock()
	}
}

func (r *recorder) status(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, msg)
}

func (r *recorder) triggerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *recorder) lastDoc() types.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[len(r.docs)-1]
}

func writeSource(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestAutoDetectEnableWithoutDocument(t *testing.T) {
	rec := &recorder{}
	ad := New(Options{Debounce: 20 * time.Millisecond, Trigger: rec.trigger, Status: rec.status})
	defer ad.Close()

	require.NoError(t, ad.Enable())
	assert.True(t, ad.Enabled())
	assert.False(t, ad.Watching())
	assert.Equal(t, StatusNoFile, ad.Status())
	assert.Zero(t, rec.triggerCount())
}

func TestAutoDetectEnableThenSetDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.js")
	writeSource(t, path, "function add(a,b){return a+b;}")

	rec := &recorder{}
	ad := New(Options{Debounce: 20 * time.Millisecond, Trigger: rec.trigger, Status: rec.status})
	defer ad.Close()

	require.NoError(t, ad.Enable())
	require.NoError(t, ad.SetDocument(types.Document{Path: path, LanguageID: "javascript", Text: "x"}))

	assert.True(t, ad.Watching())
	assert.Equal(t, "Current file: "+path, ad.Status())
	assert.Eventually(t, func() bool { return rec.triggerCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutoDetectRegeneratesAfterWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.js")
	other := filepath.Join(dir, "other.js")
	writeSource(t, path, "v1")

	rec := &recorder{}
	ad := New(Options{Debounce: 50 * time.Millisecond, Trigger: rec.trigger, Status: rec.status})
	defer ad.Close()

	require.NoError(t, ad.SetDocument(types.Document{Path: path, LanguageID: "javascript", Text: "v1"}))
	require.NoError(t, ad.Enable())
	assert.Equal(t, StatusEnabled, ad.Status())
	require.Eventually(t, func() bool { return rec.triggerCount() == 1 }, time.Second, 5*time.Millisecond)

	// Writes to other files in the directory are ignored.
	writeSource(t, other, "noise")

	// A burst of writes coalesces into one regeneration with fresh text.
	for i := 0; i < 5; i++ {
		writeSource(t, path, "v2")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return rec.triggerCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, rec.triggerCount())
	assert.Equal(t, "v2", rec.lastDoc().Text)
	assert.Equal(t, "javascript", rec.lastDoc().LanguageID)

	stats := ad.GetStats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.Equal(t, path, stats.LastEventPath)
}

func TestAutoDetectDisableCancelsPendingAndInflight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.js")
	writeSource(t, path, "v1")

	rec := &recorder{block: true}
	ad := New(Options{Debounce: 200 * time.Millisecond, Trigger: rec.trigger, Status: rec.status})

	require.NoError(t, ad.SetDocument(types.Document{Path: path, Text: "v1"}))
	require.NoError(t, ad.Enable())
	require.Eventually(t, func() bool { return rec.triggerCount() == 1 }, time.Second, 5*time.Millisecond)

	writeSource(t, path, "v2")
	require.Eventually(t, func() bool { return ad.debouncer.Pending() }, time.Second, 5*time.Millisecond)

	ad.Disable()

	assert.False(t, ad.Watching(), "watcher disposed")
	assert.False(t, ad.debouncer.Pending(), "pending debounce cancelled")
	assert.Equal(t, StatusDisabled, ad.Status())

	rec.mu.Lock()
	assert.Equal(t, 1, rec.cancels, "in-flight regeneration cancelled")
	rec.mu.Unlock()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.triggerCount(), "no regeneration after disable")
}

func TestAutoDetectNewTriggerCancelsInflight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.js")
	writeSource(t, path, "v1")

	rec := &recorder{block: true}
	ad := New(Options{Debounce: 20 * time.Millisecond, Trigger: rec.trigger})
	defer ad.Close()

	require.NoError(t, ad.SetDocument(types.Document{Path: path, Text: "v1"}))
	require.NoError(t, ad.Enable())
	require.Eventually(t, func() bool { return rec.triggerCount() == 1 }, time.Second, 5*time.Millisecond)

	writeSource(t, path, "v2")
	require.Eventually(t, func() bool { return rec.triggerCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.cancels == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, ad.GetStats().Cancelled)
}

func TestAutoDetectSetDocumentClears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")
	writeSource(t, path, "pass")

	rec := &recorder{}
	ad := New(Options{Debounce: 20 * time.Millisecond, Trigger: rec.trigger})
	defer ad.Close()

	require.NoError(t, ad.SetDocument(types.Document{Path: path, Text: "pass"}))
	require.NoError(t, ad.Enable())
	require.True(t, ad.Watching())

	require.NoError(t, ad.SetDocument(types.Document{}))
	assert.False(t, ad.Watching())
	assert.Equal(t, StatusNoFile, ad.Status())
}

func TestAutoDetectReloadErrorReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "add.js")
	writeSource(t, path, "v1")

	rec := &recorder{}
	ad := New(Options{
		Debounce: 20 * time.Millisecond,
		Trigger:  rec.trigger,
		Status:   rec.status,
		Reload: func(types.Document) (types.Document, error) {
			return types.Document{}, os.ErrPermission
		},
	})
	defer ad.Close()

	require.NoError(t, ad.SetDocument(types.Document{Path: path, Text: "v1"}))
	require.NoError(t, ad.Enable())
	writeSource(t, path, "v2")

	require.Eventually(t, func() bool {
		return ad.Status() == "Error: "+os.ErrPermission.Error()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, rec.triggerCount())
}
