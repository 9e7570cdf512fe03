package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"testcrafter/internal/logging"
	"testcrafter/internal/types"
	"testcrafter/internal/world"
)

// Status messages.
const (
	StatusNoFile   = "No file selected"
	StatusCurrent  = "Current file: %s"
	StatusEnabled  = "Auto-detect enabled. Tests will be generated automatically."
	StatusDisabled = "Auto-detect disabled. Click Generate Tests to manually create tests."
)

// DefaultDebounce is the quiet period before a change triggers regeneration.
const DefaultDebounce = time.Second

// TriggerFunc regenerates tests for doc. ctx is cancelled when a newer
// trigger starts or auto-detect is disabled.
type TriggerFunc func(ctx context.Context, doc types.Document)

// Options configures an AutoDetect.
type Options struct {
	Debounce time.Duration
	Trigger  TriggerFunc

	// Status receives every status change. Optional.
	Status func(message string)

	// Reload re-reads the document after a change. nil uses world.LoadDocument.
	Reload func(doc types.Document) (types.Document, error)
}

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Triggers      int
	Cancelled     int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// AutoDetect watches the current document and regenerates its tests after
// each burst of writes.
type AutoDetect struct {
	opMu sync.Mutex // serializes Enable, Disable, SetDocument, Close

	mu       sync.Mutex
	opts     Options
	doc      types.Document
	enabled  bool
	status   string
	stats    Stats
	inflight context.CancelFunc
	runSeq   uint64
	wg       sync.WaitGroup

	debouncer *Debouncer
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a disabled AutoDetect with no document.
func New(opts Options) *AutoDetect {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Reload == nil {
		opts.Reload = func(doc types.Document) (types.Document, error) {
			return world.LoadDocument(doc.Path, doc.LanguageID)
		}
	}
	return &AutoDetect{
		opts:      opts,
		status:    StatusNoFile,
		debouncer: NewDebouncer(opts.Debounce),
	}
}

// Status returns the latest status message.
func (a *AutoDetect) Status() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Enabled reports whether auto-detect is on.
func (a *AutoDetect) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Watching reports whether a file watcher is active.
func (a *AutoDetect) Watching() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.watcher != nil
}

// Document returns the current document.
func (a *AutoDetect) Document() types.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc
}

// GetStats returns a copy of the activity counters.
func (a *AutoDetect) GetStats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// SetDocument makes doc the current document. When auto-detect is on and the
// path changed, the watcher moves to the new file and tests are regenerated.
func (a *AutoDetect) SetDocument(doc types.Document) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if doc.Path != "" {
		abs, err := filepath.Abs(doc.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", doc.Path, err)
		}
		doc.Path = abs
	}

	a.mu.Lock()
	changed := a.doc.Path != doc.Path
	a.doc = doc
	enabled := a.enabled
	a.mu.Unlock()

	if doc.IsZero() {
		a.stopWatcher()
		a.debouncer.Cancel()
		a.setStatus(StatusNoFile)
		return nil
	}
	if !changed {
		return nil
	}

	a.setStatus(fmt.Sprintf(StatusCurrent, doc.Path))
	if !enabled {
		return nil
	}

	a.stopWatcher()
	a.debouncer.Cancel()
	if err := a.startWatcher(doc.Path); err != nil {
		return err
	}
	a.fire(doc)
	return nil
}

// Enable turns auto-detect on. With no current document nothing is watched
// and the status is left alone; watching starts once a document is set.
func (a *AutoDetect) Enable() error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.enabled {
		a.mu.Unlock()
		return nil
	}
	a.enabled = true
	doc := a.doc
	a.mu.Unlock()

	if doc.IsZero() {
		logging.Watch("AutoDetect: enabled with no file selected")
		return nil
	}

	if err := a.startWatcher(doc.Path); err != nil {
		a.mu.Lock()
		a.enabled = false
		a.mu.Unlock()
		return err
	}
	a.setStatus(StatusEnabled)
	a.fire(doc)
	return nil
}

// Disable closes the watcher and cancels both the pending debounced
// regeneration and any in-flight one, waiting for it to return.
func (a *AutoDetect) Disable() {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	wasEnabled := a.enabled
	a.enabled = false
	a.mu.Unlock()

	a.stopWatcher()
	a.debouncer.Cancel()
	a.cancelInflight()
	a.wg.Wait()

	if wasEnabled {
		a.setStatus(StatusDisabled)
	}
}

// Close disables auto-detect. The AutoDetect may be enabled again later.
func (a *AutoDetect) Close() {
	a.Disable()
}

func (a *AutoDetect) setStatus(msg string) {
	a.mu.Lock()
	a.status = msg
	fn := a.opts.Status
	a.mu.Unlock()

	logging.WatchDebug("status: %s", msg)
	if fn != nil {
		fn(msg)
	}
}

// fire cancels the in-flight regeneration and starts a new one. It does
// nothing once auto-detect is disabled.
func (a *AutoDetect) fire(doc types.Document) {
	if a.opts.Trigger == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		cancel()
		return
	}
	if a.inflight != nil {
		a.inflight()
		a.stats.Cancelled++
	}
	a.runSeq++
	mine := a.runSeq
	a.inflight = cancel
	a.stats.Triggers++
	a.wg.Add(1)
	a.mu.Unlock()

	logging.Watch("AutoDetect: regenerating tests for %s", doc.Path)
	go func() {
		defer a.wg.Done()
		a.opts.Trigger(ctx, doc)
		cancel()

		a.mu.Lock()
		if a.runSeq == mine {
			a.inflight = nil
		}
		a.mu.Unlock()
	}()
}

func (a *AutoDetect) cancelInflight() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight != nil {
		a.inflight()
		a.inflight = nil
	}
}

// =============================================================================
// FSNOTIFY LOOP
// =============================================================================

// startWatcher watches the directory holding path so rename-over-original
// saves are seen. handleEvent filters everything but path itself.
func (a *AutoDetect) startWatcher(path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	a.mu.Lock()
	a.watcher = w
	a.stopCh = stopCh
	a.doneCh = doneCh
	a.mu.Unlock()

	logging.Watch("AutoDetect: watching %s", path)
	go a.run(w, stopCh, doneCh)
	return nil
}

func (a *AutoDetect) stopWatcher() {
	a.mu.Lock()
	w, stopCh, doneCh := a.watcher, a.stopCh, a.doneCh
	a.watcher, a.stopCh, a.doneCh = nil, nil, nil
	a.mu.Unlock()

	if w == nil {
		return
	}
	close(stopCh)
	<-doneCh
	if err := w.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("AutoDetect: error closing watcher: %v", err)
	}
	logging.Watch("AutoDetect: stopped watching")
}

func (a *AutoDetect) run(w *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			a.handleEvent(event)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("AutoDetect: watcher error: %v", err)
			a.mu.Lock()
			a.stats.Errors++
			a.mu.Unlock()
		}
	}
}

func (a *AutoDetect) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	a.mu.Lock()
	current := a.doc.Path
	if filepath.Clean(event.Name) != current {
		a.mu.Unlock()
		return
	}
	a.stats.Events++
	a.stats.LastEventPath = event.Name
	a.stats.LastEventTime = time.Now()
	a.mu.Unlock()

	logging.WatchDebug("AutoDetect: %s %s", event.Op, event.Name)
	a.debouncer.Debounce(a.onSettled)
}

// onSettled runs once writes to the current file have gone quiet.
func (a *AutoDetect) onSettled() {
	a.mu.Lock()
	enabled := a.enabled
	doc := a.doc
	a.mu.Unlock()
	if !enabled || doc.IsZero() {
		return
	}

	fresh, err := a.opts.Reload(doc)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("AutoDetect: reload %s: %v", doc.Path, err)
		a.mu.Lock()
		a.stats.Errors++
		a.mu.Unlock()
		a.setStatus("Error: " + err.Error())
		return
	}

	a.mu.Lock()
	if !a.enabled || a.doc.Path != doc.Path {
		a.mu.Unlock()
		return
	}
	a.doc = fresh
	a.mu.Unlock()

	a.fire(fresh)
}
