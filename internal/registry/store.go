// Package registry holds the current generation's test sequence. The Store is
// the single owner of that state; the panel, the chat router and auto-detect
// all go through it.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"testcrafter/internal/logging"
	"testcrafter/internal/types"
)

// ErrTestNotFound is returned by SetStatus for an unknown ID.
var ErrTestNotFound = errors.New("test not found")

// Ticket identifies one started generation. See Begin.
type Ticket uint64

// Listener receives a copy of the sequence after every change. Listeners may
// read the store but must not write to it.
type Listener func(tests []types.TestCase)

// Store holds the test sequence of the most recent generation.
type Store struct {
	mu        sync.RWMutex
	gen       *types.Generation
	seq       Ticket
	version   uint64 // bumped on every change
	listeners map[int]Listener
	nextID    int

	// notifyMu orders deliveries; delivered is the newest version sent.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Begin starts a generation and returns its ticket. Any earlier ticket
// becomes stale.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// Replace swaps in gen unconditionally and invalidates outstanding tickets.
func (s *Store) Replace(gen *types.Generation) {
	s.mu.Lock()
	s.seq++
	s.gen = cloneGeneration(gen)
	v, snapshot := s.changedLocked()
	s.mu.Unlock()

	logging.Registry("Replace: %d tests", len(snapshot))
	s.notify(v, snapshot)
}

// ReplaceIfCurrent swaps in gen only if ticket is still the latest Begin.
// Results of superseded generations are dropped and false is returned.
func (s *Store) ReplaceIfCurrent(ticket Ticket, gen *types.Generation) bool {
	s.mu.Lock()
	if ticket != s.seq {
		latest := s.seq
		s.mu.Unlock()
		logging.RegistryDebug("ReplaceIfCurrent: dropping stale generation (ticket=%d latest=%d)", ticket, latest)
		return false
	}
	s.gen = cloneGeneration(gen)
	v, snapshot := s.changedLocked()
	s.mu.Unlock()

	logging.Registry("Replace: %d tests (ticket=%d)", len(snapshot), ticket)
	s.notify(v, snapshot)
	return true
}

// Snapshot returns a copy of the held sequence.
func (s *Store) Snapshot() []types.TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Current returns a copy of the held generation, or nil.
func (s *Store) Current() *types.Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGeneration(s.gen)
}

// Get returns the test with the given ID.
func (s *Store) Get(id string) (types.TestCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen == nil {
		return types.TestCase{}, false
	}
	for _, tc := range s.gen.Tests {
		if tc.ID == id {
			return tc, true
		}
	}
	return types.TestCase{}, false
}

// SetStatus updates one test in place. errText is stored for failed tests
// and cleared otherwise.
func (s *Store) SetStatus(id string, status types.Status, errText string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	s.mu.Lock()
	if s.gen == nil || !s.setLocked(id, status, errText) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTestNotFound, id)
	}
	v, snapshot := s.changedLocked()
	s.mu.Unlock()

	logging.RegistryDebug("SetStatus: %s -> %s", id, status)
	s.notify(v, snapshot)
	return nil
}

// StatusUpdate is one entry of a batch applied by ApplyResults.
type StatusUpdate struct {
	ID     string
	Status types.Status
	Error  string
}

// ApplyResults applies a batch of status updates if runID still names the
// held generation. It returns false when the generation was replaced.
func (s *Store) ApplyResults(runID string, updates []StatusUpdate) bool {
	s.mu.Lock()
	if s.gen == nil || s.gen.RunID != runID {
		s.mu.Unlock()
		logging.RegistryDebug("ApplyResults: generation %s no longer held", runID)
		return false
	}
	for _, u := range updates {
		s.setLocked(u.ID, u.Status, u.Error)
	}
	v, snapshot := s.changedLocked()
	s.mu.Unlock()

	s.notify(v, snapshot)
	return true
}

// Subscribe registers fn for change notifications. The returned func
// unregisters it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Clear drops the held sequence and invalidates outstanding tickets.
func (s *Store) Clear() {
	s.mu.Lock()
	s.seq++
	s.gen = nil
	v, _ := s.changedLocked()
	s.mu.Unlock()

	logging.RegistryDebug("Clear")
	s.notify(v, nil)
}

func (s *Store) setLocked(id string, status types.Status, errText string) bool {
	for i := range s.gen.Tests {
		if s.gen.Tests[i].ID != id {
			continue
		}
		s.gen.Tests[i].Status = status
		if status == types.StatusFailed {
			s.gen.Tests[i].Error = errText
		} else {
			s.gen.Tests[i].Error = ""
		}
		return true
	}
	return false
}

func (s *Store) snapshotLocked() []types.TestCase {
	if s.gen == nil {
		return nil
	}
	return types.CloneTests(s.gen.Tests)
}

// changedLocked stamps a change and returns its version and snapshot.
func (s *Store) changedLocked() (uint64, []types.TestCase) {
	s.version++
	return s.version, s.snapshotLocked()
}

// notify delivers snapshot v unless a newer version has already gone out, so
// listeners never end on a sequence the store no longer holds.
func (s *Store) notify(v uint64, snapshot []types.TestCase) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.delivered {
		logging.RegistryDebug("notify: dropping version %d (delivered %d)", v, s.delivered)
		return
	}
	s.delivered = v

	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(types.CloneTests(snapshot))
	}
}

func cloneGeneration(gen *types.Generation) *types.Generation {
	if gen == nil {
		return nil
	}
	out := *gen
	out.Tests = types.CloneTests(gen.Tests)
	out.FailedCategories = append([]string(nil), gen.FailedCategories...)
	return &out
}
