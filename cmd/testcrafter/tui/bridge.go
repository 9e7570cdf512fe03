package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"testcrafter/internal/panel"
)

// eventMsg carries a panel event into the bubbletea loop.
type eventMsg panel.Event

// Bridge forwards controller events to the program. Emit never blocks once
// the bridge is closed.
type Bridge struct {
	ch   chan panel.Event
	done chan struct{}
	once sync.Once
}

// NewBridge creates a bridge with a small buffer.
func NewBridge() *Bridge {
	return &Bridge{
		ch:   make(chan panel.Event, 64),
		done: make(chan struct{}),
	}
}

// Emit is a panel.Emitter.
func (b *Bridge) Emit(ev panel.Event) {
	select {
	case <-b.done:
		return
	default:
	}
	select {
	case b.ch <- ev:
	case <-b.done:
	}
}

// Close stops delivery.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

// wait returns a command that delivers the next event.
func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.done:
			return nil
		default:
		}
		select {
		case ev := <-b.ch:
			return eventMsg(ev)
		case <-b.done:
			return nil
		}
	}
}
