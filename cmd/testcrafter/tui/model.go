// Package tui implements the interactive chat panel on top of the panel
// controller using bubbletea.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"testcrafter/cmd/testcrafter/ui"
	"testcrafter/internal/panel"
	"testcrafter/internal/types"
)

// Layout
const (
	headerHeight = 2
	footerHeight = 1
	inputHeight  = 3
)

// entry is one line of the transcript.
type entry struct {
	role    types.Role
	content string
	blocks  []types.CodeBlock
	isError bool
	isInfo  bool
	time    time.Time
}

// handledMsg reports that a controller call returned. Failures already
// arrived as error events.
type handledMsg struct{ err error }

// Model is the chat panel.
type Model struct {
	ctx    context.Context
	ctrl   *panel.Controller
	bridge *Bridge

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	history    []entry
	tests      []types.TestCase
	lastBlocks []types.CodeBlock
	status     string
	loading    bool
	typing     bool
	showTests  bool

	width  int
	height int
	ready  bool
}

// New creates the model. The controller must emit into bridge.
func New(ctx context.Context, ctrl *panel.Controller, bridge *Bridge, styles ui.Styles) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about your code, or /help (Enter to send, Ctrl+C to exit)"
	ta.Focus()
	ta.Prompt = "│ "
	ta.CharLimit = 8192
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight - 1)
	ta.SetWidth(80)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		bridge:    bridge,
		textarea:  ta,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		styles:    styles,
		renderer:  newRenderer(styles, 76),
		showTests: true,
	}
}

func newRenderer(styles ui.Styles, wrap int) *glamour.TermRenderer {
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.bridge.wait(),
		func() tea.Msg {
			m.ctrl.Welcome()
			return nil
		},
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		cmds  []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}
		m.textarea, taCmd = m.textarea.Update(msg)
		return m, taCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - headerHeight - footerHeight - inputHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(msg.Width - 2)
		m.renderer = newRenderer(m.styles, msg.Width-6)
		m.refresh()

	case spinner.TickMsg:
		m.spinner, taCmd = m.spinner.Update(msg)
		return m, taCmd

	case eventMsg:
		m.applyEvent(panel.Event(msg))
		m.refresh()
		cmds = append(cmds, m.bridge.wait())

	case handledMsg:
		// Nothing to do; state changes arrive as events.
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)
	return m, tea.Batch(cmds...)
}

// applyEvent folds one controller event into the model.
func (m *Model) applyEvent(ev panel.Event) {
	switch ev.Type {
	case panel.EventTestsUpdated:
		m.tests = ev.Tests
	case panel.EventUpdateStatus:
		m.status = ev.Message
		m.loading = ev.Loading
	case panel.EventSetTyping:
		m.typing = ev.Value
	case panel.EventReceiveMessage:
		if ev.Chat == nil {
			return
		}
		m.lastBlocks = ev.Chat.CodeBlocks
		m.history = append(m.history, entry{
			role:    ev.Chat.Role,
			content: ev.Chat.Content,
			blocks:  ev.Chat.CodeBlocks,
			time:    ev.Chat.Timestamp,
		})
	case panel.EventError:
		m.history = append(m.history, entry{role: types.RoleSystem, content: ev.Message, isError: true, time: time.Now()})
	case panel.EventInfo:
		m.history = append(m.history, entry{role: types.RoleSystem, content: ev.Message, isInfo: true, time: time.Now()})
	}
}

// submit handles Enter.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.textarea.Value()
	if text == "" {
		return m, nil
	}
	m.textarea.Reset()

	msg, action, err := parseInput(text, m.tests, m.lastBlocks)
	if err != nil {
		m.history = append(m.history, entry{role: types.RoleSystem, content: err.Error(), isError: true, time: time.Now()})
		m.refresh()
		return m, nil
	}

	switch action {
	case actQuit:
		return m, tea.Quit
	case actHelp:
		m.history = append(m.history, entry{role: types.RoleSystem, content: helpText, isInfo: true, time: time.Now()})
		m.refresh()
		return m, nil
	case actToggleTests:
		m.showTests = !m.showTests
		m.refresh()
		return m, nil
	case actClear:
		m.history = nil
		m.refresh()
		return m, nil
	}

	if msg.Type == panel.MsgSendMessage || msg.Type == panel.MsgAskQuestion {
		m.history = append(m.history, entry{role: types.RoleUser, content: msg.Message, time: time.Now()})
		m.refresh()
	}
	return m, m.handle(msg)
}

// handle runs a controller call off the UI goroutine.
func (m Model) handle(msg panel.Message) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return handledMsg{err: ctrl.Handle(ctx, msg)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderBody())
	m.viewport.GotoBottom()
}
