package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"testcrafter/internal/types"
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.textarea.View(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render("Test Crafter")

	status := m.status
	if m.loading || m.typing {
		status = m.spinner.View() + " " + status
		if m.typing && !m.loading {
			status = m.spinner.View() + " thinking..."
		}
	}
	doc := m.ctrl.Document()
	file := "no file"
	if !doc.IsZero() {
		file = doc.Path
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", m.styles.Muted.Render(file))
	return line + "\n" + m.styles.Info.Render(status)
}

func (m Model) renderFooter() string {
	auto := "auto-detect off"
	if ad := m.ctrl.AutoDetect(); ad.Enabled() && ad.Watching() {
		auto = "auto-detect on"
	} else if ad.Enabled() {
		auto = "auto-detect on (no file)"
	}
	counts := countStatuses(m.tests)
	return m.styles.Footer.Render(fmt.Sprintf("%d tests (%s) · %s · /help", len(m.tests), counts, auto))
}

// renderBody renders the transcript followed by the test list.
func (m Model) renderBody() string {
	var b strings.Builder
	for _, e := range m.history {
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	if m.showTests && len(m.tests) > 0 {
		b.WriteString(m.styles.RenderDivider(max(m.width-2, 10)))
		b.WriteString("\n")
		b.WriteString(m.renderTests())
	}
	return b.String()
}

func (m Model) renderEntry(e entry) string {
	switch {
	case e.isError:
		return m.styles.Error.Render("! " + e.content)
	case e.isInfo:
		return m.styles.Info.Render(e.content)
	case e.role == types.RoleUser:
		return m.styles.UserLabel.Render("you") + "\n" + m.styles.UserInput.Render(e.content)
	}

	md := e.content
	for i, block := range e.blocks {
		md += fmt.Sprintf("\n\n**[%d]**\n```%s\n%s\n```", i+1, block.Language, block.Code)
	}
	return m.styles.AgentLabel.Render("assistant") + "\n" + m.styles.AgentResponse.Render(m.renderMarkdown(md))
}

func (m Model) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderTests() string {
	var b strings.Builder
	for i, tc := range m.tests {
		fmt.Fprintf(&b, "%3d %s %s\n", i+1, m.styles.RenderStatus(tc.Status), tc.Title)
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("    %s", tc.ID)))
		b.WriteString("\n")
		if tc.Error != "" {
			b.WriteString(m.styles.Error.Render("    " + tc.Error))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func countStatuses(tests []types.TestCase) string {
	counts := make(map[types.Status]int)
	for _, tc := range tests {
		counts[tc.Status]++
	}
	order := []types.Status{types.StatusPending, types.StatusAccepted, types.StatusRejected, types.StatusPassed, types.StatusFailed}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
