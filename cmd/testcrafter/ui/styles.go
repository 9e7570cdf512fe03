// Package ui provides the visual styling for the testcrafter terminal panel.
// Light and dark palettes share the same semantic status colors.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"testcrafter/internal/types"
)

var (
	// Light palette
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1b2430")
	LightPrimary    = lipgloss.Color("#1f4e79")
	LightAccent     = lipgloss.Color("#2e7d32")
	LightMuted      = lipgloss.Color("#6b7785")
	LightBorder     = lipgloss.Color("#d0d5db")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark palette
	DarkBackground = lipgloss.Color("#141d2b")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#7cb8e8")
	DarkAccent     = lipgloss.Color("#8bc34a")
	DarkMuted      = lipgloss.Color("#8894a4")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")

	// Status colors, shared by both palettes
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#43a047")
	Warning     = lipgloss.Color("#ffb300")
	Info        = lipgloss.Color("#2196f3")
)

// Theme is a resolved color palette.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme is the default palette.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
	}
}

// DarkTheme is the palette for dark terminals.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme picks dark mode from COLORFGBG or TESTCRAFTER_DARK_MODE=1,
// light otherwise.
func DetectTheme() Theme {
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		// "foreground;background"; ANSI 0-6 and 8 are dark backgrounds.
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("TESTCRAFTER_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles are the lipgloss styles used by the chat panel.
type Styles struct {
	Theme Theme

	Header lipgloss.Style
	Footer lipgloss.Style

	Title lipgloss.Style
	Muted lipgloss.Style

	Prompt        lipgloss.Style
	UserInput     lipgloss.Style
	UserLabel     lipgloss.Style
	AgentLabel    lipgloss.Style
	AgentResponse lipgloss.Style

	Error   lipgloss.Style
	Info    lipgloss.Style
	Spinner lipgloss.Style

	CodeBlock lipgloss.Style
	Divider   lipgloss.Style
	Badge     lipgloss.Style
}

// NewStyles builds the panel styles for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		UserInput: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		UserLabel: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		AgentLabel: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		AgentResponse: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Accent),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		CodeBlock: lipgloss.NewStyle().
			Background(theme.Card).
			Foreground(theme.Foreground).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// StatusColor maps a test status to its badge color.
func StatusColor(status types.Status) lipgloss.Color {
	switch status {
	case types.StatusPassed, types.StatusAccepted:
		return Success
	case types.StatusFailed:
		return Destructive
	case types.StatusRejected:
		return Warning
	default:
		return Info
	}
}

// RenderStatus renders a status badge.
func (s Styles) RenderStatus(status types.Status) string {
	return s.Badge.Background(StatusColor(status)).Render(string(status))
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
