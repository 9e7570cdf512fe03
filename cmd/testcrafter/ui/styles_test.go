package ui

import (
	"strings"
	"testing"

	"testcrafter/internal/types"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("TESTCRAFTER_DARK_MODE", "1")
	dark := DetectTheme()
	if !dark.IsDark {
		t.Fatalf("expected dark theme when TESTCRAFTER_DARK_MODE=1")
	}

	t.Setenv("TESTCRAFTER_DARK_MODE", "")
	light := DetectTheme()
	if light.IsDark {
		t.Fatalf("expected light theme when TESTCRAFTER_DARK_MODE is unset")
	}

	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black COLORFGBG background")
	}
}

func TestStatusColor(t *testing.T) {
	cases := map[types.Status]string{
		types.StatusPassed:   string(Success),
		types.StatusAccepted: string(Success),
		types.StatusFailed:   string(Destructive),
		types.StatusRejected: string(Warning),
		types.StatusPending:  string(Info),
	}
	for status, want := range cases {
		if got := string(StatusColor(status)); got != want {
			t.Errorf("StatusColor(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestRenderStatusContainsLabel(t *testing.T) {
	s := NewStyles(LightTheme())
	if out := s.RenderStatus(types.StatusFailed); !strings.Contains(out, "failed") {
		t.Fatalf("badge %q missing label", out)
	}
	if out := s.RenderDivider(0); !strings.Contains(out, "─") {
		t.Fatalf("divider %q empty", out)
	}
}
