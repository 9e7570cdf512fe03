package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"testcrafter/cmd/testcrafter/tui"
	"testcrafter/cmd/testcrafter/ui"
	"testcrafter/internal/panel"
	"testcrafter/internal/world"
)

var (
	autoDetect   bool
	chatSinkPath string
)

// chatCmd launches the interactive panel
var chatCmd = &cobra.Command{
	Use:   "chat [file]",
	Short: "Open the interactive test panel",
	Long: `Opens a terminal panel with a chat assistant and the generated test list.
Type /help inside the panel for commands. Accepted code is appended to --sink.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language ID (default: detected from extension)")
	chatCmd.Flags().BoolVar(&autoDetect, "auto", false, "Enable auto-detect on start")
	chatCmd.Flags().StringVar(&chatSinkPath, "sink", "testcrafter-accepted.txt", "File that accepted code is appended to")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context(), false)
	defer cancel()

	bridge := tui.NewBridge()
	ctrl := panel.NewController(a.panelDeps(cfg, chatSinkPath, bridge.Emit))
	defer func() {
		bridge.Close()
		ctrl.Close()
	}()

	if len(args) == 1 {
		doc, err := world.LoadDocument(args[0], languageFlag)
		if err != nil {
			return err
		}
		if err := ctrl.SetDocument(doc); err != nil {
			return err
		}
	}
	if autoDetect {
		if err := ctrl.Handle(ctx, panel.Message{Type: panel.MsgToggleAutoDetect, Enabled: true}); err != nil {
			return err
		}
	}

	model := tui.New(ctx, ctrl, bridge, ui.DefaultStyles())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}
