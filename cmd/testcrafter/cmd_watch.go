package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testcrafter/internal/panel"
	"testcrafter/internal/watch"
	"testcrafter/internal/world"
)

// watchCmd regenerates tests whenever a file is saved
var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Regenerate tests whenever the file changes",
	Long: `Enables auto-detect for one file: tests are generated immediately and again
after each burst of saves settles (watch.debounce, default 1s). A newer
regeneration cancels one still in flight. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&languageFlag, "language", "l", "", "Language ID (default: detected from extension)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	doc, err := world.LoadDocument(args[0], languageFlag)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context(), false)
	defer cancel()

	out := cmd.OutOrStdout()
	var ctrl *panel.Controller
	emit := func(ev panel.Event) {
		switch ev.Type {
		case panel.EventUpdateStatus:
			fmt.Fprintln(out, ev.Message)
		case panel.EventError:
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", ev.Message)
		case panel.EventTestsUpdated:
			// Emitted from inside store updates; the store lock is released.
			if gen := ctrl.Store().Current(); gen != nil {
				if err := writeGeneration(out, gen, outputTable); err != nil {
					logger.Warn("Failed to render tests", zap.Error(err))
				}
			}
		}
	}
	ctrl = panel.NewController(a.panelDeps(cfg, "", emit))
	defer ctrl.Close()

	if err := ctrl.SetDocument(doc); err != nil {
		return err
	}
	if err := ctrl.Handle(ctx, panel.Message{Type: panel.MsgToggleAutoDetect, Enabled: true}); err != nil {
		return err
	}

	<-ctx.Done()
	fmt.Fprintln(out, watchSummary(ctrl.AutoDetect().GetStats()))
	return nil
}

func watchSummary(s watch.Stats) string {
	return fmt.Sprintf("watched %d changes, %d regenerations (%d cancelled, %d errors)",
		s.Events, s.Triggers, s.Cancelled, s.Errors)
}
