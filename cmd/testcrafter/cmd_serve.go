package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"testcrafter/internal/panel"
	"testcrafter/internal/world"
)

var sinkPath string

// serveCmd drives the panel over stdio
var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the test panel protocol over JSON lines on stdin/stdout",
	Long: `Reads one JSON message per line from stdin and writes panel events as JSON
lines to stdout. Messages carry their kind in "type" (or "command"):

  sendMessage{message}        askQuestion{message} generateTests
  runTests | runAllTests
  acceptTest{testId}          rejectTest{testId}   toggleAutoDetect{enabled}
  acceptCode{code}            rejectCode{code}     openFile{path, languageId}

Events: testsUpdated{tests}, updateStatus{message, loading},
receiveMessage{message}, setTyping{value}, error{message}, info{message}.

Logs go to stderr (or logging.file).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&sinkPath, "sink", "", "Append accepted code to this file")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context(), false)
	defer cancel()

	deps := a.panelDeps(cfg, sinkPath, panel.JSONEmitter(cmd.OutOrStdout()))
	if sinkPath == "" {
		// stdout carries the protocol; accepted code must not be mixed in.
		deps.Sink = nil
	}
	ctrl := panel.NewController(deps)
	defer ctrl.Close()

	if len(args) == 1 {
		doc, err := world.LoadDocument(args[0], "")
		if err != nil {
			return err
		}
		if err := ctrl.SetDocument(doc); err != nil {
			return err
		}
	}

	err = panel.Serve(ctx, ctrl, cmd.InOrStdin())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
