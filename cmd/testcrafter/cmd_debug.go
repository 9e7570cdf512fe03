package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"testcrafter/internal/llm"
	"testcrafter/internal/world"
)

var (
	errorText string
	errorFile string
)

// debugCmd asks the model to analyze an error
var debugCmd = &cobra.Command{
	Use:   "debug <file>",
	Short: "Ask the model to analyze an error in a file",
	Long: `Sends the file and an error message to the model and prints its analysis,
potential fixes and prevention advice.

Example:
  testcrafter debug src/add.js --error "TypeError: a is undefined"
  go test ./... 2>&1 | testcrafter debug main.go --error-file -`,
	Args: cobra.ExactArgs(1),
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().StringVarP(&errorText, "error", "e", "", "Error message to analyze")
	debugCmd.Flags().StringVar(&errorFile, "error-file", "", `Read the error from a file ("-" for stdin)`)
}

func runDebug(cmd *cobra.Command, args []string) error {
	doc, err := world.LoadDocument(args[0], "")
	if err != nil {
		return err
	}

	text := errorText
	if errorFile != "" {
		var data []byte
		if errorFile == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(errorFile)
		}
		if err != nil {
			return fmt.Errorf("failed to read error: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("an error message is required (--error or --error-file)")
	}

	client, err := llm.NewClientFromConfig(cfg.LLM)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	reply, err := llm.DebugSuggestions(ctx, client, doc.Text, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
