package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testcrafter/internal/registry"
	"testcrafter/internal/types"
	"testcrafter/internal/world"
)

var (
	languageFlag string
	outputFlag   string
	noArchive    bool
)

// generateCmd generates tests for one file
var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Generate test cases for a source file",
	Long: `Sends one prompt per test category to the configured model and prints the
parsed test cases. Categories whose call fails are reported but do not stop
the others; the command fails only if every category fails.

Example:
  testcrafter generate src/add.js --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

// runCmd generates then runs tests
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Generate test cases for a file and run them",
	Long: `Generates tests like "generate", then executes each one with the runner
configured for the file's language (runner.commands). Languages without a
command use the placeholder runner, which marks every test passed.

Pass --from <run-id> to re-run an archived generation instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

var fromRunID string

func init() {
	for _, c := range []*cobra.Command{generateCmd, runCmd} {
		c.Flags().StringVarP(&languageFlag, "language", "l", "", "Language ID (default: detected from extension)")
		c.Flags().StringVarP(&outputFlag, "output", "o", outputTable, "Output format: table, json or yaml")
		c.Flags().BoolVar(&noArchive, "no-archive", false, "Do not record the run in the archive")
	}
	runCmd.Flags().StringVar(&fromRunID, "from", "", "Re-run an archived generation by run ID (prefix)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format, err := validateOutput(outputFlag)
	if err != nil {
		return err
	}
	doc, err := world.LoadDocument(args[0], languageFlag)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	logger.Info("Generating tests", zap.String("file", doc.Path), zap.String("language", doc.LanguageID))
	gen, err := a.generator.Generate(ctx, doc)
	if err != nil {
		return err
	}
	if len(gen.FailedCategories) > 0 {
		logger.Warn("Some categories failed", zap.Strings("categories", gen.FailedCategories))
	}
	archiveGeneration(ctx, a, gen)

	return writeGeneration(cmd.OutOrStdout(), gen, format)
}

func runRun(cmd *cobra.Command, args []string) error {
	format, err := validateOutput(outputFlag)
	if err != nil {
		return err
	}
	if fromRunID == "" && len(args) == 0 {
		return fmt.Errorf("requires a file argument or --from <run-id>")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	var gen *types.Generation
	if fromRunID != "" {
		if a.archive == nil {
			return fmt.Errorf("--from needs the run archive (archive.path is empty)")
		}
		gen, err = a.archive.LoadRun(ctx, fromRunID)
	} else {
		var doc types.Document
		doc, err = world.LoadDocument(args[0], languageFlag)
		if err != nil {
			return err
		}
		gen, err = a.generator.Generate(ctx, doc)
		if err == nil {
			archiveGeneration(ctx, a, gen)
		}
	}
	if err != nil {
		return err
	}

	reg := registry.NewStore()
	reg.Replace(gen)
	if err := registry.Run(ctx, reg, a.runner); err != nil {
		return err
	}
	result := reg.Current()
	if a.archive != nil && !noArchive {
		if err := a.archive.UpdateStatuses(ctx, result.RunID, result.Tests); err != nil {
			logger.Warn("Failed to archive results", zap.Error(err))
		}
	}

	if err := writeGeneration(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}
	if n := result.CountByStatus()[types.StatusFailed]; n > 0 {
		return fmt.Errorf("%d of %d tests failed", n, len(result.Tests))
	}
	return nil
}

func archiveGeneration(ctx context.Context, a *app, gen *types.Generation) {
	if a.archive == nil || noArchive {
		return
	}
	if err := a.archive.SaveGeneration(ctx, gen); err != nil {
		logger.Warn("Failed to archive run", zap.Error(err))
		return
	}
	fmt.Fprintf(os.Stderr, "archived as %s\n", gen.RunID)
}
