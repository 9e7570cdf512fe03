package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd lists archived runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived generations",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the tests of an archived generation",
	Long: `Prints the tests of one archived generation with their latest statuses.
Any unique prefix of the run ID is accepted.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Max runs to list (0 = all)")
	historyShowCmd.Flags().StringVarP(&outputFlag, "output", "o", outputTable, "Output format: table, json or yaml")
	historyCmd.AddCommand(historyShowCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	runs, err := archive.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
		return nil
	}
	writeRuns(cmd.OutOrStdout(), runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := validateOutput(outputFlag)
	if err != nil {
		return err
	}
	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx, cancel := commandContext(cmd.Context(), true)
	defer cancel()

	gen, err := archive.LoadRun(ctx, args[0])
	if err != nil {
		return err
	}
	return writeGeneration(cmd.OutOrStdout(), gen, format)
}
