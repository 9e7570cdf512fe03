package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"testcrafter/internal/store"
	"testcrafter/internal/types"
)

// Output formats for --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validateOutput(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", outputTable:
		return outputTable, nil
	case outputJSON, outputYAML:
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q (table, json, yaml)", format)
}

// writeGeneration renders gen in the requested format.
func writeGeneration(w io.Writer, gen *types.Generation, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(gen)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(gen)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "TITLE", "STATUS", "INPUT", "EXPECTED"})
	table.SetAutoWrapText(false)
	for _, tc := range gen.Tests {
		status := string(tc.Status)
		if tc.Error != "" {
			status += ": " + truncate(tc.Error, 40)
		}
		table.Append([]string{tc.ID, truncate(tc.Title, 50), status, truncate(tc.Input, 30), truncate(tc.ExpectedOutput, 30)})
	}
	table.Render()

	fmt.Fprintf(w, "run %s: %d tests", gen.RunID, len(gen.Tests))
	if len(gen.FailedCategories) > 0 {
		fmt.Fprintf(w, ", %d categories failed (%s)", len(gen.FailedCategories), strings.Join(gen.FailedCategories, ", "))
	}
	fmt.Fprintln(w)
	return nil
}

// writeRuns renders archived run summaries as a table.
func writeRuns(w io.Writer, runs []store.RunSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"RUN", "CREATED", "FILE", "LANG", "TESTS", "STATUS"})
	table.SetAutoWrapText(false)
	for _, r := range runs {
		table.Append([]string{
			shortID(r.RunID),
			r.CreatedAt.Local().Format(time.DateTime),
			r.SourcePath,
			r.LanguageID,
			fmt.Sprint(r.Total),
			formatCounts(r.Counts),
		})
	}
	table.Render()
}

func formatCounts(counts map[types.Status]int) string {
	keys := make([]string, 0, len(counts))
	for status := range counts {
		keys = append(keys, string(status))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[types.Status(k)]))
	}
	return strings.Join(parts, " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
