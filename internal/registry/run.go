package registry

import (
	"context"
	"errors"
	"time"

	"testcrafter/internal/logging"
	"testcrafter/internal/types"
)

// ErrNothingToRun is returned by Run when no generation is held.
var ErrNothingToRun = errors.New("no tests to run")

// Run executes every held test with runner and records passed or failed.
// Results are dropped if the generation is replaced while running.
func Run(ctx context.Context, store *Store, runner types.TestRunner) error {
	gen := store.Current()
	if gen == nil {
		return ErrNothingToRun
	}
	if runner == nil {
		runner = PlaceholderRunner{}
	}

	start := time.Now()
	updates := make([]StatusUpdate, 0, len(gen.Tests))
	var passed, failed int

	for _, tc := range gen.Tests {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runner.RunTest(ctx, tc, gen.LanguageID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			updates = append(updates, StatusUpdate{ID: tc.ID, Status: types.StatusFailed, Error: err.Error()})
			failed++
			continue
		}
		updates = append(updates, StatusUpdate{ID: tc.ID, Status: types.StatusPassed})
		passed++
	}

	if !store.ApplyResults(gen.RunID, updates) {
		logging.Registry("Run: generation %s replaced during run, results dropped", gen.RunID)
		return nil
	}
	logging.Registry("Run: %d passed, %d failed in %v", passed, failed, time.Since(start))
	return nil
}
