package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"testcrafter/internal/chat"
	"testcrafter/internal/config"
	"testcrafter/internal/llm"
	"testcrafter/internal/logging"
	"testcrafter/internal/panel"
	"testcrafter/internal/registry"
	"testcrafter/internal/store"
	"testcrafter/internal/testgen"
	"testcrafter/internal/types"
)

// app bundles the components every command builds from config.
type app struct {
	client    llm.LLMClient
	generator *testgen.Generator
	router    *chat.Router
	runner    types.TestRunner
	archive   *store.Archive // nil when disabled
}

func newApp(cfg *config.Config) (*app, error) {
	client, err := llm.NewClientFromConfig(cfg.LLM)
	if err != nil {
		return nil, err
	}

	gen := testgen.NewGenerator(client,
		testgen.WithConcurrency(cfg.Generation.Concurrency),
		testgen.WithMaxPerCategory(cfg.Generation.MaxPerCategory),
	)

	cwd, _ := os.Getwd()
	a := &app{
		client:    client,
		generator: gen,
		router:    chat.NewRouter(gen, client),
		runner:    registry.NewRunner(cfg.Runner, cwd),
	}

	logging.BootDebug("chat routes: %s", strings.Join(a.router.Routes(), ", "))

	if cfg.Archive.Path != "" {
		archive, err := store.NewArchive(cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		a.archive = archive
	}
	return a, nil
}

// panelDeps wires a panel controller from the app.
func (a *app) panelDeps(cfg *config.Config, sinkPath string, emit panel.Emitter) panel.Deps {
	deps := panel.Deps{
		Generator: a.generator,
		Runner:    a.runner,
		Router:    a.router,
		Debounce:  cfg.Watch.GetDebounce(),
		Emit:      emit,
	}
	if a.archive != nil {
		deps.Archive = a.archive
	}
	if sinkPath != "" {
		deps.Sink = &chat.FileSink{Path: filepath.Clean(sinkPath)}
	} else {
		deps.Sink = &chat.WriterSink{W: os.Stdout}
	}
	return deps
}

func (a *app) Close() {
	if a.archive != nil {
		a.archive.Close()
	}
}

func openArchive(cfg *config.Config) (*store.Archive, error) {
	if cfg.Archive.Path == "" {
		return nil, fmt.Errorf("run archive is disabled (archive.path is empty)")
	}
	return store.NewArchive(cfg.Archive.Path)
}
