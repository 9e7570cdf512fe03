package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"testcrafter/internal/config"
	"testcrafter/internal/logging"
	"testcrafter/internal/types"
	"testcrafter/internal/world"
)

// PlaceholderRunner accepts every test without executing it.
type PlaceholderRunner struct{}

// RunTest always succeeds.
func (PlaceholderRunner) RunTest(context.Context, types.TestCase, string) error {
	return nil
}

// CommandRunner executes test code with a per-language command template.
// "{file}" in the template is replaced by a temporary file holding the code.
type CommandRunner struct {
	Commands map[string]string
	Timeout  time.Duration
	Dir      string // working directory; empty = current

	// Fallback handles languages without a template. nil fails them.
	Fallback types.TestRunner
}

// NewRunner returns a CommandRunner when any command is configured and the
// placeholder otherwise.
func NewRunner(cfg config.RunnerConfig, dir string) types.TestRunner {
	if len(cfg.Commands) == 0 {
		return PlaceholderRunner{}
	}
	cmds := make(map[string]string, len(cfg.Commands))
	for lang := range cfg.Commands {
		if tmpl, ok := cfg.CommandFor(lang); ok {
			cmds[strings.ToLower(lang)] = tmpl
		}
	}
	if len(cmds) == 0 {
		return PlaceholderRunner{}
	}
	return &CommandRunner{
		Commands: cmds,
		Timeout:  cfg.GetTimeout(),
		Dir:      dir,
		Fallback: PlaceholderRunner{},
	}
}

// RunTest writes tc.Code to a temp file and runs the language's command.
// A non-zero exit fails the test with the combined output.
func (r *CommandRunner) RunTest(ctx context.Context, tc types.TestCase, languageID string) error {
	tmpl, ok := r.Commands[strings.ToLower(languageID)]
	if !ok {
		if r.Fallback != nil {
			return r.Fallback.RunTest(ctx, tc, languageID)
		}
		return fmt.Errorf("no runner command configured for %s", languageID)
	}
	if strings.TrimSpace(tc.Code) == "" {
		return errors.New("test has no code")
	}

	f, err := os.CreateTemp("", "testcrafter-*"+world.ExtensionFor(languageID))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(tc.Code); err != nil {
		f.Close()
		return fmt.Errorf("failed to write test code: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write test code: %w", err)
	}

	cmdParts := commandArgs(tmpl, path)
	if len(cmdParts) == 0 {
		return errors.New("empty runner command")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	execCmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	execCmd.Dir = r.Dir
	var out bytes.Buffer
	execCmd.Stdout = &out
	execCmd.Stderr = &out
	execCmd.WaitDelay = 500 * time.Millisecond

	err = execCmd.Run()
	logging.RegistryDebug("RunTest %s: %s exited in %v (err=%v)", tc.ID, cmdParts[0], time.Since(start), err)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %v", r.Timeout)
		}
		output := strings.TrimSpace(out.String())
		if output == "" {
			return err
		}
		return fmt.Errorf("%v: %s", err, output)
	}
	return nil
}

// commandArgs splits tmpl into arguments and then substitutes path, so a path
// containing spaces stays one argument.
func commandArgs(tmpl, path string) []string {
	args := strings.Fields(tmpl)
	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "{file}", path)
	}
	return args
}
