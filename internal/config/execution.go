package config

import (
	"strings"
	"time"
)

// RunnerConfig configures how the "run" action executes test code.
type RunnerConfig struct {
	// Per-test timeout
	Timeout string `yaml:"timeout"`

	// Commands maps a language ID to a command template. "{file}" is replaced
	// with the path of a temporary file holding the test code. Languages with
	// no entry use the placeholder runner, which marks every test passed.
	Commands map[string]string `yaml:"commands,omitempty"`
}

// GetTimeout returns the per-test execution timeout.
func (c *RunnerConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// CommandFor returns the command template for a language, if any.
func (c *RunnerConfig) CommandFor(languageID string) (string, bool) {
	for lang, cmd := range c.Commands {
		if strings.EqualFold(lang, languageID) && strings.TrimSpace(cmd) != "" {
			return cmd, true
		}
	}
	return "", false
}
