package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all testcrafter configuration.
type Config struct {
	// LLM completion provider
	LLM LLMConfig `yaml:"llm"`

	// Per-category fan-out
	Generation GenerationConfig `yaml:"generation"`

	// Auto-detect file watching
	Watch WatchConfig `yaml:"watch"`

	// Test execution
	Runner RunnerConfig `yaml:"runner"`

	// Run history
	Archive ArchiveConfig `yaml:"archive"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GenerationConfig configures the test generator.
type GenerationConfig struct {
	// Concurrency caps simultaneous completion calls. 0 or >= the number of
	// categories issues every category at once.
	Concurrency int `yaml:"concurrency"`

	// MaxPerCategory is the "up to N" count requested in each prompt.
	MaxPerCategory int `yaml:"max_per_category"`
}

// ArchiveConfig configures the SQLite run archive. Empty Path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfigPath is where Load looks when no --config flag is given.
const DefaultConfigPath = ".testcrafter/config.yaml"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: DefaultLLMConfig(ProviderGroq),

		Generation: GenerationConfig{
			Concurrency:    25,
			MaxPerCategory: 3,
		},

		Watch: WatchConfig{
			Debounce: "1s",
		},

		Runner: RunnerConfig{
			Timeout:  "30s",
			Commands: map[string]string{},
		},

		Archive: ArchiveConfig{
			Path: ".testcrafter/history.db",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Seed from the file's provider so its model and endpoint replace groq's.
	var head struct {
		LLM struct {
			Provider string `yaml:"provider"`
		} `yaml:"llm"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := head.LLM.Provider; p != "" && p != cfg.LLM.Provider {
		cfg.LLM = DefaultLLMConfig(p)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.LLM.fillProviderDefaults()
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variables on top of the file.
// The API key env var is a fallback only: a key in the file wins.
func (c *Config) applyEnvOverrides() {
	if p := os.Getenv("TESTCRAFTER_PROVIDER"); p != "" {
		c.LLM.switchProvider(p)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(APIKeyEnvVar(c.LLM.Provider))
	}
	if model := os.Getenv("TESTCRAFTER_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("TESTCRAFTER_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if path, ok := os.LookupEnv("TESTCRAFTER_ARCHIVE"); ok {
		c.Archive.Path = path
	}
}

// Validate checks the configuration for values the generator cannot work with.
// A missing API key is not a validation error; it surfaces as a ConfigError
// on the first completion call.
func (c *Config) Validate() error {
	valid := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.Generation.Concurrency < 0 {
		return fmt.Errorf("generation.concurrency must be >= 0, got %d", c.Generation.Concurrency)
	}
	if c.Generation.MaxPerCategory <= 0 {
		return fmt.Errorf("generation.max_per_category must be > 0, got %d", c.Generation.MaxPerCategory)
	}
	return nil
}

// parseDuration parses d and falls back when it is empty or malformed.
func parseDuration(d string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(d)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
