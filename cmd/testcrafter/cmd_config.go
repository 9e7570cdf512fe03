package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"testcrafter/internal/config"
)

var (
	initProvider string
	initForce    bool
)

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage testcrafter configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Writes the default configuration to --config (default .testcrafter/config.yaml).
The API key is not written; set it in the file or via the provider's
environment variable (GROQ_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY).`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (API key redacted)",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&initProvider, "provider", config.ProviderGroq, "LLM provider: groq, openai or gemini")
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}

	c := config.DefaultConfig()
	c.LLM = config.DefaultLLMConfig(initProvider)
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (provider %s, key from %s)\n",
		configPath, c.LLM.Provider, config.APIKeyEnvVar(c.LLM.Provider))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.LLM.APIKey != "" {
		shown.LLM.APIKey = redact(shown.LLM.APIKey)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(&shown)
}

func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
