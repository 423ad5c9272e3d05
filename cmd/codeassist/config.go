package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/discochess/codeassist/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to --config",
	Long: `Write the default configuration to the --config path. API keys are
never written; set OPENAI_API_KEY or ANTHROPIC_API_KEY instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after the file, the environment and the
command-line flags have been applied. API keys are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var overwrite bool

func init() {
	configInitCmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !overwrite {
		return fmt.Errorf("%s already exists; use --force to overwrite it", configPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := config.Default().Save(configPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.OpenAIAPIKey = mask(cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = mask(cfg.AnthropicAPIKey)

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

func mask(key string) string {
	if len(key) <= 8 {
		return ""
	}
	return key[:4] + "..." + key[len(key)-4:]
}
