package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"newsreel/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage newsreel configuration",
	}
	configCmd.AddCommand(
		newConfigInitCommand(ctx),
		newConfigShowCommand(ctx),
		newConfigValidateCommand(ctx),
	)
	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var (
		path      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(path)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if _, err := os.Stat(expanded); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", expanded)
			fmt.Fprintln(out, "Set OPENROUTER_API_KEY, SPEECH_API_KEY, and HF_TOKEN (or fill in the api_key fields) before starting the daemon.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Where to write the config file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")

	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads and its directories are usable",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("prepare directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolvedPath)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.configValue()
			if err != nil {
				return err
			}
			shown := *cfg
			shown.LLM.APIKey = redactSecret(shown.LLM.APIKey)
			shown.Speech.APIKey = redactSecret(shown.Speech.APIKey)
			shown.ImageGen.APIKey = redactSecret(shown.ImageGen.APIKey)
			shown.Paths.APIToken = redactSecret(shown.Paths.APIToken)

			if ctx.jsonMode() {
				return writeJSON(cmd, shown)
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func redactSecret(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "(set)"
}
