package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"zettel/internal/config"
)

var (
	configFormat string
	configWrite  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the configuration the server would run with, after applying the
config file and ZETTEL_* environment variables over the defaults.

Examples:
  zettel config                    # JSON
  zettel config --format toml
  zettel config --write zettel.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

func init() {
	configCmd.Flags().StringVar(&configFormat, "format", "json",
		"Output format ("+strings.Join(config.Formats, ", ")+")")
	configCmd.Flags().StringVar(&configWrite, "write", "",
		"Write the effective config to this file; the extension picks the format")

	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if configWrite != "" {
		if err := result.Config.Save(configWrite); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configWrite)
		return nil
	}

	if result.ConfigPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "# config file: %s\n", result.ConfigPath)
	}
	for _, o := range result.EnvOverrides {
		fmt.Fprintf(cmd.ErrOrStderr(), "# %s set by %s\n", o.Key, o.EnvVar)
	}
	return result.Config.Encode(cmd.OutOrStdout(), configFormat)
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	for _, name := range config.GetSupportedEnvVars() {
		if val, ok := os.LookupEnv(name); ok {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			continue
		}
		fmt.Fprintln(out, name)
	}
}
