package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"zettel/internal/config"
	"zettel/internal/slogutil"
	"zettel/internal/version"
)

var (
	// configFile is the --config flag value
	configFile string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "zettel",
	Short: "zettel - a small Markdown document server",
	Long: `zettel serves a directory of Markdown notes over HTTP/1.1. Documents are
rendered through hot-reloadable templates, directories are listed as HTML or
JSON, and everything else is served from the static root.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("zettel version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default: zettel.{json,toml,yaml} in the working directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}

// loadConfig resolves configuration for cmd: its flags > env > file > defaults.
func loadConfig(cmd *cobra.Command) (*config.LoadResult, error) {
	result, err := config.Load(config.Options{
		File:  configFile,
		Flags: cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	if err := result.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return result, nil
}

// cliLevel returns the level chosen by -v/-q, or nil when neither was given so
// the configured level applies.
func cliLevel(cmd *cobra.Command) *slog.Level {
	if !cmd.Flags().Changed("verbose") && !cmd.Flags().Changed("quiet") {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}
