package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zettel/internal/resolver"
)

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve <uri-path>",
	Short: "Show what a request path resolves to",
	Long: `Run the server's lookup for a request path without starting the server.

Examples:
  zettel resolve /notes/today       # markdown  /srv/notes/today.md
  zettel resolve /main.js --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().String("content", "", "Content root")
	resolveCmd.Flags().String("static", "", "Static root")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", string(FormatHuman), "Output format (human, json)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := result.Config

	uriPath := args[0]
	if len(uriPath) == 0 || uriPath[0] != '/' {
		uriPath = "/" + uriPath
	}
	resolved := resolver.New(cfg.ContentDir(), cfg.StaticDir()).Lookup(uriPath)

	if OutputFormat(resolveFormat) == FormatHuman {
		if resolved.Kind == resolver.NotFound {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", resolved.Kind, uriPath)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", resolved.Kind, resolved.Path)
		return nil
	}
	return writeFormatted(cmd, resolved, resolveFormat)
}
