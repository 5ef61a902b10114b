package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zettel/internal/server"
	"zettel/internal/slogutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document server",
	Long: `Start serving the content root over HTTP/1.1. Each connection carries one
request and is closed after the response.

Examples:
  zettel serve
  zettel serve --addr 0.0.0.0:8080 --content ~/notes
  zettel serve --max-connections 64 -v`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (default 127.0.0.1:7878)")
	serveCmd.Flags().String("content", "", "Content root with Markdown documents")
	serveCmd.Flags().String("static", "", "Static root for assets")
	serveCmd.Flags().String("templates", "", "Template directory")
	serveCmd.Flags().Int("max-connections", 0, "Maximum concurrent connections (0 = unlimited)")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	serveCmd.Flags().String("log-file", "", "Also write logs to this file, with rotation")
	serveCmd.Flags().Bool("watch", true, "Reload templates when they change")
}

func runServe(cmd *cobra.Command, args []string) error {
	result, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := result.Config

	factory := slogutil.NewLoggerFactory(cfg.Logging, cliLevel(cmd))
	defer factory.Close()
	logger, err := factory.ServerLogger(os.Stderr)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	if result.ConfigPath != "" {
		logger.Info("Loaded config", "path", result.ConfigPath)
	}
	for _, o := range result.EnvOverrides {
		logger.Debug("Environment override", "key", o.Key, "env", o.EnvVar)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "zettel serving %s on http://%s\n", cfg.ContentDir(), cfg.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("Server error", "error", err.Error())
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
