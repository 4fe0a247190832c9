package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcrawl/internal/log"
)

// NewRootCmd creates the root command for formcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formcrawl",
		Short: "Crawl websites and record their HTML forms",
		Long: `formcrawl crawls websites breadth-first from a start URL and records
every page it fetches together with the HTML forms and form controls found
on it. Results are stored per project in SQLite (default) or PostgreSQL and
can be rendered as text, JSON or Markdown with the report command.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the secure logger selected by the global flags.
// Logs go to w so that progress lines on stdout stay clean.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}

// loggerFor builds the logger for cmd and makes it the default.
func loggerFor(cmd *cobra.Command) *slog.Logger {
	logger := setupLogger(cmd.ErrOrStderr(), getBoolFlag(cmd, "verbose"), getBoolFlag(cmd, "log-json"))
	slog.SetDefault(logger)
	return logger
}
