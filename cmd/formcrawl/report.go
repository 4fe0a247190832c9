package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcrawl/internal/config"
	"github.com/nao1215/formcrawl/internal/database"
	"github.com/nao1215/formcrawl/internal/model"
	"github.com/nao1215/formcrawl/internal/report"
)

// reportOptions holds the flags of the report command.
type reportOptions struct {
	list       bool
	projectID  int64
	json       bool
	markdown   bool
	output     string
	reveal     bool
	verbose    bool
	formsOnly  bool
	appVersion string
}

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored crawl results",
		Long: `Report renders the pages, forms and inputs stored for a project.

Without --project-id the most recent project is shown. Values of password,
hidden and token-like inputs are masked unless --reveal is given.

Examples:
  # List all projects
  formcrawl report --list

  # Show the latest project
  formcrawl report

  # Write project 3 as Markdown
  formcrawl report --project-id 3 --markdown -o reports/site.md

  # JSON for other tools
  formcrawl report --project-id 3 --json`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List stored projects")
	cmd.Flags().Int64P("project-id", "i", 0, "Project to show (default: latest)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("reveal", false, "Show sensitive input values unmasked")
	cmd.Flags().Bool("forms-only", false, "Only list pages that have forms (text output)")

	addStoreFlags(cmd)

	return cmd
}

// runReportCmd executes the report command.
func runReportCmd(cmd *cobra.Command, _ []string) error {
	opts, err := buildReportOptions(cmd)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if err := loadStoreConfig(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	loggerFor(cmd)

	db, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	return writeReport(cmd, db, opts)
}

// buildReportOptions reads the report flags.
func buildReportOptions(cmd *cobra.Command) (*reportOptions, error) {
	opts := &reportOptions{
		verbose:    getBoolFlag(cmd, "verbose"),
		appVersion: getVersion(),
	}

	var err error
	if opts.list, err = cmd.Flags().GetBool("list"); err != nil {
		return nil, err
	}
	if opts.projectID, err = cmd.Flags().GetInt64("project-id"); err != nil {
		return nil, err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if opts.output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if opts.reveal, err = cmd.Flags().GetBool("reveal"); err != nil {
		return nil, err
	}
	if opts.formsOnly, err = cmd.Flags().GetBool("forms-only"); err != nil {
		return nil, err
	}

	if opts.json && opts.markdown {
		return nil, config.ErrConflictingReportFormats
	}
	return opts, nil
}

// writeReport loads the requested data from db and writes it.
func writeReport(cmd *cobra.Command, db *database.CrawlDB, opts *reportOptions) error {
	ctx := cmd.Context()

	output, closeOutput, err := openOutput(cmd.OutOrStdout(), opts.output)
	if err != nil {
		return err
	}
	defer closeOutput()

	w := newReportWriter(output, opts)

	if opts.list {
		projects, err := db.ListProjects(ctx)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		_, err = w.WriteProjects(projects)
		return err
	}

	var project *model.Project
	if opts.projectID > 0 {
		project, err = db.GetProject(ctx, opts.projectID)
	} else {
		project, err = db.LatestProject(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	rep, err := db.ProjectReport(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}
	if !opts.reveal {
		rep = report.Redact(rep)
	}

	_, err = w.Write(rep)
	return err
}

// newReportWriter selects the writer for the requested format.
func newReportWriter(output io.Writer, opts *reportOptions) report.Writer {
	switch {
	case opts.json:
		return report.NewFullJSONWriter(output, opts.appVersion, report.WithPrettyPrint())
	case opts.markdown:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output,
			report.WithVerbose(opts.verbose),
			report.WithShowEmpty(!opts.formsOnly),
		)
	}
}

// openOutput returns the report destination: stdout, or path created with
// owner-only permissions. Reports may contain form values.
func openOutput(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
