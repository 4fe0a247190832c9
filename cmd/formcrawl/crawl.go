package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/formcrawl/internal/config"
	"github.com/nao1215/formcrawl/internal/crawler"
	"github.com/nao1215/formcrawl/internal/session"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [<url>...]",
		Short: "Crawl websites and store their pages and forms",
		Long: `Crawl fetches pages breadth-first from each start URL, follows links up to
the maximum depth and stores every page with its forms and inputs.

Each target becomes a project in the result database. Press Ctrl+C once to
stop after the pages in flight, twice to abort immediately.

Examples:
  # Crawl a site two links deep (default)
  formcrawl crawl https://example.com

  # Only the start page
  formcrawl crawl -d 0 example.com

  # Follow links to other hosts too
  formcrawl crawl --same-domain=false https://example.com

  # Crawl three sites, two at a time
  formcrawl crawl -b 2 a.example b.example c.example

  # Store results in PostgreSQL
  formcrawl crawl --db-driver postgres --db-dsn postgres://localhost/formcrawl example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the start URL")
	cmd.Flags().Bool("same-domain", true,
		"Only follow links on the start URL's host")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of workers per target")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of targets crawled concurrently")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy address (host:port)")
	cmd.Flags().StringP("project", "p", "",
		"Project name (default: the target host)")

	addStoreFlags(cmd)

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := loggerFor(cmd)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database opened", "location", db.Location())

	onStop := func(stop func()) {
		cleanup := watchSignals(ctx, logger, stop, cancel)
		go func() {
			<-ctx.Done()
			cleanup()
		}()
	}

	if len(cfg.Targets) == 1 {
		return runSingleCrawl(ctx, cmd.OutOrStdout(), cfg, db, logger, onStop)
	}
	return runBatchCrawl(ctx, cmd.OutOrStdout(), cfg, db, logger, onStop)
}

// buildCrawlConfig creates a Config from cobra command flags and the
// configuration file.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Targets = args

	var err error
	if cfg.MaxDepth, err = cmd.Flags().GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.SameDomainOnly, err = cmd.Flags().GetBool("same-domain"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ProjectName, err = cmd.Flags().GetString("project"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	if err := loadStoreConfig(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// watchSignals calls stop on the first SIGINT or SIGTERM and cancel on the
// second. The returned function stops watching.
func watchSignals(ctx context.Context, logger *slog.Logger, stop, cancel func()) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing pages in flight (press Ctrl+C again to abort)")
			stop()
		case <-done:
			return
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			logger.Warn("received second signal, aborting")
			cancel()
		case <-done:
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
}

// hostOf returns the host (with port, if any) of a canonical URL, or "".
func hostOf(start string) string {
	u, err := url.Parse(start)
	if err != nil {
		return ""
	}
	return u.Host
}

// runSingleCrawl crawls one target through a Session and streams its
// progress lines to out.
func runSingleCrawl(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	store crawler.Store,
	logger *slog.Logger,
	onStop func(stop func()),
) error {
	start, err := crawler.NormalizeStart(cfg.Targets[0])
	if err != nil {
		return err
	}
	host := hostOf(start)
	crawlCfg := cfg.CrawlConfig(host)

	client, err := crawler.NewHTTPClient(cfg.ClientOptions(host))
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	sess := session.New(client, store,
		session.WithConfig(crawlCfg),
		session.WithLogger(logger),
		session.WithProjectName(cfg.ProjectName),
	)
	onStop(sess.Stop)

	if err := sess.Start(ctx, start, crawlCfg.MaxDepth, crawlCfg.SameDomainOnly); err != nil {
		return err
	}

	for line := range sess.Progress() {
		fmt.Fprintln(out, line)
	}

	var crawlErr error
	for err := range sess.Errors() {
		crawlErr = err
	}
	if summary, ok := <-sess.Finished(); ok {
		printSummary(out, &summary)
	}
	return crawlErr
}

// runBatchCrawl crawls several targets through a BatchProcessor. Progress
// lines are prefixed with the target host.
func runBatchCrawl(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	store crawler.Store,
	logger *slog.Logger,
	onStop func(stop func()),
) error {
	targets := make([]session.Target, len(cfg.Targets))
	for i, raw := range cfg.Targets {
		var host string
		if start, err := crawler.NormalizeStart(raw); err == nil {
			host = hostOf(start)
		}

		client, err := crawler.NewHTTPClient(cfg.ClientOptions(host))
		if err != nil {
			return fmt.Errorf("failed to create HTTP client: %w", err)
		}
		targets[i] = session.Target{
			URL:         raw,
			ProjectName: cfg.ProjectName,
			Config:      cfg.CrawlConfig(host),
			Client:      client,
		}
	}

	var mu sync.Mutex
	bp := session.NewBatchProcessor(store,
		session.WithConcurrency(cfg.BatchSize),
		session.WithBatchLogger(logger),
		session.WithBatchProgress(func(target, line string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "[%s] %s\n", hostOf(target), line)
		}),
	)
	onStop(bp.Stop)

	fmt.Fprintf(out, "Starting batch crawl of %d targets (concurrency: %d)...\n\n",
		len(targets), cfg.BatchSize)
	startTime := time.Now()

	var failed []error
	err := bp.ProcessBatchWithCallback(ctx, targets, func(result session.Result, index int) {
		mu.Lock()
		defer mu.Unlock()

		fmt.Fprintf(out, "[%d/%d] %s: ", index+1, len(targets), result.Target)
		if result.Err != nil && !errors.Is(result.Err, context.Canceled) {
			fmt.Fprintf(out, "failed: %v\n", result.Err)
			failed = append(failed, fmt.Errorf("%s: %w", result.Target, result.Err))
			return
		}
		if result.Summary == nil {
			fmt.Fprintln(out, "skipped")
			return
		}
		fmt.Fprintln(out, "done")
		printSummary(out, result.Summary)
	})

	fmt.Fprintf(out, "\nBatch crawl completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d targets failed: %w", len(failed), len(targets), errors.Join(failed...))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printSummary writes the result of one crawl.
func printSummary(out io.Writer, s *crawler.Summary) {
	status := "completed"
	if s.Stopped {
		status = "stopped"
	}
	fmt.Fprintf(out, "\nCrawl %s in %s: %d pages, %d forms, %d errors (project #%d)\n",
		status, s.Duration.Round(time.Millisecond), s.Pages, s.Forms, s.Errors, s.ProjectID)
	fmt.Fprintf(out, "Run 'formcrawl report --project-id %d' to view the results.\n\n", s.ProjectID)
}
