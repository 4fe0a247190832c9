package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/formcrawl/internal/crawler"
)

// DefaultBatchConcurrency is the number of targets crawled at once.
const DefaultBatchConcurrency = 1

// ErrBatchStopped is the Result error of targets skipped after Stop.
var ErrBatchStopped = errors.New("batch stopped")

// BatchProcessor crawls multiple targets concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit;
// each target runs its own Spider with its own worker pool.
type BatchProcessor struct {
	store crawler.Store

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	logger *slog.Logger

	// progress receives every progress line tagged with its target.
	progress func(target, line string)

	mu      sync.Mutex
	live    map[int]*crawler.Spider
	stopped bool
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchProgress sets a callback receiving progress lines. It is called
// from many goroutines and must be safe for concurrent use.
func WithBatchProgress(fn func(target, line string)) BatchOption {
	return func(b *BatchProcessor) {
		b.progress = fn
	}
}

// NewBatchProcessor creates a BatchProcessor storing results into store.
func NewBatchProcessor(store crawler.Store, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		store:       store,
		concurrency: DefaultBatchConcurrency,
		live:        make(map[int]*crawler.Spider),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every target and returns one Result per target in
// input order. Failed targets carry their error in Result.Err and do not
// stop the others. The returned error is non-nil only when ctx ended the batch.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []Target) ([]Result, error) {
	results := make([]Result, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(r Result, i int) {
		results[i] = r
	})
	return results, err
}

// ProcessBatchWithCallback crawls every target and calls callback with each
// result and its index as soon as that crawl ends. The callback is called
// from the goroutine that ran the crawl.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []Target,
	callback func(result Result, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				callback(Result{Target: target.URL, Err: gctx.Err()}, i)
				return nil
			default:
			}

			bp.logger.Info("crawling target",
				"target", target.URL,
				"index", i+1,
				"total", len(targets),
			)

			result := bp.crawl(gctx, i, target)
			if result.Err != nil {
				bp.logger.Warn("crawl failed", "target", target.URL, "error", result.Err)
			}
			callback(result, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // crawl goroutines never return errors

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}

// crawl runs one target to completion.
func (bp *BatchProcessor) crawl(ctx context.Context, index int, target Target) Result {
	result := Result{Target: target.URL}

	start, err := crawler.NormalizeStart(target.URL)
	if err != nil {
		result.Err = err
		return result
	}
	if err := target.Config.Validate(); err != nil {
		result.Err = err
		return result
	}

	opts := []crawler.SpiderOption{
		crawler.WithConfig(target.Config),
		crawler.WithLogger(bp.logger.With("target", start)),
	}
	if bp.progress != nil {
		opts = append(opts, crawler.WithProgress(func(line string) {
			bp.progress(start, line)
		}))
	}
	spider := crawler.NewSpider(target.Client, bp.store, opts...)
	if !bp.register(index, spider) {
		result.Err = ErrBatchStopped
		return result
	}
	defer bp.unregister(index)

	projectID, err := createProject(ctx, bp.store, target.ProjectName, start)
	if err != nil {
		result.Err = err
		return result
	}
	result.ProjectID = projectID

	summary, err := spider.Run(ctx, projectID, start)
	result.Summary = summary
	result.Err = err
	return result
}

// register tracks a running spider so Stop can reach it. It returns false
// once the batch has been stopped.
func (bp *BatchProcessor) register(index int, spider *crawler.Spider) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.stopped {
		return false
	}
	bp.live[index] = spider
	return true
}

func (bp *BatchProcessor) unregister(index int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.live, index)
}

// Stop asks every running crawl to end and prevents pending targets from
// starting. Results of stopped crawls are still reported.
func (bp *BatchProcessor) Stop() {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.stopped = true
	for _, spider := range bp.live {
		spider.Stop()
	}
}
