// Package crawler implements the crawl engine.
//
// # Architecture
//
// The crawler package is designed around the Spider type, which owns the
// visited set and a shared Frontier and runs a fixed pool of workers over
// them. Each worker repeatedly dequeues a (URL, depth) item, claims it,
// fetches it, stores the page and its forms, and enqueues the outbound
// links that are still in scope.
//
// # Components
//
//   - Normalize: resolves a reference against a base URL and drops the fragment
//   - InScope: depth ceiling and optional same-host restriction
//   - Fetcher: one GET with timeout and redirect-following, typed failures
//   - Parser / Extract: links and forms from an HTML body
//   - Frontier: FIFO queue with a drain signal for completion detection
//   - Spider: the coordinator, reporting progress as typed Events
//
// # Termination
//
// A URL is fetched at most once per crawl: it is claimed in the visited set
// before the fetch starts. Items deeper than the configured maximum are
// never enqueued, and the Frontier reports drained exactly when it is empty
// and no worker holds an item. Workers poll the Frontier with a bounded wait
// so they notice completion without a separate coordinator goroutine.
//
// # Usage
//
//	spider := crawler.NewSpider(httpClient, store, crawler.WithConfig(cfg))
//	summary, err := spider.Run(ctx, projectID, "http://example.test/")
package crawler
