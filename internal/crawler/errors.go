package crawler

import "errors"

// Crawl-level errors. Per-URL failures never surface through these; they are
// reported as events and the crawl continues.
var (
	// ErrInvalidURL is returned when the start URL cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidConcurrency is returned when the worker count is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrAlreadyStarted is returned when Run is called on a Spider that has
	// already been started. A Spider crawls exactly once.
	ErrAlreadyStarted = errors.New("spider already started")
)
