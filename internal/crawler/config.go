package crawler

import "time"

// Default crawl settings.
const (
	// DefaultMaxDepth follows links two hops away from the start page.
	DefaultMaxDepth = 2

	// DefaultTimeout bounds each individual request, not the whole crawl.
	DefaultTimeout = 10 * time.Second

	// DefaultConcurrency is the number of workers sharing the frontier.
	DefaultConcurrency = 8

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "formcrawl/0.2 (+https://github.com/nao1215/formcrawl)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultPollInterval is how long an idle worker waits on the frontier
	// before checking whether the crawl is over.
	DefaultPollInterval = 500 * time.Millisecond
)

// Config holds the settings of one crawl. It is copied into the Spider and
// never modified while the crawl runs.
type Config struct {
	// MaxDepth is the deepest link distance from the start URL that is fetched.
	// 0 means only the start page.
	MaxDepth int

	// SameDomainOnly restricts the crawl to URLs whose host (including port)
	// equals the start URL's host. Subdomains are different hosts.
	SameDomainOnly bool

	// Timeout bounds each request including reading the body.
	Timeout time.Duration

	// Concurrency is the number of worker goroutines.
	Concurrency int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per response.
	MaxBodySize int64

	// PollInterval is the bounded wait of an idle worker on the frontier.
	PollInterval time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		MaxDepth:       DefaultMaxDepth,
		SameDomainOnly: true,
		Timeout:        DefaultTimeout,
		Concurrency:    DefaultConcurrency,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		PollInterval:   DefaultPollInterval,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// withDefaults fills zero-valued optional settings.
func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}
