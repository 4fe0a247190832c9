package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nao1215/formcrawl/internal/crawler"
)

// DefaultProgressBuffer is the capacity of the Progress channel.
const DefaultProgressBuffer = 256

// ErrNoStore is returned by Start when the session has no Store.
var ErrNoStore = errors.New("session has no store")

// Session runs a single crawl in the background.
//
// Progress lines, the fatal error and the final Summary are delivered on
// channels. All three are closed once the crawl is over, so a consumer can
// range over Progress and then read the others. Progress must be drained:
// workers block while its buffer is full.
type Session struct {
	client      *http.Client
	store       crawler.Store
	cfg         crawler.Config
	logger      *slog.Logger
	projectName string

	progress chan string
	errs     chan error
	finished chan crawler.Summary
	done     chan struct{}

	mu      sync.Mutex
	spider  *crawler.Spider
	started bool
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the crawl settings other than depth and domain
// restriction, which are given to Start.
func WithConfig(cfg crawler.Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger passed to the crawler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithProjectName sets the project name. Defaults to the target host.
func WithProjectName(name string) Option {
	return func(s *Session) {
		s.projectName = name
	}
}

// WithProgressBuffer sets the capacity of the Progress channel.
func WithProgressBuffer(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.progress = make(chan string, n)
		}
	}
}

// New creates a Session that fetches with client and stores into store.
func New(client *http.Client, store crawler.Store, opts ...Option) *Session {
	s := &Session{
		client:   client,
		store:    store,
		cfg:      crawler.DefaultConfig(),
		progress: make(chan string, DefaultProgressBuffer),
		errs:     make(chan error, 1),
		finished: make(chan crawler.Summary, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start launches a crawl of target and returns immediately.
//
// Start itself fails only when the session was already started, has no
// store, or is given an invalid URL or depth. Everything that goes wrong
// afterwards is reported on Errors. Cancelling ctx ends the crawl like Stop.
func (s *Session) Start(ctx context.Context, target string, maxDepth int, sameDomainOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return crawler.ErrAlreadyStarted
	}
	if s.store == nil {
		return ErrNoStore
	}

	cfg := s.cfg
	cfg.MaxDepth = maxDepth
	cfg.SameDomainOnly = sameDomainOnly
	if err := cfg.Validate(); err != nil {
		return err
	}
	start, err := crawler.NormalizeStart(target)
	if err != nil {
		return err
	}

	s.spider = crawler.NewSpider(s.client, s.store,
		crawler.WithConfig(cfg),
		crawler.WithLogger(s.logger),
		crawler.WithProgress(func(line string) {
			select {
			case s.progress <- line:
			case <-ctx.Done():
			}
		}),
	)
	s.started = true

	go s.run(ctx, start)
	return nil
}

func (s *Session) run(ctx context.Context, start string) {
	defer close(s.done)
	defer close(s.finished)
	defer close(s.errs)
	defer close(s.progress)

	projectID, err := createProject(ctx, s.store, s.projectName, start)
	if err != nil {
		s.logger.Error("crawl aborted", "url", start, "error", err)
		s.errs <- err
		return
	}

	summary, err := s.spider.Run(ctx, projectID, start)
	if summary != nil {
		s.finished <- *summary
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		s.errs <- err
	}
}

// Stop asks a running crawl to end after the in-flight pages. It is a no-op
// before Start and safe to call repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	spider := s.spider
	s.mu.Unlock()

	if spider != nil {
		spider.Stop()
	}
}

// Progress returns the channel of progress lines.
func (s *Session) Progress() <-chan string {
	return s.progress
}

// Errors returns the channel carrying at most one fatal error.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// Finished returns the channel carrying the final Summary. Nothing is sent
// when the crawl could not start.
func (s *Session) Finished() <-chan crawler.Summary {
	return s.finished
}

// Wait blocks until the crawl is over. It returns immediately if Start was
// never called successfully.
func (s *Session) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if started {
		<-s.done
	}
}

// State returns the crawler state, or StateIdle before Start.
func (s *Session) State() crawler.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spider == nil {
		return crawler.StateIdle
	}
	return s.spider.State()
}
