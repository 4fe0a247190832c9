package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/formcrawl/internal/model"
)

// State is the lifecycle phase of a crawl.
type State int32

const (
	// StateIdle means Run has not been called.
	StateIdle State = iota

	// StateRunning means workers are processing the frontier.
	StateRunning

	// StateDraining means the frontier drained or Stop was honored and
	// workers are exiting.
	StateDraining

	// StateFinished means every worker has exited.
	StateFinished
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Summary describes a completed crawl.
type Summary struct {
	// ProjectID is the project the pages were stored under.
	ProjectID int64 `json:"project_id"`

	// StartURL is the canonical start URL.
	StartURL string `json:"start_url"`

	// Visited is the number of claimed URLs, fetched successfully or not.
	Visited int `json:"visited"`

	// Pages is the number of successfully fetched pages.
	Pages int `json:"pages"`

	// Forms is the number of forms stored.
	Forms int `json:"forms"`

	// Errors is the number of failed fetches.
	Errors int `json:"errors"`

	// Stopped is true when the crawl ended before the frontier drained.
	Stopped bool `json:"stopped"`

	// Duration is the wall-clock time of the crawl.
	Duration time.Duration `json:"duration"`
}

// Spider coordinates one crawl: it owns the visited set, seeds the
// Frontier and runs a fixed pool of workers over it.
//
// A Spider crawls once. Create a new one for each crawl.
type Spider struct {
	fetcher *Fetcher
	store   Store
	cfg     Config
	logger  *slog.Logger

	events   chan<- Event
	progress func(Event)

	// mu protects visited and queued.
	mu sync.Mutex

	// visited holds claimed URLs. A URL is claimed before it is fetched.
	visited map[string]struct{}

	// queued holds the smallest depth at which each unclaimed URL sits in
	// the frontier, so a URL is claimed at the minimum depth it was found.
	queued map[string]int

	state    atomic.Int32
	stopCh   chan struct{}
	stopOnce sync.Once

	pages  atomic.Int64
	forms  atomic.Int64
	errors atomic.Int64
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithConfig sets the crawl configuration.
func WithConfig(cfg Config) SpiderOption {
	return func(s *Spider) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithEvents delivers every event on ch. The caller owns ch and closes it
// after Run returns. Sends block while ch is full, so ch must be drained.
func WithEvents(ch chan<- Event) SpiderOption {
	return func(s *Spider) {
		s.events = ch
	}
}

// WithProgress calls fn with every event's progress line. fn is invoked
// from worker goroutines; calls are serialized through LineSink.
func WithProgress(fn func(line string)) SpiderOption {
	return func(s *Spider) {
		s.progress = LineSink(fn)
	}
}

// NewSpider creates a Spider fetching with client and persisting to store.
// A nil store crawls without recording anything.
func NewSpider(client *http.Client, store Store, opts ...SpiderOption) *Spider {
	s := &Spider{
		store:   store,
		cfg:     DefaultConfig(),
		visited: make(map[string]struct{}),
		queued:  make(map[string]int),
		stopCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cfg = s.cfg.withDefaults()
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.fetcher = NewFetcher(client,
		WithFetchTimeout(s.cfg.Timeout),
		WithFetchUserAgent(s.cfg.UserAgent),
		WithFetchMaxBodySize(s.cfg.MaxBodySize),
	)

	return s
}

// Run crawls from startURL and stores results under projectID.
//
// Run returns when the frontier drains, when Stop is honored, or when ctx
// is done. Per-URL failures are reported as events and never end the crawl.
// The returned error is non-nil only for fatal problems (invalid
// configuration or start URL, second call) or when ctx ended the crawl, in
// which case the partial Summary is returned with it.
func (s *Spider) Run(ctx context.Context, projectID int64, startURL string) (*Summary, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	start, err := NormalizeStart(startURL)
	if err != nil {
		return nil, err
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrAlreadyStarted
	}

	began := time.Now()
	startHost := hostOf(start)
	frontier := NewFrontier()

	s.logger.Info("starting crawl",
		"url", start,
		"projectID", projectID,
		"maxDepth", s.cfg.MaxDepth,
		"sameDomainOnly", s.cfg.SameDomainOnly,
		"concurrency", s.cfg.Concurrency,
	)

	s.offer(start, 0)
	frontier.Push(Item{URL: start, Depth: 0})

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Concurrency; i++ {
		g.Go(func() error {
			s.work(gctx, i, frontier, projectID, startHost)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	s.state.Store(int32(StateFinished))

	summary := &Summary{
		ProjectID: projectID,
		StartURL:  start,
		Visited:   s.Visited(),
		Pages:     int(s.pages.Load()),
		Forms:     int(s.forms.Load()),
		Errors:    int(s.errors.Load()),
		Stopped:   !frontier.Drained(),
		Duration:  time.Since(began),
	}

	s.logger.Info("crawl finished",
		"url", start,
		"visited", summary.Visited,
		"pages", summary.Pages,
		"forms", summary.Forms,
		"errors", summary.Errors,
		"stopped", summary.Stopped,
		"elapsed", summary.Duration,
	)
	s.emit(ctx, Event{Kind: EventFinished, Pages: summary.Visited, Stopped: summary.Stopped})

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// Stop asks the crawl to end. Workers finish their current item and exit
// before dequeuing more work. Stop is safe to call more than once and from
// any goroutine.
func (s *Spider) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stop requested")
		close(s.stopCh)
	})
}

// State returns the current lifecycle phase.
func (s *Spider) State() State {
	return State(s.state.Load())
}

// Visited returns the number of claimed URLs.
func (s *Spider) Visited() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// stopRequested reports whether Stop has been called.
func (s *Spider) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// work is the loop run by every worker goroutine.
func (s *Spider) work(ctx context.Context, id int, frontier *Frontier, projectID int64, startHost string) {
	defer s.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	defer s.logger.Debug("worker exiting", "worker", id)

	for {
		if s.stopRequested() || ctx.Err() != nil {
			return
		}

		item, ok := frontier.Pop(ctx, s.cfg.PollInterval)
		if !ok {
			if frontier.Drained() {
				return
			}
			continue
		}

		s.process(ctx, frontier, item, projectID, startHost)
		frontier.Done()
	}
}

// process handles one dequeued item.
func (s *Spider) process(ctx context.Context, frontier *Frontier, item Item, projectID int64, startHost string) {
	if !InScope(item.URL, item.Depth, s.cfg, startHost) {
		s.logger.Debug("out of scope", "url", item.URL, "depth", item.Depth)
		return
	}
	if !s.claim(item.URL, item.Depth) {
		return
	}

	s.emit(ctx, Event{Kind: EventClaimed, URL: item.URL, Depth: item.Depth})

	resp, err := s.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		s.errors.Add(1)
		kind := FetchErrorProtocol
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			kind = fetchErr.Kind
		}
		s.logger.Warn("fetch failed", "url", item.URL, "kind", kind.String(), "error", err)
		s.emit(ctx, Event{Kind: EventFetchError, URL: item.URL, Depth: item.Depth, Err: err})
		return
	}
	s.pages.Add(1)

	links := s.record(ctx, projectID, item, resp)

	next := item.Depth + 1
	for _, link := range links {
		if !InScope(link, next, s.cfg, startHost) {
			continue
		}
		if s.offer(link, next) {
			frontier.Push(Item{URL: link, Depth: next})
		}
	}
}

// record stores the page and its forms and returns the page's links.
// Storage failures are reported but do not stop link discovery.
func (s *Spider) record(ctx context.Context, projectID int64, item Item, resp *Response) []string {
	var pageID int64
	stored := s.store != nil
	if stored {
		page := &model.Page{
			ProjectID:   projectID,
			URL:         item.URL,
			StatusCode:  resp.StatusCode,
			Depth:       item.Depth,
			ContentType: resp.ContentType,
		}
		id, err := s.store.UpsertPage(ctx, page)
		if err != nil {
			s.storeFailed(ctx, item, err)
			stored = false
		}
		pageID = id
	}

	extraction, err := Extract(item.URL, resp)
	if err != nil {
		s.logger.Debug("parse failed", "url", item.URL, "error", err)
		return nil
	}

	s.logger.Debug("page parsed",
		"url", item.URL,
		"status", resp.StatusCode,
		"links", len(extraction.Links),
		"forms", len(extraction.Forms),
	)

	if stored {
		for _, form := range extraction.Forms {
			if err := s.storeForm(ctx, pageID, form); err != nil {
				s.storeFailed(ctx, item, err)
				break
			}
		}
	}

	return extraction.Links
}

// storeForm persists one form and its inputs.
func (s *Spider) storeForm(ctx context.Context, pageID int64, form model.Form) error {
	formID, err := s.store.InsertForm(ctx, pageID, form.Action, form.Method)
	if err != nil {
		return err
	}
	s.forms.Add(1)

	for _, in := range form.Inputs {
		s.logger.Debug("form input",
			"action", form.Action,
			slog.Group("input", "name", in.NameOrEmpty(), "type", in.Type, "value", in.ValueOrEmpty()),
		)
		if err := s.store.InsertInput(ctx, formID, in); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spider) storeFailed(ctx context.Context, item Item, err error) {
	s.logger.Error("store failed", "url", item.URL, "error", err)
	s.emit(ctx, Event{Kind: EventStoreError, URL: item.URL, Depth: item.Depth, Err: err})
}

// offer records that url is about to be enqueued at depth. It returns false
// when url is already claimed or already queued at the same or a smaller
// depth.
func (s *Spider) offer(url string, depth int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[url]; ok {
		return false
	}
	if d, ok := s.queued[url]; ok && d <= depth {
		return false
	}
	s.queued[url] = depth
	return true
}

// claim atomically marks url visited. It fails when url is already claimed
// or when a copy of url at a smaller depth is still queued; that copy will
// be claimed instead.
func (s *Spider) claim(url string, depth int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[url]; ok {
		return false
	}
	if d, ok := s.queued[url]; ok && d < depth {
		return false
	}
	s.visited[url] = struct{}{}
	delete(s.queued, url)
	return true
}

// emit delivers ev to the progress callback and the event channel.
func (s *Spider) emit(ctx context.Context, ev Event) {
	ev.Time = time.Now()

	if s.progress != nil {
		s.progress(ev)
	}
	if s.events == nil {
		return
	}

	select {
	case s.events <- ev:
	case <-ctx.Done():
		// Still try to deliver without blocking so a cancelled crawl
		// reports its final event when there is room.
		select {
		case s.events <- ev:
		default:
		}
	}
}
