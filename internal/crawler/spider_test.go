package crawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/formcrawl/internal/model"
)

// fakeSite serves canned HTML pages by absolute URL without touching the
// network, so tests can use arbitrary host names.
type fakeSite struct {
	mu      sync.Mutex
	pages   map[string]string
	hang    map[string]bool
	fetches map[string]int
	delay   time.Duration
}

func newFakeSite(pages map[string]string) *fakeSite {
	return &fakeSite{
		pages:   pages,
		hang:    make(map[string]bool),
		fetches: make(map[string]int),
	}
}

func (s *fakeSite) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.URL.String()

	s.mu.Lock()
	s.fetches[key]++
	body, ok := s.pages[key]
	hang := s.hang[key]
	delay := s.delay
	s.mu.Unlock()

	if hang {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
		body = "not found"
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Request:    req,
	}, nil
}

func (s *fakeSite) client() *http.Client {
	return &http.Client{Transport: s}
}

func (s *fakeSite) fetchCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[url]
}

func (s *fakeSite) maxFetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := 0
	for _, n := range s.fetches {
		highest = max(highest, n)
	}
	return highest
}

// memStore is an in-memory Store.
type memStore struct {
	mu     sync.Mutex
	pages  map[string]*model.Page
	forms  []model.Form
	nextID int64
	fail   bool
}

func newMemStore() *memStore {
	return &memStore{pages: make(map[string]*model.Page)}
}

func (m *memStore) CreateProject(_ context.Context, _, _ string) (int64, error) {
	return 1, nil
}

func (m *memStore) UpsertPage(_ context.Context, page *model.Page) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return 0, errors.New("store unavailable")
	}
	if existing, ok := m.pages[page.URL]; ok {
		existing.StatusCode = page.StatusCode
		existing.ContentType = page.ContentType
		existing.Depth = min(existing.Depth, page.Depth)
		return existing.ID, nil
	}
	m.nextID++
	p := *page
	p.ID = m.nextID
	m.pages[page.URL] = &p
	return p.ID, nil
}

func (m *memStore) InsertForm(_ context.Context, pageID int64, action, method string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.forms = append(m.forms, model.Form{ID: m.nextID, PageID: pageID, Action: action, Method: method})
	return m.nextID, nil
}

func (m *memStore) InsertInput(_ context.Context, formID int64, input model.Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.forms {
		if m.forms[i].ID == formID {
			input.FormID = formID
			m.forms[i].Inputs = append(m.forms[i].Inputs, input)
			return nil
		}
	}
	return errors.New("unknown form")
}

func (m *memStore) urls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, 0, len(m.pages))
	for u := range m.pages {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (m *memStore) page(url string) *model.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[url]
}

func testConfig(maxDepth int) Config {
	cfg := DefaultConfig()
	cfg.MaxDepth = maxDepth
	cfg.Concurrency = 4
	cfg.Timeout = 2 * time.Second
	cfg.PollInterval = 20 * time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runSpider(t *testing.T, site *fakeSite, store Store, cfg Config, start string, opts ...SpiderOption) *Summary {
	t.Helper()

	opts = append([]SpiderOption{WithConfig(cfg), WithLogger(discardLogger())}, opts...)
	spider := NewSpider(site.client(), store, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	summary, err := spider.Run(ctx, 1, start)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if spider.State() != StateFinished {
		t.Errorf("expected state finished, got %s", spider.State())
	}
	return summary
}

func assertURLs(t *testing.T, got []string, want ...string) {
	t.Helper()

	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected pages %v, got %v", want, got)
	}
}

func TestSpiderScope(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://a.test/":  `<a href="http://a.test/b">b</a><a href="http://b.test/x">x</a>`,
		"http://a.test/b": `<a href="/c">c</a>`,
		"http://a.test/c": `leaf`,
		"http://b.test/x": `outside`,
	}

	t.Run("same domain depth one", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(pages)
		store := newMemStore()
		summary := runSpider(t, site, store, testConfig(1), "http://a.test/")

		assertURLs(t, store.urls(), "http://a.test/", "http://a.test/b")
		if site.fetchCount("http://b.test/x") != 0 {
			t.Error("other host must never be fetched")
		}
		if site.fetchCount("http://a.test/c") != 0 {
			t.Error("page beyond max depth must never be fetched")
		}
		if summary.Pages != 2 || summary.Visited != 2 {
			t.Errorf("unexpected summary %+v", summary)
		}
		if summary.Stopped {
			t.Error("drained crawl should not be marked stopped")
		}
	})

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(pages)
		store := newMemStore()
		runSpider(t, site, store, testConfig(0), "http://a.test/")

		assertURLs(t, store.urls(), "http://a.test/")
	})

	t.Run("any domain", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(1)
		cfg.SameDomainOnly = false

		site := newFakeSite(pages)
		store := newMemStore()
		runSpider(t, site, store, cfg, "http://a.test/")

		assertURLs(t, store.urls(), "http://a.test/", "http://a.test/b", "http://b.test/x")
	})

	t.Run("start url without scheme or slash", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(pages)
		store := newMemStore()
		summary := runSpider(t, site, store, testConfig(0), "a.test")

		if summary.StartURL != "http://a.test/" {
			t.Errorf("expected canonical start URL, got %q", summary.StartURL)
		}
		assertURLs(t, store.urls(), "http://a.test/")
	})
}

func TestSpiderStoresForms(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string]string{
		"http://a.test/page": `<form action="login" method="post"><input name="user" type="text"></form>`,
	})
	store := newMemStore()
	summary := runSpider(t, site, store, testConfig(0), "http://a.test/page")

	if len(store.forms) != 1 {
		t.Fatalf("expected 1 form, got %d", len(store.forms))
	}
	form := store.forms[0]
	if form.Action != "http://a.test/login" || form.Method != "POST" {
		t.Errorf("unexpected form %+v", form)
	}
	if form.PageID != store.page("http://a.test/page").ID {
		t.Error("form should reference the stored page")
	}
	if len(form.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(form.Inputs))
	}
	if in := form.Inputs[0]; in.NameOrEmpty() != "user" || in.Type != "text" || in.Value != nil {
		t.Errorf("unexpected input %+v", in)
	}
	if summary.Forms != 1 {
		t.Errorf("expected summary to count 1 form, got %d", summary.Forms)
	}
}

func TestSpiderFetchTimeout(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string]string{
		"http://a.test/":   `<a href="/slow">slow</a><a href="/ok">ok</a>`,
		"http://a.test/ok": `fine`,
	})
	site.hang["http://a.test/slow"] = true

	cfg := testConfig(1)
	cfg.Timeout = 100 * time.Millisecond

	var (
		mu    sync.Mutex
		lines []string
	)
	store := newMemStore()
	summary := runSpider(t, site, store, cfg, "http://a.test/", WithProgress(func(line string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
	}))

	assertURLs(t, store.urls(), "http://a.test/", "http://a.test/ok")
	if summary.Errors != 1 {
		t.Errorf("expected 1 error, got %d", summary.Errors)
	}
	if summary.Visited != 3 || summary.Pages != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}

	errorLines := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "[ERROR] GET http://a.test/slow") {
			errorLines++
		}
	}
	if errorLines != 1 {
		t.Errorf("expected exactly one error line, got %d in %v", errorLines, lines)
	}
	if last := lines[len(lines)-1]; last != "[DONE] Crawled 3 pages." {
		t.Errorf("expected final summary line, got %q", last)
	}
}

func TestSpiderNoDuplicateFetch(t *testing.T) {
	t.Parallel()

	t.Run("same link twice on the start page", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string]string{
			"http://a.test/":    `<a href="/dup">1</a><a href="http://a.test/dup#x">2</a><a href="dup">3</a>`,
			"http://a.test/dup": `leaf`,
		})
		store := newMemStore()
		runSpider(t, site, store, testConfig(2), "http://a.test/")

		if n := site.fetchCount("http://a.test/dup"); n != 1 {
			t.Errorf("expected /dup fetched once, got %d", n)
		}
	})

	t.Run("dense cyclic graph", func(t *testing.T) {
		t.Parallel()

		// Every page links to every other page and to itself.
		const n = 12
		names := make([]string, n)
		for i := range names {
			names[i] = "http://a.test/p" + string(rune('a'+i))
		}
		var links strings.Builder
		links.WriteString(`<a href="http://a.test/">home</a>`)
		for _, name := range names {
			links.WriteString(`<a href="` + name + `">x</a>`)
		}
		pages := map[string]string{"http://a.test/": links.String()}
		for _, name := range names {
			pages[name] = links.String()
		}

		site := newFakeSite(pages)
		site.delay = time.Millisecond
		store := newMemStore()
		cfg := testConfig(5)
		cfg.Concurrency = 8
		summary := runSpider(t, site, store, cfg, "http://a.test/")

		if got := site.maxFetchCount(); got != 1 {
			t.Errorf("some URL was fetched %d times", got)
		}
		if summary.Visited != n+1 {
			t.Errorf("expected %d visited, got %d", n+1, summary.Visited)
		}
	})
}

func TestSpiderMinimumDepth(t *testing.T) {
	t.Parallel()

	// /deep is reachable at depth 1 from the start page and at depth 2
	// through /a. It must be recorded at depth 1 whatever order workers run.
	for i := 0; i < 10; i++ {
		site := newFakeSite(map[string]string{
			"http://a.test/":       `<a href="/a">a</a><a href="/deep">deep</a>`,
			"http://a.test/a":      `<a href="/deep">deep</a><a href="/only-a">x</a>`,
			"http://a.test/deep":   `<a href="/leaf">leaf</a>`,
			"http://a.test/only-a": `x`,
			"http://a.test/leaf":   `x`,
		})
		store := newMemStore()
		runSpider(t, site, store, testConfig(2), "http://a.test/")

		if p := store.page("http://a.test/deep"); p == nil || p.Depth != 1 {
			t.Fatalf("expected /deep at depth 1, got %+v", p)
		}
		if p := store.page("http://a.test/leaf"); p == nil || p.Depth != 2 {
			t.Fatalf("expected /leaf at depth 2, got %+v", p)
		}
	}
}

func TestSpiderStop(t *testing.T) {
	t.Parallel()

	// An endless chain: every page links to a new one.
	site := newFakeSite(nil)
	site.pages = make(map[string]string)
	for i := 0; i < 500; i++ {
		site.pages["http://a.test/"+strconv.Itoa(i)] = `<a href="/` + strconv.Itoa(i+1) + `">next</a>`
	}
	site.pages["http://a.test/"] = `<a href="/0">start</a>`
	site.delay = 5 * time.Millisecond

	cfg := testConfig(1000)
	cfg.Concurrency = 2
	events := make(chan Event, 1024)
	spider := NewSpider(site.client(), newMemStore(),
		WithConfig(cfg),
		WithLogger(discardLogger()),
		WithEvents(events),
	)

	go func() {
		for ev := range events {
			if ev.Kind == EventClaimed && ev.Depth == 5 {
				spider.Stop()
				spider.Stop()
			}
		}
	}()

	summary, err := spider.Run(context.Background(), 1, "http://a.test/")
	close(events)
	if err != nil {
		t.Fatalf("stop should not be an error: %v", err)
	}
	if !summary.Stopped {
		t.Error("expected summary to be marked stopped")
	}
	if summary.Visited >= 500 {
		t.Errorf("crawl did not stop early, visited %d", summary.Visited)
	}
}

func TestSpiderContextCancel(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string]string{"http://a.test/": `<a href="/slow">x</a>`})
	site.hang["http://a.test/slow"] = true

	cfg := testConfig(1)
	cfg.Timeout = time.Minute
	spider := NewSpider(site.client(), newMemStore(), WithConfig(cfg), WithLogger(discardLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	summary, err := spider.Run(ctx, 1, "http://a.test/")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if summary == nil || summary.Pages != 1 {
		t.Errorf("expected partial summary with 1 page, got %+v", summary)
	}
}

func TestSpiderStoreFailureContinues(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string]string{
		"http://a.test/":  `<form><input name="q"></form><a href="/b">b</a>`,
		"http://a.test/b": `leaf`,
	})
	store := newMemStore()
	store.fail = true

	events := make(chan Event, 64)
	summary := runSpider(t, site, store, testConfig(1), "http://a.test/", WithEvents(events))
	close(events)

	storeErrors := 0
	for ev := range events {
		if ev.Kind == EventStoreError {
			storeErrors++
		}
	}
	if storeErrors != 2 {
		t.Errorf("expected 2 store errors, got %d", storeErrors)
	}
	if summary.Pages != 2 || summary.Forms != 0 {
		t.Errorf("links should still be followed without storing forms, got %+v", summary)
	}
}

func TestSpiderRunValidation(t *testing.T) {
	t.Parallel()

	site := newFakeSite(map[string]string{"http://a.test/": `x`})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(1)
		cfg.Concurrency = 0
		_, err := NewSpider(site.client(), nil, WithConfig(cfg)).Run(context.Background(), 1, "http://a.test/")
		if !errors.Is(err, ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}
	})

	t.Run("invalid start url", func(t *testing.T) {
		t.Parallel()

		_, err := NewSpider(site.client(), nil).Run(context.Background(), 1, "")
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})

	t.Run("runs only once", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(site.client(), nil, WithConfig(testConfig(0)), WithLogger(discardLogger()))
		if _, err := spider.Run(context.Background(), 1, "http://a.test/"); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		if _, err := spider.Run(context.Background(), 1, "http://a.test/"); !errors.Is(err, ErrAlreadyStarted) {
			t.Errorf("expected ErrAlreadyStarted, got %v", err)
		}
	})
}

func TestStateString(t *testing.T) {
	t.Parallel()

	for state, want := range map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StateDraining: "draining",
		StateFinished: "finished",
		State(42):     "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
