package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nao1215/formcrawl/internal/crawler"
)

// Target is one crawl to run.
type Target struct {
	// URL is the start URL. A missing scheme means http.
	URL string

	// ProjectName labels the stored project. Empty means the URL's host.
	ProjectName string

	// Config holds the crawl limits.
	Config crawler.Config

	// Client performs the requests. Nil means a default client.
	Client *http.Client
}

// Result is the outcome of one crawl.
type Result struct {
	// Target is the start URL as given.
	Target string

	// ProjectID is the created project, or 0 if creation failed.
	ProjectID int64

	// Summary is nil when the crawl could not start.
	Summary *crawler.Summary

	// Err is the fatal error, if any. Per-URL failures are counted in
	// Summary.Errors instead.
	Err error
}

// projectName returns name, or the host of the canonical start URL.
func projectName(name, start string) string {
	if name != "" {
		return name
	}
	if u, err := url.Parse(start); err == nil && u.Host != "" {
		return u.Host
	}
	return start
}

// createProject records the project for a canonical start URL.
func createProject(ctx context.Context, store crawler.Store, name, start string) (int64, error) {
	id, err := store.CreateProject(ctx, projectName(name, start), start)
	if err != nil {
		return 0, fmt.Errorf("failed to create project for %s: %w", start, err)
	}
	return id, nil
}
