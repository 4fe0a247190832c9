package crawler

import (
	"context"

	"github.com/nao1215/formcrawl/internal/model"
)

// Store persists crawl results. Implementations are called from many
// workers at once and must serialize their own writes. Each call commits
// independently; no transaction spans calls.
type Store interface {
	// CreateProject records a new crawl target and returns its ID.
	CreateProject(ctx context.Context, name, targetURL string) (int64, error)

	// UpsertPage inserts or updates the page identified by
	// (page.ProjectID, page.URL) and returns its ID. On conflict the status
	// code and content type are overwritten and the depth becomes the
	// minimum of the stored and the new depth.
	UpsertPage(ctx context.Context, page *model.Page) (int64, error)

	// InsertForm records a form found on a page and returns its ID.
	InsertForm(ctx context.Context, pageID int64, action, method string) (int64, error)

	// InsertInput records a control belonging to a form.
	InsertInput(ctx context.Context, formID int64, input model.Input) error
}
