package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nao1215/formcrawl/internal/model"
)

type projectRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	TargetURL string `db:"target_url"`
	CreatedAt string `db:"created_at"`
}

func (r projectRow) toModel() model.Project {
	return model.Project{
		ID:        r.ID,
		Name:      r.Name,
		TargetURL: r.TargetURL,
		CreatedAt: parseTimestamp(r.CreatedAt),
	}
}

type pageRow struct {
	ID          int64          `db:"id"`
	ProjectID   int64          `db:"project_id"`
	URL         string         `db:"url"`
	StatusCode  sql.NullInt64  `db:"status_code"`
	Depth       int            `db:"depth"`
	ContentType sql.NullString `db:"content_type"`
}

func (r pageRow) toModel() model.Page {
	return model.Page{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		URL:         r.URL,
		StatusCode:  int(r.StatusCode.Int64),
		Depth:       r.Depth,
		ContentType: r.ContentType.String,
	}
}

type formRow struct {
	ID     int64  `db:"id"`
	PageID int64  `db:"page_id"`
	Action string `db:"action"`
	Method string `db:"method"`
}

type inputRow struct {
	ID     int64          `db:"id"`
	FormID int64          `db:"form_id"`
	Name   sql.NullString `db:"name"`
	Type   string         `db:"type"`
	Value  sql.NullString `db:"value"`
}

const projectColumns = `id, name, target_url, created_at`

// GetProject returns the project with the given ID or ErrNotFound.
func (cdb *CrawlDB) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var row projectRow
	query := cdb.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE id = ?`)
	if err := cdb.db.GetContext(ctx, &row, query, id); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// LatestProject returns the most recently created project or ErrNotFound.
func (cdb *CrawlDB) LatestProject(ctx context.Context) (*model.Project, error) {
	var row projectRow
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY id DESC LIMIT 1`
	if err := cdb.db.GetContext(ctx, &row, query); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("no projects: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest project: %w", err)
	}
	p := row.toModel()
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (cdb *CrawlDB) ListProjects(ctx context.Context) ([]model.Project, error) {
	var rows []projectRow
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY id DESC`
	if err := cdb.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]model.Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, r.toModel())
	}
	return projects, nil
}

// ListPages returns the pages of a project ordered by depth, then URL.
func (cdb *CrawlDB) ListPages(ctx context.Context, projectID int64) ([]model.Page, error) {
	var rows []pageRow
	query := cdb.db.Rebind(`
	SELECT id, project_id, url, status_code, depth, content_type
	FROM pages
	WHERE project_id = ?
	ORDER BY depth, url
	`)
	if err := cdb.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make([]model.Page, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, r.toModel())
	}
	return pages, nil
}

// ListForms returns every form stored for a project, with its inputs in
// insertion order.
func (cdb *CrawlDB) ListForms(ctx context.Context, projectID int64) ([]model.Form, error) {
	var formRows []formRow
	formQuery := cdb.db.Rebind(`
	SELECT f.id, f.page_id, f.action, f.method
	FROM forms f
	JOIN pages p ON p.id = f.page_id
	WHERE p.project_id = ?
	ORDER BY f.id
	`)
	if err := cdb.db.SelectContext(ctx, &formRows, formQuery, projectID); err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	var inputRows []inputRow
	inputQuery := cdb.db.Rebind(`
	SELECT i.id, i.form_id, i.name, i.type, i.value
	FROM inputs i
	JOIN forms f ON f.id = i.form_id
	JOIN pages p ON p.id = f.page_id
	WHERE p.project_id = ?
	ORDER BY i.id
	`)
	if err := cdb.db.SelectContext(ctx, &inputRows, inputQuery, projectID); err != nil {
		return nil, fmt.Errorf("failed to list inputs: %w", err)
	}

	inputs := make(map[int64][]model.Input)
	for _, r := range inputRows {
		inputs[r.FormID] = append(inputs[r.FormID], model.Input{
			ID:     r.ID,
			FormID: r.FormID,
			Name:   stringPtr(r.Name),
			Type:   r.Type,
			Value:  stringPtr(r.Value),
		})
	}

	forms := make([]model.Form, 0, len(formRows))
	for _, r := range formRows {
		ins := inputs[r.ID]
		if ins == nil {
			ins = []model.Input{}
		}
		forms = append(forms, model.Form{
			ID:     r.ID,
			PageID: r.PageID,
			Action: r.Action,
			Method: r.Method,
			Inputs: ins,
		})
	}
	return forms, nil
}

// ProjectReport loads a project with all its pages, forms and inputs.
func (cdb *CrawlDB) ProjectReport(ctx context.Context, projectID int64) (*model.ProjectReport, error) {
	project, err := cdb.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	pages, err := cdb.ListPages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	forms, err := cdb.ListForms(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byPage := make(map[int64][]model.Form)
	for _, f := range forms {
		byPage[f.PageID] = append(byPage[f.PageID], f)
	}

	report := &model.ProjectReport{
		Project: *project,
		Pages:   make([]model.PageDetail, 0, len(pages)),
	}
	for _, p := range pages {
		report.Pages = append(report.Pages, model.PageDetail{Page: p, Forms: byPage[p.ID]})
	}
	return report, nil
}

// timestampFormats contains the timestamp formats the drivers may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds, as formatted from time.Time
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
