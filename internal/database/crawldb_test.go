package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/formcrawl/internal/crawler"
	"github.com/nao1215/formcrawl/internal/model"
)

var _ crawler.Store = (*CrawlDB)(nil)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func strPtr(s string) *string {
	return &s
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		require.NoError(t, err)
		defer db.Close()

		dbPath := filepath.Join(dbDir, DBFileName)
		assert.FileExists(t, dbPath)
		assert.Equal(t, dbPath, db.Location())
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{Driver: DriverSQLite})
		require.True(t, errors.Is(err, ErrDatabaseNotExist), "expected ErrDatabaseNotExist, got %v", err)

		_, statErr := os.Stat(dbDir)
		assert.True(t, os.IsNotExist(statErr), "database directory should not have been created")
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		require.NoError(t, err)
		id, err := db1.CreateProject(ctx, "a.test", "http://a.test/")
		require.NoError(t, err)
		db1.Close()

		db2, err := Open(dbDir, Options{Driver: DriverSQLite, EnableWAL: true})
		require.NoError(t, err)
		defer db2.Close()

		project, err := db2.GetProject(ctx, id)
		require.NoError(t, err, "expected project to persist")
		assert.Equal(t, "a.test", project.Name)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{Driver: "mysql"})
		assert.True(t, errors.Is(err, ErrUnsupportedDriver), "expected ErrUnsupportedDriver, got %v", err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Parallel()

		_, err := Open("", Options{Driver: DriverPostgres})
		assert.True(t, errors.Is(err, ErrUnsupportedDriver), "expected ErrUnsupportedDriver, got %v", err)
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()

	assert.Equal(t, DriverSQLite, opts.Driver)
	assert.True(t, opts.CreateIfNotExists)
	assert.True(t, opts.EnableWAL)
}

func TestProjects(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.LatestProject(ctx)
	require.True(t, errors.Is(err, ErrNotFound), "empty database has no latest project, got %v", err)

	first, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)
	second, err := db.CreateProject(ctx, "b.test", "http://b.test/")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	latest, err := db.LatestProject(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, "http://b.test/", latest.TargetURL)
	assert.False(t, latest.CreatedAt.IsZero(), "created_at must be set")

	projects, err := db.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second, projects[0].ID, "projects are listed newest first")

	_, err = db.GetProject(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestUpsertPage(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	projectID, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)

	upsert := func(depth, status int) int64 {
		t.Helper()
		id, err := db.UpsertPage(ctx, &model.Page{
			ProjectID:   projectID,
			URL:         "http://a.test/x",
			StatusCode:  status,
			Depth:       depth,
			ContentType: "text/html",
		})
		require.NoError(t, err)
		return id
	}
	storedPage := func() model.Page {
		t.Helper()
		pages, err := db.ListPages(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, pages, 1)
		return pages[0]
	}

	id := upsert(2, 200)

	assert.Equal(t, id, upsert(3, 404), "upsert must keep the page ID")
	assert.Equal(t, 2, storedPage().Depth, "larger depth must not replace the stored one")

	upsert(1, 200)
	page := storedPage()
	assert.Equal(t, 1, page.Depth, "smaller depth must replace the stored one")
	assert.Equal(t, 200, page.StatusCode, "status code is overwritten by the last upsert")

	// The same URL under another project is a different page.
	otherProject, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)
	otherID, err := db.UpsertPage(ctx, &model.Page{ProjectID: otherProject, URL: "http://a.test/x", StatusCode: 200})
	require.NoError(t, err)
	assert.NotEqual(t, id, otherID)
}

func TestFormsAndInputs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	projectID, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)
	pageID, err := db.UpsertPage(ctx, &model.Page{ProjectID: projectID, URL: "http://a.test/page", StatusCode: 200, ContentType: "text/html"})
	require.NoError(t, err)
	formID, err := db.InsertForm(ctx, pageID, "http://a.test/login", "POST")
	require.NoError(t, err)

	inputs := []model.Input{
		{Name: strPtr("user"), Type: "text"},
		{Name: strPtr("csrf"), Type: "hidden", Value: strPtr("abc")},
		{Type: "submit", Value: strPtr("")},
	}
	for _, in := range inputs {
		require.NoError(t, db.InsertInput(ctx, formID, in))
	}

	forms, err := db.ListForms(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, forms, 1)

	form := forms[0]
	assert.Equal(t, "http://a.test/login", form.Action)
	assert.Equal(t, "POST", form.Method)
	assert.Equal(t, pageID, form.PageID)

	require.Len(t, form.Inputs, 3)
	assert.Equal(t, "user", form.Inputs[0].NameOrEmpty())
	assert.Nil(t, form.Inputs[0].Value)
	assert.Equal(t, "abc", form.Inputs[1].ValueOrEmpty())
	assert.Nil(t, form.Inputs[2].Name, "absent name is read back as nil")
	if assert.NotNil(t, form.Inputs[2].Value, "empty value differs from an absent one") {
		assert.Equal(t, "", *form.Inputs[2].Value)
	}

	_, err = db.InsertForm(ctx, 9999, "http://a.test/", "GET")
	assert.Error(t, err, "unknown page must violate the foreign key")
}

func TestProjectReport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	projectID, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)
	rootID, err := db.UpsertPage(ctx, &model.Page{ProjectID: projectID, URL: "http://a.test/", StatusCode: 200, ContentType: "text/html"})
	require.NoError(t, err)
	_, err = db.UpsertPage(ctx, &model.Page{ProjectID: projectID, URL: "http://a.test/logo.png", StatusCode: 200, Depth: 1, ContentType: "image/png"})
	require.NoError(t, err)
	formID, err := db.InsertForm(ctx, rootID, "http://a.test/search", "GET")
	require.NoError(t, err)
	require.NoError(t, db.InsertInput(ctx, formID, model.Input{Name: strPtr("q"), Type: "text"}))

	report, err := db.ProjectReport(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, projectID, report.Project.ID)
	assert.Equal(t, 2, report.PageCount())
	assert.Equal(t, 1, report.FormCount())
	assert.Equal(t, 1, report.InputCount())

	require.NotEmpty(t, report.Pages)
	assert.Equal(t, "http://a.test/", report.Pages[0].URL, "root page comes first")
	assert.Len(t, report.Pages[0].Forms, 1)

	_, err = db.ProjectReport(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestConcurrentWrites(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	projectID, err := db.CreateProject(ctx, "a.test", "http://a.test/")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				// Every worker writes the same ten URLs.
				url := "http://a.test/" + string(rune('a'+i))
				pageID, err := db.UpsertPage(ctx, &model.Page{ProjectID: projectID, URL: url, StatusCode: 200, Depth: w})
				if err != nil {
					errs <- err
					return
				}
				if _, err := db.InsertForm(ctx, pageID, url, "GET"); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "concurrent write failed")
	}

	pages, err := db.ListPages(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, pages, 10, "expected unique pages")
	for _, p := range pages {
		assert.Equal(t, 0, p.Depth, "page %s should keep the minimum depth", p.URL)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2025-01-02 03:04:05",
		"2025-01-02T03:04:05Z",
		"2025-01-02T03:04:05",
		"2025-01-02T03:04:05+09:00",
		"2025-01-02T03:04:05.123456789Z",
	} {
		assert.False(t, parseTimestamp(s).IsZero(), "failed to parse %q", s)
	}
	assert.True(t, parseTimestamp("yesterday").IsZero())
}
