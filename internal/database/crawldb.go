package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // PostgreSQL driver ("pgx")
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/formcrawl/internal/model"
)

// DBFileName is the SQLite database file created inside the database directory.
const DBFileName = "formcrawl.db"

// CrawlDB stores projects, pages, forms and inputs.
// It is safe for concurrent use; writes are serialized.
type CrawlDB struct {
	// db is the underlying connection pool.
	db *sqlx.DB

	// dialect selects backend specific SQL.
	dialect dialect

	// location is the SQLite file path or a description of the server.
	location string

	// mu serializes writes.
	mu sync.Mutex
}

// Options configures CrawlDB behavior.
type Options struct {
	// Driver is DriverSQLite (default) or DriverPostgres.
	Driver string

	// DSN is the PostgreSQL connection string. Ignored for SQLite.
	DSN string

	// CreateIfNotExists creates the SQLite file and its directory when missing.
	CreateIfNotExists bool

	// EnableWAL turns on SQLite write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns options for a SQLite database that is created on demand.
func DefaultOptions() Options {
	return Options{
		Driver:            DriverSQLite,
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database selected by opts. For SQLite the file is
// DBFileName inside dbDir; for PostgreSQL dbDir is ignored and opts.DSN is used.
// Tables are created when missing.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	switch opts.Driver {
	case "", DriverSQLite:
		return openSQLite(dbDir, opts)
	case DriverPostgres:
		return openPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}
}

func openSQLite(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotExist, dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	dsn := dbPath + "?mode=" + mode + "&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open(sqliteDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return initialize(db, sqliteDialect, dbPath)
}

func openPostgres(dsn string) (*CrawlDB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres requires a DSN", ErrUnsupportedDriver)
	}

	db, err := sqlx.Open(postgresDialect.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return initialize(db, postgresDialect, "postgres")
}

func initialize(db *sqlx.DB, d dialect, location string) (*CrawlDB, error) {
	cdb := &CrawlDB{
		db:       db,
		dialect:  d,
		location: location,
	}
	if err := cdb.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Location returns the SQLite file path, or "postgres".
func (cdb *CrawlDB) Location() string {
	return cdb.location
}

// createTables creates the schema if it doesn't exist.
func (cdb *CrawlDB) createTables(ctx context.Context) error {
	for _, stmt := range cdb.dialect.schema {
		if _, err := cdb.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (cdb *CrawlDB) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := cdb.db.QueryRowxContext(ctx, cdb.db.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateProject records a new crawl target and returns its ID.
func (cdb *CrawlDB) CreateProject(ctx context.Context, name, targetURL string) (int64, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	id, err := cdb.insertReturningID(ctx,
		`INSERT INTO projects (name, target_url) VALUES (?, ?) RETURNING id`,
		name, targetURL,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}
	return id, nil
}

// UpsertPage inserts the page or, when (project, URL) already exists,
// overwrites its status code and content type and keeps the smaller depth.
// It returns the page ID either way.
func (cdb *CrawlDB) UpsertPage(ctx context.Context, page *model.Page) (int64, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	query := `
	INSERT INTO pages (project_id, url, status_code, depth, content_type)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(project_id, url) DO UPDATE SET
		status_code = excluded.status_code,
		depth = ` + cdb.dialect.minDepth + `,
		content_type = excluded.content_type
	RETURNING id
	`

	id, err := cdb.insertReturningID(ctx, query,
		page.ProjectID,
		page.URL,
		page.StatusCode,
		page.Depth,
		page.ContentType,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert page: %w", err)
	}
	return id, nil
}

// InsertForm records a form found on a page and returns its ID.
func (cdb *CrawlDB) InsertForm(ctx context.Context, pageID int64, action, method string) (int64, error) {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	id, err := cdb.insertReturningID(ctx,
		`INSERT INTO forms (page_id, action, method) VALUES (?, ?, ?) RETURNING id`,
		pageID, action, method,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert form: %w", err)
	}
	return id, nil
}

// InsertInput records a form control. Absent names and values are stored as NULL.
func (cdb *CrawlDB) InsertInput(ctx context.Context, formID int64, input model.Input) error {
	cdb.mu.Lock()
	defer cdb.mu.Unlock()

	query := cdb.db.Rebind(`INSERT INTO inputs (form_id, name, type, value) VALUES (?, ?, ?, ?)`)
	if _, err := cdb.db.ExecContext(ctx, query,
		formID,
		nullString(input.Name),
		input.Type,
		nullString(input.Value),
	); err != nil {
		return fmt.Errorf("failed to insert input: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// isNoRows reports whether err means an empty result.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
