package database

// Supported drivers.
const (
	// DriverSQLite stores everything in a local file.
	DriverSQLite = "sqlite"

	// DriverPostgres connects to a PostgreSQL server.
	DriverPostgres = "postgres"
)

// dialect holds the SQL that differs between backends.
type dialect struct {
	// driverName is the database/sql driver name.
	driverName string

	// schema creates all tables and indexes.
	schema []string

	// minDepth is the upsert expression keeping the smaller depth.
	minDepth string
}

var sqliteDialect = dialect{
	driverName: "sqlite",
	minDepth:   "MIN(pages.depth, excluded.depth)",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			target_url TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			status_code INTEGER,
			depth INTEGER NOT NULL,
			content_type TEXT,
			UNIQUE(project_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS forms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			method TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inputs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			form_id INTEGER NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
			name TEXT,
			type TEXT NOT NULL,
			value TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_project ON pages(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_page ON forms(page_id)`,
		`CREATE INDEX IF NOT EXISTS idx_inputs_form ON inputs(form_id)`,
	},
}

var postgresDialect = dialect{
	driverName: "pgx",
	minDepth:   "LEAST(pages.depth, excluded.depth)",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			target_url TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			id BIGSERIAL PRIMARY KEY,
			project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			status_code INTEGER,
			depth INTEGER NOT NULL,
			content_type TEXT,
			UNIQUE(project_id, url)
		)`,
		`CREATE TABLE IF NOT EXISTS forms (
			id BIGSERIAL PRIMARY KEY,
			page_id BIGINT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
			action TEXT NOT NULL,
			method TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inputs (
			id BIGSERIAL PRIMARY KEY,
			form_id BIGINT NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
			name TEXT,
			type TEXT NOT NULL,
			value TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_project ON pages(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_forms_page ON forms(page_id)`,
		`CREATE INDEX IF NOT EXISTS idx_inputs_form ON inputs(form_id)`,
	},
}
