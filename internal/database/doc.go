// Package database stores crawl results.
//
// CrawlDB implements crawler.Store on top of sqlx and keeps four tables:
//   - projects: one row per crawl target
//   - pages: fetched URLs, unique per project, with the minimum depth seen
//   - forms: one row per <form> found on a page
//   - inputs: one row per form control
//
// Two backends share the same queries: SQLite (modernc.org/sqlite, the
// default, a single file under the XDG data directory) and PostgreSQL
// (pgx through its database/sql driver). Queries are written with "?"
// placeholders and rebound for the driver.
//
// Every write commits on its own. CrawlDB serializes writes with a mutex, so
// it can be shared by all crawl workers.
package database
