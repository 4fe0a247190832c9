// Package report renders stored crawl results.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter and FullJSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for documentation and sharing
//
// Report data is assembled by the database package into a
// model.ProjectReport; writers only format it. Redact masks the values of
// password, hidden and token-like inputs and should be applied before
// writing unless the caller asked for raw values.
package report
