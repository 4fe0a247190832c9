// Package log provides slog loggers that keep secrets out of crawl logs.
//
// A crawler sees credentials in many places: cookies and authorization
// headers, password and hidden form fields, anti-forgery tokens, and
// session identifiers embedded in URLs. The SecureHandler masks all of
// them before records reach the output handler:
//   - attributes whose key names sensitive data (password, cookie, csrf, ...)
//   - values that look like tokens (JWT, bearer, long random strings)
//   - form field groups (name/type/value) for sensitive names or for
//     password and hidden controls
//   - sensitive query parameters and userinfo passwords in http(s) URLs
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("form input",
//	    slog.Group("input", "name", "password", "type", "password", "value", "hunter2"),
//	)
//	// input.value=***REDACTED***
//
//	slog.SetDefault(logger)
package log
