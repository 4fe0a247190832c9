// Package model defines the records produced by a crawl.
//
// This package contains the following main types:
//   - Project: One crawl target and the run that created it
//   - Page: A fetched URL with its status, content type and minimum depth
//   - Form: An HTML form discovered on a page
//   - Input: A control (input, textarea, select) belonging to a form
//   - ProjectReport: A project together with everything stored for it
//
// The crawler, database and report packages all share these types, so they
// live in their own package to avoid import cycles.
package model
