// Package main provides the entry point for the formcrawl CLI.
//
// formcrawl crawls websites breadth-first from a start URL and records
// every page together with the HTML forms and form controls found on it.
//
// Usage:
//
//	formcrawl crawl <url> [<url>...]
//	formcrawl report [--list | --project-id <id>]
//
// See --help for all available options.
package main

// main is the entry point for formcrawl.
func main() {
	Execute()
}
