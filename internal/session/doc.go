// Package session runs crawls on behalf of a user interface.
//
// Session is the control surface for one crawl: Start launches it in the
// background, Stop asks it to end, and the Progress, Errors and Finished
// channels report what happens. BatchProcessor crawls several targets at
// once with a concurrency limit, each into its own project.
//
// Both create a project in the Store before crawling. A failure to create
// the project is fatal for that target; per-URL failures are only progress.
package session
