package model

import "time"

// Project is a named crawl target.
// Every crawl run creates one project and all pages it stores are keyed by it.
type Project struct {
	// ID is the database identifier of the project.
	ID int64 `json:"id"`

	// Name is a human-readable label, by default the host of the target URL.
	Name string `json:"name"`

	// TargetURL is the start URL the crawl was seeded with.
	TargetURL string `json:"target_url"`

	// CreatedAt is when the project row was written.
	CreatedAt time.Time `json:"created_at"`
}
