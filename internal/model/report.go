package model

// PageDetail is a stored page together with the forms found on it.
type PageDetail struct {
	Page
	Forms []Form `json:"forms,omitempty"`
}

// ProjectReport aggregates everything stored for one project.
// It is assembled by the database package and rendered by the report package.
type ProjectReport struct {
	Project Project      `json:"project"`
	Pages   []PageDetail `json:"pages"`
}

// PageCount returns the number of stored pages.
func (r *ProjectReport) PageCount() int {
	return len(r.Pages)
}

// FormCount returns the number of forms across all pages.
func (r *ProjectReport) FormCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Forms)
	}
	return n
}

// InputCount returns the number of inputs across all forms.
func (r *ProjectReport) InputCount() int {
	n := 0
	for _, p := range r.Pages {
		for _, f := range p.Forms {
			n += len(f.Inputs)
		}
	}
	return n
}

// StatusCounts groups pages by HTTP status code.
func (r *ProjectReport) StatusCounts() map[int]int {
	counts := make(map[int]int)
	for _, p := range r.Pages {
		counts[p.StatusCode]++
	}
	return counts
}

// MaxDepth returns the deepest stored page depth, or 0 for an empty report.
func (r *ProjectReport) MaxDepth() int {
	maxDepth := 0
	for _, p := range r.Pages {
		if p.Depth > maxDepth {
			maxDepth = p.Depth
		}
	}
	return maxDepth
}
