package model

import "strings"

// Page represents a fetched URL.
//
// A page is unique per (ProjectID, URL). Storing the same URL again
// overwrites StatusCode and ContentType while Depth keeps the minimum
// depth ever observed for that URL.
type Page struct {
	// ID is the database identifier of the page.
	ID int64 `json:"id"`

	// ProjectID is the owning project.
	ProjectID int64 `json:"project_id"`

	// URL is the canonical absolute URL (fragment removed).
	URL string `json:"url"`

	// StatusCode is the HTTP status of the final response after redirects.
	StatusCode int `json:"status_code"`

	// Depth is the number of links followed from the start URL.
	Depth int `json:"depth"`

	// ContentType is the raw Content-Type response header.
	ContentType string `json:"content_type"`
}

// IsHTML reports whether the page's content type denotes an HTML document.
// Only HTML pages are parsed for links and forms.
func (p *Page) IsHTML() bool {
	return IsHTMLContentType(p.ContentType)
}

// IsHTMLContentType reports whether contentType contains "html",
// ignoring case. This matches text/html as well as application/xhtml+xml.
func IsHTMLContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}

// Form represents an HTML form element.
type Form struct {
	// ID is the database identifier of the form.
	ID int64 `json:"id"`

	// PageID is the page the form was found on.
	PageID int64 `json:"page_id"`

	// Action is the absolute URL the form submits to.
	// Forms without an action submit to the page they were found on.
	Action string `json:"action"`

	// Method is the upper-cased HTTP method, GET when unspecified.
	Method string `json:"method"`

	// Inputs contains the form's controls in document order.
	Inputs []Input `json:"inputs,omitempty"`
}

// Input represents a form control (input, textarea or select).
type Input struct {
	// ID is the database identifier of the input.
	ID int64 `json:"id"`

	// FormID is the owning form.
	FormID int64 `json:"form_id"`

	// Name is the name attribute, nil when absent.
	Name *string `json:"name"`

	// Type is the type attribute, or the tag name when absent.
	Type string `json:"type"`

	// Value is the value attribute, nil when absent.
	Value *string `json:"value"`
}

// NameOrEmpty returns the input name or "" when it has none.
func (in Input) NameOrEmpty() string {
	if in.Name == nil {
		return ""
	}
	return *in.Name
}

// ValueOrEmpty returns the input value or "" when it has none.
func (in Input) ValueOrEmpty() string {
	if in.Value == nil {
		return ""
	}
	return *in.Value
}
