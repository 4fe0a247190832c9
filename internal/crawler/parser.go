package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/formcrawl/internal/model"
)

// HTML element names the parser looks at.
const (
	htmlElementAnchor   = "a"
	htmlElementForm     = "form"
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// defaultFormMethod is used when a form has no method attribute.
const defaultFormMethod = "GET"

// Extraction holds what was found on one HTML page.
type Extraction struct {
	// Forms in document order. IDs are unset until stored.
	Forms []model.Form

	// Links are the normalized targets of <a href> elements in document
	// order. Duplicates are kept; deduplication happens at the frontier.
	Links []string
}

// Parser extracts links and forms from HTML content.
//
// Parsing uses golang.org/x/net/html, which recovers from malformed markup
// the same way browsers do, so a broken page never aborts the crawl.
type Parser struct {
	// base is the URL of the page being parsed, used for resolving references.
	base string
}

// NewParser creates a parser that resolves references against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return &Parser{base: baseURL}, nil
}

// Parse parses UTF-8 HTML content.
func (p *Parser) Parse(content io.Reader) (*Extraction, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &Extraction{
		Forms: make([]model.Form, 0),
		Links: make([]string, 0),
	}

	// form is the index of the form that owns controls seen now, or -1.
	// It follows the HTML form element pointer: a form opened inside a
	// table is closed by the tree builder, yet its controls still belong to
	// it until the table ends or another form starts.
	form := -1
	var formEnd *html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == htmlElementAnchor:
				if href, ok := getAttr(n, "href"); ok {
					if link, ok := Normalize(p.base, href); ok {
						result.Links = append(result.Links, link)
					}
				}
			case n.Data == htmlElementForm:
				result.Forms = append(result.Forms, p.parseForm(n))
				form = len(result.Forms) - 1
				formEnd = n
				if n.FirstChild == nil && n.Parent != nil && isTablePart(n.Parent.Data) {
					formEnd = enclosingTable(n)
				}
			case isFormControl(n.Data) && form >= 0:
				result.Forms[form].Inputs = append(result.Forms[form].Inputs, parseControl(n))
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n == formEnd {
			form = -1
			formEnd = nil
		}
	}
	walk(doc)

	return result, nil
}

// parseForm builds a form from a <form> element. Its controls are
// attached while the document walk continues.
func (p *Parser) parseForm(n *html.Node) model.Form {
	rawAction, _ := getAttr(n, "action")
	action, ok := Normalize(p.base, rawAction)
	if !ok {
		action = p.base
	}

	method := defaultFormMethod
	if m, _ := getAttr(n, "method"); strings.TrimSpace(m) != "" {
		method = strings.ToUpper(strings.TrimSpace(m))
	}

	return model.Form{
		Action: action,
		Method: method,
		Inputs: make([]model.Input, 0),
	}
}

// parseControl reads an input, textarea or select element.
func parseControl(n *html.Node) model.Input {
	in := model.Input{Type: n.Data}
	if name, ok := getAttr(n, "name"); ok {
		in.Name = &name
	}
	if typ, _ := getAttr(n, "type"); typ != "" {
		in.Type = typ
	}
	if value, ok := getAttr(n, "value"); ok {
		in.Value = &value
	}
	return in
}

// isTablePart reports whether tag is an element the tree builder pops a
// <form> from immediately.
func isTablePart(tag string) bool {
	switch tag {
	case "table", "tbody", "thead", "tfoot", "tr":
		return true
	}
	return false
}

// enclosingTable returns the nearest <table> ancestor of n, or nil.
func enclosingTable(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "table" {
			return p
		}
	}
	return nil
}

func isFormControl(tag string) bool {
	return tag == htmlElementInput || tag == htmlElementTextarea || tag == htmlElementSelect
}

// Extract returns the forms and links of resp.
//
// Responses whose content type does not contain "html" (case-insensitive)
// yield an empty extraction: they are recorded but never parsed. HTML bodies
// are decoded to UTF-8 according to the declared or sniffed charset first.
func Extract(baseURL string, resp *Response) (*Extraction, error) {
	if resp == nil || !model.IsHTMLContentType(resp.ContentType) {
		return &Extraction{Forms: []model.Form{}, Links: []string{}}, nil
	}

	parser, err := NewParser(baseURL)
	if err != nil {
		return nil, err
	}

	var body io.Reader = bytes.NewReader(resp.Body)
	if decoded, err := charset.NewReader(bytes.NewReader(resp.Body), resp.ContentType); err == nil {
		body = decoded
	}

	return parser.Parse(body)
}

// getAttr returns the value of the key attribute and whether it is present.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
