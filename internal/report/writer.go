package report

import (
	"io"
	"strings"

	"github.com/nao1215/formcrawl/internal/log"
	"github.com/nao1215/formcrawl/internal/model"
)

// Writer defines the interface for report output.
// Implementations write crawl results in various formats.
type Writer interface {
	// Write outputs the pages, forms and inputs of one project.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ProjectReport) (int, error)

	// WriteProjects outputs a listing of stored projects.
	WriteProjects(projects []model.Project) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.ProjectReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteProjects outputs the project listing to all configured Writers.
func (m *MultiWriter) WriteProjects(projects []model.Project) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteProjects(projects)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Redact returns a copy of report in which the value of every sensitive
// input is replaced by log.MaskValue. An input is sensitive when its type
// is password or hidden or its name looks like a credential or token.
// Absent values stay absent. The original report is not modified.
func Redact(report *model.ProjectReport) *model.ProjectReport {
	if report == nil {
		return nil
	}

	out := &model.ProjectReport{
		Project: report.Project,
		Pages:   make([]model.PageDetail, len(report.Pages)),
	}
	for i, page := range report.Pages {
		out.Pages[i] = model.PageDetail{Page: page.Page}
		if page.Forms == nil {
			continue
		}
		out.Pages[i].Forms = make([]model.Form, len(page.Forms))
		for j, form := range page.Forms {
			form.Inputs = redactInputs(form.Inputs)
			out.Pages[i].Forms[j] = form
		}
	}
	return out
}

func redactInputs(inputs []model.Input) []model.Input {
	if inputs == nil {
		return nil
	}

	out := make([]model.Input, len(inputs))
	for i, in := range inputs {
		if in.Value != nil && log.IsSensitiveField(in.NameOrEmpty(), in.Type) {
			masked := log.MaskValue
			in.Value = &masked
		}
		out[i] = in
	}
	return out
}

// insecurePasswordForms returns the forms that carry a password input and
// submit to a plain http URL.
func insecurePasswordForms(report *model.ProjectReport) []model.Form {
	var forms []model.Form
	for _, page := range report.Pages {
		for _, form := range page.Forms {
			if !hasPasswordInput(form) {
				continue
			}
			if strings.HasPrefix(strings.ToLower(form.Action), "http://") {
				forms = append(forms, form)
			}
		}
	}
	return forms
}

func hasPasswordInput(form model.Form) bool {
	for _, in := range form.Inputs {
		if strings.EqualFold(in.Type, "password") {
			return true
		}
	}
	return false
}

// optional renders a nullable attribute.
func optional(s *string) string {
	if s == nil {
		return "-"
	}
	if *s == "" {
		return `""`
	}
	return *s
}
