package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/formcrawl/internal/model"
)

// timeLayout is used for every timestamp in text and Markdown output.
const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display and is easy to pipe to
// files or grep.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether pages without forms are listed.
	showEmpty bool

	// verbose adds the content type of every page.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to list pages that have no forms.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the project report in human-readable format.
func (w *SimpleWriter) Write(report *model.ProjectReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeStatusCodes(&sb, report)
	w.writePages(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteProjects outputs one line per project, newest first as given.
func (w *SimpleWriter) WriteProjects(projects []model.Project) (int, error) {
	var sb strings.Builder

	if len(projects) == 0 {
		sb.WriteString("No projects stored.\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(fmt.Sprintf("%-6s %-24s %-23s %s\n", "ID", "NAME", "CREATED", "TARGET"))
	for _, p := range projects {
		sb.WriteString(fmt.Sprintf("%-6d %-24s %-23s %s\n",
			p.ID, p.Name, p.CreatedAt.Format(timeLayout), p.TargetURL))
	}
	return w.output.Write([]byte(sb.String()))
}

// writeRule writes a section title between two horizontal rules.
func writeRule(sb *strings.Builder, ch, title string) {
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(ch, 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with project information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ProjectReport) {
	sb.WriteString("\n")
	writeRule(sb, "=", "                         FORMCRAWL REPORT")

	p := report.Project
	sb.WriteString(fmt.Sprintf("Project:    %s (#%d)\n", p.Name, p.ID))
	sb.WriteString(fmt.Sprintf("Target:     %s\n", p.TargetURL))
	sb.WriteString(fmt.Sprintf("Created:    %s\n", p.CreatedAt.Format(timeLayout)))
	sb.WriteString(fmt.Sprintf("Pages:      %d\n", report.PageCount()))
	sb.WriteString(fmt.Sprintf("Forms:      %d\n", report.FormCount()))
	sb.WriteString(fmt.Sprintf("Inputs:     %d\n", report.InputCount()))
	sb.WriteString(fmt.Sprintf("Max Depth:  %d\n", report.MaxDepth()))

	if insecure := insecurePasswordForms(report); len(insecure) > 0 {
		sb.WriteString(fmt.Sprintf("Warning:    %d password form(s) submit over plain HTTP\n", len(insecure)))
	}
	sb.WriteString("\n")
}

// writeStatusCodes writes the number of pages per HTTP status.
func (w *SimpleWriter) writeStatusCodes(sb *strings.Builder, report *model.ProjectReport) {
	counts := report.StatusCounts()
	if len(counts) == 0 {
		return
	}

	writeRule(sb, "-", "STATUS CODES")

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		sb.WriteString(fmt.Sprintf("  %d: %d\n", code, counts[code]))
	}
	sb.WriteString("\n")
}

// writePages writes every page with its forms and inputs.
func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.ProjectReport) {
	writeRule(sb, "-", "PAGES")

	if len(report.Pages) == 0 {
		sb.WriteString("  No pages stored\n\n")
		return
	}

	for _, page := range report.Pages {
		if len(page.Forms) == 0 && !w.showEmpty {
			continue
		}

		sb.WriteString(fmt.Sprintf("[%d] depth=%d %s\n", page.StatusCode, page.Depth, page.URL))
		if w.verbose && page.ContentType != "" {
			sb.WriteString(fmt.Sprintf("      %s\n", page.ContentType))
		}
		for _, form := range page.Forms {
			sb.WriteString(fmt.Sprintf("  * FORM %s %s\n", form.Method, form.Action))
			for _, in := range form.Inputs {
				sb.WriteString(fmt.Sprintf("      - %-10s name=%s value=%s\n",
					in.Type, optional(in.Name), optional(in.Value)))
			}
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by formcrawl\n")
	sb.WriteString("https://github.com/nao1215/formcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
