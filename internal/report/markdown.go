package report

import (
	"io"
	"slices"
	"strconv"

	"github.com/nao1215/formcrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the project report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ProjectReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeForms(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteProjects outputs the projects as a Markdown table.
func (w *MarkdownWriter) WriteProjects(projects []model.Project) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Projects")
	md.PlainText("")

	if len(projects) == 0 {
		md.PlainText("No projects stored.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(projects))
	for i, p := range projects {
		rows[i] = []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			"`" + p.TargetURL + "`",
			p.CreatedAt.Format(timeLayout),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name", "Target", "Created"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with project information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ProjectReport) {
	md.H1("FormCrawl Report")
	md.PlainText("")

	p := report.Project
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", p.Name + " (#" + strconv.FormatInt(p.ID, 10) + ")"},
			{"Target", "`" + p.TargetURL + "`"},
			{"Created", p.CreatedAt.Format(timeLayout)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the counters, a status code chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ProjectReport) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Pages", strconv.Itoa(report.PageCount())},
			{"Forms", strconv.Itoa(report.FormCount())},
			{"Inputs", strconv.Itoa(report.InputCount())},
			{"Max Depth", strconv.Itoa(report.MaxDepth())},
		},
	})
	md.PlainText("")

	if report.PageCount() > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of pages per status code.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.ProjectReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages by Status Code"),
		piechart.WithShowData(true),
	)

	counts := report.StatusCounts()
	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		chart.LabelAndIntValue(strconv.Itoa(code), uint64(counts[code])) //nolint:gosec // counts are positive
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert about password forms submitted over HTTP.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ProjectReport) {
	insecure := insecurePasswordForms(report)
	switch {
	case len(insecure) > 0:
		md.Warningf("%d form(s) with a password field submit over plain HTTP.", len(insecure))
	case report.FormCount() == 0:
		md.Note("No forms were found.")
	default:
		md.Tip("No password forms submit over plain HTTP.")
	}
	md.PlainText("")
}

// writePages writes a table of every stored page.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.ProjectReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages stored.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Pages))
	for i, p := range report.Pages {
		contentType := p.ContentType
		if contentType == "" {
			contentType = "-"
		}
		rows[i] = []string{
			truncateString(p.URL, 80),
			strconv.Itoa(p.StatusCode),
			strconv.Itoa(p.Depth),
			contentType,
			strconv.Itoa(len(p.Forms)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Status", "Depth", "Content-Type", "Forms"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeForms writes one section per form with its inputs.
func (w *MarkdownWriter) writeForms(md *markdown.Markdown, report *model.ProjectReport) {
	if report.FormCount() == 0 {
		return
	}

	md.H2("Forms")
	md.PlainText("")

	for _, page := range report.Pages {
		for _, form := range page.Forms {
			md.PlainTextf("### %s `%s`", form.Method, form.Action)
			md.PlainText("")
			md.PlainTextf("Found on `%s`", page.URL)
			md.PlainText("")

			if len(form.Inputs) == 0 {
				md.PlainText("No inputs.")
				md.PlainText("")
				continue
			}

			rows := make([][]string, len(form.Inputs))
			for i, in := range form.Inputs {
				rows[i] = []string{
					optional(in.Name),
					in.Type,
					truncateString(optional(in.Value), 50),
				}
			}
			md.Table(markdown.TableSet{
				Header: []string{"Name", "Type", "Value"},
				Rows:   rows,
			})
			md.PlainText("")
		}
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [formcrawl](https://github.com/nao1215/formcrawl)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
