package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/nao1215/formcrawl/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the project report in JSON format.
func (w *JSONWriter) Write(report *model.ProjectReport) (int, error) {
	return w.writeJSON(report)
}

// WriteProjects outputs the projects as a JSON array. An empty listing is
// written as [] rather than null.
func (w *JSONWriter) WriteProjects(projects []model.Project) (int, error) {
	if projects == nil {
		projects = []model.Project{}
	}
	return w.writeJSON(projects)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}

// Summary holds the counters of a project report.
type Summary struct {
	Pages  int `json:"pages"`
	Forms  int `json:"forms"`
	Inputs int `json:"inputs"`

	// MaxDepth is the deepest stored page depth.
	MaxDepth int `json:"max_depth"`

	// StatusCodes maps HTTP status codes to page counts.
	StatusCodes map[string]int `json:"status_codes"`

	// InsecurePasswordForms counts forms with a password input that submit
	// over plain HTTP.
	InsecurePasswordForms int `json:"insecure_password_forms"`
}

// NewSummary computes the counters of report.
func NewSummary(report *model.ProjectReport) *Summary {
	codes := make(map[string]int)
	for code, n := range report.StatusCounts() {
		codes[strconv.Itoa(code)] = n
	}
	return &Summary{
		Pages:                 report.PageCount(),
		Forms:                 report.FormCount(),
		Inputs:                report.InputCount(),
		MaxDepth:              report.MaxDepth(),
		StatusCodes:           codes,
		InsecurePasswordForms: len(insecurePasswordForms(report)),
	}
}

// JSONReport is a wrapper for the project report with additional metadata.
type JSONReport struct {
	// Version is the formcrawl version that generated this report.
	Version string `json:"version"`

	// Summary holds the counters for quick access.
	Summary *Summary `json:"summary"`

	// Report is the full project report.
	Report *model.ProjectReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.ProjectReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: NewSummary(report),
		Report:  report,
	}
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the formcrawl version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the project report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.ProjectReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
