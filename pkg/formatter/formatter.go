// Package formatter renders tool invocation reports as text, JSON,
// CSV, HTML, or Markdown. The call_report tool and the workflow runner
// both hand their outcomes through here.
package formatter

import (
	"sort"
	"time"
)

var formatters = map[OutputFormat]OutputFormatter{
	FormatText:     &TextFormatter{},
	FormatJSON:     &JSONFormatter{},
	FormatCSV:      &CSVFormatter{},
	FormatHTML:     &HTMLFormatter{},
	FormatMarkdown: &MarkdownFormatter{},
}

// For returns the formatter for format, falling back to text.
func For(format OutputFormat) OutputFormatter {
	if f, ok := formatters[format]; ok {
		return f
	}
	return formatters[FormatText]
}

// Known reports whether format names a registered formatter.
func Known(format OutputFormat) bool {
	_, ok := formatters[format]
	return ok
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(formatters))
	for f := range formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// NewReport builds a report around one invocation's outcome. A non-nil
// err marks the report failed and keeps its message.
func NewReport(tool, invocation, server string, data interface{}, err error) *ToolReport {
	report := &ToolReport{
		Tool:       tool,
		Invocation: invocation,
		Server:     server,
		Timestamp:  time.Now().Format(time.RFC3339),
		Data:       data,
		Metadata:   make(map[string]interface{}),
	}
	if err != nil {
		report.Status = "error"
		report.Error = err.Error()
	} else {
		report.Status = "success"
	}
	return report
}

// FormatReport renders the report in the requested format.
func FormatReport(report *ToolReport, format OutputFormat) string {
	return For(format).Format(report)
}

// sortedKeys keeps map-backed report content in a stable order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
