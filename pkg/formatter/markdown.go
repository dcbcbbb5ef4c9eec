package formatter

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as Markdown.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(report *ToolReport) string {
	var output strings.Builder

	if report.Error != "" {
		fmt.Fprintf(&output, "# Error\n\n%s\n", report.Error)
		return output.String()
	}

	fmt.Fprintf(&output, "# %s Tool Report\n\n", report.Tool)
	fmt.Fprintf(&output, "**Invocation:** %s\n\n", report.Invocation)
	fmt.Fprintf(&output, "**Server:** %s\n\n", report.Server)
	fmt.Fprintf(&output, "**Generated:** %s\n\n", report.Timestamp)

	f.formatDataMarkdown(&output, report.Data, 0)
	return output.String()
}

func (f *MarkdownFormatter) formatDataMarkdown(output *strings.Builder, data interface{}, level int) {
	switch v := data.(type) {
	case nil:
	case string:
		fmt.Fprintf(output, "%s\n\n", v)
	case []string:
		for _, s := range v {
			fmt.Fprintf(output, "- %s\n", s)
		}
		output.WriteString("\n")
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			fmt.Fprintf(output, "**%s:** ", key)
			f.formatDataMarkdown(output, v[key], level)
		}
	case []interface{}:
		for _, item := range v {
			f.formatDataMarkdown(output, item, level)
		}
	case *TableData:
		f.formatTableMarkdown(output, v)
	case []SectionData:
		f.formatSectionsMarkdown(output, v, level)
	default:
		fmt.Fprintf(output, "%v\n\n", v)
	}
}

func (f *MarkdownFormatter) formatTableMarkdown(output *strings.Builder, table *TableData) {
	if len(table.Rows) == 0 {
		output.WriteString("No data available.\n\n")
		return
	}

	output.WriteString("| ")
	for i, header := range table.Headers {
		output.WriteString(f.escapeMarkdown(header))
		if i < len(table.Headers)-1 {
			output.WriteString(" | ")
		}
	}
	output.WriteString(" |\n")

	output.WriteString("| ")
	for i := range table.Headers {
		output.WriteString("---")
		if i < len(table.Headers)-1 {
			output.WriteString(" | ")
		}
	}
	output.WriteString(" |\n")

	for _, row := range table.Rows {
		output.WriteString("| ")
		for i, cell := range row {
			output.WriteString(f.escapeMarkdown(cell))
			if i < len(row)-1 {
				output.WriteString(" | ")
			}
		}
		output.WriteString(" |\n")
	}
	output.WriteString("\n")
}

func (f *MarkdownFormatter) formatSectionsMarkdown(output *strings.Builder, sections []SectionData, level int) {
	for _, section := range sections {
		f.formatSectionMarkdown(output, &section, level)
	}
}

func (f *MarkdownFormatter) formatSectionMarkdown(output *strings.Builder, section *SectionData, level int) {
	headerPrefix := strings.Repeat("#", level+2)
	fmt.Fprintf(output, "%s %s\n\n", headerPrefix, section.Title)

	f.formatDataMarkdown(output, section.Content, level)

	for _, subsection := range section.Subsections {
		f.formatSectionMarkdown(output, &subsection, level+1)
	}
}

func (f *MarkdownFormatter) escapeMarkdown(s string) string {
	// Pipes would break table cells.
	return strings.ReplaceAll(s, "|", "\\|")
}

func (f *MarkdownFormatter) ContentType() string {
	return "text/markdown"
}
