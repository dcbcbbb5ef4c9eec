package formatter

import (
	"fmt"
	"strings"
)

// TextFormatter renders reports as aligned plain text.
type TextFormatter struct{}

func (f *TextFormatter) Format(report *ToolReport) string {
	if report.Error != "" {
		return fmt.Sprintf("Error: %s", report.Error)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "%s Tool Report\n", report.Tool)
	fmt.Fprintf(&output, "Invocation: %s\n", report.Invocation)
	fmt.Fprintf(&output, "Server: %s\n", report.Server)
	fmt.Fprintf(&output, "Generated: %s\n\n", report.Timestamp)

	f.formatData(&output, report.Data, 0)
	return output.String()
}

func (f *TextFormatter) formatData(output *strings.Builder, data interface{}, level int) {
	indent := strings.Repeat("  ", level)

	switch v := data.(type) {
	case nil:
	case string:
		fmt.Fprintf(output, "%s%s\n", indent, v)
	case []string:
		for _, s := range v {
			fmt.Fprintf(output, "%s%s\n", indent, s)
		}
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			fmt.Fprintf(output, "%s%s: ", indent, key)
			f.formatData(output, v[key], 0)
		}
	case []interface{}:
		for _, item := range v {
			f.formatData(output, item, level)
		}
	case *TableData:
		f.formatTable(output, v, level)
	case []SectionData:
		f.formatSections(output, v, level)
	default:
		fmt.Fprintf(output, "%s%v\n", indent, v)
	}
}

func (f *TextFormatter) formatTable(output *strings.Builder, table *TableData, level int) {
	if len(table.Rows) == 0 {
		output.WriteString("No data available.\n")
		return
	}

	colWidths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		colWidths[i] = len(header)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	indent := strings.Repeat("  ", level)

	output.WriteString(indent)
	for i, header := range table.Headers {
		fmt.Fprintf(output, "%-*s", colWidths[i], header)
		if i < len(table.Headers)-1 {
			output.WriteString(" | ")
		}
	}
	output.WriteString("\n")

	output.WriteString(indent)
	for i, width := range colWidths {
		output.WriteString(strings.Repeat("-", width))
		if i < len(colWidths)-1 {
			output.WriteString("-+-")
		}
	}
	output.WriteString("\n")

	for _, row := range table.Rows {
		output.WriteString(indent)
		for i, cell := range row {
			if i < len(colWidths) {
				fmt.Fprintf(output, "%-*s", colWidths[i], cell)
				if i < len(row)-1 {
					output.WriteString(" | ")
				}
			}
		}
		output.WriteString("\n")
	}
}

func (f *TextFormatter) formatSections(output *strings.Builder, sections []SectionData, level int) {
	for _, section := range sections {
		f.formatSection(output, &section, level)
	}
}

func (f *TextFormatter) formatSection(output *strings.Builder, section *SectionData, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(output, "%s%s\n", indent, section.Title)
	fmt.Fprintf(output, "%s%s\n", indent, strings.Repeat("=", len(section.Title)))

	f.formatData(output, section.Content, level)
	output.WriteString("\n")

	for _, subsection := range section.Subsections {
		f.formatSection(output, &subsection, level+1)
	}
}

func (f *TextFormatter) ContentType() string {
	return "text/plain"
}
