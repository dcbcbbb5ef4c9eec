package formatter

import (
	"fmt"
	"strings"
)

// CSVFormatter renders reports as CSV. Table data becomes the table
// itself; anything else falls back to one row of report fields.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(report *ToolReport) string {
	if report.Error != "" {
		return fmt.Sprintf("Error,%s\n", f.escapeCSV(report.Error))
	}

	switch v := report.Data.(type) {
	case *TableData:
		return f.formatTableCSV(v)
	case []SectionData:
		return f.formatSectionsCSV(v)
	default:
		var output strings.Builder
		output.WriteString("Tool,Invocation,Server,Timestamp,Status,Data,Error\n")
		fmt.Fprintf(&output, "%s,%s,%s,%s,%s,%s,%s\n",
			f.escapeCSV(report.Tool),
			f.escapeCSV(report.Invocation),
			f.escapeCSV(report.Server),
			f.escapeCSV(report.Timestamp),
			f.escapeCSV(report.Status),
			f.escapeCSV(fmt.Sprintf("%v", report.Data)),
			f.escapeCSV(report.Error))
		return output.String()
	}
}

func (f *CSVFormatter) formatTableCSV(table *TableData) string {
	var output strings.Builder

	for i, header := range table.Headers {
		output.WriteString(f.escapeCSV(header))
		if i < len(table.Headers)-1 {
			output.WriteString(",")
		}
	}
	output.WriteString("\n")

	for _, row := range table.Rows {
		for i, cell := range row {
			output.WriteString(f.escapeCSV(cell))
			if i < len(row)-1 {
				output.WriteString(",")
			}
		}
		output.WriteString("\n")
	}

	return output.String()
}

func (f *CSVFormatter) formatSectionsCSV(sections []SectionData) string {
	var output strings.Builder
	output.WriteString("Section,Content\n")

	for _, section := range sections {
		f.formatSectionCSV(&output, section, "")
	}

	return output.String()
}

func (f *CSVFormatter) formatSectionCSV(output *strings.Builder, section SectionData, prefix string) {
	sectionPath := section.Title
	if prefix != "" {
		sectionPath = prefix + " > " + section.Title
	}

	switch v := section.Content.(type) {
	case string:
		fmt.Fprintf(output, "%s,%s\n", f.escapeCSV(sectionPath), f.escapeCSV(v))
	case []string:
		for _, s := range v {
			fmt.Fprintf(output, "%s,%s\n", f.escapeCSV(sectionPath), f.escapeCSV(s))
		}
	case map[string]interface{}:
		for _, key := range sortedKeys(v) {
			fmt.Fprintf(output, "%s,%s\n", f.escapeCSV(sectionPath), f.escapeCSV(fmt.Sprintf("%s: %v", key, v[key])))
		}
	}

	for _, subsection := range section.Subsections {
		f.formatSectionCSV(output, subsection, sectionPath)
	}
}

func (f *CSVFormatter) escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		s = strings.ReplaceAll(s, "\"", "\"\"")
		s = "\"" + s + "\""
	}
	return s
}

func (f *CSVFormatter) ContentType() string {
	return "text/csv"
}
