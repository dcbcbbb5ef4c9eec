package formatter

// OutputFormat names one of the supported report renderings.
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatHTML     OutputFormat = "html"
	FormatMarkdown OutputFormat = "markdown"
)

// ToolReport captures one tool invocation for rendering: what ran, on
// which server, when, and what came back.
type ToolReport struct {
	Tool       string                 `json:"tool"`
	Invocation string                 `json:"invocation"`
	Server     string                 `json:"server"`
	Timestamp  string                 `json:"timestamp"`
	Status     string                 `json:"status"`
	Data       interface{}            `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// TableData is tabular report content.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// SectionData is nested report content with a heading per level.
type SectionData struct {
	Title       string        `json:"title"`
	Content     interface{}   `json:"content"`
	Level       int           `json:"level,omitempty"`
	Subsections []SectionData `json:"subsections,omitempty"`
}

// OutputFormatter renders a tool report in one output format.
type OutputFormatter interface {
	Format(report *ToolReport) string
	ContentType() string
}
