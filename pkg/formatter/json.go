package formatter

import (
	"encoding/json"
	"fmt"
)

// JSONFormatter renders reports as indented JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(report *ToolReport) string {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "Failed to format report: %s"}`, err.Error())
	}
	return string(data)
}

func (f *JSONFormatter) ContentType() string {
	return "application/json"
}
