package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MCPRUNNER/geostacMCP/pkg/workflow"
)

// WorkflowExecutionSummary describes one workflow run: the file it came
// from, what each step did, and every file the run produced.
type WorkflowExecutionSummary struct {
	WorkflowPath string                `json:"workflow_path"`
	Steps        []WorkflowStepSummary `json:"steps"`
	FilesWritten []string              `json:"files_written,omitempty"`
}

// WorkflowStepSummary describes a single step in an execution summary.
type WorkflowStepSummary struct {
	Name    string                         `json:"name"`
	Tool    string                         `json:"tool"`
	Enabled bool                           `json:"enabled"`
	Outputs map[string]workflow.StepResult `json:"outputs,omitempty"`
}

// CloneArguments returns a top-level copy of the argument map, so callers
// can rewrite entries without mutating the step definition. A nil map
// clones to an empty one.
func CloneArguments(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return map[string]interface{}{}
	}
	cloned := make(map[string]interface{}, len(args))
	for key, value := range args {
		cloned[key] = value
	}
	return cloned
}

// NormalizeWorkflowPathArg rewrites a path-valued argument so the step
// behaves the same regardless of the server's working directory. Paths
// written as "./x" or "../x" resolve against the workflow file's
// directory; bare names become explicitly relative; absolute paths pass
// through untouched.
func NormalizeWorkflowPathArg(args map[string]interface{}, workflowPath, key string) {
	raw, exists := args[key]
	if !exists {
		return
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return
	}
	args[key] = normalizePathValue(value, workflowPath)
}

func normalizePathValue(value, workflowPath string) string {
	if filepath.IsAbs(value) {
		return value
	}
	if strings.HasPrefix(value, "./") || strings.HasPrefix(value, "../") {
		if workflowPath == "" {
			return value
		}
		return filepath.Join(filepath.Dir(workflowPath), value)
	}
	return "./" + value
}

// StringFromAny converts an interface{} to string safely.
func StringFromAny(value interface{}) string {
	if value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", value)
}

// ExtractStringArg extracts a string argument from the args map.
func ExtractStringArg(args map[string]interface{}, key string) string {
	if val, exists := args[key]; exists {
		return StringFromAny(val)
	}
	return ""
}

// ExtractFilePathsFromJSON collects the path-valued fields a JSON payload
// names, in the order the patterns match.
func ExtractFilePathsFromJSON(jsonText string) ([]string, error) {
	var filePaths []string

	patterns := []string{
		`"file_path"\s*:\s*"([^"]+)"`,
		`"path"\s*:\s*"([^"]+)"`,
		`"output_file"\s*:\s*"([^"]+)"`,
		`"file"\s*:\s*"([^"]+)"`,
	}

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}

		matches := re.FindAllStringSubmatch(jsonText, -1)
		for _, match := range matches {
			if len(match) > 1 && match[1] != "" {
				filePaths = append(filePaths, match[1])
			}
		}
	}

	return filePaths, nil
}

// WriteWorkflowOutput writes content to a workflow output file, creating
// parent directories as needed.
func WriteWorkflowOutput(outputPath, content string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create workflow output directory %s: %w", filepath.Dir(outputPath), err)
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write workflow output %s: %w", outputPath, err)
	}
	return nil
}

// CreateWorkflowExecutionSummary builds a summary of one workflow run from
// the parsed workflow, its per-step results, and the files written.
func CreateWorkflowExecutionSummary(workflowPath string, wf *workflow.Workflow, results map[string]map[string]workflow.StepResult, files []string) WorkflowExecutionSummary {
	summary := WorkflowExecutionSummary{
		WorkflowPath: workflowPath,
		Steps:        make([]WorkflowStepSummary, 0, len(wf.Steps)),
		FilesWritten: files,
	}

	for _, step := range wf.Steps {
		stepSummary := WorkflowStepSummary{
			Name:    step.Name,
			Tool:    step.Tool,
			Enabled: step.Enabled,
		}

		if stepResults, exists := results[step.Name]; exists {
			stepSummary.Outputs = stepResults
		}

		summary.Steps = append(summary.Steps, stepSummary)
	}

	return summary
}

// FormatWorkflowSummaryMarkdown renders a workflow execution summary as
// markdown.
func FormatWorkflowSummaryMarkdown(summary WorkflowExecutionSummary) string {
	var sb strings.Builder

	sb.WriteString("# Workflow Execution Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Workflow:** %s\n\n", summary.WorkflowPath))

	sb.WriteString("## Steps\n\n")
	for i, step := range summary.Steps {
		status := "✅"
		if !step.Enabled {
			status = "⏭️"
		}

		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n", i+1, status, step.Name, step.Tool))

		if len(step.Outputs) > 0 {
			sb.WriteString("   - Outputs:\n")
			for outputKey, output := range step.Outputs {
				sb.WriteString(fmt.Sprintf("     - %s: %s\n", outputKey, StringFromAny(output)))
			}
		}
		sb.WriteString("\n")
	}

	if len(summary.FilesWritten) > 0 {
		sb.WriteString("## Files Written\n\n")
		for _, file := range summary.FilesWritten {
			sb.WriteString(fmt.Sprintf("- %s\n", file))
		}
	}

	return sb.String()
}
