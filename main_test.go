package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"github.com/MCPRUNNER/geostacMCP/pkg/workflow"
)

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

// TestEnvelopeHandler verifies the MCP bridge returns the dispatch
// envelope's wire JSON for every outcome, never an MCP-level error.
func TestEnvelopeHandler(t *testing.T) {
	srv := toolkit.NewServer()
	require.NoError(t, srv.Register("echo", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		value, _ := toolkit.String(args, "value")
		return value, nil
	}))

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		expected map[string]interface{}
	}{
		{
			name:     "success envelope",
			tool:     "echo",
			args:     map[string]interface{}{"value": "hello"},
			expected: map[string]interface{}{"result": "hello"},
		},
		{
			name: "unknown tool envelope",
			tool: "missing",
			expected: map[string]interface{}{
				"error":           "Tool 'missing' not found",
				"available_tools": []interface{}{"echo"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := envelopeHandler(srv, tt.tool)(context.Background(), callRequest(tt.args))
			require.NoError(t, err)

			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
			assert.Equal(t, tt.expected, payload)
		})
	}
}

// TestWorkflowRunnerResolvesOutputPaths verifies relative output_file
// arguments are resolved against the workflow file's directory before
// the dispatch call.
func TestWorkflowRunnerResolvesOutputPaths(t *testing.T) {
	dir := t.TempDir()
	workflowPath := filepath.Join(dir, "workflow.yaml")

	srv := toolkit.NewServer()
	var seenOutput string
	require.NoError(t, srv.Register("capture", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		seenOutput, _ = toolkit.String(args, "output_file")
		return "ok", nil
	}))

	original := map[string]interface{}{"output_file": "./maps/result.html"}
	run := workflowRunner(srv, workflowPath)
	result, err := run(context.Background(), "capture", original)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	assert.Equal(t, filepath.Join(dir, "maps", "result.html"), seenOutput)
	// The caller's argument map is cloned, not mutated.
	assert.Equal(t, "./maps/result.html", original["output_file"])
}

// TestWorkflowRunnerPropagatesFailure verifies a failure envelope aborts
// the step with the envelope's message.
func TestWorkflowRunnerPropagatesFailure(t *testing.T) {
	srv := toolkit.NewServer()
	run := workflowRunner(srv, filepath.Join(t.TempDir(), "workflow.yaml"))

	_, err := run(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tool 'missing' not found")
}

// TestDemoWorkflowParses keeps the shipped example workflow loadable.
func TestDemoWorkflowParses(t *testing.T) {
	path := filepath.Join("workflows", "demo_search_visualize.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("example workflow not present")
	}
	wf, err := workflow.LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 3)
	assert.Equal(t, "geobon_search_collection", wf.Steps[0].Tool)
}

// TestRunWorkflowWritesSummaryFile verifies the summary lands in the
// requested output file and that file paths reported by step outputs
// appear in the Files Written section.
func TestRunWorkflowWritesSummaryFile(t *testing.T) {
	dir := t.TempDir()

	srv := toolkit.NewServer()
	require.NoError(t, srv.Register("fetch", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		return `{"file_path": "downloads/scene.tif"}`, nil
	}))

	workflowPath := filepath.Join(dir, "workflow.yaml")
	require.NoError(t, os.WriteFile(workflowPath, []byte(`steps:
  - name: Fetch
    tool: fetch
    enabled: true
    output:
      name: Result
      format: json
`), 0o644))

	summaryPath := filepath.Join(dir, "reports", "summary.md")
	result, err := handleRunWorkflow(context.Background(), callRequest(map[string]interface{}{
		"file_path":        workflowPath,
		"output_file_path": summaryPath,
	}), srv)
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "# Workflow Execution Summary")
	assert.Contains(t, text, "Fetch")
	assert.Contains(t, text, "downloads/scene.tif")

	written, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Equal(t, text, string(written))
}

// TestCallReportForwardsNestedArguments verifies the nested arguments
// object reaches the dispatch call.
func TestCallReportForwardsNestedArguments(t *testing.T) {
	srv := toolkit.NewServer()
	require.NoError(t, srv.Register("echo", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		value, _ := toolkit.String(args, "value")
		return "echo: " + value, nil
	}))

	result, err := handleCallReport(callRequest(map[string]interface{}{
		"tool":      "echo",
		"arguments": map[string]interface{}{"value": "hello"},
	}), srv)
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "echo: hello")
}
