package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

func TestRunFile_InvokesRunnerAndReturnsResults(t *testing.T) {
	dir, err := os.MkdirTemp("", "wftest")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	wfPath := filepath.Join(dir, "workflow.json")
	content := `{"steps":[{"name":"S1","tool":"#dummy","arguments":{},"enabled":true}]}`
	if err := os.WriteFile(wfPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write workflow file: %v", err)
	}

	runner := func(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
		if tool != "dummy" {
			t.Fatalf("unexpected tool: %s", tool)
		}
		return "hello", nil
	}

	wf, results, err := RunFile(context.Background(), wfPath, runner)
	if err != nil {
		t.Fatalf("RunFile failed: %v", err)
	}
	if wf == nil {
		t.Fatalf("expected workflow to be returned")
	}
	out, ok := results["S1"]["Result"]
	if !ok {
		t.Fatalf("expected result for step S1")
	}
	if out.Value != "hello" {
		t.Fatalf("unexpected result value: %s", out.Value)
	}
}

func TestRunFile_AbortsOnRunnerError(t *testing.T) {
	dir, err := os.MkdirTemp("", "wfabort")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	wfPath := filepath.Join(dir, "workflow.json")
	content := `{"steps":[
		{"name":"First","tool":"boom","arguments":{},"enabled":true},
		{"name":"Second","tool":"never","arguments":{},"enabled":true}
	]}`
	if err := os.WriteFile(wfPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write workflow file: %v", err)
	}

	var calls []string
	runner := func(ctx context.Context, tool string, args map[string]interface{}) (string, error) {
		calls = append(calls, tool)
		return "", errors.New("remote service unavailable")
	}

	_, _, err = RunFile(context.Background(), wfPath, runner)
	if err == nil {
		t.Fatalf("expected RunFile to fail")
	}
	if !strings.Contains(err.Error(), "step First") {
		t.Fatalf("expected failing step name in error, got: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected execution to stop after the failing step, ran: %v", calls)
	}
}

func TestServerRunner_BridgesDispatchServer(t *testing.T) {
	srv := toolkit.NewServer()
	if err := srv.Register("echo", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		return "echo: " + args["message"].(string), nil
	}); err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}
	if err := srv.Register("fail", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		return "", errors.New("catalog timeout")
	}); err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}

	runner := ServerRunner(srv)

	out, err := runner(context.Background(), "echo", map[string]interface{}{"message": "hi"})
	if err != nil {
		t.Fatalf("runner failed: %v", err)
	}
	if out != "echo: hi" {
		t.Fatalf("unexpected runner output: %s", out)
	}

	if _, err := runner(context.Background(), "fail", nil); err == nil || !strings.Contains(err.Error(), "catalog timeout") {
		t.Fatalf("expected failure envelope to surface as error, got: %v", err)
	}

	if _, err := runner(context.Background(), "missing", nil); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected unknown tool error, got: %v", err)
	}
}

func TestWriteCombinedStepOutputs_WritesJSONArray(t *testing.T) {
	dir, err := os.MkdirTemp("", "wfout")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	wf := &Workflow{
		Steps: []Step{
			{
				Name:           "StepA",
				Output:         &StepOutput{Name: "Result", Format: "json"},
				OutputFilePath: "output/combined.json",
			},
		},
	}

	// concatenated JSON objects
	results := map[string]map[string]StepResult{
		"StepA": {
			"Result": {Value: `{"a":1}{"b":2}`, Format: "json"},
		},
	}

	wfPath := filepath.Join(dir, "wf.json")
	written, err := WriteCombinedStepOutputs(wfPath, wf, results)
	if err != nil {
		t.Fatalf("WriteCombinedStepOutputs failed: %v", err)
	}
	if len(written) == 0 {
		t.Fatalf("expected at least one written file")
	}

	combinedPath := filepath.Join(dir, "output", "combined.json")
	data, err := os.ReadFile(combinedPath)
	if err != nil {
		t.Fatalf("failed to read combined file: %v", err)
	}

	var wrapper map[string]interface{}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		t.Fatalf("combined file is not valid JSON object: %v", err)
	}
	arr, ok := wrapper["data"].([]interface{})
	if !ok {
		t.Fatalf("combined file did not contain a top-level 'data' array")
	}
	if len(arr) != 2 {
		t.Fatalf("expected 2 elements in combined 'data' array, got %d", len(arr))
	}
}

func TestWriteCombinedStepOutputs_PreservesSingleJSONArray(t *testing.T) {
	dir, err := os.MkdirTemp("", "wfout2")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	wf := &Workflow{
		Steps: []Step{
			{
				Name:           "StepA",
				Output:         &StepOutput{Name: "Result", Format: "json"},
				OutputFilePath: "out/single_array.json",
			},
		},
	}

	// single JSON array string
	results := map[string]map[string]StepResult{
		"StepA": {
			"Result": {Value: `[1,2,3]`, Format: "json"},
		},
	}

	wfPath := filepath.Join(dir, "wf.json")
	written, err := WriteCombinedStepOutputs(wfPath, wf, results)
	if err != nil {
		t.Fatalf("WriteCombinedStepOutputs failed: %v", err)
	}
	if len(written) == 0 {
		t.Fatalf("expected at least one written file")
	}

	combinedPath := filepath.Join(dir, "out", "single_array.json")
	data, err := os.ReadFile(combinedPath)
	if err != nil {
		t.Fatalf("failed to read combined file: %v", err)
	}

	var wrapper map[string]interface{}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		t.Fatalf("combined file is not valid JSON object: %v", err)
	}
	arr, ok := wrapper["data"].([]interface{})
	if !ok {
		t.Fatalf("combined file did not contain a top-level 'data' array")
	}
	if len(arr) != 3 {
		t.Fatalf("expected 3 elements in 'data' array, got %d", len(arr))
	}
}

func TestWriteCombinedStepOutputs_WritesPlainTextUnchanged(t *testing.T) {
	dir, err := os.MkdirTemp("", "wfout3")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	wf := &Workflow{
		Steps: []Step{
			{
				Name:           "StepB",
				Output:         &StepOutput{Name: "Result", Format: "text"},
				OutputFilePath: "out/plain.txt",
			},
		},
	}

	results := map[string]map[string]StepResult{
		"StepB": {
			"Result": {Value: `This is plain text output`, Format: "text"},
		},
	}

	wfPath := filepath.Join(dir, "wf.json")
	written, err := WriteCombinedStepOutputs(wfPath, wf, results)
	if err != nil {
		t.Fatalf("WriteCombinedStepOutputs failed: %v", err)
	}
	if len(written) == 0 {
		t.Fatalf("expected at least one written file")
	}

	combinedPath := filepath.Join(dir, "out", "plain.txt")
	data, err := os.ReadFile(combinedPath)
	if err != nil {
		t.Fatalf("failed to read combined file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "plain text output") {
		t.Fatalf("plain text not preserved, got: %s", content)
	}
	if !strings.HasSuffix(content, "\n") {
		t.Fatalf("expected newline suffix in written file")
	}
}

func TestWriteCombinedStepOutputs_SkipsStepsWithoutOutputFile(t *testing.T) {
	wf := &Workflow{
		Steps: []Step{
			{Name: "NoFile", Output: &StepOutput{Name: "Result", Format: "text"}},
		},
	}
	results := map[string]map[string]StepResult{
		"NoFile": {"Result": {Value: "ignored", Format: "text"}},
	}

	written, err := WriteCombinedStepOutputs("/tmp/wf.json", wf, results)
	if err != nil {
		t.Fatalf("WriteCombinedStepOutputs failed: %v", err)
	}
	if len(written) != 0 {
		t.Fatalf("expected no files written, got: %v", written)
	}
}

func TestWriteCombinedStepOutputs_SplitsValuesWithEscapedQuotes(t *testing.T) {
	dir := t.TempDir()

	wf := &Workflow{
		Steps: []Step{
			{
				Name:           "StepA",
				Output:         &StepOutput{Name: "Result", Format: "json"},
				OutputFilePath: "output/combined.json",
			},
		},
	}

	// The first value closes its string right after an escaped quote; the
	// scanner must still see the value boundary between the two objects.
	results := map[string]map[string]StepResult{
		"StepA": {
			"Result": {Value: `{"title":"say \"hi\""}{"count":1}`, Format: "json"},
		},
	}

	wfPath := filepath.Join(dir, "wf.json")
	if _, err := WriteCombinedStepOutputs(wfPath, wf, results); err != nil {
		t.Fatalf("WriteCombinedStepOutputs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "output", "combined.json"))
	if err != nil {
		t.Fatalf("failed to read combined file: %v", err)
	}

	var wrapper struct {
		Data []interface{} `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		t.Fatalf("combined file is not valid JSON: %v", err)
	}
	if len(wrapper.Data) != 2 {
		t.Fatalf("expected 2 elements in combined 'data' array, got %d", len(wrapper.Data))
	}
	first, ok := wrapper.Data[0].(map[string]interface{})
	if !ok || first["title"] != `say "hi"` {
		t.Fatalf("unexpected first combined value: %v", wrapper.Data[0])
	}
}
