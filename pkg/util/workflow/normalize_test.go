package workflow

import (
	"path/filepath"
	"testing"
)

func TestNormalizeWorkflowPathArgWithResolution(t *testing.T) {
	workflowPath := "/home/geo/flows/forest_demo.yaml"

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "absolute path unchanged",
			input:    "/var/data/maps/forest_map.html",
			expected: "/var/data/maps/forest_map.html",
		},
		{
			name:     "relative path with ../",
			input:    "../reports/loss_summary.json",
			expected: "/home/geo/reports/loss_summary.json",
		},
		{
			name:     "relative path with ./",
			input:    "./forest_map.html",
			expected: "/home/geo/flows/forest_map.html",
		},
		{
			name:     "bare relative path",
			input:    "forest_map.html",
			expected: "./forest_map.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{
				"test_path": tt.input,
			}

			NormalizeWorkflowPathArg(args, workflowPath, "test_path")

			result, ok := args["test_path"].(string)
			if !ok {
				t.Fatalf("expected string result")
			}

			// Clean both paths for comparison
			result = filepath.Clean(result)
			expected := filepath.Clean(tt.expected)

			if result != expected {
				t.Errorf("expected %s, got %s", expected, result)
			}
		})
	}
}

func TestNormalizeWorkflowPathArgWithoutWorkflowPath(t *testing.T) {
	args := map[string]interface{}{
		"output_file": "./forest_map.html",
	}

	NormalizeWorkflowPathArg(args, "", "output_file")

	if args["output_file"] != "./forest_map.html" {
		t.Errorf("expected dot path to pass through without a workflow path, got %v", args["output_file"])
	}
}
