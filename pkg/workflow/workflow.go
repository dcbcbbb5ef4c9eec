package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"gopkg.in/yaml.v3"
)

// RunnerFunc describes a function capable of invoking a registered tool.
// The function receives the tool name and fully resolved arguments, and it
// returns the raw string payload produced by the tool. A non-nil error
// aborts the workflow at the failing step.
type RunnerFunc func(ctx context.Context, tool string, args map[string]interface{}) (string, error)

// Workflow represents an ordered collection of workflow steps.
type Workflow struct {
	Steps []Step `json:"steps" yaml:"steps"`
}

// Step models a single workflow operation. Tool names the registered tool
// to invoke; a leading "#" is accepted and stripped. When OutputFilePath
// is set, WriteCombinedStepOutputs persists the captured output there,
// relative to the workflow file.
type Step struct {
	Name           string                 `json:"name" yaml:"name"`
	Tool           string                 `json:"tool" yaml:"tool"`
	Arguments      map[string]interface{} `json:"arguments" yaml:"arguments"`
	Enabled        bool                   `json:"enabled" yaml:"enabled"`
	Output         *StepOutput            `json:"output,omitempty" yaml:"output,omitempty"`
	OutputFilePath string                 `json:"output_file,omitempty" yaml:"output_file,omitempty"`
}

// StepOutput declares the named output captured from a workflow step.
type StepOutput struct {
	Name   string `json:"name" yaml:"name"`
	Format string `json:"format" yaml:"format"`
}

// StepResult captures the resolved value emitted by a workflow step.
type StepResult struct {
	Value  string
	Format string
}

// defaultOutputName is the key a step's result is stored under when the
// step declares no output name of its own.
const defaultOutputName = "Result"

var placeholderExpr = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)\}`)

// LoadFromFile loads a workflow definition from JSON or YAML.
func LoadFromFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	wf := &Workflow{}
	if err := json.Unmarshal(data, wf); err != nil {
		if yamlErr := yaml.Unmarshal(data, wf); yamlErr != nil {
			return nil, fmt.Errorf("failed to parse workflow %s: %v, %v", path, err, yamlErr)
		}
	}

	if err := wf.Validate(); err != nil {
		return nil, err
	}

	return wf, nil
}

// Validate ensures the workflow structure is runnable.
func (wf *Workflow) Validate() error {
	if wf == nil {
		return errors.New("workflow is nil")
	}
	if len(wf.Steps) == 0 {
		return errors.New("workflow contains no steps")
	}

	seenNames := make(map[string]struct{})
	for i, step := range wf.Steps {
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("step %d is missing a name", i)
		}
		if _, exists := seenNames[step.Name]; exists {
			return fmt.Errorf("duplicate step name detected: %s", step.Name)
		}
		seenNames[step.Name] = struct{}{}

		if strings.TrimSpace(step.Tool) == "" {
			return fmt.Errorf("step %s is missing a tool", step.Name)
		}
	}
	return nil
}

// Execute walks each enabled step, resolving argument placeholders against
// the outputs of earlier steps and invoking the provided runner. The
// returned map is keyed by step name, then by output name.
func (wf *Workflow) Execute(ctx context.Context, runner RunnerFunc) (map[string]map[string]StepResult, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	results := make(map[string]map[string]StepResult)

	for _, step := range wf.Steps {
		if !step.Enabled {
			continue
		}

		resolvedArgs := make(map[string]interface{}, len(step.Arguments))
		for key, value := range step.Arguments {
			resolved, err := resolveArgumentValue(value, results)
			if err != nil {
				return nil, fmt.Errorf("step %s argument %s: %w", step.Name, key, err)
			}
			resolvedArgs[key] = resolved
		}

		toolName := strings.TrimPrefix(step.Tool, "#")
		outputValue, err := runner(ctx, toolName, resolvedArgs)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}

		if results[step.Name] == nil {
			results[step.Name] = make(map[string]StepResult)
		}

		outputName := defaultOutputName
		outputFormat := ""
		if step.Output != nil {
			if step.Output.Name != "" {
				outputName = step.Output.Name
			}
			outputFormat = step.Output.Format
		}
		results[step.Name][outputName] = StepResult{Value: outputValue, Format: outputFormat}
	}

	return results, nil
}

// RunFile loads the workflow at path, executes it with runner, and returns
// the parsed workflow alongside the per-step results.
func RunFile(ctx context.Context, path string, runner RunnerFunc) (*Workflow, map[string]map[string]StepResult, error) {
	wf, err := LoadFromFile(path)
	if err != nil {
		return nil, nil, err
	}
	results, err := wf.Execute(ctx, runner)
	if err != nil {
		return wf, nil, err
	}
	return wf, results, nil
}

// ServerRunner adapts a dispatch server into a RunnerFunc. A failure
// envelope surfaces as an error carrying the envelope's message, which
// aborts the workflow at that step.
func ServerRunner(srv *toolkit.Server) RunnerFunc {
	return func(_ context.Context, tool string, args map[string]interface{}) (string, error) {
		env := srv.Call(tool, args)
		if !env.OK() {
			return "", errors.New(env.Err)
		}
		return env.Result, nil
	}
}

// WriteCombinedStepOutputs persists each step's captured output to the
// file named by its output_file, resolved relative to the workflow file.
// JSON payloads are normalized into a single {"data": [...]} document: a
// lone top-level array is spliced into data, while concatenated top-level
// values each become one element. Every other format is written through
// unchanged with a trailing newline. It returns the paths written.
func WriteCombinedStepOutputs(workflowPath string, wf *Workflow, results map[string]map[string]StepResult) ([]string, error) {
	if wf == nil {
		return nil, errors.New("workflow is nil")
	}

	var written []string
	for _, step := range wf.Steps {
		if step.OutputFilePath == "" {
			continue
		}
		outputName := defaultOutputName
		if step.Output != nil && step.Output.Name != "" {
			outputName = step.Output.Name
		}
		result, ok := results[step.Name][outputName]
		if !ok {
			continue
		}

		payload := []byte(result.Value)
		if strings.EqualFold(result.Format, "json") {
			// Fall back to the raw payload when it is not parseable JSON.
			if combined, err := combineJSONValues(result.Value); err == nil {
				payload = combined
			}
		}
		if len(payload) == 0 || payload[len(payload)-1] != '\n' {
			payload = append(payload, '\n')
		}

		target := ResolveRelativePath(workflowPath, step.OutputFilePath)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("creating output directory for step %s: %w", step.Name, err)
		}
		if err := os.WriteFile(target, payload, 0o644); err != nil {
			return written, fmt.Errorf("writing output for step %s: %w", step.Name, err)
		}
		written = append(written, target)
	}

	return written, nil
}

// combineJSONValues decodes one or more concatenated top-level JSON values
// and wraps them as {"data": [...]}.
func combineJSONValues(payload string) ([]byte, error) {
	values, err := ParseTopLevelJSONValues(payload)
	if err != nil {
		return nil, err
	}

	data := values
	if len(values) == 1 {
		if arr, ok := values[0].([]interface{}); ok {
			data = arr
		}
	}
	return json.MarshalIndent(map[string]interface{}{"data": data}, "", "  ")
}

// ExtractJSONObjects scans input for top-level JSON objects and arrays and
// returns them as raw JSON strings. Text between values is kept with the
// value that follows it.
func ExtractJSONObjects(s string) []string {
	var objects []string
	var current strings.Builder
	braceCount := 0
	bracketCount := 0
	inString := false
	escaped := false

	for _, r := range s {
		current.WriteRune(r)

		if escaped {
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				braceCount++
			}
		case '}':
			if !inString {
				braceCount--
				if braceCount == 0 && bracketCount == 0 {
					objects = append(objects, strings.TrimSpace(current.String()))
					current.Reset()
				}
			}
		case '[':
			if !inString {
				bracketCount++
			}
		case ']':
			if !inString {
				bracketCount--
				if braceCount == 0 && bracketCount == 0 {
					objects = append(objects, strings.TrimSpace(current.String()))
					current.Reset()
				}
			}
		}

		// Safety check to prevent infinite accumulation
		if current.Len() > 10000 {
			current.Reset()
			braceCount = 0
			bracketCount = 0
			inString = false
			escaped = false
		}
	}

	return objects
}

// ParseTopLevelJSONValues decodes one or more top-level JSON values from
// the provided string.
func ParseTopLevelJSONValues(s string) ([]interface{}, error) {
	var singleValue interface{}
	if err := json.Unmarshal([]byte(s), &singleValue); err == nil {
		return []interface{}{singleValue}, nil
	}

	jsonStrings := ExtractJSONObjects(s)
	if len(jsonStrings) == 0 {
		return nil, fmt.Errorf("no valid JSON found in input")
	}

	var values []interface{}
	for _, jsonStr := range jsonStrings {
		var value interface{}
		if err := json.Unmarshal([]byte(jsonStr), &value); err != nil {
			// Skip fragments that are not valid JSON on their own.
			continue
		}
		values = append(values, value)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no valid JSON objects found")
	}

	return values, nil
}

func resolveArgumentValue(value interface{}, outputs map[string]map[string]StepResult) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return resolvePlaceholderString(v, outputs)
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, item := range v {
			out, err := resolveArgumentValue(item, outputs)
			if err != nil {
				return nil, err
			}
			resolved[i] = out
		}
		return resolved, nil
	case map[string]interface{}:
		resolved := make(map[string]interface{}, len(v))
		for key, item := range v {
			out, err := resolveArgumentValue(item, outputs)
			if err != nil {
				return nil, err
			}
			resolved[key] = out
		}
		return resolved, nil
	default:
		return value, nil
	}
}

func resolvePlaceholderString(input string, outputs map[string]map[string]StepResult) (string, error) {
	matches := placeholderExpr.FindAllStringSubmatch(input, -1)
	if len(matches) == 0 {
		return input, nil
	}

	result := input
	for _, match := range matches {
		if len(match) != 3 {
			continue
		}
		stepName, outputName := match[1], match[2]
		stepOutputs, ok := outputs[stepName]
		if !ok {
			return "", fmt.Errorf("referenced step %q has not produced outputs", stepName)
		}
		output, ok := stepOutputs[outputName]
		if !ok {
			return "", fmt.Errorf("step %q does not contain output %q", stepName, outputName)
		}
		result = strings.ReplaceAll(result, match[0], output.Value)
	}

	return result, nil
}

// ResolveRelativePath expands paths relative to the workflow file location.
func ResolveRelativePath(workflowPath, target string) string {
	if workflowPath == "" || filepath.IsAbs(target) {
		return target
	}
	base := filepath.Dir(workflowPath)
	return filepath.Join(base, target)
}
