// Command run_workflow executes a workflow definition file against an
// in-process dispatch server, without going through an MCP transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	workflowutil "github.com/MCPRUNNER/geostacMCP/pkg/util/workflow"
	"github.com/MCPRUNNER/geostacMCP/pkg/workflow"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON, YAML, or TOML)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: run_workflow [--config file] <workflow file>")
		os.Exit(2)
	}
	workflowPath := flag.Arg(0)
	if abs, err := filepath.Abs(workflowPath); err == nil {
		workflowPath = abs
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	config.ConfigureLogging(cfg.Logging)

	srv := toolkit.NewServer(toolkit.WithLogger(logrus.WithField("component", "dispatch")))
	if err := handlers.RegisterEnabled(srv, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register tool packs: %v\n", err)
		os.Exit(1)
	}

	run := workflow.ServerRunner(srv)
	runner := func(stepCtx context.Context, tool string, args map[string]interface{}) (string, error) {
		normalized := workflowutil.CloneArguments(args)
		workflowutil.NormalizeWorkflowPathArg(normalized, workflowPath, "output_file")
		workflowutil.NormalizeWorkflowPathArg(normalized, workflowPath, "output_dir")
		return run(stepCtx, tool, normalized)
	}

	wf, results, err := workflow.RunFile(context.Background(), workflowPath, runner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "workflow run failed: %v\n", err)
		os.Exit(1)
	}

	written, err := workflow.WriteCombinedStepOutputs(workflowPath, wf, results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed writing combined outputs: %v\n", err)
	}

	summary := workflowutil.CreateWorkflowExecutionSummary(workflowPath, wf, results, written)
	fmt.Println(workflowutil.FormatWorkflowSummaryMarkdown(summary))
}
