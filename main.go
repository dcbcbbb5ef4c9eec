package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/formatter"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	serverutil "github.com/MCPRUNNER/geostacMCP/pkg/util/server"
	workflowutil "github.com/MCPRUNNER/geostacMCP/pkg/util/workflow"
	"github.com/MCPRUNNER/geostacMCP/pkg/workflow"
)

const serverName = "GeoSTAC Explorer"

const version = "1.0.0"

func main() {
	// Command line flags
	httpMode := flag.Bool("http", false, "Run in HTTP streaming mode")
	httpPort := flag.String("port", "8086", "HTTP server port")
	downloadDir := flag.String("downloads", "", "Directory for downloaded assets (can also be set via GEOSTAC_DOWNLOAD_DIRECTORY env var)")
	configPath := flag.String("config", "", "Path to configuration file (JSON, YAML, or TOML)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Override config with command line flags if provided
	if *httpMode {
		cfg.Server.HTTPMode = true
	}
	if *httpPort != "8086" {
		cfg.Server.Port = *httpPort
	}
	if *downloadDir != "" {
		cfg.Downloads.Directory = *downloadDir
	}

	// Configure logging
	config.ConfigureLogging(cfg.Logging)

	if abs, err := filepath.Abs(cfg.Downloads.Directory); err == nil {
		cfg.Downloads.Directory = abs
	}
	logrus.WithField("directory", cfg.Downloads.Directory).Info("using download directory")

	// The dispatch server owns the tool registry and the shared context.
	srv := toolkit.NewServer(toolkit.WithLogger(logrus.WithField("component", "dispatch")))
	if err := handlers.RegisterEnabled(srv, cfg); err != nil {
		logrus.Fatalf("Failed to register tool packs: %v", err)
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	// Initialize the tool pack catalog
	packSystem := NewToolPackSystem(cfg.Packs)
	if err := packSystem.Initialize(); err != nil {
		logrus.Fatalf("Failed to initialize tool packs: %v", err)
	}
	packSystem.createPackManagementTools(s)

	registerDispatchTools(s, srv)
	registerMetaTools(s, srv)
	registerWorkflowRunnerTool(s, srv)

	// Admin endpoints run alongside either transport when configured.
	if cfg.Server.AdminPort != "" {
		go func() {
			if err := serverutil.RunAdminServer(srv, version, cfg.Server.AdminPort); err != nil {
				logrus.WithError(err).Error("admin server stopped")
			}
		}()
	}

	if cfg.Server.HTTPMode {
		// Run in HTTP streaming mode
		if err := serverutil.RunHTTPServer(s, cfg.Server.Port); err != nil {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Run in stdio mode (default)
		if err := server.ServeStdio(s); err != nil {
			fmt.Printf("Server error: %v\n", err)
		}
	}
}

// envelopeHandler bridges an MCP tool call into the dispatch server and
// returns the envelope's wire JSON. Failure envelopes are still
// successful MCP results; the envelope itself carries the error.
func envelopeHandler(srv *toolkit.Server, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		env := srv.Call(name, request.GetArguments())
		return mcp.NewToolResultText(env.String()), nil
	}
}

// registerDispatchTools declares every registered dispatch tool to the
// MCP server. Each definition forwards into the shared dispatch server,
// so last-registration-wins rebinding stays observable over MCP.
func registerDispatchTools(s *server.MCPServer, srv *toolkit.Server) {
	// Starter tools

	// Tool to do basic arithmetic
	calculatorTool := mcp.NewTool("calculator",
		mcp.WithDescription("Perform a basic arithmetic operation on two numbers"),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation to perform: add, subtract, multiply, divide"),
		),
		mcp.WithNumber("a",
			mcp.Required(),
			mcp.Description("First operand"),
		),
		mcp.WithNumber("b",
			mcp.Required(),
			mcp.Description("Second operand"),
		),
	)
	s.AddTool(calculatorTool, envelopeHandler(srv, "calculator"))

	// Tool to store and retrieve values across calls
	memoryTool := mcp.NewTool("memory",
		mcp.WithDescription("Store a value in the shared context or retrieve one stored earlier"),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Action to perform: store or retrieve"),
		),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Memory key"),
		),
		mcp.WithString("value",
			mcp.Description("Value to store (required for the store action)"),
		),
	)
	s.AddTool(memoryTool, envelopeHandler(srv, "memory"))

	// Tool to greet a user
	greetingTool := mcp.NewTool("greeting",
		mcp.WithDescription("Greet a user by name"),
		mcp.WithString("name",
			mcp.Description("Name to greet (default: Guest)"),
		),
	)
	s.AddTool(greetingTool, envelopeHandler(srv, "greeting"))

	// Tool to fetch current weather
	weatherTool := mcp.NewTool("weather",
		mcp.WithDescription("Get current weather for a city via OpenWeatherMap (requires a configured API key)"),
		mcp.WithString("city",
			mcp.Required(),
			mcp.Description("City name, e.g. Zurich"),
		),
	)
	s.AddTool(weatherTool, envelopeHandler(srv, "weather"))

	// Planetary Computer tools

	// Tool to list catalog collections
	stacListTool := mcp.NewTool("stac_list_collections",
		mcp.WithDescription("List collections available in the Planetary Computer STAC catalog"),
	)
	s.AddTool(stacListTool, envelopeHandler(srv, "stac_list_collections"))

	// Tool to search a collection
	stacSearchTool := mcp.NewTool("stac_search",
		mcp.WithDescription("Search a Planetary Computer collection by bounding box and date range"),
		mcp.WithString("collection",
			mcp.Description("Collection ID to search (default: io-lulc-annual-v02)"),
		),
		mcp.WithArray("collections",
			mcp.Description("Collection IDs to search across (overrides collection)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("bbox",
			mcp.Description("Bounding box [west, south, east, north] in WGS84 (default: San Francisco)"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("date_start",
			mcp.Description("Start date: YYYY-MM-DD or 'N days ago' (default: 30 days ago)"),
		),
		mcp.WithString("date_end",
			mcp.Description("End date: YYYY-MM-DD or 'today' (default: today)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items (default: 10)"),
		),
	)
	s.AddTool(stacSearchTool, envelopeHandler(srv, "stac_search"))

	// Tool to download an item asset
	stacDownloadTool := mcp.NewTool("stac_download",
		mcp.WithDescription("Download an asset of an item found by the previous stac_search, signing its URL first"),
		mcp.WithString("item_id",
			mcp.Description("Item ID from the previous search (alternative to item_index)"),
		),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous search results (default: 0)"),
		),
		mcp.WithString("asset_type",
			mcp.Description("Asset key to download (default: data, with collection-specific fallbacks)"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to write the asset into; relative paths resolve under the downloads directory (default: downloads directory)"),
		),
	)
	s.AddTool(stacDownloadTool, envelopeHandler(srv, "stac_download"))

	// Tool to render a search result on a map
	stacVisualizeTool := mcp.NewTool("stac_visualize",
		mcp.WithDescription("Render an item from the previous stac_search as a static Leaflet HTML map"),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous search results (default: 0)"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Initial map zoom level (default: 10)"),
		),
		mcp.WithString("output_file",
			mcp.Description("HTML file to write (default: map.html)"),
		),
	)
	s.AddTool(stacVisualizeTool, envelopeHandler(srv, "stac_visualize"))

	// Swiss federal geodata tools

	// Tool to list federal collections
	bafuListTool := mcp.NewTool("bafu_list_collections",
		mcp.WithDescription("List collections of the Swiss federal geodata STAC catalog, optionally filtered by a search term"),
		mcp.WithString("search_term",
			mcp.Description("Case-insensitive filter on collection ID, title, and description"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of collections to display (default: 10)"),
		),
	)
	s.AddTool(bafuListTool, envelopeHandler(srv, "bafu_list_collections"))

	// Tool to list items of a federal collection
	bafuSearchTool := mcp.NewTool("bafu_search_collection",
		mcp.WithDescription("List items of a Swiss federal geodata collection and tag their downloadable assets"),
		mcp.WithString("collection_id",
			mcp.Required(),
			mcp.Description("Collection ID, e.g. ch.bafu.gefahren-basiskarte"),
		),
		mcp.WithArray("bbox",
			mcp.Description("Bounding box [west, south, east, north] in WGS84"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items (default: 5)"),
		),
	)
	s.AddTool(bafuSearchTool, envelopeHandler(srv, "bafu_search_collection"))

	// Tool to describe a federal collection
	bafuInfoTool := mcp.NewTool("bafu_get_collection_info",
		mcp.WithDescription("Describe one Swiss federal geodata collection: license, providers, and extents"),
		mcp.WithString("collection_id",
			mcp.Required(),
			mcp.Description("Collection ID to describe"),
		),
	)
	s.AddTool(bafuInfoTool, envelopeHandler(srv, "bafu_get_collection_info"))

	// Tool to identify features at a location
	bafuIdentifyTool := mcp.NewTool("bafu_identify_features",
		mcp.WithDescription("Identify features through the GeoAdmin REST API at an LV95 point or bounding box and load them into the shared context"),
		mcp.WithString("layer_id",
			mcp.Description("GeoAdmin layer ID (default: the collection of the previous bafu_search_collection)"),
		),
		mcp.WithArray("geometry",
			mcp.Description("LV95 point [east, north] or bbox [minE, minN, maxE, maxN] (default: Zurich bbox)"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("geometry_type",
			mcp.Description("Geometry kind: point or bbox (default: bbox)"),
		),
		mcp.WithNumber("tolerance",
			mcp.Description("Identify tolerance in pixels (default: 10)"),
		),
		mcp.WithBoolean("return_geometry",
			mcp.Description("Include feature geometries in the response (default: true)"),
		),
	)
	s.AddTool(bafuIdentifyTool, envelopeHandler(srv, "bafu_identify_features"))

	// Tool to identify features around WGS84 coordinates
	bafuQueryTool := mcp.NewTool("bafu_query_by_coordinates",
		mcp.WithDescription("Identify features around a WGS84 point, converting it to LV95 first"),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude in WGS84"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude in WGS84"),
		),
		mcp.WithString("layer_id",
			mcp.Description("GeoAdmin layer ID (default: the collection of the previous bafu_search_collection)"),
		),
		mcp.WithNumber("radius_m",
			mcp.Description("Search radius in metres (default: 1000)"),
		),
	)
	s.AddTool(bafuQueryTool, envelopeHandler(srv, "bafu_query_by_coordinates"))

	// Tool to load a vector asset as GeoJSON
	bafuDataTool := mcp.NewTool("bafu_get_actual_data",
		mcp.WithDescription("Fetch a vector asset of a previous search result, parse it as GeoJSON, and load it into the shared context"),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous bafu_search_collection results (default: 0)"),
		),
		mcp.WithString("asset_key",
			mcp.Description("Asset key to fetch (default: first vector-capable asset)"),
		),
		mcp.WithNumber("max_features",
			mcp.Description("Maximum number of features to keep (default: 100)"),
		),
	)
	s.AddTool(bafuDataTool, envelopeHandler(srv, "bafu_get_actual_data"))

	// Tool to download a federal asset
	bafuDownloadTool := mcp.NewTool("bafu_download_asset",
		mcp.WithDescription("Download an asset of a previous search result to the downloads directory"),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous bafu_search_collection results (default: 0)"),
		),
		mcp.WithString("asset_key",
			mcp.Description("Asset key to download (default: first asset)"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to write the asset into; relative paths resolve under the downloads directory (default: downloads/bafu)"),
		),
	)
	s.AddTool(bafuDownloadTool, envelopeHandler(srv, "bafu_download_asset"))

	// Tool to map loaded GeoJSON features
	bafuVisualizeTool := mcp.NewTool("bafu_visualize_actual_data",
		mcp.WithDescription("Render the GeoJSON features loaded by bafu_get_actual_data or bafu_identify_features as a Leaflet HTML map"),
		mcp.WithString("color_by",
			mcp.Description("Feature property to color by, with a legend"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Initial map zoom level (default: 10)"),
		),
		mcp.WithNumber("max_features",
			mcp.Description("Maximum number of features to draw (default: 500)"),
		),
		mcp.WithString("output_file",
			mcp.Description("HTML file to write (default: bafu_actual_data_map.html)"),
		),
	)
	s.AddTool(bafuVisualizeTool, envelopeHandler(srv, "bafu_visualize_actual_data"))

	// Tool to map a WMS layer
	bafuWMSMapTool := mcp.NewTool("bafu_visualize_wms",
		mcp.WithDescription("Render a wms.geo.admin.ch layer over Switzerland as a Leaflet HTML map"),
		mcp.WithString("layer_name",
			mcp.Required(),
			mcp.Description("WMS layer name, e.g. ch.bafu.gefahren-basiskarte"),
		),
		mcp.WithArray("center",
			mcp.Description("Map center [lat, lon] (default: center of Switzerland)"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Initial map zoom level (default: 8)"),
		),
		mcp.WithString("output_file",
			mcp.Description("HTML file to write (default: bafu_wms_map.html)"),
		),
	)
	s.AddTool(bafuWMSMapTool, envelopeHandler(srv, "bafu_visualize_wms"))

	// Tool to summarize features near a point
	bafuRiskTool := mcp.NewTool("bafu_analyze_risk_at_location",
		mcp.WithDescription("Summarize the loaded GeoJSON features within a radius of a WGS84 point"),
		mcp.WithNumber("lat",
			mcp.Required(),
			mcp.Description("Latitude in WGS84"),
		),
		mcp.WithNumber("lon",
			mcp.Required(),
			mcp.Description("Longitude in WGS84"),
		),
		mcp.WithNumber("radius_m",
			mcp.Description("Search radius in metres (default: 100)"),
		),
	)
	s.AddTool(bafuRiskTool, envelopeHandler(srv, "bafu_analyze_risk_at_location"))

	// Tool to list WMS layers
	wmsListTool := mcp.NewTool("wms_list_layers",
		mcp.WithDescription("List layers from the wms.geo.admin.ch GetCapabilities document"),
		mcp.WithString("search_term",
			mcp.Description("Case-insensitive filter on layer name and title"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of layers to display (default: 20)"),
		),
	)
	s.AddTool(wmsListTool, envelopeHandler(srv, "wms_list_layers"))

	// GEO BON biodiversity tools

	// Tool to list biodiversity collections
	geobonListTool := mcp.NewTool("geobon_list_collections",
		mcp.WithDescription("List collections of the GEO BON biodiversity STAC catalog, optionally filtered by a search term"),
		mcp.WithString("search_term",
			mcp.Description("Case-insensitive filter on collection title and description"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of collections to display (default: 10)"),
		),
	)
	s.AddTool(geobonListTool, envelopeHandler(srv, "geobon_list_collections"))

	// Tool to describe a biodiversity collection
	geobonInfoTool := mcp.NewTool("geobon_get_collection_info",
		mcp.WithDescription("Describe one GEO BON collection: license, extents, and summaries"),
		mcp.WithString("collection_id",
			mcp.Required(),
			mcp.Description("Collection ID to describe, e.g. gfw-lossyear"),
		),
	)
	s.AddTool(geobonInfoTool, envelopeHandler(srv, "geobon_get_collection_info"))

	// Tool to list items of a biodiversity collection
	geobonSearchTool := mcp.NewTool("geobon_search_collection",
		mcp.WithDescription("List items of a GEO BON collection with their datetimes, geometry types, and assets"),
		mcp.WithString("collection_id",
			mcp.Required(),
			mcp.Description("Collection ID to search"),
		),
		mcp.WithArray("bbox",
			mcp.Description("Bounding box [west, south, east, north] in WGS84"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items (default: 10)"),
		),
	)
	s.AddTool(geobonSearchTool, envelopeHandler(srv, "geobon_search_collection"))

	// Tool to download a biodiversity asset
	geobonDownloadTool := mcp.NewTool("geobon_download_asset",
		mcp.WithDescription("Download an asset of a previous geobon_search_collection result; without an asset_key it lists the available assets"),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous search results (default: 0)"),
		),
		mcp.WithString("asset_key",
			mcp.Description("Asset key to download"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory to write the asset into; relative paths resolve under the downloads directory (default: downloads/geobon)"),
		),
	)
	s.AddTool(geobonDownloadTool, envelopeHandler(srv, "geobon_download_asset"))

	// Tool to map a search result's coverage
	geobonVisualizeTool := mcp.NewTool("geobon_visualize_forest_loss",
		mcp.WithDescription("Render the coverage of a previous geobon_search_collection result as a Leaflet HTML map over satellite imagery"),
		mcp.WithNumber("item_index",
			mcp.Description("Index into the previous search results (default: 0)"),
		),
		mcp.WithString("region_name",
			mcp.Description("Region label for the map (default: Global)"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Initial map zoom level (default: derived from the item's bbox span)"),
		),
		mcp.WithString("output_file",
			mcp.Description("HTML file to write (default: geobon_forest_loss_map.html)"),
		),
	)
	s.AddTool(geobonVisualizeTool, envelopeHandler(srv, "geobon_visualize_forest_loss"))
}

// registerMetaTools exposes the dispatch core's own surface: tool
// listing, the shared context, and invocation reports.
func registerMetaTools(s *server.MCPServer, srv *toolkit.Server) {
	// Tool to list registered dispatch tools
	listToolsTool := mcp.NewTool("list_tools",
		mcp.WithDescription("List the names of every registered dispatch tool in lexicographic order"),
	)
	s.AddTool(listToolsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(map[string]interface{}{"tools": srv.ListTools()})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal tool list: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	// Tool to read a shared context value
	getContextTool := mcp.NewTool("get_context",
		mcp.WithDescription("Read a value from the shared context"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Context key to read"),
		),
		mcp.WithString("default",
			mcp.Description("Value to return when the key is absent"),
		),
	)
	s.AddTool(getContextTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := request.GetString("key", "")
		if key == "" {
			return mcp.NewToolResultError("key is required"), nil
		}
		value := srv.GetContext(key, request.GetString("default", ""))
		return mcp.NewToolResultText(fmt.Sprintf("%v", value)), nil
	})

	// Tool to write a shared context value
	setContextTool := mcp.NewTool("set_context",
		mcp.WithDescription("Store a value in the shared context"),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Context key to write"),
		),
		mcp.WithString("value",
			mcp.Required(),
			mcp.Description("Value to store"),
		),
	)
	s.AddTool(setContextTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := request.GetString("key", "")
		if key == "" {
			return mcp.NewToolResultError("key is required"), nil
		}
		srv.SetContext(key, request.GetString("value", ""))
		return mcp.NewToolResultText(fmt.Sprintf("Context key '%s' set", key)), nil
	})

	// Tool to clear the shared context
	clearContextTool := mcp.NewTool("clear_context",
		mcp.WithDescription("Remove every key from the shared context"),
	)
	s.AddTool(clearContextTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		srv.ClearContext()
		return mcp.NewToolResultText("Context cleared"), nil
	})

	// Tool to run a dispatch tool and render a full invocation report
	callReportTool := mcp.NewTool("call_report",
		mcp.WithDescription("Invoke a dispatch tool and render the outcome as a formatted invocation report"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Name of the dispatch tool to invoke"),
		),
		mcp.WithObject("arguments",
			mcp.Description("Arguments to pass to the tool"),
		),
		mcp.WithString("format",
			mcp.Description("Report format: text, json, csv, html, markdown (default: text)"),
		),
	)
	s.AddTool(callReportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCallReport(request, srv)
	})
}

func handleCallReport(request mcp.CallToolRequest, srv *toolkit.Server) (*mcp.CallToolResult, error) {
	tool := request.GetString("tool", "")
	if tool == "" {
		return mcp.NewToolResultError("tool is required"), nil
	}
	format := formatter.OutputFormat(strings.ToLower(request.GetString("format", "text")))
	if !formatter.Known(format) {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown format %q. Available: %s", format, strings.Join(formatter.Formats(), ", "))), nil
	}

	callArgs, _ := toolkit.Map(request.GetArguments(), "arguments")

	env := srv.Call(tool, callArgs)
	var callErr error
	var data interface{}
	if env.OK() {
		data = env.Result
	} else {
		callErr = fmt.Errorf("%s", env.Err)
	}

	report := formatter.NewReport(tool, uuid.NewString(), serverName, data, callErr)
	report.Metadata["error_kind"] = string(env.Kind)
	return mcp.NewToolResultText(formatter.FormatReport(report, format)), nil
}

// registerWorkflowRunnerTool exposes the workflow engine over MCP. Steps
// run through the dispatch server, so they share its context like any
// direct call.
func registerWorkflowRunnerTool(s *server.MCPServer, srv *toolkit.Server) {
	runWorkflowTool := mcp.NewTool("run_workflow",
		mcp.WithDescription("Execute a workflow definition file, running each step's dispatch tool sequentially"),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Path to the workflow definition (JSON or YAML)"),
		),
		mcp.WithString("format",
			mcp.Description("Summary format: markdown (default) or json"),
		),
		mcp.WithString("output_file_path",
			mcp.Description("Also write the rendered summary to this file"),
		),
	)
	s.AddTool(runWorkflowTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRunWorkflow(ctx, request, srv)
	})
}

func handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest, srv *toolkit.Server) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	workflowPath := workflowutil.ExtractStringArg(args, "file_path")
	if workflowPath == "" {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	if abs, err := filepath.Abs(workflowPath); err == nil {
		workflowPath = abs
	}
	if _, err := os.Stat(workflowPath); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Workflow file not accessible: %v", err)), nil
	}

	wf, results, err := workflow.RunFile(ctx, workflowPath, workflowRunner(srv, workflowPath))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Workflow execution failed: %v", err)), nil
	}

	written, err := workflow.WriteCombinedStepOutputs(workflowPath, wf, results)
	if err != nil {
		logrus.WithError(err).Warn("failed writing workflow step outputs")
	}
	written = appendReportedFiles(written, wf, results)

	summary := workflowutil.CreateWorkflowExecutionSummary(workflowPath, wf, results, written)

	var rendered string
	if strings.EqualFold(workflowutil.ExtractStringArg(args, "format"), "json") {
		data, marshalErr := json.MarshalIndent(summary, "", "  ")
		if marshalErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal workflow summary: %v", marshalErr)), nil
		}
		rendered = string(data)
	} else {
		rendered = workflowutil.FormatWorkflowSummaryMarkdown(summary)
	}

	if outputPath := workflowutil.ExtractStringArg(args, "output_file_path"); outputPath != "" {
		if err := workflowutil.WriteWorkflowOutput(outputPath, rendered); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	return mcp.NewToolResultText(rendered), nil
}

// appendReportedFiles adds the file paths step outputs report in their
// JSON payloads, so downloads and rendered maps show up in the summary
// alongside the combined output files. Paths already present are kept
// once.
func appendReportedFiles(written []string, wf *workflow.Workflow, results map[string]map[string]workflow.StepResult) []string {
	seen := make(map[string]struct{}, len(written))
	for _, path := range written {
		seen[path] = struct{}{}
	}
	for _, step := range wf.Steps {
		for _, result := range results[step.Name] {
			if !strings.EqualFold(result.Format, "json") {
				continue
			}
			paths, err := workflowutil.ExtractFilePathsFromJSON(result.Value)
			if err != nil {
				continue
			}
			for _, path := range paths {
				if _, ok := seen[path]; ok {
					continue
				}
				seen[path] = struct{}{}
				written = append(written, path)
			}
		}
	}
	return written
}

// workflowRunner adapts the dispatch server into a workflow runner that
// resolves relative output paths against the workflow file's directory.
func workflowRunner(srv *toolkit.Server, workflowPath string) workflow.RunnerFunc {
	run := workflow.ServerRunner(srv)
	return func(stepCtx context.Context, tool string, args map[string]interface{}) (string, error) {
		normalized := workflowutil.CloneArguments(args)
		workflowutil.NormalizeWorkflowPathArg(normalized, workflowPath, "output_file")
		workflowutil.NormalizeWorkflowPathArg(normalized, workflowPath, "output_dir")
		return run(stepCtx, tool, normalized)
	}
}
