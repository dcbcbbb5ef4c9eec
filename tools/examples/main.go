// Command examples walks the tool-calling pattern against an in-process
// dispatch server: starter tools, a STAC search chain, and a custom
// handler registered on the fly.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/basic"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/planetary"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

func banner(title string) {
	fmt.Println(strings.Repeat("=", 70))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", 70))
}

func show(label string, env toolkit.Envelope) {
	fmt.Printf("\n%s\n", label)
	if env.OK() {
		fmt.Printf("Result: %s\n", env.Result)
	} else {
		fmt.Printf("Error: %s\n", env.Err)
	}
}

func exampleBasicTools(cfg config.Config) {
	banner("Example 1: Basic Tools")

	srv := toolkit.NewServer()
	if err := basic.Register(srv, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		return
	}

	show("Calculator: 10 + 5", srv.Call("calculator", map[string]interface{}{
		"operation": "add", "a": 10, "b": 5,
	}))

	srv.Call("memory", map[string]interface{}{"action": "store", "key": "user_name", "value": "Alice"})
	show("Memory: retrieve stored name", srv.Call("memory", map[string]interface{}{
		"action": "retrieve", "key": "user_name",
	}))

	env := srv.Call("weather", map[string]interface{}{"city": "New York"})
	show("Weather: New York", env)
	if strings.Contains(env.Result, "not available") {
		fmt.Println("\nNote: the weather tool needs an API key for the weather service in the configuration.")
	}
}

func exampleSTACTools(cfg config.Config) {
	banner("Example 2: STAC Tools (Land Use/Land Cover)")

	srv := toolkit.NewServer()
	if err := planetary.Register(srv, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		return
	}

	fmt.Println("\n1. Listing available collections...")
	env := srv.Call("stac_list_collections", nil)
	preview := env.String()
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	fmt.Println(preview)

	fmt.Println("\n2. Searching for Land Use/Land Cover data (California area)...")
	show("stac_search", srv.Call("stac_search", map[string]interface{}{
		"collection": "io-lulc-annual-v02",
		"bbox":       []interface{}{-122.5, 37.7, -122.3, 37.8},
		"date_start": "2023-01-01",
		"date_end":   "2023-12-31",
		"limit":      3,
	}))

	fmt.Println("\n3. Downloading land cover classification raster...")
	show("stac_download", srv.Call("stac_download", map[string]interface{}{
		"item_index": 0,
		"asset_type": "data",
		"output_dir": cfg.Downloads.Directory,
	}))

	fmt.Println("\n4. Creating map visualization...")
	show("stac_visualize", srv.Call("stac_visualize", map[string]interface{}{
		"item_index":  0,
		"zoom":        10,
		"output_file": "lulc_map.html",
	}))
	fmt.Println("\nOpen 'lulc_map.html' in your browser to view the map.")
}

func exampleCustomTool() {
	banner("Example 3: Registering a Custom Tool")

	srv := toolkit.NewServer()
	err := srv.Register("shout", func(args map[string]interface{}, ctx *toolkit.Context) (string, error) {
		text := toolkit.StringOr(args, "text", "")
		if text == "" {
			return "", fmt.Errorf("'text' parameter is required")
		}
		return strings.ToUpper(text), nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "registration failed: %v\n", err)
		return
	}

	show("Custom tool", srv.Call("shout", map[string]interface{}{"text": "hello from a custom tool"}))
	show("Unknown tool", srv.Call("nonexistent_tool", nil))

	fmt.Println("\nTo add your own tool:")
	fmt.Println("1. Write a toolkit.Handler: func(args map[string]interface{}, ctx *toolkit.Context) (string, error)")
	fmt.Println("2. Register it with srv.Register(\"tool_name\", handler)")
	fmt.Println("3. Call it with srv.Call(\"tool_name\", args) and read the envelope")
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON, YAML, or TOML)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(logrus.WarnLevel)

	exampleBasicTools(cfg)
	exampleSTACTools(cfg)
	exampleCustomTool()
}
