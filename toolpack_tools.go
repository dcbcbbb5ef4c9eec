package main

// Pack management tools for the MCP server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// createPackManagementTools registers the tools that expose the pack
// catalog over MCP.
func (tps *ToolPackSystem) createPackManagementTools(s *server.MCPServer) {
	// Tool to list the packs compiled into this binary
	listPacksTool := mcp.NewTool("list_packs",
		mcp.WithDescription("List the tool packs built into this server"),
		mcp.WithString("filter",
			mcp.Description("Filter packs by: all, enabled, disabled (default: all)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: text, json (default: text)"),
		),
	)
	s.AddTool(listPacksTool, tps.handleListPacks)

	// Tool to get pack details
	packInfoTool := mcp.NewTool("get_pack_info",
		mcp.WithDescription("Get detailed information about a tool pack, including every tool it registers"),
		mcp.WithString("pack_id",
			mcp.Required(),
			mcp.Description("Pack ID to get details for (see list_packs)"),
		),
	)
	s.AddTool(packInfoTool, tps.handleGetPackInfo)

	// Tool to search the community pack catalog
	searchCatalogTool := mcp.NewTool("search_pack_catalog",
		mcp.WithDescription("Search the community pack catalog (requires a configured catalog URL)"),
		mcp.WithString("query",
			mcp.Description("Search query matched against pack name and description"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated list of tags the pack must carry"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20)"),
		),
	)
	s.AddTool(searchCatalogTool, tps.handleSearchPackCatalog)

	// Tool to get catalog statistics
	catalogStatsTool := mcp.NewTool("pack_catalog_stats",
		mcp.WithDescription("Get community pack catalog statistics"),
	)
	s.AddTool(catalogStatsTool, tps.handlePackCatalogStats)
}

// handleListPacks handles the list_packs tool
func (tps *ToolPackSystem) handleListPacks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := request.GetString("filter", "all")
	format := request.GetString("format", "text")

	var packs []*PackMetadata
	for _, pack := range tps.catalog.List() {
		switch filter {
		case "enabled":
			if !tps.catalog.Enabled(pack.ID) {
				continue
			}
		case "disabled":
			if tps.catalog.Enabled(pack.ID) {
				continue
			}
		}
		packs = append(packs, pack)
	}

	if format == "json" {
		data, err := json.MarshalIndent(packs, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal packs: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	if len(packs) == 0 {
		return mcp.NewToolResultText("No packs found."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d pack(s):\n\n", len(packs)))
	for _, pack := range packs {
		status := "Disabled"
		if tps.catalog.Enabled(pack.ID) {
			status = "Enabled"
		}
		sb.WriteString(fmt.Sprintf("%s (%s)\n", pack.Name, pack.Version))
		sb.WriteString(fmt.Sprintf("   ID: %s\n", pack.ID))
		sb.WriteString(fmt.Sprintf("   Status: %s\n", status))
		sb.WriteString(fmt.Sprintf("   Description: %s\n", pack.Description))
		if len(pack.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("   Tags: %s\n", strings.Join(pack.Tags, ", ")))
		}
		sb.WriteString(fmt.Sprintf("   Tools: %d\n\n", len(pack.Tools)))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetPackInfo handles the get_pack_info tool
func (tps *ToolPackSystem) handleGetPackInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	packID := request.GetString("pack_id", "")
	if packID == "" {
		return mcp.NewToolResultError("pack_id is required"), nil
	}

	pack, ok := tps.catalog.Get(packID)
	if !ok {
		// Fall back to the community cache for packs not built in.
		if pack, ok = tps.index.Get(packID); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Pack '%s' not found", packID)), nil
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s)\n", pack.Name, pack.Version))
	sb.WriteString(fmt.Sprintf("ID: %s\n", pack.ID))
	sb.WriteString(fmt.Sprintf("Author: %s\n", pack.Author))
	sb.WriteString(fmt.Sprintf("Description: %s\n", pack.Description))
	if pack.Homepage != "" {
		sb.WriteString(fmt.Sprintf("Homepage: %s\n", pack.Homepage))
	}
	if pack.License != "" {
		sb.WriteString(fmt.Sprintf("License: %s\n", pack.License))
	}
	if len(pack.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(pack.Tags, ", ")))
	}

	if len(pack.Tools) > 0 {
		sb.WriteString(fmt.Sprintf("\nTools (%d):\n", len(pack.Tools)))
		for _, tool := range pack.Tools {
			sb.WriteString(fmt.Sprintf("  %s [%s] - %s\n", tool.Name, tool.Category, tool.Description))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchPackCatalog handles the search_pack_catalog tool
func (tps *ToolPackSystem) handleSearchPackCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	tagList := request.GetString("tags", "")
	limit := request.GetInt("limit", 20)

	var tags []string
	for _, tag := range strings.Split(tagList, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	// Refresh the cache lazily on first use.
	if !tps.index.Refreshed() {
		if err := tps.index.UpdateCache(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to refresh pack catalog: %v", err)), nil
		}
	}

	results := tps.index.Search(query, tags)
	if len(results) > limit {
		results = results[:limit]
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No packs matched the search."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d pack(s):\n\n", len(results)))
	for _, pack := range results {
		sb.WriteString(fmt.Sprintf("%s (%s) - %s\n", pack.Name, pack.Version, pack.Description))
		sb.WriteString(fmt.Sprintf("   ID: %s, Author: %s, Tools: %d\n\n", pack.ID, pack.Author, len(pack.Tools)))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handlePackCatalogStats handles the pack_catalog_stats tool
func (tps *ToolPackSystem) handlePackCatalogStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := tps.index.Stats()
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
