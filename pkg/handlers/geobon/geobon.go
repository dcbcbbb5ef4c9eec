// Package geobon exposes the GEO BON biodiversity catalog at
// stac.geobon.org, centered on the Global Forest Watch loss layers used
// for ESG screening. Search results persist in context so the download
// and visualization tools can pick items by index.
package geobon

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
	"github.com/MCPRUNNER/geostacMCP/pkg/mapgen"
	"github.com/MCPRUNNER/geostacMCP/pkg/stac"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"github.com/MCPRUNNER/geostacMCP/pkg/util/file"
)

// Context keys this pack owns.
const (
	ContextCollections  = "geobon_collections"
	ContextSearchItems  = "geobon_search_results"
	ContextCollectionID = "geobon_collection_id"
)

const defaultCatalogURL = "https://stac.geobon.org"

// Tools bundles the GEO BON handlers around one catalog client.
type Tools struct {
	client      *stac.Client
	downloadDir string
}

// New builds the tool set from configuration.
func New(cfg config.Config) *Tools {
	downloadDir := cfg.Downloads.Directory
	if downloadDir == "" {
		downloadDir = "downloads"
	}
	return &Tools{
		client:      stac.NewClient(cfg.ServiceURL(config.ServiceGeoBON, defaultCatalogURL)),
		downloadDir: downloadDir,
	}
}

// Register wires the GEO BON tools into the server.
func Register(srv *toolkit.Server, cfg config.Config) error {
	t := New(cfg)
	tools := map[string]toolkit.Handler{
		"geobon_list_collections":      t.ListCollections(),
		"geobon_get_collection_info":   t.CollectionInfo(),
		"geobon_search_collection":     t.SearchCollection(),
		"geobon_download_asset":        t.DownloadAsset(),
		"geobon_visualize_forest_loss": t.VisualizeForestLoss(),
	}
	for name, handler := range tools {
		if err := srv.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

// ListCollections returns the handler listing catalog collections,
// optionally filtered by a search term matched against title and
// description. The filtered list is remembered under geobon_collections.
func (t *Tools) ListCollections() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		limit := toolkit.IntOr(arguments, "limit", 10)
		searchTerm := strings.ToLower(toolkit.StringOr(arguments, "search_term", ""))

		collections, err := t.client.Collections(context.Background())
		if err != nil {
			return "", fmt.Errorf("fetching collections: %v", err)
		}

		if searchTerm != "" {
			filtered := make([]stac.Collection, 0, len(collections))
			for _, c := range collections {
				haystack := strings.ToLower(c.Title + " " + c.Description)
				if strings.Contains(haystack, searchTerm) {
					filtered = append(filtered, c)
				}
			}
			collections = filtered
		}

		ctx.Set(ContextCollections, collections)

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d GEO BON collections", len(collections))
		if searchTerm != "" {
			fmt.Fprintf(&b, " matching '%s'", searchTerm)
		}
		b.WriteString(":\n\n")

		shown := collections
		if len(shown) > limit {
			shown = shown[:limit]
		}
		for i, c := range shown {
			title := c.Title
			if title == "" {
				title = "No title"
			}
			id := c.ID
			if id == "" {
				id = "Unknown"
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
			fmt.Fprintf(&b, "   ID: %s\n", id)
			fmt.Fprintf(&b, "   Description: %s...\n\n", clip(c.Description, 200))
		}

		if len(collections) > limit {
			fmt.Fprintf(&b, "\n(Showing %d of %d collections. Increase 'limit' to see more.)", limit, len(collections))
		}
		return b.String(), nil
	}
}

// CollectionInfo returns the handler describing a single collection:
// description, license, extents, and the short summary lists GEO BON
// attaches (years covered, bands, that sort of thing).
func (t *Tools) CollectionInfo() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		collectionID := toolkit.StringOr(arguments, "collection_id", "")
		if collectionID == "" {
			return "Error: 'collection_id' parameter is required", nil
		}

		collection, err := t.client.Collection(context.Background(), collectionID)
		if err != nil {
			return "", fmt.Errorf("fetching collection info: %v", err)
		}

		title := collection.Title
		if title == "" {
			title = "No title"
		}
		description := collection.Description
		if description == "" {
			description = "No description"
		}
		license := collection.License
		if license == "" {
			license = "Unknown"
		}

		var b strings.Builder
		fmt.Fprintf(&b, "🌍 Collection: %s\n", title)
		fmt.Fprintf(&b, "ID: %s\n\n", collectionID)
		fmt.Fprintf(&b, "Description:\n%s\n\n", description)
		fmt.Fprintf(&b, "License: %s\n\n", license)

		if len(collection.Extent.Spatial.BBox) > 0 && len(collection.Extent.Spatial.BBox[0]) > 0 {
			fmt.Fprintf(&b, "Spatial Extent (bbox): %s\n", coordList(collection.Extent.Spatial.BBox[0]))
			b.WriteString("Coverage: Global\n")
		}
		if len(collection.Extent.Temporal.Interval) > 0 && len(collection.Extent.Temporal.Interval[0]) == 2 {
			interval := collection.Extent.Temporal.Interval[0]
			start, end := "Unknown", "Present"
			if interval[0] != nil {
				start = *interval[0]
			}
			if interval[1] != nil {
				end = *interval[1]
			}
			fmt.Fprintf(&b, "Temporal Extent: %s to %s\n", start, end)
		}

		if len(collection.Summaries) > 0 {
			b.WriteString("\n📊 Additional Information:\n")
			for _, key := range sortedKeys(collection.Summaries) {
				values, ok := collection.Summaries[key].([]interface{})
				if !ok || len(values) > 5 {
					continue
				}
				parts := make([]string, len(values))
				for i, v := range values {
					parts[i] = fmt.Sprintf("%v", v)
				}
				fmt.Fprintf(&b, "   %s: %s\n", key, strings.Join(parts, ", "))
			}
		}
		return b.String(), nil
	}
}

// SearchCollection returns the handler listing items of one collection.
// Results land under geobon_search_results for the download and
// visualization tools.
func (t *Tools) SearchCollection() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		collectionID := toolkit.StringOr(arguments, "collection_id", "")
		if collectionID == "" {
			return "Error: 'collection_id' parameter is required", nil
		}
		limit := toolkit.IntOr(arguments, "limit", 10)

		var bbox *geo.BBox
		if values, ok := toolkit.Floats(arguments, "bbox"); ok {
			parsed, err := geo.ParseBBox(values)
			if err != nil {
				return fmt.Sprintf("Error: %v", err), nil
			}
			bbox = &parsed
		}

		items, err := t.client.CollectionItems(context.Background(), collectionID, bbox, limit)
		if err != nil {
			return "", fmt.Errorf("searching collection: %v", err)
		}

		ctx.Set(ContextSearchItems, items)
		ctx.Set(ContextCollectionID, collectionID)

		if len(items) == 0 {
			return fmt.Sprintf("No items found in collection '%s'", collectionID), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "🔍 Found %d items in collection '%s':\n\n", len(items), collectionID)
		for i, item := range items {
			id := item.ID
			if id == "" {
				id = "Unknown"
			}
			fmt.Fprintf(&b, "%d. Item ID: %s\n", i+1, id)
			if dt, ok := item.Properties["datetime"].(string); ok {
				fmt.Fprintf(&b, "   Date: %s\n", dt)
			}
			if title := item.PropertyString("title"); title != "" {
				fmt.Fprintf(&b, "   Title: %s\n", title)
			}
			if item.Geometry != nil {
				geomType := item.Geometry.Type
				if geomType == "" {
					geomType = "Unknown"
				}
				fmt.Fprintf(&b, "   Geometry: %s\n", geomType)
			}
			if len(item.Assets) > 0 {
				keys := sortedAssetKeys(item.Assets)
				entries := make([]string, 0, 3)
				for _, key := range keys {
					if len(entries) == 3 {
						break
					}
					mediaType := item.Assets[key].Type
					if mediaType == "" {
						mediaType = "unknown"
					}
					entries = append(entries, fmt.Sprintf("%s (%s)", key, mediaType))
				}
				fmt.Fprintf(&b, "   Assets: %s", strings.Join(entries, ", "))
				if len(keys) > 3 {
					fmt.Fprintf(&b, " and %d more", len(keys)-3)
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		return b.String(), nil
	}
}

// DownloadAsset returns the handler streaming one asset of a search
// result to disk. Called without an asset_key it lists what the item
// offers instead of guessing, since forest-loss items carry several
// large rasters.
func (t *Tools) DownloadAsset() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		itemIndex := toolkit.IntOr(arguments, "item_index", 0)
		assetKey := toolkit.StringOr(arguments, "asset_key", "")
		// A relative output_dir resolves under the downloads directory.
		outputDir := filepath.Join(t.downloadDir, "geobon")
		if dir := toolkit.StringOr(arguments, "output_dir", ""); dir != "" {
			outputDir = file.ResolveFilePath(dir, t.downloadDir)
		}

		items := searchItems(ctx)
		if len(items) == 0 {
			return "Error: No search results found. Please run geobon_search_collection first.", nil
		}
		if itemIndex < 0 || itemIndex >= len(items) {
			return fmt.Sprintf("Error: Item index %d out of range. Only %d items available.", itemIndex, len(items)), nil
		}
		item := items[itemIndex]

		if assetKey == "" {
			if len(item.Assets) == 0 {
				return "Error: No assets found in this item.", nil
			}
			var b strings.Builder
			b.WriteString("Available assets for this item:\n\n")
			for _, key := range sortedAssetKeys(item.Assets) {
				asset := item.Assets[key]
				title := asset.Title
				if title == "" {
					title = "No title"
				}
				mediaType := asset.Type
				if mediaType == "" {
					mediaType = "unknown"
				}
				fmt.Fprintf(&b, "• %s: %s (type: %s)\n", key, title, mediaType)
			}
			b.WriteString("\nSpecify 'asset_key' parameter to download a specific asset.")
			return b.String(), nil
		}

		asset, ok := item.Assets[assetKey]
		if !ok {
			return fmt.Sprintf("Error: Asset '%s' not found. Available assets: %s", assetKey, strings.Join(sortedAssetKeys(item.Assets), ", ")), nil
		}
		if asset.Href == "" {
			return fmt.Sprintf("Error: No URL found for asset '%s'", assetKey), nil
		}

		id := item.ID
		if id == "" {
			id = "unknown"
		}
		filename := file.SanitizeName(id+"_"+assetKey) + file.ExtensionFromURL(asset.Href, ".dat")
		destPath := filepath.Join(outputDir, filename)

		written, err := file.Download(context.Background(), &http.Client{Timeout: 2 * time.Minute}, asset.Href, destPath)
		if err != nil {
			return "", fmt.Errorf("downloading asset: %v", err)
		}

		return fmt.Sprintf("✅ Downloaded successfully!\nFile: %s\nSize: %.2f MB", destPath, file.SizeMB(written)), nil
	}
}

// VisualizeForestLoss returns the handler mapping one search result's
// coverage: a red rectangle over satellite imagery with the collection
// and ESG context in the marker popup. Zoom follows the bbox span
// unless the caller picks one.
func (t *Tools) VisualizeForestLoss() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		itemIndex := toolkit.IntOr(arguments, "item_index", 0)
		outputFile := toolkit.StringOr(arguments, "output_file", "geobon_forest_loss_map.html")
		regionName := toolkit.StringOr(arguments, "region_name", "Global")

		items := searchItems(ctx)
		collectionID := contextString(ctx, ContextCollectionID, "Unknown")

		if len(items) == 0 {
			return "Error: No search results found. Please run geobon_search_collection first.", nil
		}
		if itemIndex < 0 || itemIndex >= len(items) {
			return fmt.Sprintf("Error: Item index %d out of range. Only %d items available.", itemIndex, len(items)), nil
		}
		item := items[itemIndex]
		itemID := item.ID
		if itemID == "" {
			itemID = "Unknown"
		}

		bbox := item.BBox
		var center geo.Coordinate
		var zoom int
		if len(bbox) == 4 {
			center = geo.Coordinate{Lat: (bbox[1] + bbox[3]) / 2, Lon: (bbox[0] + bbox[2]) / 2}
			zoom = toolkit.IntOr(arguments, "zoom", zoomForSpan(bbox))
		} else {
			center = geo.Coordinate{}
			bbox = []float64{-180, -90, 180, 90}
			zoom = toolkit.IntOr(arguments, "zoom", 2)
		}

		date := item.PropertyString("datetime")
		if date == "" {
			date = "N/A"
		} else if len(date) > 10 {
			date = date[:10]
		}

		m := mapgen.New(center, zoom)
		m.Title = "GEO BON Forest Loss"
		m.Base = mapgen.EsriWorldImagery()
		m.Rectangles = append(m.Rectangles, mapgen.Rectangle{
			Bounds: geo.BBox{West: bbox[0], South: bbox[1], East: bbox[2], North: bbox[3]},
			Color:  "#D32F2F",
			Weight: 2,
			Fill:   true,
		})
		m.Markers = append(m.Markers, mapgen.Marker{
			At: center,
			Popup: fmt.Sprintf("<b>🌍 GEO BON Data</b><br><b>Collection:</b> %s<br><b>Item:</b> %s<br><b>Region:</b> %s<br><b>Date:</b> %s",
				collectionID, itemID, regionName, date),
		})
		m.Info = &mapgen.InfoBox{
			Heading: "🌲 GEO BON Forest Loss",
			Lines: []string{
				"Collection: " + collectionID,
				"Item: " + itemID,
				"Region: " + regionName,
				"Date: " + date,
				"🎯 ESG Uses:",
				"• Supply chain deforestation",
				"• Climate risk assessment",
				"• Biodiversity monitoring",
			},
			Border: "#D32F2F",
		}

		if err := m.WriteFile(outputFile); err != nil {
			return "", fmt.Errorf("saving map: %v", err)
		}

		assetInfo := ""
		if len(item.Assets) > 0 {
			var sb strings.Builder
			sb.WriteString("\n\n📦 Available Assets for Download:\n")
			keys := sortedAssetKeys(item.Assets)
			if len(keys) > 3 {
				keys = keys[:3]
			}
			for _, key := range keys {
				mediaType := item.Assets[key].Type
				if mediaType == "" {
					mediaType = "unknown"
				}
				fmt.Fprintf(&sb, "   • %s (%s)\n", key, mediaType)
			}
			assetInfo = sb.String()
		}

		return fmt.Sprintf(`✅ Forest Loss Visualization Created!

What the map shows:
- Red box = Geographic coverage area of forest loss data
- Satellite imagery base for terrain context
- Interactive popup with ESG context

About This Data:
This collection tracks forest cover loss, which is critical for:
- Environmental: Deforestation & climate change impact
- Social: Indigenous land rights & community impacts
- Governance: Supply chain transparency & compliance
%s
Next Steps:
1. Open %s in your browser to explore the map
2. Use geobon_download_asset to get GeoTIFF files for detailed analysis
3. Integrate with ESG risk assessment frameworks

For detailed spatial analysis, download the GeoTIFF assets and
process them with QGIS, ArcGIS, or GDAL
`, assetInfo, outputFile), nil
	}
}

// zoomForSpan maps a bbox's widest side in degrees to a Leaflet zoom:
// continents get 2, countries 3, regions 4, states 5, anything local 6.
func zoomForSpan(bbox []float64) int {
	latRange := bbox[3] - bbox[1]
	if latRange < 0 {
		latRange = -latRange
	}
	lonRange := bbox[2] - bbox[0]
	if lonRange < 0 {
		lonRange = -lonRange
	}
	maxRange := latRange
	if lonRange > maxRange {
		maxRange = lonRange
	}
	switch {
	case maxRange > 100:
		return 2
	case maxRange > 50:
		return 3
	case maxRange > 20:
		return 4
	case maxRange > 10:
		return 5
	default:
		return 6
	}
}

func searchItems(ctx *toolkit.Context) []stac.Item {
	items, _ := ctx.GetDefault(ContextSearchItems, nil).([]stac.Item)
	return items
}

func contextString(ctx *toolkit.Context, key, def string) string {
	if s, ok := ctx.GetDefault(key, "").(string); ok && s != "" {
		return s
	}
	return def
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedAssetKeys(assets map[string]stac.Asset) []string {
	keys := make([]string, 0, len(assets))
	for k := range assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func coordList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// clip cuts s to max runes without an ellipsis; callers add their own.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
