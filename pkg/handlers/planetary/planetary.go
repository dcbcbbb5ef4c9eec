package planetary

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
	"github.com/MCPRUNNER/geostacMCP/pkg/mapgen"
	"github.com/MCPRUNNER/geostacMCP/pkg/stac"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"github.com/MCPRUNNER/geostacMCP/pkg/util/file"
)

// Context keys this pack owns. Later tools read state the earlier ones
// left behind, which is what makes search-download-visualize work as a
// conversation.
const (
	ContextCollections  = "available_collections"
	ContextLastSearch   = "last_search"
	ContextLastDownload = "last_download"
	ContextLastMap      = "last_map"
)

const (
	defaultCatalogURL = "https://planetarycomputer.microsoft.com/api/stac/v1"
	defaultSigningURL = "https://planetarycomputer.microsoft.com/api/sas/v1/sign"
	defaultCollection = "io-lulc-annual-v02"
)

var defaultSearchArea = geo.BBox{West: -122.5, South: 37.7, East: -122.3, North: 37.8}

var popularCollections = []string{
	"io-lulc-annual-v02 - 10m Annual Land Use/Land Cover",
	"sentinel-2-l2a - Sentinel-2 Level 2A",
	"landsat-c2-l2 - Landsat Collection 2 Level 2",
	"modis-09a1 - MODIS Surface Reflectance",
	"naip - National Agriculture Imagery Program",
}

// CollectionSummary is the trimmed entry stored under
// available_collections.
type CollectionSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SearchState is what stac_search leaves under last_search for the
// download and visualize tools.
type SearchState struct {
	Collection string      `json:"collection"`
	Items      []stac.Item `json:"items"`
	Count      int         `json:"count"`
}

// DownloadState is what stac_download leaves under last_download.
type DownloadState struct {
	ItemID    string `json:"item_id"`
	AssetType string `json:"asset_type"`
	Filepath  string `json:"filepath"`
}

// MapState is what stac_visualize leaves under last_map.
type MapState struct {
	ItemID   string `json:"item_id"`
	Filepath string `json:"filepath"`
}

// Tools bundles the Planetary Computer handlers around one catalog
// client and asset signer.
type Tools struct {
	client      *stac.Client
	signer      *stac.Signer
	downloadDir string
	now         func() time.Time
}

// New builds the tool set from configuration.
func New(cfg config.Config) *Tools {
	downloadDir := cfg.Downloads.Directory
	if downloadDir == "" {
		downloadDir = "downloads"
	}
	return &Tools{
		client:      stac.NewClient(cfg.ServiceURL(config.ServicePlanetary, defaultCatalogURL)),
		signer:      stac.NewSigner(cfg.ServiceURL(config.ServicePlanetarySigning, defaultSigningURL)),
		downloadDir: downloadDir,
		now:         time.Now,
	}
}

// Register wires the Planetary Computer tools into the server.
func Register(srv *toolkit.Server, cfg config.Config) error {
	t := New(cfg)
	tools := map[string]toolkit.Handler{
		"stac_list_collections": t.ListCollections(),
		"stac_search":           t.Search(),
		"stac_download":         t.Download(),
		"stac_visualize":        t.Visualize(),
	}
	for name, handler := range tools {
		if err := srv.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

// ListCollections returns the handler listing catalog collections. The
// first twenty are summarized and remembered under
// available_collections.
func (t *Tools) ListCollections() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		collections, err := t.client.Collections(context.Background())
		if err != nil {
			return "", fmt.Errorf("failed to list collections: %v", err)
		}

		count := len(collections)
		if count > 20 {
			count = 20
		}
		summaries := make([]CollectionSummary, 0, count)
		for _, col := range collections[:count] {
			title := col.Title
			if title == "" {
				title = "No title"
			}
			summaries = append(summaries, CollectionSummary{
				ID:          col.ID,
				Title:       title,
				Description: truncate(col.Description, 100),
			})
		}
		ctx.Set(ContextCollections, summaries)

		result := map[string]interface{}{
			"total_collections":   len(collections),
			"popular_collections": popularCollections,
			"all_collections":     summaries,
		}
		return encodeJSON(result)
	}
}

// Search returns the handler running a POST /search against the
// catalog. Results are remembered under last_search.
func (t *Tools) Search() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		collection := toolkit.StringOr(arguments, "collection", defaultCollection)
		collections := []string{collection}
		if values, ok := toolkit.Strings(arguments, "collections"); ok && len(values) > 0 {
			collections = values
			collection = values[0]
		}
		bbox := defaultSearchArea.Slice()
		if values, ok := toolkit.Floats(arguments, "bbox"); ok && len(values) == 4 {
			bbox = values
		}
		dateStart := toolkit.StringOr(arguments, "date_start", "30 days ago")
		dateEnd := toolkit.StringOr(arguments, "date_end", "today")
		limit := toolkit.IntOr(arguments, "limit", 10)

		dateRange, err := geo.ParseDateRange(dateStart, dateEnd, t.now())
		if err != nil {
			return "", err
		}

		items, err := t.client.Search(context.Background(), stac.SearchRequest{
			Collections: collections,
			BBox:        bbox,
			Datetime:    dateRange,
			Limit:       limit,
		})
		if err != nil {
			return "", fmt.Errorf("search failed: %v", err)
		}

		ctx.Set(ContextLastSearch, SearchState{
			Collection: collection,
			Items:      items,
			Count:      len(items),
		})

		sampleCount := len(items)
		if sampleCount > 5 {
			sampleCount = 5
		}
		samples := make([]map[string]interface{}, 0, sampleCount)
		for _, item := range items[:sampleCount] {
			sample := map[string]interface{}{
				"id":   itemID(item),
				"date": item.Datetime(),
			}
			if cover, ok := item.CloudCover(); ok {
				sample["cloud_cover"] = cover
			} else {
				sample["cloud_cover"] = "N/A"
			}
			samples = append(samples, sample)
		}

		summary := map[string]interface{}{
			"collection":   collection,
			"bbox":         bbox,
			"date_range":   dateRange,
			"items_found":  len(items),
			"sample_items": samples,
		}
		return encodeJSON(summary)
	}
}

// Download returns the handler fetching one asset of a previously
// found item. Asset URLs are signed before download since Planetary
// Computer blob storage requires a SAS token.
func (t *Tools) Download() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		state, ok := lastSearch(ctx)
		if !ok || len(state.Items) == 0 {
			return "Error: No items found. Please run a search first.", nil
		}

		item := pickItem(state.Items, arguments)
		requested := toolkit.StringOr(arguments, "asset_type", "data")
		outputDir := t.downloadDir
		if dir := toolkit.StringOr(arguments, "output_dir", ""); dir != "" {
			outputDir = file.ResolveFilePath(dir, t.downloadDir)
		}

		asset, assetType, found := resolveAsset(item.Assets, requested, state.Collection)
		if !found {
			available := make([]string, 0, len(item.Assets))
			for name := range item.Assets {
				available = append(available, name)
			}
			sort.Strings(available)
			return fmt.Sprintf("Error: Asset type not found. Available: %s", strings.Join(available, ", ")), nil
		}
		if asset.Href == "" {
			return "Error: No URL found for asset", nil
		}

		signedURL, err := t.signer.Sign(context.Background(), asset.Href)
		if err != nil {
			return "", fmt.Errorf("failed to sign asset URL: %v", err)
		}

		id := itemID(item)
		ext := file.ExtensionFromURL(asset.Href, ".tif")
		filename := file.SanitizeName(id+"_"+assetType) + ext
		destPath := filepath.Join(outputDir, filename)

		if _, err := file.Download(context.Background(), nil, signedURL, destPath); err != nil {
			return "", fmt.Errorf("download failed: %v", err)
		}

		ctx.Set(ContextLastDownload, DownloadState{
			ItemID:    id,
			AssetType: assetType,
			Filepath:  destPath,
		})
		return fmt.Sprintf("Downloaded %s for item %s to: %s", assetType, id, destPath), nil
	}
}

// Visualize returns the handler rendering one previously found item to
// a Leaflet HTML file with a marker and its bounding box.
func (t *Tools) Visualize() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		state, ok := lastSearch(ctx)
		if !ok || len(state.Items) == 0 {
			return "Error: No search results found. Please run a search first.", nil
		}

		itemIndex := toolkit.IntOr(arguments, "item_index", 0)
		zoom := toolkit.IntOr(arguments, "zoom", 10)
		outputFile := toolkit.StringOr(arguments, "output_file", "map.html")

		if itemIndex < 0 || itemIndex >= len(state.Items) {
			return fmt.Sprintf("Error: Item index %d out of range. Found %d items.", itemIndex, len(state.Items)), nil
		}

		item := state.Items[itemIndex]
		id := itemID(item)
		center := itemCenter(item)
		collection := state.Collection
		if collection == "" {
			collection = "unknown"
		}

		m := mapgen.New(center, zoom)
		m.Title = "STAC Item " + id
		m.Markers = append(m.Markers, mapgen.Marker{
			At:      center,
			Popup:   fmt.Sprintf("<b>STAC Item</b><br>ID: %s<br>Date: %s<br>Collection: %s", id, item.Datetime(), collection),
			Tooltip: id,
		})

		if len(item.BBox) == 4 {
			if bounds, err := geo.ParseBBox(item.BBox); err == nil {
				m.Rectangles = append(m.Rectangles, mapgen.Rectangle{
					Bounds: bounds,
					Color:  "red",
					Weight: 2,
				})
			}
		}

		if err := m.WriteFile(outputFile); err != nil {
			return "", fmt.Errorf("failed to write map: %v", err)
		}

		ctx.Set(ContextLastMap, MapState{ItemID: id, Filepath: outputFile})
		return fmt.Sprintf("Map created: %s (showing item %d: %s)", outputFile, itemIndex, id), nil
	}
}

func lastSearch(ctx *toolkit.Context) (SearchState, bool) {
	state, ok := ctx.GetDefault(ContextLastSearch, nil).(SearchState)
	return state, ok
}

// pickItem selects by explicit id first, then by index, falling back to
// the first item.
func pickItem(items []stac.Item, arguments map[string]interface{}) stac.Item {
	if id := toolkit.StringOr(arguments, "item_id", ""); id != "" {
		for _, item := range items {
			if item.ID == id {
				return item
			}
		}
	}
	index := toolkit.IntOr(arguments, "item_index", 0)
	if index >= 0 && index < len(items) {
		return items[index]
	}
	return items[0]
}

// resolveAsset falls back through likely asset names when the requested
// one is missing. Land cover collections carry classification rasters
// under different keys than imagery collections.
func resolveAsset(assets map[string]stac.Asset, requested, collection string) (stac.Asset, string, bool) {
	if asset, ok := assets[requested]; ok {
		return asset, requested, true
	}
	var alternatives []string
	if strings.Contains(strings.ToLower(collection), "lulc") {
		alternatives = []string{"data", "lulc", "landcover", "classification", "thumbnail"}
	} else {
		alternatives = []string{"visual", "thumbnail", "data"}
	}
	for _, alt := range alternatives {
		if asset, ok := assets[alt]; ok {
			return asset, alt, true
		}
	}
	return stac.Asset{}, "", false
}

// itemCenter prefers the polygon centroid and falls back to the bbox
// midpoint, then to the demo search area.
func itemCenter(item stac.Item) geo.Coordinate {
	if item.Geometry != nil && item.Geometry.Type == "Polygon" {
		if center, ok := geo.Center(geo.ExtractCoords(item.Geometry)); ok {
			return center
		}
	}
	if len(item.BBox) == 4 {
		if bounds, err := geo.ParseBBox(item.BBox); err == nil {
			return bounds.Center()
		}
	}
	return geo.Coordinate{Lon: -122.35, Lat: 37.75}
}

func itemID(item stac.Item) string {
	if item.ID == "" {
		return "unknown"
	}
	return item.ID
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %v", err)
	}
	return string(data), nil
}
