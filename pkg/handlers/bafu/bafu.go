// Package bafu wraps the Swiss federal geodata services: the
// data.geo.admin.ch STAC catalog, the GeoAdmin identify REST API, and
// the wms.geo.admin.ch map service. The tools chain through shared
// context the same way the Planetary Computer pack does: search leaves
// items behind, get_actual_data leaves a feature collection, and the
// visualization and risk tools consume it.
package bafu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
	"github.com/MCPRUNNER/geostacMCP/pkg/stac"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"github.com/MCPRUNNER/geostacMCP/pkg/util/file"
)

// Context keys this pack owns.
const (
	ContextCollections  = "bafu_collections"
	ContextSearchItems  = "bafu_search_results"
	ContextCollectionID = "bafu_collection_id"
	ContextGeoJSON      = "bafu_geojson_data"
	ContextDataSource   = "bafu_data_source"
)

const (
	defaultCatalogURL  = "https://data.geo.admin.ch/api/stac/v1"
	defaultIdentifyURL = "https://api3.geo.admin.ch/rest/services/api/MapServer/identify"
	defaultWMSURL      = "https://wms.geo.admin.ch/"
)

// Zurich area in LV95, used when an identify call names no geometry.
var defaultIdentifyBBox = []float64{2683000, 1247000, 2685000, 1249000}

var switzerlandCenter = geo.Coordinate{Lon: 8.2275, Lat: 46.8182}

var (
	vectorExtensions = []string{".geojson", ".json", ".gpkg", ".shp"}
	rasterExtensions = []string{".tif", ".tiff", ".png", ".jpg"}

	// Formats bafu_get_actual_data can parse directly, in preference
	// order. Anything else needs bafu_download_asset plus GIS software.
	preferredDataFormats = []string{".geojson", ".json", ".gpkg", ".shp.zip", ".kml"}

	riskFieldTerms = []string{"risk", "hazard", "danger", "level", "class", "category", "intensity"}
)

// Tools bundles the Swiss geodata handlers around one catalog client
// and the two GeoAdmin service endpoints.
type Tools struct {
	client      *stac.Client
	identifyURL string
	wmsURL      string
	httpc       *http.Client
	dataClient  *http.Client
	downloadDir string
}

// New builds the tool set from configuration.
func New(cfg config.Config) *Tools {
	downloadDir := cfg.Downloads.Directory
	if downloadDir == "" {
		downloadDir = "downloads"
	}
	return &Tools{
		client:      stac.NewClient(cfg.ServiceURL(config.ServiceGeoAdminSTAC, defaultCatalogURL)),
		identifyURL: cfg.ServiceURL(config.ServiceGeoAdminIdentify, defaultIdentifyURL),
		wmsURL:      cfg.ServiceURL(config.ServiceGeoAdminWMS, defaultWMSURL),
		httpc:       &http.Client{Timeout: 30 * time.Second},
		dataClient:  &http.Client{Timeout: 60 * time.Second},
		downloadDir: downloadDir,
	}
}

// Register wires the Swiss geodata tools into the server.
func Register(srv *toolkit.Server, cfg config.Config) error {
	t := New(cfg)
	tools := map[string]toolkit.Handler{
		"bafu_list_collections":         t.ListCollections(),
		"bafu_search_collection":        t.SearchCollection(),
		"bafu_get_collection_info":      t.CollectionInfo(),
		"bafu_get_actual_data":          t.ActualData(),
		"bafu_identify_features":        t.IdentifyFeatures(),
		"bafu_query_by_coordinates":     t.QueryByCoordinates(),
		"bafu_visualize_actual_data":    t.VisualizeActualData(),
		"bafu_visualize_wms":            t.VisualizeWMS(),
		"bafu_download_asset":           t.DownloadAsset(),
		"bafu_analyze_risk_at_location": t.AnalyzeRisk(),
		"wms_list_layers":               t.WMSLayers(),
	}
	for name, handler := range tools {
		if err := srv.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

// ListCollections returns the handler listing catalog collections,
// optionally filtered by a search term matched against id, title, and
// description. The filtered list is remembered under bafu_collections.
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
				haystack := strings.ToLower(c.ID + " " + c.Title + " " + c.Description)
				if strings.Contains(haystack, searchTerm) {
					filtered = append(filtered, c)
				}
			}
			collections = filtered
		}

		ctx.Set(ContextCollections, collections)

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d BAFU collections", len(collections))
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
			fmt.Fprintf(&b, "   Description: %s...\n\n", clip(c.Description, 150))
		}

		if len(collections) > limit {
			fmt.Fprintf(&b, "\n(Showing %d of %d collections. Increase 'limit' to see more.)", limit, len(collections))
		}
		return b.String(), nil
	}
}

// SearchCollection returns the handler listing items of one collection,
// tagging each asset by whether the data it points at can be rendered
// directly. Results land under bafu_search_results for the download and
// data tools.
func (t *Tools) SearchCollection() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		collectionID := toolkit.StringOr(arguments, "collection_id", "")
		if collectionID == "" {
			return "Error: 'collection_id' parameter is required", nil
		}
		limit := toolkit.IntOr(arguments, "limit", 5)

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
		fmt.Fprintf(&b, "Found %d items in collection '%s':\n\n", len(items), collectionID)
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
			if len(item.Assets) > 0 {
				fmt.Fprintf(&b, "   Available Assets (%d):\n", len(item.Assets))
				for _, key := range sortedAssetKeys(item.Assets) {
					asset := item.Assets[key]
					mediaType := asset.Type
					if mediaType == "" {
						mediaType = "unknown"
					}
					title := asset.Title
					if title == "" {
						title = key
					}
					fmt.Fprintf(&b, "      - %s: %s (%s)%s\n", key, title, mediaType, visualizableTag(asset.Href))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n💡 To visualize actual data, use bafu_visualize_actual_data with an asset that contains vector data (.geojson, .json, .gpkg)")
		return b.String(), nil
	}
}

// CollectionInfo returns the handler describing a single collection:
// description, license, providers, and extents.
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
		names := make([]string, 0, len(collection.Providers))
		for _, p := range collection.Providers {
			name := p.Name
			if name == "" {
				name = "Unknown"
			}
			names = append(names, name)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Collection: %s\n", title)
		fmt.Fprintf(&b, "ID: %s\n\n", collectionID)
		fmt.Fprintf(&b, "Description:\n%s\n\n", description)
		fmt.Fprintf(&b, "License: %s\n", license)
		fmt.Fprintf(&b, "Providers: %s\n\n", strings.Join(names, ", "))

		if len(collection.Extent.Spatial.BBox) > 0 && len(collection.Extent.Spatial.BBox[0]) > 0 {
			fmt.Fprintf(&b, "Spatial Extent (bbox): %s\n", coordList(collection.Extent.Spatial.BBox[0]))
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
		return b.String(), nil
	}
}

// IdentifyFeatures returns the handler querying the GeoAdmin identify
// service with an LV95 point or envelope. This is the reliable way to
// get real feature geometry out of layers whose STAC assets only carry
// rasters.
func (t *Tools) IdentifyFeatures() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		layerID := toolkit.StringOr(arguments, "layer_id", "")
		if layerID == "" {
			layerID = contextString(ctx, ContextCollectionID, "")
		}
		if layerID == "" {
			return "Error: 'layer_id' parameter required or run bafu_search_collection first", nil
		}

		geometry, _ := toolkit.Floats(arguments, "geometry")
		geometryType := toolkit.StringOr(arguments, "geometry_type", "bbox")
		tolerance := toolkit.IntOr(arguments, "tolerance", 10)
		returnGeometry := toolkit.BoolOr(arguments, "return_geometry", true)

		if len(geometry) == 0 {
			geometry = defaultIdentifyBBox
			geometryType = "bbox"
		}

		return t.identify(ctx, layerID, geometry, geometryType, tolerance, returnGeometry)
	}
}

// QueryByCoordinates returns the handler accepting WGS84 lat/lon,
// converting them to LV95, and delegating to the identify flow with a
// search window around the point.
func (t *Tools) QueryByCoordinates() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		lat, latOK := toolkit.Float(arguments, "lat")
		lon, lonOK := toolkit.Float(arguments, "lon")
		if !latOK || !lonOK {
			return "Error: Both 'lat' and 'lon' parameters are required", nil
		}
		layerID := toolkit.StringOr(arguments, "layer_id", "")
		if layerID == "" {
			layerID = contextString(ctx, ContextCollectionID, "")
		}
		if layerID == "" {
			return "Error: 'layer_id' required or run bafu_search_collection first", nil
		}
		radius := toolkit.FloatOr(arguments, "radius_m", 1000)

		east, north := WGS84ToLV95(lat, lon)
		half := radius / 2
		bbox := []float64{east - half, north - half, east + half, north + half}

		var b strings.Builder
		fmt.Fprintf(&b, "📍 Querying at: %v, %v (WGS84)\n", lat, lon)
		fmt.Fprintf(&b, "   Converted to LV95: %.0f, %.0f\n", east, north)
		fmt.Fprintf(&b, "   Search radius: %vm\n\n", radius)

		identified, err := t.identify(ctx, layerID, bbox, "bbox", 10, true)
		if err != nil {
			return "", err
		}
		return b.String() + identified, nil
	}
}

// identifyResult is one entry of a GeoAdmin identify response. The
// service splits feature fields between properties and attributes
// depending on the layer, so both are kept and merged.
type identifyResult struct {
	ID         interface{}            `json:"id"`
	Geometry   *geo.Geometry          `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	Attributes map[string]interface{} `json:"attributes"`
}

type identifyResponse struct {
	Results []identifyResult `json:"results"`
}

func (t *Tools) identify(ctx *toolkit.Context, layerID string, geometry []float64, geometryType string, tolerance int, returnGeometry bool) (string, error) {
	params := url.Values{}
	switch {
	case geometryType == "point" && len(geometry) == 2:
		params.Set("geometry", joinCoords(geometry))
		params.Set("geometryType", "esriGeometryPoint")
		params.Set("mapExtent", joinCoords([]float64{
			geometry[0] - 5000, geometry[1] - 5000,
			geometry[0] + 5000, geometry[1] + 5000,
		}))
	case geometryType == "bbox" && len(geometry) == 4:
		params.Set("geometry", joinCoords(geometry))
		params.Set("geometryType", "esriGeometryEnvelope")
		params.Set("mapExtent", joinCoords(geometry))
	default:
		return "Error: Invalid geometry. Use [x,y] for point or [minx,miny,maxx,maxy] for bbox", nil
	}
	params.Set("layers", "all:"+layerID)
	params.Set("imageDisplay", "500,500,96")
	params.Set("tolerance", strconv.Itoa(tolerance))
	params.Set("returnGeometry", strconv.FormatBool(returnGeometry))
	params.Set("geometryFormat", "geojson")
	params.Set("sr", "2056")

	resp, err := t.httpc.Get(t.identifyURL + "?" + params.Encode())
	if err != nil {
		return "", fmt.Errorf("identifying features: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identifying features: unexpected status %s", resp.Status)
	}

	var payload identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("identifying features: decoding response: %v", err)
	}

	results := payload.Results
	if len(results) == 0 {
		return fmt.Sprintf(`No features found at the specified location.

Layer: %s
Geometry: %s

Tips:
- Try a different location (coordinates must be in LV95/EPSG:2056)
- Try a larger bounding box
- Verify the layer contains data for this area`, layerID, coordList(geometry)), nil
	}

	collection := geo.FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]geo.Feature, 0, len(results)),
	}
	for _, r := range results {
		props := make(map[string]interface{}, len(r.Properties)+len(r.Attributes))
		for k, v := range r.Properties {
			props[k] = v
		}
		for k, v := range r.Attributes {
			props[k] = v
		}
		collection.Features = append(collection.Features, geo.Feature{
			Type:       "Feature",
			ID:         r.ID,
			Geometry:   r.Geometry,
			Properties: props,
		})
	}

	ctx.Set(ContextGeoJSON, collection)
	ctx.Set(ContextDataSource, "GeoAdmin Identify API")
	ctx.Set(ContextCollectionID, layerID)

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Found %d features!\n\n", len(results))
	fmt.Fprintf(&b, "Layer: %s\n", layerID)
	fmt.Fprintf(&b, "Query geometry: %s\n\n", coordList(geometry))

	shown := results
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for i, r := range shown {
		id := r.ID
		if id == nil {
			id = "Unknown"
		}
		fmt.Fprintf(&b, "Feature %d: %v\n", i+1, id)
		attrs := r.Attributes
		if len(attrs) == 0 {
			attrs = r.Properties
		}
		keys := sortedKeys(attrs)
		if len(keys) > 8 {
			keys = keys[:8]
		}
		for _, key := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", key, attrs[key])
		}
		b.WriteString("\n")
	}
	if len(results) > 5 {
		fmt.Fprintf(&b, "... and %d more features\n", len(results)-5)
	}
	b.WriteString("\n💡 Use bafu_visualize_actual_data to create a map with these features!")
	return b.String(), nil
}

// ActualData returns the handler fetching a vector asset of a search
// result and summarizing the real features inside it: geometry types,
// attributes, and any field that smells like a hazard classification.
func (t *Tools) ActualData() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		itemIndex := toolkit.IntOr(arguments, "item_index", 0)
		assetKey := toolkit.StringOr(arguments, "asset_key", "")
		maxFeatures := toolkit.IntOr(arguments, "max_features", 100)

		items := searchItems(ctx)
		if len(items) == 0 {
			return "Error: No search results found. Please run bafu_search_collection first.", nil
		}
		if itemIndex < 0 || itemIndex >= len(items) {
			return fmt.Sprintf("Error: Item index %d out of range. Only %d items available.", itemIndex, len(items)), nil
		}
		item := items[itemIndex]

		var assetURL string
		if assetKey != "" {
			asset, ok := item.Assets[assetKey]
			if !ok {
				return fmt.Sprintf("Error: Asset '%s' not found. Available: %s", assetKey, strings.Join(sortedAssetKeys(item.Assets), ", ")), nil
			}
			assetURL = asset.Href
		} else {
			assetURL, assetKey = dataAsset(item)
		}

		if assetURL == "" {
			var lines []string
			for _, key := range sortedAssetKeys(item.Assets) {
				href := item.Assets[key].Href
				if href == "" {
					href = "no url"
				}
				lines = append(lines, fmt.Sprintf("  - %s: %s", key, href))
			}
			return fmt.Sprintf(`No directly visualizable data format found.

Available assets:
%s

Many BAFU datasets use specialized formats (GeoPackage, Raster TIFFs).
For these, use bafu_download_asset to download, then open in GIS software.

Alternatively, try the WMS visualization with bafu_visualize_wms.`, strings.Join(lines, "\n")), nil
		}

		header := fmt.Sprintf("📊 Fetching actual data from: %s\nURL: %s\n\n", assetKey, assetURL)

		data, err := t.fetchGeoJSON(assetURL, maxFeatures)
		if err != nil {
			return header + "Error: Could not fetch or parse the data file.", nil
		}

		ctx.Set(ContextGeoJSON, *data)
		ctx.Set(ContextDataSource, assetURL)

		var b strings.Builder
		b.WriteString(header)
		fmt.Fprintf(&b, "✅ Successfully retrieved %d features!\n\n", len(data.Features))

		geomTypes := map[string]int{}
		for _, f := range data.Features {
			gtype := "Unknown"
			if f.Geometry != nil && f.Geometry.Type != "" {
				gtype = f.Geometry.Type
			}
			geomTypes[gtype]++
		}
		b.WriteString("Geometry Types:\n")
		for _, gtype := range sortedCountKeys(geomTypes) {
			fmt.Fprintf(&b, "  - %s: %d\n", gtype, geomTypes[gtype])
		}

		if len(data.Features) > 0 {
			sampleProps := data.Features[0].Properties
			fmt.Fprintf(&b, "\nAvailable Attributes (%d):\n", len(sampleProps))
			keys := sortedKeys(sampleProps)
			shown := keys
			if len(shown) > 15 {
				shown = shown[:15]
			}
			for _, key := range shown {
				value := sampleProps[key]
				fmt.Fprintf(&b, "  - %s: %T (e.g., %s)\n", key, value, clip(fmt.Sprintf("%v", value), 50))
			}
			if len(keys) > 15 {
				fmt.Fprintf(&b, "  ... and %d more attributes\n", len(keys)-15)
			}

			var riskFields []string
			for _, key := range keys {
				lower := strings.ToLower(key)
				for _, term := range riskFieldTerms {
					if strings.Contains(lower, term) {
						riskFields = append(riskFields, key)
						break
					}
				}
			}
			if len(riskFields) > 0 {
				b.WriteString("\n🎯 Potential Risk/Hazard Fields Found:\n")
				for _, field := range riskFields {
					values := uniqueValues(data.Features, field, 100)
					if len(values) > 10 {
						values = values[:10]
					}
					fmt.Fprintf(&b, "  - %s: [%s]\n", field, strings.Join(values, ", "))
				}
			}
		}

		b.WriteString("\n💡 Use bafu_visualize_actual_data to create a map with this real data!")
		return b.String(), nil
	}
}

// fetchGeoJSON pulls a GeoJSON document and caps its feature count so a
// national dataset cannot blow up the shared context.
func (t *Tools) fetchGeoJSON(rawURL string, maxFeatures int) (*geo.FeatureCollection, error) {
	resp, err := t.dataClient.Get(rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var data geo.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if maxFeatures > 0 && len(data.Features) > maxFeatures {
		data.Features = data.Features[:maxFeatures]
	}
	return &data, nil
}

// DownloadAsset returns the handler streaming one asset of a search
// result to disk. Large archives are expected, hence the long timeout.
func (t *Tools) DownloadAsset() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		itemIndex := toolkit.IntOr(arguments, "item_index", 0)
		assetKey := toolkit.StringOr(arguments, "asset_key", "")
		outputDir := filepath.Join(t.downloadDir, "bafu")
		if dir := toolkit.StringOr(arguments, "output_dir", ""); dir != "" {
			outputDir = file.ResolveFilePath(dir, t.downloadDir)
		}

		items := searchItems(ctx)
		if len(items) == 0 {
			return "Error: No search results found. Please run bafu_search_collection first.", nil
		}
		if itemIndex < 0 || itemIndex >= len(items) {
			return fmt.Sprintf("Error: Item index %d out of range. Only %d items available.", itemIndex, len(items)), nil
		}
		item := items[itemIndex]

		if assetKey == "" {
			keys := sortedAssetKeys(item.Assets)
			if len(keys) == 0 {
				return "Error: No assets found in this item.", nil
			}
			assetKey = keys[0]
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

		return fmt.Sprintf(`✅ Downloaded successfully!
File: %s
Size: %.2f MB

Next steps:
- For GeoJSON/JSON: Use bafu_get_actual_data to analyze
- For GeoPackage/Shapefile: Open in QGIS or ArcGIS
- For GeoTIFF: Process with GDAL
`, destPath, file.SizeMB(written)), nil
	}
}

// AnalyzeRisk returns the handler counting loaded features near a WGS84
// point. A coarse planar distance stands in for real point-in-polygon
// testing, which is enough for a first hazard screening.
func (t *Tools) AnalyzeRisk() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		lat, latOK := toolkit.Float(arguments, "lat")
		lon, lonOK := toolkit.Float(arguments, "lon")
		if !latOK || !lonOK {
			return "Error: Both 'lat' and 'lon' parameters are required", nil
		}
		radius := toolkit.FloatOr(arguments, "radius_m", 100)

		data, ok := loadedGeoJSON(ctx)
		if !ok {
			return `Error: No data loaded. Please run:
1. bafu_search_collection
2. bafu_get_actual_data
Then try this function again.`, nil
		}
		collectionID := contextString(ctx, ContextCollectionID, "Unknown")

		point := geo.Coordinate{Lon: lon, Lat: lat}
		var nearby []geo.Feature
		for _, feature := range data.Features {
			for _, coord := range geo.ExtractCoords(feature.Geometry) {
				if geo.ApproxDistanceMeters(coord, point) < radius {
					nearby = append(nearby, feature)
					break
				}
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📍 Risk Analysis at Location (%v, %v)\n", lat, lon)
		fmt.Fprintf(&b, "Collection: %s\n", collectionID)
		fmt.Fprintf(&b, "Search radius: %vm\n\n", radius)

		if len(nearby) == 0 {
			b.WriteString("✅ No hazard features found within the search radius.\n")
			b.WriteString("\nNote: This doesn't guarantee safety - try a larger radius or check other datasets.")
			return b.String(), nil
		}

		fmt.Fprintf(&b, "⚠️ Found %d features within %vm:\n\n", len(nearby), radius)
		shown := nearby
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for i, feature := range shown {
			fmt.Fprintf(&b, "Feature %d:\n", i+1)
			keys := sortedKeys(feature.Properties)
			if len(keys) > 8 {
				keys = keys[:8]
			}
			for _, key := range keys {
				fmt.Fprintf(&b, "  %s: %v\n", key, feature.Properties[key])
			}
			b.WriteString("\n")
		}
		if len(nearby) > 5 {
			fmt.Fprintf(&b, "... and %d more features\n", len(nearby)-5)
		}
		return b.String(), nil
	}
}

// dataAsset picks the asset most likely to parse as GeoJSON: preferred
// vector extensions first, then any JSON-ish media type.
func dataAsset(item stac.Item) (string, string) {
	keys := sortedAssetKeys(item.Assets)
	for _, format := range preferredDataFormats {
		for _, key := range keys {
			if strings.Contains(strings.ToLower(item.Assets[key].Href), format) {
				return item.Assets[key].Href, key
			}
		}
	}
	for _, key := range keys {
		if strings.Contains(strings.ToLower(item.Assets[key].Type), "json") {
			return item.Assets[key].Href, key
		}
	}
	return "", ""
}

func visualizableTag(href string) string {
	lower := strings.ToLower(href)
	for _, ext := range vectorExtensions {
		if strings.Contains(lower, ext) {
			return " [VECTOR - Can visualize!]"
		}
	}
	for _, ext := range rasterExtensions {
		if strings.Contains(lower, ext) {
			return " [RASTER]"
		}
	}
	return ""
}

func searchItems(ctx *toolkit.Context) []stac.Item {
	items, _ := ctx.GetDefault(ContextSearchItems, nil).([]stac.Item)
	return items
}

func loadedGeoJSON(ctx *toolkit.Context) (geo.FeatureCollection, bool) {
	data, ok := ctx.GetDefault(ContextGeoJSON, nil).(geo.FeatureCollection)
	return data, ok
}

func contextString(ctx *toolkit.Context, key, def string) string {
	if s, ok := ctx.GetDefault(key, "").(string); ok && s != "" {
		return s
	}
	return def
}

// uniqueValues collects the distinct stringified values a field takes
// across at most sample features, sorted for stable output.
func uniqueValues(features []geo.Feature, field string, sample int) []string {
	if len(features) > sample {
		features = features[:sample]
	}
	seen := map[string]bool{}
	for _, f := range features {
		if v, ok := f.Properties[field]; ok && v != nil {
			seen[fmt.Sprintf("%v", v)] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
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

func sortedCountKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatCoord renders LV95 and WGS84 values without exponent notation,
// which %v would use for seven-digit eastings.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinCoords(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatCoord(v)
	}
	return strings.Join(parts, ",")
}

func coordList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatCoord(v)
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
