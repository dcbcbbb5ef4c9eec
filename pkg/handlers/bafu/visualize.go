package bafu

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
	"github.com/MCPRUNNER/geostacMCP/pkg/mapgen"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

// VisualizeActualData returns the handler rendering the loaded feature
// collection to a Leaflet map: real flood zones and hazard areas, not
// just catalog footprints. Points become circle markers, lines and
// polygons styled GeoJSON layers.
func (t *Tools) VisualizeActualData() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		outputFile := toolkit.StringOr(arguments, "output_file", "bafu_actual_data_map.html")
		colorBy := toolkit.StringOr(arguments, "color_by", "")
		zoom := toolkit.IntOr(arguments, "zoom", 10)
		maxFeatures := toolkit.IntOr(arguments, "max_features", 500)

		data, ok := loadedGeoJSON(ctx)
		if !ok {
			return `Error: No actual data loaded. Please run these steps first:
1. bafu_search_collection - to find items
2. bafu_get_actual_data - to fetch the real geospatial data
3. Then run bafu_visualize_actual_data`, nil
		}
		features := data.Features
		if len(features) == 0 {
			return "Error: No features found in the loaded data.", nil
		}

		limited := false
		if len(features) > maxFeatures {
			features = features[:maxFeatures]
			limited = true
		}

		collectionID := contextString(ctx, ContextCollectionID, "Unknown")

		m := mapgen.New(featureCenter(features), zoom)
		m.Title = "BAFU Actual Environmental Data"

		var colorMap map[string]string
		var colorValues []string
		if colorBy != "" {
			seen := map[string]bool{}
			for _, f := range features {
				seen[colorValue(f, colorBy)] = true
			}
			colorValues = make([]string, 0, len(seen))
			for v := range seen {
				colorValues = append(colorValues, v)
			}
			sort.Strings(colorValues)
			colorMap = make(map[string]string, len(colorValues))
			for i, v := range colorValues {
				colorMap[v] = mapgen.ColorFor(i)
			}
		}

		for i, feature := range features {
			color := "#e41a1c"
			if colorMap != nil {
				if c, ok := colorMap[colorValue(feature, colorBy)]; ok {
					color = c
				} else {
					color = "#3388ff"
				}
			}
			popup := featurePopup(i+1, feature.Properties)

			gtype := ""
			if feature.Geometry != nil {
				gtype = feature.Geometry.Type
			}
			switch gtype {
			case "Point":
				coords := geo.ExtractCoords(feature.Geometry)
				if len(coords) == 0 {
					continue
				}
				m.Circles = append(m.Circles, mapgen.CircleMarker{
					At:          coords[0],
					Radius:      6,
					Color:       color,
					FillOpacity: 0.7,
					Popup:       popup,
				})
			case "LineString", "MultiLineString":
				m.Features = append(m.Features, mapgen.FeatureLayer{
					Feature: feature,
					Color:   color,
					Weight:  3,
					Popup:   popup,
				})
			case "Polygon", "MultiPolygon":
				m.Features = append(m.Features, mapgen.FeatureLayer{
					Feature:     feature,
					Color:       "#000000",
					FillColor:   color,
					Weight:      1,
					FillOpacity: 0.5,
					Popup:       popup,
				})
			}
		}

		if colorMap != nil {
			legend := &mapgen.Legend{Title: "Legend: " + colorBy}
			entries := colorValues
			if len(entries) > 8 {
				entries = entries[:8]
			}
			for _, v := range entries {
				legend.Entries = append(legend.Entries, mapgen.LegendEntry{Label: v, Color: colorMap[v]})
			}
			m.Legend = legend
		}

		countLine := fmt.Sprintf("Features Displayed: %d", len(features))
		if limited {
			countLine += " (limited)"
		}
		lines := []string{"Collection: " + collectionID, countLine}
		if colorBy != "" {
			lines = append(lines, "Colored by: "+colorBy)
		}
		m.Info = &mapgen.InfoBox{
			Heading: "🗺️ BAFU Actual Environmental Data",
			Lines:   lines,
			Border:  "#e41a1c",
		}

		if err := m.WriteFile(outputFile); err != nil {
			return "", fmt.Errorf("writing map: %v", err)
		}

		colorLine := "💡 Tip: Use color_by parameter to color features by an attribute"
		if colorBy != "" {
			colorLine = "🎨 Features colored by: " + colorBy
		}
		return fmt.Sprintf(`✅ Map with ACTUAL DATA created successfully!

📊 What this map shows:
- %d real geospatial features (not just a bounding box!)
- Actual flood zones / hazard areas / environmental data
- Click on any feature to see its attributes

%s

📁 File: %s
🌐 Open this file in your browser to view the interactive map!
`, len(features), colorLine, outputFile), nil
	}
}

// VisualizeWMS returns the handler rendering a layer as pre-built WMS
// tiles over Switzerland. The fallback for datasets whose assets are
// rasters or GeoPackages nothing here can parse.
func (t *Tools) VisualizeWMS() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		layerName := toolkit.StringOr(arguments, "layer_name", "")
		outputFile := toolkit.StringOr(arguments, "output_file", "bafu_wms_map.html")
		zoom := toolkit.IntOr(arguments, "zoom", 8)

		center := switzerlandCenter
		if values, ok := toolkit.Floats(arguments, "center"); ok && len(values) == 2 {
			center = geo.Coordinate{Lat: values[0], Lon: values[1]}
		}

		if layerName == "" {
			layerName = contextString(ctx, ContextCollectionID, "")
		}
		if layerName == "" {
			return "Error: No layer_name provided and no collection in context. Please specify layer_name or run bafu_search_collection first.", nil
		}

		m := mapgen.New(center, zoom)
		m.Title = "BAFU WMS Layer Visualization"
		m.WMS = append(m.WMS, mapgen.WMSLayer{
			URL:         t.wmsURL,
			Layers:      layerName,
			Format:      "image/png",
			Transparent: true,
			Version:     "1.3.0",
			Attribution: "© swisstopo",
		})
		m.Info = &mapgen.InfoBox{
			Heading: "🗺️ BAFU WMS Layer Visualization",
			Lines:   []string{"Layer: " + layerName},
			Border:  "#377eb8",
		}

		if err := m.WriteFile(outputFile); err != nil {
			return "", fmt.Errorf("writing map: %v", err)
		}

		return fmt.Sprintf(`✅ WMS Map created successfully!

📊 What this map shows:
- Official BAFU map layer rendered via WMS
- Layer: %s

📁 File: %s
🌐 Open this file in your browser to view the map!

💡 Note: WMS shows pre-rendered tiles. For feature-level data analysis,
use bafu_get_actual_data + bafu_visualize_actual_data instead.
`, layerName, outputFile), nil
	}
}

// featureCenter averages coordinates from the first hundred features,
// falling back to the center of Switzerland when nothing has geometry.
func featureCenter(features []geo.Feature) geo.Coordinate {
	sample := features
	if len(sample) > 100 {
		sample = sample[:100]
	}
	var coords []geo.Coordinate
	for _, f := range sample {
		coords = append(coords, geo.ExtractCoords(f.Geometry)...)
	}
	if center, ok := geo.Center(coords); ok {
		return center
	}
	return switzerlandCenter
}

func colorValue(f geo.Feature, key string) string {
	if v, ok := f.Properties[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return "Unknown"
}

// featurePopup lists up to ten attributes in the click popup.
func featurePopup(n int, props map[string]interface{}) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Feature %d</b><br>", n)
	keys := sortedKeys(props)
	if len(keys) > 10 {
		keys = keys[:10]
	}
	for _, key := range keys {
		fmt.Fprintf(&b, "<b>%s:</b> %v<br>", key, props[key])
	}
	return b.String()
}
