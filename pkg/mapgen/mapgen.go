package mapgen

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
)

// Map models a static Leaflet page: one base tile layer plus optional
// WMS overlays, markers, rectangles, and GeoJSON features, with an info
// box and a categorical legend. Render emits a self-contained HTML file
// viewable offline except for the tile and Leaflet CDN fetches.
type Map struct {
	Title      string
	Center     geo.Coordinate
	Zoom       int
	Base       TileLayer
	WMS        []WMSLayer
	Markers    []Marker
	Circles    []CircleMarker
	Rectangles []Rectangle
	Features   []FeatureLayer
	Info       *InfoBox
	Legend     *Legend
}

// TileLayer is a slippy-map tile source.
type TileLayer struct {
	URL         string
	Attribution string
	MaxZoom     int
}

// OpenStreetMap returns the default base layer.
func OpenStreetMap() TileLayer {
	return TileLayer{
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
	}
}

// EsriWorldImagery returns the satellite base layer the forest-loss
// maps use.
func EsriWorldImagery() TileLayer {
	return TileLayer{
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri",
		MaxZoom:     19,
	}
}

// WMSLayer overlays tiles rendered by a Web Map Service.
type WMSLayer struct {
	URL         string
	Layers      string
	Format      string
	Transparent bool
	Version     string
	Attribution string
}

// Marker is a standard pin with an optional HTML popup.
type Marker struct {
	At      geo.Coordinate
	Popup   string
	Tooltip string
}

// CircleMarker is a fixed-radius dot used for point features.
type CircleMarker struct {
	At          geo.Coordinate
	Radius      int
	Color       string
	FillOpacity float64
	Popup       string
}

// Rectangle outlines a bounding box.
type Rectangle struct {
	Bounds geo.BBox
	Color  string
	Weight int
	Fill   bool
}

// FeatureLayer draws one GeoJSON feature with a style and popup.
type FeatureLayer struct {
	Feature     geo.Feature
	Color       string
	FillColor   string
	Weight      int
	FillOpacity float64
	Popup       string
}

// InfoBox is the fixed-position summary block in the page corner.
type InfoBox struct {
	Heading string
	Lines   []string
	Border  string
}

// Legend maps categorical values to their colors.
type Legend struct {
	Title   string
	Entries []LegendEntry
}

// LegendEntry is one swatch in the legend.
type LegendEntry struct {
	Label string
	Color string
}

// New creates a map centered at the given point.
func New(center geo.Coordinate, zoom int) *Map {
	if zoom <= 0 {
		zoom = 10
	}
	return &Map{
		Center: center,
		Zoom:   zoom,
		Base:   OpenStreetMap(),
	}
}

// Render writes the HTML page to w.
func (m *Map) Render(w io.Writer) error {
	if err := leafletTemplate.Execute(w, m); err != nil {
		return fmt.Errorf("failed to render map: %w", err)
	}
	return nil
}

// WriteFile renders the map to path, removing the partial file if
// rendering fails midway.
func (m *Map) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.Render(out); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Palette returns the nine-color cycle used to distinguish categorical
// values on a map.
func Palette() []string {
	return []string{
		"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00",
		"#ffff33", "#a65628", "#f781bf", "#999999",
	}
}

// ColorFor returns the palette color for index i, cycling past the end.
func ColorFor(i int) string {
	palette := Palette()
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

var leafletTemplate = template.Must(template.New("leaflet").Funcs(template.FuncMap{
	"geojson": func(f geo.Feature) (template.JS, error) {
		data, err := json.Marshal(f)
		if err != nil {
			return "", err
		}
		return template.JS(data), nil
	},
}).Parse(leafletHTML))

const leafletHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
html, body, #map { height: 100%; margin: 0; }
.info-box { position: fixed; top: 10px; left: 50px; max-width: 400px; background: white; border: 3px solid {{if .Info}}{{if .Info.Border}}{{.Info.Border}}{{else}}#377eb8{{end}}{{else}}#377eb8{{end}}; z-index: 9999; padding: 15px; border-radius: 5px; box-shadow: 2px 2px 6px rgba(0,0,0,0.3); font: 13px sans-serif; }
.legend-box { position: fixed; bottom: 50px; left: 50px; background: white; border: 2px solid grey; z-index: 9999; padding: 10px; font: 12px sans-serif; }
.legend-box i { width: 12px; height: 12px; display: inline-block; margin-right: 5px; }
</style>
</head>
<body>
{{if .Info}}<div class="info-box"><b>{{.Info.Heading}}</b><hr>{{range .Info.Lines}}{{.}}<br>{{end}}</div>{{end}}
{{if .Legend}}<div class="legend-box"><b>{{.Legend.Title}}</b><br>{{range .Legend.Entries}}<i style="background:{{.Color}}"></i>{{.Label}}<br>{{end}}</div>{{end}}
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.Center.Lat}}, {{.Center.Lon}}], {{.Zoom}});
L.tileLayer({{.Base.URL}}, {attribution: {{.Base.Attribution}}, maxZoom: {{.Base.MaxZoom}}}).addTo(map);
{{range .WMS}}L.tileLayer.wms({{.URL}}, {layers: {{.Layers}}, format: {{.Format}}, transparent: {{.Transparent}}, version: {{.Version}}, attribution: {{.Attribution}}}).addTo(map);
{{end}}{{range .Markers}}L.marker([{{.At.Lat}}, {{.At.Lon}}]){{if .Popup}}.bindPopup({{.Popup}}, {maxWidth: 300}){{end}}{{if .Tooltip}}.bindTooltip({{.Tooltip}}){{end}}.addTo(map);
{{end}}{{range .Circles}}L.circleMarker([{{.At.Lat}}, {{.At.Lon}}], {radius: {{.Radius}}, color: {{.Color}}, fillColor: {{.Color}}, fill: true, fillOpacity: {{.FillOpacity}}}){{if .Popup}}.bindPopup({{.Popup}}, {maxWidth: 300}){{end}}.addTo(map);
{{end}}{{range .Rectangles}}L.rectangle([[{{.Bounds.South}}, {{.Bounds.West}}], [{{.Bounds.North}}, {{.Bounds.East}}]], {color: {{.Color}}, weight: {{.Weight}}, fill: {{.Fill}}}).addTo(map);
{{end}}{{range .Features}}L.geoJSON({{geojson .Feature}}, {style: {color: {{.Color}}, weight: {{.Weight}}, fillColor: {{.FillColor}}, fillOpacity: {{.FillOpacity}}}, pointToLayer: function (f, latlng) { return L.circleMarker(latlng, {radius: 6, color: {{.Color}}, fillColor: {{.FillColor}}, fill: true, fillOpacity: 0.7}); }}){{if .Popup}}.bindPopup({{.Popup}}, {maxWidth: 300}){{end}}.addTo(map);
{{end}}</script>
</body>
</html>
`
