package geo

import "math"

// Coordinate is a lon/lat pair (x before y, as GeoJSON orders them).
type Coordinate struct {
	Lon float64
	Lat float64
}

// Geometry is a GeoJSON geometry. Coordinates keeps the raw nesting as
// decoded from JSON since the depth varies by type; ExtractCoords walks
// it without the caller needing to know the shape.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates,omitempty"`
	Geometries  []Geometry  `json:"geometries,omitempty"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string                 `json:"type"`
	ID         interface{}            `json:"id,omitempty"`
	Geometry   *Geometry              `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
	BBox       []float64              `json:"bbox,omitempty"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// ExtractCoords returns every coordinate pair in the geometry,
// flattening rings, lines, and multi-geometries. Unknown or empty
// geometries yield no pairs.
func ExtractCoords(g *Geometry) []Coordinate {
	if g == nil {
		return nil
	}
	var coords []Coordinate
	if g.Type == "GeometryCollection" {
		for i := range g.Geometries {
			coords = append(coords, ExtractCoords(&g.Geometries[i])...)
		}
		return coords
	}
	collectCoords(g.Coordinates, &coords)
	return coords
}

// collectCoords walks nested coordinate arrays. A slice whose first
// element is numeric is treated as a single [lon, lat, ...] position.
func collectCoords(value interface{}, out *[]Coordinate) {
	switch v := value.(type) {
	case []interface{}:
		if len(v) >= 2 {
			if lon, ok := asFloat(v[0]); ok {
				if lat, ok := asFloat(v[1]); ok {
					*out = append(*out, Coordinate{Lon: lon, Lat: lat})
					return
				}
			}
		}
		for _, item := range v {
			collectCoords(item, out)
		}
	case []float64:
		if len(v) >= 2 {
			*out = append(*out, Coordinate{Lon: v[0], Lat: v[1]})
		}
	case [][]float64:
		for _, item := range v {
			collectCoords(item, out)
		}
	case [][][]float64:
		for _, item := range v {
			collectCoords(item, out)
		}
	}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Center averages the given coordinates. The second return value is
// false when the slice is empty.
func Center(coords []Coordinate) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	var sumLon, sumLat float64
	for _, c := range coords {
		sumLon += c.Lon
		sumLat += c.Lat
	}
	n := float64(len(coords))
	return Coordinate{Lon: sumLon / n, Lat: sumLat / n}, true
}

// ApproxDistanceMeters returns the planar distance between two WGS84
// points using the rough 111 km per degree conversion. Good enough for
// the proximity checks the risk tools perform, not for navigation.
func ApproxDistanceMeters(a, b Coordinate) float64 {
	dLon := a.Lon - b.Lon
	dLat := a.Lat - b.Lat
	return math.Sqrt(dLon*dLon+dLat*dLat) * 111000
}
