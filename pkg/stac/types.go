package stac

import (
	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
)

// CollectionList is the body of a STAC /collections response.
type CollectionList struct {
	Collections []Collection `json:"collections"`
	Links       []Link       `json:"links,omitempty"`
}

// Collection describes one STAC collection.
type Collection struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	License     string                 `json:"license"`
	Extent      Extent                 `json:"extent"`
	Providers   []Provider             `json:"providers,omitempty"`
	Keywords    []string               `json:"keywords,omitempty"`
	Summaries   map[string]interface{} `json:"summaries,omitempty"`
}

// Provider identifies an organization behind a collection.
type Provider struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
	URL   string   `json:"url,omitempty"`
}

// Extent carries a collection's spatial and temporal coverage.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent lists covered bounding boxes, the first being overall.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent lists covered intervals; a nil end means open-ended.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// Link is a STAC hypermedia link.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// Asset is a downloadable file attached to an item.
type Asset struct {
	Href  string   `json:"href"`
	Title string   `json:"title,omitempty"`
	Type  string   `json:"type,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Item is a STAC item: a GeoJSON feature with assets.
type Item struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Collection string                 `json:"collection,omitempty"`
	Geometry   *geo.Geometry          `json:"geometry"`
	BBox       []float64              `json:"bbox,omitempty"`
	Properties map[string]interface{} `json:"properties"`
	Assets     map[string]Asset       `json:"assets"`
}

// ItemCollection is the body of an item search or listing response.
type ItemCollection struct {
	Type     string `json:"type"`
	Features []Item `json:"features"`
	Links    []Link `json:"links,omitempty"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Collections []string               `json:"collections,omitempty"`
	BBox        []float64              `json:"bbox,omitempty"`
	Datetime    string                 `json:"datetime,omitempty"`
	Limit       int                    `json:"limit,omitempty"`
	Query       map[string]interface{} `json:"query,omitempty"`
}

// Datetime returns the item's datetime property, or "unknown" when the
// item carries none.
func (i Item) Datetime() string {
	if dt, ok := i.Properties["datetime"].(string); ok && dt != "" {
		return dt
	}
	return "unknown"
}

// CloudCover returns the eo:cloud_cover property if present.
func (i Item) CloudCover() (float64, bool) {
	v, ok := i.Properties["eo:cloud_cover"].(float64)
	return v, ok
}

// PropertyString returns a string property, or "" when absent.
func (i Item) PropertyString(key string) string {
	if s, ok := i.Properties[key].(string); ok {
		return s
	}
	return ""
}
