package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers"
	"github.com/sirupsen/logrus"
)

// ToolPackSystem tracks the tool packs compiled into this binary and,
// when a catalog URL is configured, an index of community-published packs.
type ToolPackSystem struct {
	catalog *PackCatalog
	index   *PackIndex
	config  config.PackConfig
}

// PackCatalog holds metadata for the packs this binary knows about.
type PackCatalog struct {
	packs   map[string]*PackMetadata
	enabled map[string]bool
	mu      sync.RWMutex
}

// PackMetadata describes one tool pack.
type PackMetadata struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Version     string     `json:"version"`
	Description string     `json:"description"`
	Author      string     `json:"author"`
	Tags        []string   `json:"tags"`
	Tools       []PackTool `json:"tools"`
	Homepage    string     `json:"homepage,omitempty"`
	License     string     `json:"license,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// PackTool describes a tool a pack registers.
type PackTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// PackIndex caches the community pack listing fetched from a remote
// catalog URL.
type PackIndex struct {
	catalogURL string
	client     *http.Client
	cache      map[string]*PackMetadata
	cacheTime  time.Time
	mu         sync.RWMutex
}

// NewToolPackSystem creates a tool pack system for the given pack
// configuration.
func NewToolPackSystem(cfg config.PackConfig) *ToolPackSystem {
	return &ToolPackSystem{
		catalog: NewPackCatalog(),
		index:   NewPackIndex(cfg.CatalogURL),
		config:  cfg,
	}
}

// NewPackCatalog creates an empty pack catalog.
func NewPackCatalog() *PackCatalog {
	return &PackCatalog{
		packs:   make(map[string]*PackMetadata),
		enabled: make(map[string]bool),
	}
}

// NewPackIndex creates a pack index backed by catalogURL. An empty URL
// yields an index whose refreshes fail with a configuration error.
func NewPackIndex(catalogURL string) *PackIndex {
	return &PackIndex{
		catalogURL: catalogURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: make(map[string]*PackMetadata),
	}
}

// Initialize registers metadata for every built-in pack, flagging the
// ones the configuration enables.
func (tps *ToolPackSystem) Initialize() error {
	enabledSet := make(map[string]bool, len(tps.config.Enabled))
	for _, name := range tps.config.Enabled {
		enabledSet[name] = true
	}

	for _, meta := range builtinPacks() {
		if _, known := handlers.Packs[meta.ID]; !known {
			return fmt.Errorf("pack metadata %q has no registered pack", meta.ID)
		}
		tps.catalog.Register(meta, enabledSet[meta.ID])
	}
	return nil
}

// Register binds metadata for a pack and records whether it is enabled.
// Registering an existing ID replaces the previous entry.
func (pc *PackCatalog) Register(metadata *PackMetadata, enabled bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.packs[metadata.ID] = metadata
	pc.enabled[metadata.ID] = enabled
}

// Get retrieves a pack from the catalog.
func (pc *PackCatalog) Get(id string) (*PackMetadata, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	pack, exists := pc.packs[id]
	return pack, exists
}

// Enabled reports whether a catalogued pack is enabled.
func (pc *PackCatalog) Enabled(id string) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.enabled[id]
}

// List returns all catalogued packs sorted by ID.
func (pc *PackCatalog) List() []*PackMetadata {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	packs := make([]*PackMetadata, 0, len(pc.packs))
	for _, pack := range pc.packs {
		packs = append(packs, pack)
	}
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].ID < packs[j].ID
	})
	return packs
}

// UpdateCache refreshes the community pack cache from the catalog URL.
func (pi *PackIndex) UpdateCache() error {
	if pi.catalogURL == "" {
		return fmt.Errorf("no pack catalog URL configured")
	}

	resp, err := pi.client.Get(strings.TrimRight(pi.catalogURL, "/") + "/packs")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pack catalog returned status %d", resp.StatusCode)
	}

	var packs []PackMetadata
	if err := json.NewDecoder(resp.Body).Decode(&packs); err != nil {
		return err
	}

	pi.mu.Lock()
	pi.cache = make(map[string]*PackMetadata, len(packs))
	for i := range packs {
		pi.cache[packs[i].ID] = &packs[i]
	}
	pi.cacheTime = time.Now()
	pi.mu.Unlock()

	logrus.WithField("packs", len(packs)).Info("refreshed pack catalog")
	return nil
}

// Refreshed reports whether the cache has ever been populated.
func (pi *PackIndex) Refreshed() bool {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	return !pi.cacheTime.IsZero()
}

// Get retrieves a pack from the community cache.
func (pi *PackIndex) Get(id string) (*PackMetadata, bool) {
	pi.mu.RLock()
	defer pi.mu.RUnlock()
	pack, exists := pi.cache[id]
	return pack, exists
}

// Search returns the cached community packs matching a text query and a
// set of required tags, sorted by ID.
func (pi *PackIndex) Search(query string, tags []string) []*PackMetadata {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	var results []*PackMetadata
	for _, pack := range pi.cache {
		if matchesQuery(pack, query, tags) {
			results = append(results, pack)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// Stats summarizes the community cache.
func (pi *PackIndex) Stats() map[string]interface{} {
	pi.mu.RLock()
	defer pi.mu.RUnlock()

	totalTools := 0
	for _, pack := range pi.cache {
		totalTools += len(pack.Tools)
	}

	return map[string]interface{}{
		"catalog_url":  pi.catalogURL,
		"total_packs":  len(pi.cache),
		"total_tools":  totalTools,
		"last_updated": pi.cacheTime,
	}
}

// matchesQuery checks a pack against a text query and required tags.
func matchesQuery(pack *PackMetadata, query string, tags []string) bool {
	if query != "" {
		query = strings.ToLower(query)
		if !strings.Contains(strings.ToLower(pack.Name), query) &&
			!strings.Contains(strings.ToLower(pack.Description), query) {
			return false
		}
	}

	if len(tags) > 0 {
		tagSet := make(map[string]bool, len(pack.Tags))
		for _, tag := range pack.Tags {
			tagSet[strings.ToLower(tag)] = true
		}
		for _, required := range tags {
			if !tagSet[strings.ToLower(required)] {
				return false
			}
		}
	}

	return true
}

// builtinPacks describes the packs compiled into this binary. The IDs
// match the keys of handlers.Packs; Initialize verifies that.
func builtinPacks() []*PackMetadata {
	return []*PackMetadata{
		{
			ID:          "basic",
			Name:        "Starter Tools",
			Version:     version,
			Description: "Calculator, shared-context memory, greeting, and current weather tools for learning the tool-calling pattern",
			Author:      "GeoSTAC Team",
			Tags:        []string{"starter", "teaching"},
			License:     "MIT",
			Tools: []PackTool{
				{Name: "calculator", Description: "Basic arithmetic on two numbers", Category: "starter"},
				{Name: "memory", Description: "Store and retrieve values in the shared context", Category: "starter"},
				{Name: "greeting", Description: "Greet a user by name", Category: "starter"},
				{Name: "weather", Description: "Current weather for a city via OpenWeatherMap", Category: "weather"},
			},
		},
		{
			ID:          "planetary",
			Name:        "Planetary Computer",
			Version:     version,
			Description: "Search, download, and visualize satellite imagery from the Microsoft Planetary Computer STAC catalog",
			Author:      "GeoSTAC Team",
			Tags:        []string{"stac", "satellite", "imagery"},
			Homepage:    "https://planetarycomputer.microsoft.com",
			License:     "MIT",
			Tools: []PackTool{
				{Name: "stac_list_collections", Description: "List catalog collections", Category: "stac"},
				{Name: "stac_search", Description: "Search a collection by bbox and date range", Category: "stac"},
				{Name: "stac_download", Description: "Download a signed item asset", Category: "stac"},
				{Name: "stac_visualize", Description: "Render a search result on a Leaflet map", Category: "visualization"},
			},
		},
		{
			ID:          "bafu",
			Name:        "Swiss Federal Geodata",
			Version:     version,
			Description: "Browse data.geo.admin.ch STAC collections, identify features through the GeoAdmin REST API, and map environmental data",
			Author:      "GeoSTAC Team",
			Tags:        []string{"stac", "switzerland", "environment", "wms"},
			Homepage:    "https://data.geo.admin.ch",
			License:     "MIT",
			Tools: []PackTool{
				{Name: "bafu_list_collections", Description: "List federal geodata collections", Category: "stac"},
				{Name: "bafu_search_collection", Description: "List items of a collection", Category: "stac"},
				{Name: "bafu_get_collection_info", Description: "Describe one collection", Category: "stac"},
				{Name: "bafu_identify_features", Description: "Identify features at an LV95 location", Category: "identify"},
				{Name: "bafu_query_by_coordinates", Description: "Identify features around a WGS84 point", Category: "identify"},
				{Name: "bafu_get_actual_data", Description: "Load a vector asset as GeoJSON", Category: "data"},
				{Name: "bafu_download_asset", Description: "Download an item asset", Category: "data"},
				{Name: "bafu_visualize_actual_data", Description: "Map loaded GeoJSON features", Category: "visualization"},
				{Name: "bafu_visualize_wms", Description: "Map a WMS layer over Switzerland", Category: "visualization"},
				{Name: "bafu_analyze_risk_at_location", Description: "Proximity summary of loaded features around a point", Category: "analysis"},
				{Name: "wms_list_layers", Description: "List layers from the WMS capabilities document", Category: "wms"},
			},
		},
		{
			ID:          "geobon",
			Name:        "GEO BON Biodiversity",
			Version:     version,
			Description: "Explore biodiversity and forest-loss datasets from the GEO BON STAC catalog",
			Author:      "GeoSTAC Team",
			Tags:        []string{"stac", "biodiversity", "forest"},
			Homepage:    "https://stac.geobon.org",
			License:     "MIT",
			Tools: []PackTool{
				{Name: "geobon_list_collections", Description: "List biodiversity collections", Category: "stac"},
				{Name: "geobon_get_collection_info", Description: "Describe one collection", Category: "stac"},
				{Name: "geobon_search_collection", Description: "List items of a collection", Category: "stac"},
				{Name: "geobon_download_asset", Description: "Download an item asset", Category: "data"},
				{Name: "geobon_visualize_forest_loss", Description: "Map a search result's coverage", Category: "visualization"},
			},
		},
	}
}
