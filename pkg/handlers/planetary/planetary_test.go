package planetary

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/stac"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

func testConfig(catalogURL, signURL, downloadDir string) config.Config {
	return config.Config{
		Services: map[string]config.ServiceConfig{
			config.ServicePlanetary:        {APIURL: catalogURL},
			config.ServicePlanetarySigning: {APIURL: signURL},
		},
		Downloads: config.DownloadConfig{Directory: downloadDir},
	}
}

// itemFromJSON builds items the way they arrive off the wire, so nested
// geometry coordinates decode to the generic shapes handlers see in
// production.
func itemFromJSON(t *testing.T, raw string) stac.Item {
	t.Helper()
	var item stac.Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))
	return item
}

func sampleItem(t *testing.T, id, assetHref string) stac.Item {
	return itemFromJSON(t, fmt.Sprintf(`{
		"type": "Feature",
		"id": %q,
		"collection": "io-lulc-annual-v02",
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[-122.5, 37.7], [-122.3, 37.7], [-122.3, 37.8], [-122.5, 37.8], [-122.5, 37.7]]]
		},
		"bbox": [-122.5, 37.7, -122.3, 37.8],
		"properties": {"datetime": "2023-06-01T00:00:00Z", "eo:cloud_cover": 12.5},
		"assets": {"data": {"href": %q, "type": "image/tiff"}}
	}`, id, assetHref))
}

func TestListCollections(t *testing.T) {
	longDescription := strings.Repeat("x", 150)
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections", r.URL.Path)
		json.NewEncoder(w).Encode(stac.CollectionList{Collections: []stac.Collection{
			{ID: "io-lulc-annual-v02", Title: "Land Use/Land Cover", Description: longDescription},
			{ID: "sentinel-2-l2a", Description: "short"},
		}})
	}))
	defer catalog.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig(catalog.URL, "", t.TempDir())))

	env := srv.Call("stac_list_collections", nil)
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	var result struct {
		TotalCollections   int                 `json:"total_collections"`
		PopularCollections []string            `json:"popular_collections"`
		AllCollections     []CollectionSummary `json:"all_collections"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.Result), &result))
	assert.Equal(t, 2, result.TotalCollections)
	assert.Len(t, result.PopularCollections, 5)
	require.Len(t, result.AllCollections, 2)
	assert.Equal(t, "io-lulc-annual-v02", result.AllCollections[0].ID)
	assert.Equal(t, strings.Repeat("x", 100)+"...", result.AllCollections[0].Description)
	assert.Equal(t, "No title", result.AllCollections[1].Title)

	stored, ok := srv.Context().GetDefault(ContextCollections, nil).([]CollectionSummary)
	require.True(t, ok, "expected summaries in context")
	assert.Len(t, stored, 2)
}

func TestSearchSendsRequestAndStoresState(t *testing.T) {
	item := sampleItem(t, "item-1", "https://assets.example/scene.tif")
	var gotRequest stac.SearchRequest
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(stac.ItemCollection{Type: "FeatureCollection", Features: []stac.Item{item}})
	}))
	defer catalog.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig(catalog.URL, "", t.TempDir())))

	env := srv.Call("stac_search", map[string]interface{}{
		"collection": "sentinel-2-l2a",
		"bbox":       []interface{}{7.0, 46.0, 8.0, 47.0},
		"date_start": "2023-01-01",
		"date_end":   "2023-12-31",
		"limit":      3,
	})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	assert.Equal(t, []string{"sentinel-2-l2a"}, gotRequest.Collections)
	assert.Equal(t, []float64{7.0, 46.0, 8.0, 47.0}, gotRequest.BBox)
	assert.Equal(t, "2023-01-01/2023-12-31", gotRequest.Datetime)
	assert.Equal(t, 3, gotRequest.Limit)

	var summary struct {
		Collection  string                   `json:"collection"`
		DateRange   string                   `json:"date_range"`
		ItemsFound  int                      `json:"items_found"`
		SampleItems []map[string]interface{} `json:"sample_items"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.Result), &summary))
	assert.Equal(t, "sentinel-2-l2a", summary.Collection)
	assert.Equal(t, "2023-01-01/2023-12-31", summary.DateRange)
	assert.Equal(t, 1, summary.ItemsFound)
	require.Len(t, summary.SampleItems, 1)
	assert.Equal(t, "item-1", summary.SampleItems[0]["id"])
	assert.Equal(t, 12.5, summary.SampleItems[0]["cloud_cover"])

	state, ok := srv.Context().GetDefault(ContextLastSearch, nil).(SearchState)
	require.True(t, ok, "expected search state in context")
	assert.Equal(t, 1, state.Count)
	assert.Equal(t, "item-1", state.Items[0].ID)
}

func TestSearchAcrossMultipleCollections(t *testing.T) {
	item := sampleItem(t, "item-1", "https://assets.example/scene.tif")
	var gotRequest stac.SearchRequest
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(stac.ItemCollection{Type: "FeatureCollection", Features: []stac.Item{item}})
	}))
	defer catalog.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig(catalog.URL, "", t.TempDir())))

	env := srv.Call("stac_search", map[string]interface{}{
		"collections": []interface{}{"sentinel-2-l2a", "landsat-c2-l2"},
	})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	assert.Equal(t, []string{"sentinel-2-l2a", "landsat-c2-l2"}, gotRequest.Collections)

	state, ok := srv.Context().GetDefault(ContextLastSearch, nil).(SearchState)
	require.True(t, ok, "expected search state in context")
	assert.Equal(t, "sentinel-2-l2a", state.Collection)
}

func TestSearchDefaults(t *testing.T) {
	var gotRequest stac.SearchRequest
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(stac.ItemCollection{Type: "FeatureCollection"})
	}))
	defer catalog.Close()

	tools := New(testConfig(catalog.URL, "", t.TempDir()))
	tools.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }

	srv := toolkit.NewServer()
	require.NoError(t, srv.Register("stac_search", tools.Search()))

	env := srv.Call("stac_search", nil)
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	assert.Equal(t, []string{"io-lulc-annual-v02"}, gotRequest.Collections)
	assert.Equal(t, []float64{-122.5, 37.7, -122.3, 37.8}, gotRequest.BBox)
	assert.Equal(t, "2024-05-16/2024-06-15", gotRequest.Datetime)
	assert.Equal(t, 10, gotRequest.Limit)
}

func TestSearchFailureBecomesEnvelopeError(t *testing.T) {
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer catalog.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig(catalog.URL, "", t.TempDir())))

	env := srv.Call("stac_search", map[string]interface{}{"date_start": "2023-01-01", "date_end": "2023-12-31"})
	require.False(t, env.OK())
	assert.Contains(t, env.Err, "search failed")
}

func TestDownloadWithoutSearch(t *testing.T) {
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", t.TempDir())))

	env := srv.Call("stac_download", nil)
	require.True(t, env.OK())
	assert.Equal(t, "Error: No items found. Please run a search first.", env.Result)
}

func TestDownloadSignsAndSavesAsset(t *testing.T) {
	payload := "raster-bytes"
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "signed", r.URL.Query().Get("token"))
		w.Write([]byte(payload))
	}))
	defer assets.Close()

	assetHref := assets.URL + "/items/item-1/scene.tif"
	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, assetHref, r.URL.Query().Get("href"))
		json.NewEncoder(w).Encode(map[string]string{"href": assetHref + "?token=signed"})
	}))
	defer signer.Close()

	downloadDir := t.TempDir()
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", signer.URL, downloadDir)))

	srv.SetContext(ContextLastSearch, SearchState{
		Collection: "io-lulc-annual-v02",
		Items:      []stac.Item{sampleItem(t, "item-1", assetHref)},
		Count:      1,
	})

	env := srv.Call("stac_download", map[string]interface{}{"asset_type": "data"})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	expectedPath := filepath.Join(downloadDir, "item-1_data.tif")
	assert.Equal(t, fmt.Sprintf("Downloaded data for item item-1 to: %s", expectedPath), env.Result)

	content, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))

	state, ok := srv.Context().GetDefault(ContextLastDownload, nil).(DownloadState)
	require.True(t, ok, "expected download state in context")
	assert.Equal(t, "item-1", state.ItemID)
	assert.Equal(t, "data", state.AssetType)
	assert.Equal(t, expectedPath, state.Filepath)
}

func TestDownloadRelativeOutputDir(t *testing.T) {
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raster-bytes"))
	}))
	defer assets.Close()

	assetHref := assets.URL + "/items/item-1/scene.tif"
	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"href": assetHref})
	}))
	defer signer.Close()

	downloadDir := t.TempDir()
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", signer.URL, downloadDir)))

	srv.SetContext(ContextLastSearch, SearchState{
		Collection: "io-lulc-annual-v02",
		Items:      []stac.Item{sampleItem(t, "item-1", assetHref)},
		Count:      1,
	})

	env := srv.Call("stac_download", map[string]interface{}{
		"asset_type": "data",
		"output_dir": "scenes",
	})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	expectedPath := filepath.Join(downloadDir, "scenes", "item-1_data.tif")
	assert.Contains(t, env.Result, expectedPath)

	_, err := os.Stat(expectedPath)
	require.NoError(t, err)
}

func TestDownloadFallsBackThroughAssetTypes(t *testing.T) {
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("visual-bytes"))
	}))
	defer assets.Close()

	item := itemFromJSON(t, fmt.Sprintf(`{
		"type": "Feature",
		"id": "scene-9",
		"properties": {},
		"assets": {"visual": {"href": %q}}
	}`, assets.URL+"/visual.png"))

	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"href": r.URL.Query().Get("href")})
	}))
	defer signer.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", signer.URL, t.TempDir())))
	srv.SetContext(ContextLastSearch, SearchState{Collection: "sentinel-2-l2a", Items: []stac.Item{item}, Count: 1})

	env := srv.Call("stac_download", map[string]interface{}{"asset_type": "data"})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)
	assert.Contains(t, env.Result, "Downloaded visual for item scene-9")
}

func TestDownloadUnknownAssetType(t *testing.T) {
	item := itemFromJSON(t, `{
		"type": "Feature",
		"id": "scene-1",
		"properties": {},
		"assets": {"metadata": {"href": "https://assets.example/meta.json"}}
	}`)

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", t.TempDir())))
	srv.SetContext(ContextLastSearch, SearchState{Collection: "sentinel-2-l2a", Items: []stac.Item{item}, Count: 1})

	env := srv.Call("stac_download", map[string]interface{}{"asset_type": "data"})
	require.True(t, env.OK())
	assert.Equal(t, "Error: Asset type not found. Available: metadata", env.Result)
}

func TestVisualizeWritesMap(t *testing.T) {
	item := sampleItem(t, "item-7", "https://assets.example/scene.tif")
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", t.TempDir())))
	srv.SetContext(ContextLastSearch, SearchState{Collection: "io-lulc-annual-v02", Items: []stac.Item{item}, Count: 1})

	outputFile := filepath.Join(t.TempDir(), "lulc_map.html")
	env := srv.Call("stac_visualize", map[string]interface{}{"output_file": outputFile, "zoom": 11})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)
	assert.Equal(t, fmt.Sprintf("Map created: %s (showing item 0: item-7)", outputFile), env.Result)

	content, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "item-7")
	assert.Contains(t, html, "io-lulc-annual-v02")
	assert.Contains(t, html, "L.rectangle")

	state, ok := srv.Context().GetDefault(ContextLastMap, nil).(MapState)
	require.True(t, ok, "expected map state in context")
	assert.Equal(t, "item-7", state.ItemID)
	assert.Equal(t, outputFile, state.Filepath)
}

func TestVisualizeIndexOutOfRange(t *testing.T) {
	item := sampleItem(t, "item-7", "https://assets.example/scene.tif")
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", t.TempDir())))
	srv.SetContext(ContextLastSearch, SearchState{Collection: "io-lulc-annual-v02", Items: []stac.Item{item}, Count: 1})

	env := srv.Call("stac_visualize", map[string]interface{}{"item_index": 5})
	require.True(t, env.OK())
	assert.Equal(t, "Error: Item index 5 out of range. Found 1 items.", env.Result)
}

func TestRegisterListsAllTools(t *testing.T) {
	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", t.TempDir())))
	assert.Equal(t, []string{"stac_download", "stac_list_collections", "stac_search", "stac_visualize"}, srv.ListTools())
}
