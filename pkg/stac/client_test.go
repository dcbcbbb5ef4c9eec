package stac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
)

func TestCollections(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"collections": [
				{"id": "sentinel-2-l2a", "title": "Sentinel-2 Level-2A", "description": "Atmospherically corrected imagery", "license": "proprietary"},
				{"id": "io-lulc-annual-v02", "title": "10m Annual Land Use Land Cover", "description": "LULC", "license": "CC-BY-4.0"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	collections, err := client.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "sentinel-2-l2a", collections[0].ID)
	assert.Equal(t, "10m Annual Land Use Land Cover", collections[1].Title)
}

func TestCollectionItemsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/ch.bafu.hydrologie/items", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "8.4,47.3,8.6,47.4", r.URL.Query().Get("bbox"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "id": "item-1", "properties": {"datetime": "2024-01-02T00:00:00Z"}, "assets": {"data": {"href": "https://example.com/a.geojson"}}}
			]
		}`))
	}))
	defer server.Close()

	bbox, err := geo.NewBBox(8.4, 47.3, 8.6, 47.4)
	require.NoError(t, err)

	client := NewClient(server.URL)
	items, err := client.CollectionItems(context.Background(), "ch.bafu.hydrologie", &bbox, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].ID)
	assert.Equal(t, "2024-01-02T00:00:00Z", items[0].Datetime())
}

func TestSearchPostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"sentinel-2-l2a"}, req.Collections)
		assert.Equal(t, "2024-05-16/2024-06-15", req.Datetime)
		assert.Equal(t, 10, req.Limit)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"type": "FeatureCollection",
			"features": [
				{"type": "Feature", "id": "S2A_1", "properties": {"datetime": "2024-06-01T10:00:00Z", "eo:cloud_cover": 12.5}, "assets": {}},
				{"type": "Feature", "id": "S2A_2", "properties": {}, "assets": {}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	items, err := client.Search(context.Background(), SearchRequest{
		Collections: []string{"sentinel-2-l2a"},
		BBox:        []float64{-122.5, 37.7, -122.3, 37.8},
		Datetime:    "2024-05-16/2024-06-15",
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	cover, ok := items[0].CloudCover()
	assert.True(t, ok)
	assert.Equal(t, 12.5, cover)

	_, ok = items[1].CloudCover()
	assert.False(t, ok)
	assert.Equal(t, "unknown", items[1].Datetime())
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream catalog unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Collections(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream catalog unavailable")
}

func TestSignerSignsHref(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://example.com/raster.tif", r.URL.Query().Get("href"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"href": "https://example.com/raster.tif?sig=abc"}`))
	}))
	defer server.Close()

	signer := NewSigner(server.URL)
	signed, err := signer.Sign(context.Background(), "https://example.com/raster.tif")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/raster.tif?sig=abc", signed)
}

func TestSignerDisabledPassesThrough(t *testing.T) {
	signer := NewSigner("")
	signed, err := signer.Sign(context.Background(), "https://example.com/raster.tif")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/raster.tif", signed)
}
