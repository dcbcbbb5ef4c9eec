package bafu

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

const capabilitiesXML = `<?xml version="1.0" encoding="UTF-8"?>
<WMS_Capabilities version="1.3.0" xmlns="http://www.opengis.net/wms">
  <Service>
    <Name>WMS</Name>
    <Title>GeoAdmin WMS</Title>
  </Service>
  <Capability>
    <Layer>
      <Title>Federal geodata</Title>
      <Layer>
        <Name>ch.bafu.gefahren-aktuelle_erdbeben</Name>
        <Title>Current earthquakes</Title>
      </Layer>
      <Layer>
        <Name>ch.bafu.hydrologie-hochwasserstatistik</Name>
        <Title>Flood statistics</Title>
      </Layer>
      <Layer>
        <Name>ch.swisstopo.pixelkarte-farbe</Name>
        <Title>National color map</Title>
      </Layer>
    </Layer>
  </Capability>
</WMS_Capabilities>`

func TestWMSLayersParsesCapabilities(t *testing.T) {
	wms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "WMS", r.URL.Query().Get("service"))
		assert.Equal(t, "GetCapabilities", r.URL.Query().Get("request"))
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, capabilitiesXML)
	}))
	defer wms.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", wms.URL, t.TempDir())))

	env := srv.Call("wms_list_layers", nil)
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	assert.Contains(t, env.Result, "Found 3 WMS layers:")
	assert.Contains(t, env.Result, "Current earthquakes")
	assert.Contains(t, env.Result, "Layer: ch.bafu.gefahren-aktuelle_erdbeben")
	assert.Contains(t, env.Result, "Layer: ch.swisstopo.pixelkarte-farbe")
	// the group layer has no Name element and is not listed
	assert.NotContains(t, env.Result, "Layer: Federal geodata")
	assert.Contains(t, env.Result, "💡 Use bafu_visualize_wms")
}

func TestWMSLayersFiltersBySearchTerm(t *testing.T) {
	wms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, capabilitiesXML)
	}))
	defer wms.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", wms.URL, t.TempDir())))

	env := srv.Call("wms_list_layers", map[string]interface{}{"search_term": "flood"})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)

	assert.Contains(t, env.Result, "Found 1 WMS layers matching 'flood':")
	assert.Contains(t, env.Result, "ch.bafu.hydrologie-hochwasserstatistik")
	assert.NotContains(t, env.Result, "erdbeben")
}

func TestWMSLayersLimit(t *testing.T) {
	wms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, capabilitiesXML)
	}))
	defer wms.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", wms.URL, t.TempDir())))

	env := srv.Call("wms_list_layers", map[string]interface{}{"limit": 2})
	require.True(t, env.OK(), "unexpected failure: %s", env.Err)
	assert.Contains(t, env.Result, "(Showing 2 of 3 layers. Increase 'limit' to see more.)")
	assert.NotContains(t, env.Result, "ch.swisstopo.pixelkarte-farbe")
}

func TestWMSLayersUpstreamFailure(t *testing.T) {
	wms := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer wms.Close()

	srv := toolkit.NewServer()
	require.NoError(t, Register(srv, testConfig("http://unused.invalid", "", wms.URL, t.TempDir())))

	env := srv.Call("wms_list_layers", nil)
	require.False(t, env.OK())
	assert.Contains(t, env.Err, "fetching WMS capabilities")
}
