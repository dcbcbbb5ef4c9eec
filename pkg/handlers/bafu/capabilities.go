package bafu

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

// WMSLayers returns the handler listing named layers from the WMS
// GetCapabilities document. Capability trees nest layer groups, and
// groups carry no Name element, so those are skipped.
func (t *Tools) WMSLayers() toolkit.Handler {
	return func(arguments map[string]interface{}, ctx *toolkit.Context) (string, error) {
		searchTerm := strings.ToLower(toolkit.StringOr(arguments, "search_term", ""))
		limit := toolkit.IntOr(arguments, "limit", 20)

		params := url.Values{}
		params.Set("service", "WMS")
		params.Set("request", "GetCapabilities")

		resp, err := t.httpc.Get(t.wmsURL + "?" + params.Encode())
		if err != nil {
			return "", fmt.Errorf("fetching WMS capabilities: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetching WMS capabilities: unexpected status %s", resp.Status)
		}

		doc, err := xmlquery.Parse(resp.Body)
		if err != nil {
			return "", fmt.Errorf("parsing WMS capabilities: %v", err)
		}

		nodes, err := xmlquery.QueryAll(doc, "//Layer")
		if err != nil {
			return "", fmt.Errorf("querying WMS capabilities: %v", err)
		}

		type wmsLayer struct {
			name  string
			title string
		}
		var layers []wmsLayer
		for _, node := range nodes {
			nameNode := xmlquery.FindOne(node, "Name")
			if nameNode == nil {
				continue
			}
			name := strings.TrimSpace(nameNode.InnerText())
			if name == "" {
				continue
			}
			title := ""
			if titleNode := xmlquery.FindOne(node, "Title"); titleNode != nil {
				title = strings.TrimSpace(titleNode.InnerText())
			}
			if searchTerm != "" &&
				!strings.Contains(strings.ToLower(name), searchTerm) &&
				!strings.Contains(strings.ToLower(title), searchTerm) {
				continue
			}
			layers = append(layers, wmsLayer{name: name, title: title})
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d WMS layers", len(layers))
		if searchTerm != "" {
			fmt.Fprintf(&b, " matching '%s'", searchTerm)
		}
		b.WriteString(":\n\n")

		shown := layers
		if len(shown) > limit {
			shown = shown[:limit]
		}
		for i, l := range shown {
			title := l.title
			if title == "" {
				title = "No title"
			}
			fmt.Fprintf(&b, "%d. %s\n   Layer: %s\n\n", i+1, title, l.name)
		}
		if len(layers) > limit {
			fmt.Fprintf(&b, "(Showing %d of %d layers. Increase 'limit' to see more.)\n\n", limit, len(layers))
		}
		b.WriteString("💡 Use bafu_visualize_wms with a layer name to render it on a map.")
		return b.String(), nil
	}
}
