package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/geo"
)

// Client talks to one STAC API root. The zero timeout of the default
// client is never used; every constructed client carries an explicit
// timeout since handlers own their outbound deadlines.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, used by tests and
// by callers that need a longer deadline.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the API rooted at baseURL, with a 30
// second timeout unless overridden.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Collections fetches every collection the catalog advertises.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var list CollectionList
	if err := c.getJSON(ctx, c.baseURL+"/collections", &list); err != nil {
		return nil, err
	}
	return list.Collections, nil
}

// Collection fetches a single collection by id.
func (c *Client) Collection(ctx context.Context, id string) (*Collection, error) {
	var collection Collection
	if err := c.getJSON(ctx, c.baseURL+"/collections/"+url.PathEscape(id), &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

// CollectionItems lists items of a collection through the GET items
// endpoint, optionally constrained by a bounding box.
func (c *Client) CollectionItems(ctx context.Context, id string, bbox *geo.BBox, limit int) ([]Item, error) {
	endpoint := c.baseURL + "/collections/" + url.PathEscape(id) + "/items"
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if bbox != nil {
		params.Set("bbox", bbox.Query())
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var items ItemCollection
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	return items.Features, nil
}

// Search runs a POST /search query.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Item, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var items ItemCollection
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return items.Features, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s %s returned status %d: %s",
		resp.Request.Method, resp.Request.URL, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
