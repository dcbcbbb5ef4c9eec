package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Signer obtains read-signed asset URLs from a Planetary Computer style
// SAS endpoint: GET <endpoint>?href=<asset url> answers {"href": signed}.
type Signer struct {
	endpoint string
	http     *http.Client
}

// NewSigner creates a signer against endpoint. An empty endpoint
// disables signing: Sign then returns hrefs unchanged.
func NewSigner(endpoint string) *Signer {
	return &Signer{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Sign exchanges href for a signed URL. Unsigned catalogs pass hrefs
// through untouched.
func (s *Signer) Sign(ctx context.Context, href string) (string, error) {
	if s == nil || s.endpoint == "" {
		return href, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?href="+url.QueryEscape(href), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var signed struct {
		Href string `json:"href"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return "", fmt.Errorf("failed to decode sign response: %w", err)
	}
	if signed.Href == "" {
		return "", fmt.Errorf("sign endpoint returned no href for %s", href)
	}
	return signed.Href, nil
}
