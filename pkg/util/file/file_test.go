package file

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFilePath(t *testing.T) {
	tests := []struct {
		name              string
		filePath          string
		downloadDirectory string
		expected          string
	}{
		{
			name:              "relative path with download directory",
			filePath:          "item_visual.tif",
			downloadDirectory: "/data/downloads",
			expected:          filepath.Join("/data/downloads", "item_visual.tif"),
		},
		{
			name:              "relative path without download directory",
			filePath:          "item_visual.tif",
			downloadDirectory: "",
			expected:          "item_visual.tif",
		},
		{
			name:              "absolute path ignores download directory",
			filePath:          "/tmp/item_visual.tif",
			downloadDirectory: "/data/downloads",
			expected:          "/tmp/item_visual.tif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveFilePath(tt.filePath, tt.downloadDirectory)
			if result != tt.expected {
				t.Errorf("ResolveFilePath() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "keeps dots in layer identifiers",
			input:    "ch.bafu.hydrologie-hintergrundkarte",
			expected: "ch.bafu.hydrologie-hintergrundkarte",
		},
		{
			name:     "replaces path separators",
			input:    "items/2024/visual",
			expected: "items_2024_visual",
		},
		{
			name:     "replaces spaces and reserved characters",
			input:    `flood risk: "high"?`,
			expected: "flood_risk___high__",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeName(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeName() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		fallback string
		expected string
	}{
		{
			name:     "extension from path",
			url:      "https://example.com/assets/scene.tif?st=2024&sig=abc",
			fallback: ".bin",
			expected: ".tif",
		},
		{
			name:     "fallback when path has no extension",
			url:      "https://example.com/assets/scene",
			fallback: ".bin",
			expected: ".bin",
		},
		{
			name:     "query string does not leak into extension",
			url:      "https://example.com/download?file=scene.tif",
			fallback: ".dat",
			expected: ".dat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtensionFromURL(tt.url, tt.fallback)
			if result != tt.expected {
				t.Errorf("ExtensionFromURL() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	payload := []byte("x,y,value\n7.44,46.94,42\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "nested", "data.csv")
	written, err := Download(context.Background(), server.Client(), server.URL, destPath)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if written != int64(len(payload)) {
		t.Errorf("Download() wrote %d bytes, want %d", written, len(payload))
	}

	content, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(content) != string(payload) {
		t.Errorf("downloaded content = %q, want %q", content, payload)
	}
}

func TestDownloadErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "missing.tif")
	if _, err := Download(context.Background(), server.Client(), server.URL, destPath); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(destPath); !os.IsNotExist(err) {
		t.Errorf("expected no file on failed download, stat err = %v", err)
	}
}

func TestSizeMB(t *testing.T) {
	if got := SizeMB(5 * 1024 * 1024); got != 5.0 {
		t.Errorf("SizeMB() = %v, want 5.0", got)
	}
	if got := SizeMB(0); got != 0 {
		t.Errorf("SizeMB() = %v, want 0", got)
	}
}
