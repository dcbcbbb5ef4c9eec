package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ResolveFilePath resolves a file path against the downloads directory if it's relative
func ResolveFilePath(filePath, downloadDirectory string) string {
	if downloadDirectory == "" || filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(downloadDirectory, filePath)
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// SanitizeName replaces characters that are unsafe in file names. Dots
// are kept so layer identifiers like ch.bafu.hydrologie stay readable.
func SanitizeName(name string) string {
	return unsafeChars.Replace(name)
}

// ExtensionFromURL derives a file extension from the path portion of a
// URL, ignoring any query string. Empty extensions fall back to the
// provided default.
func ExtensionFromURL(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}
	return fallback
}

// EnsureDir creates the directory and any missing parents
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Download streams a URL to destPath and returns the number of bytes
// written. The destination directory is created when missing. A nil
// client gets a default with a generous timeout since raster assets can
// be large.
func Download(ctx context.Context, client *http.Client, rawURL, destPath string) (int64, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	if err := EnsureDir(filepath.Dir(destPath)); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, err
	}

	return written, nil
}

// SizeMB converts a byte count to megabytes for report output
func SizeMB(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}
