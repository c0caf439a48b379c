package wallpaper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// IsURL reports whether s is an http(s) URL rather than a local path.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches rawURL into destDir, returning the local file path.
// Anything that is not an http(s) URL is treated as a local path and
// returned as-is.
func Download(ctx context.Context, client *http.Client, rawURL, destDir string) (string, error) {
	if !IsURL(rawURL) {
		return rawURL, nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	u, _ := url.Parse(rawURL)
	filename := path.Base(u.Path)
	if filename == "." || filename == ".." || filename == "/" {
		return "", fmt.Errorf("%w: no file name in %s", ErrInvalidArgument, rawURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	dest := filepath.Join(destDir, filename)

	// skip download if already cached
	if _, err := os.Stat(dest); err == nil {
		if _, err := statRegular(dest); err != nil {
			return "", fmt.Errorf("cached %s: %w", dest, err)
		}
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	// A partial file must never land at dest, where the cache check finds it.
	f, err := os.CreateTemp(destDir, "."+filename+"-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	tmp := f.Name()
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("writing file: %w", err)
	}

	return dest, nil
}
