// Package images reads images for staging from local files or http(s) URLs
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
)

// DefaultMaxBytes caps a single image
const DefaultMaxBytes = 32 << 20

// ErrNotURL is returned by DownloadAll for a source that is not http(s)
var ErrNotURL = errors.New("only http and https image URLs are accepted")

// Fetcher retrieves images from paths and URLs
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// FetchAll fetches every source in order and stops at the first failure
func (f *Fetcher) FetchAll(ctx context.Context, sources []string) ([]staging.Upload, error) {
	uploads := make([]staging.Upload, 0, len(sources))
	for _, src := range sources {
		u, err := f.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

// DownloadAll is FetchAll restricted to http(s) URLs. Every source is
// checked before anything is fetched, so local paths are never opened.
func (f *Fetcher) DownloadAll(ctx context.Context, urls []string) ([]staging.Upload, error) {
	for _, src := range urls {
		if !IsURL(src) {
			return nil, ErrNotURL
		}
	}
	return f.FetchAll(ctx, urls)
}

// Fetch reads one image. Sources starting with http:// or https:// are
// downloaded; anything else is a local path.
func (f *Fetcher) Fetch(ctx context.Context, source string) (staging.Upload, error) {
	if IsURL(source) {
		return f.download(ctx, source)
	}
	return f.readFile(source)
}

// IsURL reports whether source is an http(s) URL
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (f *Fetcher) readFile(name string) (staging.Upload, error) {
	file, err := os.Open(name)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("%s: %w", name, err)
	}

	return staging.Upload{Name: filepath.Base(name), Data: data}, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (staging.Upload, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("invalid image URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return staging.Upload{}, fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return staging.Upload{}, fmt.Errorf("%s: %w", rawURL, err)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = u.Host
	}
	slog.Debug("Downloaded image", "url", rawURL, "bytes", len(data))
	return staging.Upload{Name: name, Data: data}, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image larger than %d bytes", limit)
	}
	return data, nil
}

func (f *Fetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return http.DefaultClient
}
