package mapcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxMapBytes bounds the size of a map document.
const maxMapBytes = 16 << 20

// Fetcher retrieves the raw map document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NewFetcher picks a fetcher for location: http(s) URLs are fetched over
// HTTP, "file://" URLs and bare paths are read from disk.
func NewFetcher(location string, timeout time.Duration) Fetcher {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPFetcher(location, timeout)
	default:
		return FileFetcher{Path: strings.TrimPrefix(location, "file://")}
	}
}

// HTTPFetcher performs a single best-effort GET of the map asset. There is
// no retry; a failure is final for the loader that owns it.
type HTTPFetcher struct {
	url        string
	httpClient *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher with the given request timeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/svg+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("map request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("map request: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMapBytes))
	if err != nil {
		return nil, fmt.Errorf("read map body: %w", err)
	}
	return body, nil
}

// FileFetcher reads the map asset from the local filesystem.
type FileFetcher struct {
	Path string
}

func (f FileFetcher) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}
	return data, nil
}
