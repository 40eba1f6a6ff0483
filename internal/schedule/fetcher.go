package schedule

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Fetcher retrieves raw schedule data from an HTTP URL or a local file.
type Fetcher struct {
	source     string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source. A source beginning with
// http:// or https:// is fetched over the network; anything else is treated
// as a filesystem path.
func NewFetcher(source string) *Fetcher {
	return &Fetcher{
		source: source,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Source returns the configured source.
func (f *Fetcher) Source() string {
	return f.source
}

// remote reports whether the source is an HTTP(S) URL.
func (f *Fetcher) remote() bool {
	return strings.HasPrefix(f.source, "http://") || strings.HasPrefix(f.source, "https://")
}

// Fetch retrieves the raw schedule payload.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if !f.remote() {
		data, err := os.ReadFile(f.source)
		if err != nil {
			return nil, fmt.Errorf("reading schedule file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.source)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}
