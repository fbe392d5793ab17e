package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/lehigh-university-libraries/vibetrack/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the iTunes Search API endpoint
const DefaultBaseURL = "https://itunes.apple.com/search"

// ErrNoMatch is returned when the catalog has no track for the query
var ErrNoMatch = errors.New("no matching track")

// Client represents an iTunes Search API client
type Client struct {
	BaseURL string
	Country string

	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[*Track]
}

// Options configures a Client
type Options struct {
	BaseURL string
	// Country is the two-letter store code; empty uses the API default (US)
	Country string
	// Timeout bounds a single HTTP request; zero means no timeout
	Timeout time.Duration
	// RequestsPerMinute throttles outgoing searches; zero disables throttling
	RequestsPerMinute int
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// Track represents a song from the catalog
type Track struct {
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	PreviewURL     string `json:"previewUrl"`
	TrackViewURL   string `json:"trackViewUrl"`
}

type searchResponse struct {
	ResultCount int     `json:"resultCount"`
	Results     []Track `json:"results"`
}

// NewClient creates a new catalog client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
		burst = opts.RequestsPerMinute
	}

	threshold := opts.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*Track](gobreaker.Settings{
		Name:        "itunes-search",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoMatch)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Catalog circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CatalogBreakerState.Set(float64(to))
		},
	})

	return &Client{
		BaseURL: opts.BaseURL,
		Country: opts.Country,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

// Search returns the first track matching term, or ErrNoMatch
func (c *Client) Search(ctx context.Context, term string) (*Track, error) {
	track, err := c.cb.Execute(func() (*Track, error) {
		return c.search(ctx, term)
	})

	switch {
	case err == nil:
		metrics.CatalogLookups.WithLabelValues("hit").Inc()
	case errors.Is(err, ErrNoMatch):
		metrics.CatalogLookups.WithLabelValues("miss").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogLookups.WithLabelValues("rejected").Inc()
	default:
		metrics.CatalogLookups.WithLabelValues("error").Inc()
	}

	return track, err
}

func (c *Client) search(ctx context.Context, term string) (*Track, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed waiting for rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "1")
	if c.Country != "" {
		params.Set("country", c.Country)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	if len(result.Results) == 0 {
		return nil, ErrNoMatch
	}

	return &result.Results[0], nil
}
