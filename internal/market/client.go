package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"tickerchat-go/internal/monitoring"
)

const (
	DefaultTrendingURL = "https://api.stocktwits.com/api/2/trending/symbols.json"
	DefaultBoostsURL   = "https://api.dexscreener.com/token-boosts/latest/v1"
)

// ClientOption customizes Client creation.
type ClientOption func(*Client)

// Client wraps the two market-data feeds. Both reads are idempotent and
// return possibly-empty lists; callers treat errors as empty results.
type Client struct {
	httpClient  *http.Client
	trendingURL string
	boostsURL   string
}

// NewClient creates a market-data client with provider defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		trendingURL: DefaultTrendingURL,
		boostsURL:   DefaultBoostsURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithHTTPClient overrides the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTrendingURL overrides the trending symbols endpoint.
func WithTrendingURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.trendingURL = url
		}
	}
}

// WithBoostsURL overrides the boosted tokens endpoint.
func WithBoostsURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.boostsURL = url
		}
	}
}

// TrendingSymbols lists the currently trending ticker symbols.
func (c *Client) TrendingSymbols(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "trending", c.trendingURL)
	if err != nil {
		return nil, err
	}
	return collectStrings(body, "symbols.#.symbol"), nil
}

// BoostedAddresses lists the token addresses currently being boosted.
func (c *Client) BoostedAddresses(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "boosts", c.boostsURL)
	if err != nil {
		return nil, err
	}
	return collectStrings(body, "#.tokenAddress"), nil
}

func (c *Client) get(ctx context.Context, feed, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		monitoring.MarketRequests.WithLabelValues(feed, "error").Inc()
		return nil, fmt.Errorf("create %s request: %w", feed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.MarketRequests.WithLabelValues(feed, "error").Inc()
		return nil, fmt.Errorf("fetch %s feed: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.MarketRequests.WithLabelValues(feed, "error").Inc()
		return nil, fmt.Errorf("%s feed returned status %d", feed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		monitoring.MarketRequests.WithLabelValues(feed, "error").Inc()
		return nil, fmt.Errorf("read %s feed body: %w", feed, err)
	}
	monitoring.MarketRequests.WithLabelValues(feed, "success").Inc()
	return body, nil
}

func collectStrings(body []byte, path string) []string {
	var out []string
	for _, r := range gjson.GetBytes(body, path).Array() {
		if s := r.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
