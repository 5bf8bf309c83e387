package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/resolve"
	"github.com/wonny/xray/pkg/config"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
	"github.com/wonny/xray/pkg/redis"
)

// Client wraps the Finnhub REST API. It serves two tiers: identifier
// resolution via company profiles and metadata enrichment (sector and
// country) for already-resolved ids.
//
// The free plan allows 60 calls/min shared across all endpoints; the
// quota lives in Redis so concurrent runs stay inside it together.
type Client struct {
	baseURL string
	apiKey  string
	http    *httputil.Client
	logger  *logger.Logger
}

// New returns nil when no API key is configured so the tier chain
// simply skips Finnhub.
func New(cfg config.FinnhubConfig, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}

	httpClient := httputil.NewWithTimeout(log, 10*time.Second)
	if limiter != nil {
		httpClient = httpClient.WithRateLimiter(limiter, redis.FinnhubRateLimit)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  log,
	}
}

var _ contracts.ResolutionAPI = (*Client)(nil)

func (c *Client) Name() string { return "finnhub" }

func (c *Client) Source() contracts.ResolutionSource { return contracts.SourceFinnhub }

type profileResponse struct {
	ISIN     string `json:"isin"`
	Name     string `json:"name"`
	Industry string `json:"finnhubIndustry"`
	Country  string `json:"country"`
}

// Lookup resolves a ticker through the company profile endpoint
func (c *Client) Lookup(ctx context.Context, ticker, name string) (string, bool, error) {
	if ticker == "" {
		return "", false, nil
	}

	profile, err := c.profile(ctx, "symbol="+url.QueryEscape(ticker))
	if err != nil {
		return "", false, err
	}
	if profile == nil || !resolve.ValidCanonicalID(profile.ISIN) {
		return "", false, nil
	}
	return profile.ISIN, true, nil
}

// MetadataClient exposes the same Finnhub connection as a metadata
// source. A separate view because resolution and metadata lookups have
// different Lookup signatures.
type MetadataClient struct {
	c *Client
}

// Metadata returns the metadata-source view of this client
func (c *Client) Metadata() *MetadataClient {
	if c == nil {
		return nil
	}
	return &MetadataClient{c: c}
}

var _ contracts.MetadataAPI = (*MetadataClient)(nil)

func (m *MetadataClient) Name() string { return "finnhub" }

// Lookup fetches sector and geography for a canonical id through the
// isin profile variant.
func (m *MetadataClient) Lookup(ctx context.Context, canonicalID string) (*contracts.Metadata, bool, error) {
	c := m.c
	profile, err := c.profile(ctx, "isin="+url.QueryEscape(canonicalID))
	if err != nil {
		return nil, false, err
	}
	if profile == nil {
		return nil, false, nil
	}

	meta := &contracts.Metadata{
		Sector:    profile.Industry,
		Geography: profile.Country,
	}
	if meta.IsEmpty() {
		return nil, false, nil
	}
	return meta, true, nil
}

func (c *Client) profile(ctx context.Context, query string) (*profileResponse, error) {
	endpoint := fmt.Sprintf("%s/stock/profile2?%s&token=%s", c.baseURL, query, c.apiKey)

	var resp profileResponse
	if err := c.http.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("finnhub profile: %w", err)
	}
	// Finnhub answers 200 with an empty object for unknown symbols
	if resp.Name == "" && resp.ISIN == "" {
		return nil, nil
	}
	return &resp, nil
}
