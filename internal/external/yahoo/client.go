package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/resolve"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
)

// DefaultBaseURL is the public Yahoo Finance search endpoint
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client resolves through the undocumented Yahoo Finance search API.
// Last resort tier: the endpoint only returns an id for some
// instruments (mostly European funds) and the schema is unstable.
type Client struct {
	baseURL string
	http    *httputil.Client
	logger  *logger.Logger
}

func New(log *logger.Logger) *Client {
	return NewWithBaseURL(DefaultBaseURL, log)
}

func NewWithBaseURL(baseURL string, log *logger.Logger) *Client {
	client := httputil.NewWithTimeout(log, 10*time.Second).
		WithLocalRateLimiter(rate.NewLimiter(2, 1)).
		DisableRetry() // unofficial endpoint, hammering it invites blocks
	return &Client{baseURL: baseURL, http: client, logger: log}
}

var _ contracts.ResolutionAPI = (*Client)(nil)

func (c *Client) Name() string { return "yahoo" }

func (c *Client) Source() contracts.ResolutionSource { return contracts.SourceYahoo }

type searchResponse struct {
	Quotes []struct {
		Symbol   string `json:"symbol"`
		LongName string `json:"longname"`
		ISIN     string `json:"isin"`
	} `json:"quotes"`
}

// Lookup searches by ticker first, then by name
func (c *Client) Lookup(ctx context.Context, ticker, name string) (string, bool, error) {
	for _, q := range []string{ticker, name} {
		if q == "" {
			continue
		}
		id, ok, err := c.search(ctx, q)
		if err != nil {
			return "", false, err
		}
		if ok {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (c *Client) search(ctx context.Context, query string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=3&newsCount=0",
		c.baseURL, url.QueryEscape(query))

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0") // endpoint rejects the default Go agent

	var resp searchResponse
	if err := c.http.GetJSON(ctx, endpoint, header, &resp); err != nil {
		return "", false, fmt.Errorf("yahoo search: %w", err)
	}

	for _, q := range resp.Quotes {
		if resolve.ValidCanonicalID(q.ISIN) {
			return q.ISIN, true, nil
		}
	}
	return "", false, nil
}
