package wikidata

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

// DefaultBaseURL is the public Wikidata SPARQL endpoint
const DefaultBaseURL = "https://query.wikidata.org"

// Client resolves ticker symbols to canonical ids through the Wikidata
// knowledge graph (ticker property P249, id property P946). Free and
// keyless, so it ranks above the commercial APIs in the tier chain.
type Client struct {
	baseURL string
	http    *httputil.Client
	logger  *logger.Logger
}

func New(log *logger.Logger) *Client {
	return NewWithBaseURL(DefaultBaseURL, log)
}

func NewWithBaseURL(baseURL string, log *logger.Logger) *Client {
	// The public endpoint asks for polite use; 5 req/s is well inside it.
	client := httputil.NewWithTimeout(log, 20*time.Second).
		WithLocalRateLimiter(rate.NewLimiter(5, 1))
	return &Client{baseURL: baseURL, http: client, logger: log}
}

var _ contracts.ResolutionAPI = (*Client)(nil)

func (c *Client) Name() string { return "wikidata" }

func (c *Client) Source() contracts.ResolutionSource { return contracts.SourceWikidata }

type sparqlResponse struct {
	Results struct {
		Bindings []struct {
			ID struct {
				Value string `json:"value"`
			} `json:"isin"`
		} `json:"bindings"`
	} `json:"results"`
}

// Lookup queries by ticker symbol; the name is unused because P249
// matching is exact and cheap while label matching is fuzzy and slow.
func (c *Client) Lookup(ctx context.Context, ticker, name string) (string, bool, error) {
	if ticker == "" {
		return "", false, nil
	}

	query := fmt.Sprintf(
		`SELECT ?isin WHERE { ?company wdt:P249 %q . ?company wdt:P946 ?isin . } LIMIT 1`,
		ticker)

	endpoint := c.baseURL + "/sparql?format=json&query=" + url.QueryEscape(query)
	header := http.Header{}
	header.Set("Accept", "application/sparql-results+json")

	var resp sparqlResponse
	if err := c.http.GetJSON(ctx, endpoint, header, &resp); err != nil {
		return "", false, fmt.Errorf("wikidata query: %w", err)
	}

	for _, b := range resp.Results.Bindings {
		if resolve.ValidCanonicalID(b.ID.Value) {
			return b.ID.Value, true, nil
		}
	}
	return "", false, nil
}
