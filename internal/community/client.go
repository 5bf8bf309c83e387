package community

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/config"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
)

// Client talks to the shared community lookup service. Every portfolio
// app instance reads from it; instances that opted in also contribute
// resolved identifiers and fetched holdings back.
type Client struct {
	baseURL string
	apiKey  string
	http    *httputil.Client
	logger  *logger.Logger
}

// New creates a community client from config. Returns nil when no base
// URL is configured; callers treat a nil service as an always-miss tier.
func New(cfg config.CommunityConfig, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httputil.NewWithTimeout(log, 15*time.Second),
		logger:  log,
	}
}

var _ contracts.CommunityService = (*Client)(nil)

type holdingsResponse struct {
	FundID    string    `json:"fund_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Rows      []struct {
		Ticker string  `json:"ticker"`
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
		ID     string  `json:"id,omitempty"`
	} `json:"rows"`
}

// GetFundHoldings fetches a fund's holdings table. A 404 is a normal
// miss, not an error.
func (c *Client) GetFundHoldings(ctx context.Context, fundID string) (*contracts.HoldingsTable, bool, error) {
	var resp holdingsResponse
	err := c.getJSON(ctx, "/v1/funds/"+url.PathEscape(fundID)+"/holdings", &resp)
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("community holdings lookup: %w", err)
	}

	table := &contracts.HoldingsTable{
		FundID:    fundID,
		Source:    contracts.HoldingsFromCommunity,
		FetchedAt: resp.FetchedAt,
	}
	for _, r := range resp.Rows {
		table.Rows = append(table.Rows, contracts.HoldingRow{
			RawTicker:  r.Ticker,
			Name:       r.Name,
			Weight:     r.Weight,
			ProviderID: r.ID,
		})
	}
	return table, true, nil
}

type lookupResponse struct {
	CanonicalID string `json:"canonical_id"`
}

// LookupTicker resolves a cleaned ticker to a canonical id
func (c *Client) LookupTicker(ctx context.Context, ticker string) (string, bool, error) {
	return c.lookup(ctx, "/v1/identifiers/ticker/"+url.PathEscape(ticker))
}

// LookupName resolves a normalized security name to a canonical id
func (c *Client) LookupName(ctx context.Context, name string) (string, bool, error) {
	return c.lookup(ctx, "/v1/identifiers/name/"+url.PathEscape(name))
}

func (c *Client) lookup(ctx context.Context, path string) (string, bool, error) {
	var resp lookupResponse
	err := c.getJSON(ctx, path, &resp)
	if isNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if resp.CanonicalID == "" {
		return "", false, nil
	}
	return resp.CanonicalID, true, nil
}

// ContributeHoldings uploads a holdings table fetched from a provider
func (c *Client) ContributeHoldings(ctx context.Context, table *contracts.HoldingsTable) error {
	payload := holdingsResponse{FundID: table.FundID, FetchedAt: table.FetchedAt}
	for _, row := range table.Rows {
		payload.Rows = append(payload.Rows, struct {
			Ticker string  `json:"ticker"`
			Name   string  `json:"name"`
			Weight float64 `json:"weight"`
			ID     string  `json:"id,omitempty"`
		}{Ticker: row.Ticker, Name: row.Name, Weight: row.Weight, ID: row.Resolution.CanonicalID})
	}
	return c.postJSON(ctx, "/v1/funds/"+url.PathEscape(table.FundID)+"/holdings", payload)
}

// ContributeIdentifier uploads one resolved ticker mapping
func (c *Client) ContributeIdentifier(ctx context.Context, ticker, canonicalID string) error {
	return c.postJSON(ctx, "/v1/identifiers", map[string]string{
		"ticker":       ticker,
		"canonical_id": canonicalID,
	})
}

type metadataBatchResponse struct {
	Entries map[string]contracts.Metadata `json:"entries"`
}

// GetMetadataBatch fetches sector/geography metadata for many ids in
// one round trip.
func (c *Client) GetMetadataBatch(ctx context.Context, ids []string) (map[string]contracts.Metadata, error) {
	resp, err := c.http.PostJSONWithHeader(ctx, c.baseURL+"/v1/metadata/batch", c.header(), map[string][]string{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("community metadata batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: c.baseURL + "/v1/metadata/batch"}
	}

	var body metadataBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode metadata batch: %w", err)
	}
	return body.Entries, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.http.GetJSON(ctx, c.baseURL+path, c.header(), out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) error {
	resp, err := c.http.PostJSONWithHeader(ctx, c.baseURL+path, c.header(), payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httputil.StatusError{StatusCode: resp.StatusCode, URL: c.baseURL + path}
	}
	return nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

func isNotFound(err error) bool {
	var se *httputil.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
