package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/holdings"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
)

// isharesProducts maps fund ids to product page paths on the iShares
// site. Grown by hand as users hold new funds; an unknown id simply
// falls through to the next holdings tier.
var isharesProducts = map[string]string{
	"IE00B5BMR087": "/de/privatanleger/de/produkte/253743/",
	"IE00B4L5Y983": "/de/privatanleger/de/produkte/251882/",
	"IE00B3RBWM25": "/de/privatanleger/de/produkte/251850/",
	"IE00B1XNHC34": "/de/privatanleger/de/produkte/251781/",
	"IE00B53SZB19": "/de/privatanleger/de/produkte/253741/",
}

// isharesAjaxSuffix is the product-page fragment serving holdings JSON
const isharesAjaxSuffix = "1467271812596.ajax?tab=all&fileType=json"

// IShares downloads fund compositions from the iShares product pages.
// The endpoint is the same JSON feed the page's holdings widget loads.
type IShares struct {
	baseURL  string
	products map[string]string
	http     *httputil.Client
	logger   *logger.Logger
}

func NewIShares(log *logger.Logger) *IShares {
	return &IShares{
		baseURL:  "https://www.ishares.com",
		products: isharesProducts,
		http:     httputil.NewWithTimeout(log, 30*time.Second),
		logger:   log,
	}
}

var _ contracts.ProviderAdapter = (*IShares)(nil)

func (a *IShares) Name() string { return "ishares" }

func (a *IShares) Supports(fundID string) bool {
	_, ok := a.products[fundID]
	return ok
}

// isharesFeed mirrors the holdings widget payload. Each aaData row is
// a positional array mixing strings and {display,raw} number objects.
type isharesFeed struct {
	AaData [][]interface{} `json:"aaData"`
}

// Positional indices inside one aaData row
const (
	isharesColTicker = 0
	isharesColName   = 1
	isharesColWeight = 5
	isharesColISIN   = 9
)

func (a *IShares) FetchHoldings(ctx context.Context, fundID string) (*contracts.HoldingsTable, error) {
	path, ok := a.products[fundID]
	if !ok {
		return nil, fmt.Errorf("ishares: unknown fund %s", fundID)
	}

	var feed isharesFeed
	url := a.baseURL + path + isharesAjaxSuffix
	if err := a.http.GetJSON(ctx, url, nil, &feed); err != nil {
		return nil, fmt.Errorf("ishares fetch %s: %w", fundID, err)
	}
	if len(feed.AaData) == 0 {
		return nil, fmt.Errorf("ishares: empty holdings feed for %s", fundID)
	}

	var rows []contracts.HoldingRow
	for _, raw := range feed.AaData {
		row, ok := a.parseRow(raw)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	rows = holdings.CleanRows(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("ishares: no parseable rows for %s", fundID)
	}

	return &contracts.HoldingsTable{
		FundID:    fundID,
		Rows:      rows,
		Source:    contracts.HoldingsFromAdapter,
		FetchedAt: time.Now(),
	}, nil
}

func (a *IShares) parseRow(raw []interface{}) (contracts.HoldingRow, bool) {
	if len(raw) <= isharesColWeight {
		return contracts.HoldingRow{}, false
	}

	row := contracts.HoldingRow{
		RawTicker: stringAt(raw, isharesColTicker),
		Name:      stringAt(raw, isharesColName),
	}

	weight, ok := numberAt(raw, isharesColWeight)
	if !ok {
		return contracts.HoldingRow{}, false
	}
	row.Weight = weight
	row.ProviderID = stringAt(raw, isharesColISIN)
	return row, true
}

func stringAt(raw []interface{}, idx int) string {
	if idx >= len(raw) {
		return ""
	}
	s, _ := raw[idx].(string)
	return s
}

// numberAt reads either a bare JSON number or the widget's
// {display,raw} wrapper object.
func numberAt(raw []interface{}, idx int) (float64, bool) {
	if idx >= len(raw) {
		return 0, false
	}
	switch v := raw[idx].(type) {
	case float64:
		return v, true
	case map[string]interface{}:
		if f, ok := v["raw"].(float64); ok {
			return f, true
		}
	}
	return 0, false
}
