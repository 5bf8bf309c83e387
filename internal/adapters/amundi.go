package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/internal/holdings"
	"github.com/wonny/xray/pkg/httputil"
	"github.com/wonny/xray/pkg/logger"
)

var amundiProducts = map[string]string{
	"LU1681043599": "/product/AMUNDI-MSCI-WORLD-UCITS-ETF/holdings",
	"LU1737652823": "/product/AMUNDI-MSCI-EMERGING-MARKETS/holdings",
	"FR0010315770": "/product/LYXOR-MSCI-WORLD-UCITS-ETF/holdings",
}

// Amundi scrapes the holdings table embedded in the Amundi product
// pages. No JSON feed exists for these funds, so this is the one
// adapter that parses HTML.
type Amundi struct {
	baseURL  string
	products map[string]string
	http     *httputil.Client
	logger   *logger.Logger
}

func NewAmundi(log *logger.Logger) *Amundi {
	return &Amundi{
		baseURL:  "https://www.amundietf.de",
		products: amundiProducts,
		http:     httputil.NewWithTimeout(log, 30*time.Second),
		logger:   log,
	}
}

var _ contracts.ProviderAdapter = (*Amundi)(nil)

func (a *Amundi) Name() string { return "amundi" }

func (a *Amundi) Supports(fundID string) bool {
	_, ok := a.products[fundID]
	return ok
}

func (a *Amundi) FetchHoldings(ctx context.Context, fundID string) (*contracts.HoldingsTable, error) {
	path, ok := a.products[fundID]
	if !ok {
		return nil, fmt.Errorf("amundi: unknown fund %s", fundID)
	}

	resp, err := a.http.Get(ctx, a.baseURL+path)
	if err != nil {
		return nil, fmt.Errorf("amundi fetch %s: %w", fundID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: a.baseURL + path}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("amundi parse %s: %w", fundID, err)
	}

	rows := a.parseTable(doc)
	if len(rows) == 0 {
		return nil, fmt.Errorf("amundi: no holdings table on page for %s", fundID)
	}

	return &contracts.HoldingsTable{
		FundID:    fundID,
		Rows:      rows,
		Source:    contracts.HoldingsFromAdapter,
		FetchedAt: time.Now(),
	}, nil
}

// parseTable extracts rows from the first table whose header mentions
// a weight column. Expected cell order: name, id, weight.
func (a *Amundi) parseTable(doc *goquery.Document) []contracts.HoldingRow {
	var rows []contracts.HoldingRow

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := strings.ToLower(table.Find("thead").Text())
		if !strings.Contains(header, "weight") && !strings.Contains(header, "gewicht") {
			return true
		}

		table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() < 3 {
				return
			}
			weight, err := holdings.ParseWeight(cells.Eq(2).Text())
			if err != nil {
				return
			}
			rows = append(rows, contracts.HoldingRow{
				Name:       strings.TrimSpace(cells.Eq(0).Text()),
				ProviderID: strings.TrimSpace(cells.Eq(1).Text()),
				Weight:     weight,
			})
		})
		return false
	})

	return holdings.CleanRows(rows)
}
