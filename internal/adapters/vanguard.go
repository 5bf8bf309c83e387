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

var vanguardProducts = map[string]string{
	"IE00B3RBWM25": "9679",
	"IE00BK5BQT80": "9690",
	"IE00B945VV12": "9522",
}

// Vanguard pulls fund compositions from the Vanguard portfolio API
type Vanguard struct {
	baseURL  string
	products map[string]string
	http     *httputil.Client
	logger   *logger.Logger
}

func NewVanguard(log *logger.Logger) *Vanguard {
	return &Vanguard{
		baseURL:  "https://www.de.vanguard",
		products: vanguardProducts,
		http:     httputil.NewWithTimeout(log, 30*time.Second),
		logger:   log,
	}
}

var _ contracts.ProviderAdapter = (*Vanguard)(nil)

func (a *Vanguard) Name() string { return "vanguard" }

func (a *Vanguard) Supports(fundID string) bool {
	_, ok := a.products[fundID]
	return ok
}

type vanguardResponse struct {
	Holdings []struct {
		Ticker   string `json:"ticker"`
		LongName string `json:"longName"`
		Percent  string `json:"percentWeight"`
		ISIN     string `json:"isin"`
	} `json:"holdings"`
}

func (a *Vanguard) FetchHoldings(ctx context.Context, fundID string) (*contracts.HoldingsTable, error) {
	productID, ok := a.products[fundID]
	if !ok {
		return nil, fmt.Errorf("vanguard: unknown fund %s", fundID)
	}

	var resp vanguardResponse
	url := fmt.Sprintf("%s/api/investments/%s/holdings.json", a.baseURL, productID)
	if err := a.http.GetJSON(ctx, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("vanguard fetch %s: %w", fundID, err)
	}
	if len(resp.Holdings) == 0 {
		return nil, fmt.Errorf("vanguard: empty holdings for %s", fundID)
	}

	var rows []contracts.HoldingRow
	for _, h := range resp.Holdings {
		weight, err := holdings.ParseWeight(h.Percent)
		if err != nil {
			a.logger.WithFields(map[string]interface{}{
				"fund_id": fundID,
				"ticker":  h.Ticker,
				"weight":  h.Percent,
			}).Warn("Skipping holding with unparseable weight")
			continue
		}
		rows = append(rows, contracts.HoldingRow{
			RawTicker:  h.Ticker,
			Name:       h.LongName,
			Weight:     weight,
			ProviderID: h.ISIN,
		})
	}
	rows = holdings.CleanRows(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("vanguard: no parseable rows for %s", fundID)
	}

	return &contracts.HoldingsTable{
		FundID:    fundID,
		Rows:      rows,
		Source:    contracts.HoldingsFromAdapter,
		FetchedAt: time.Now(),
	}, nil
}
