package holdings

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// ManualStore serves user-uploaded holdings files from
// <dataDir>/manual/<fundID>.csv or .json. It is the last holdings
// tier before giving up on a fund.
type ManualStore struct {
	dir    string
	logger *logger.Logger
}

// manualFile is the JSON upload shape
type manualFile struct {
	FundID string `json:"fund_id,omitempty"`
	Rows   []struct {
		Ticker string  `json:"ticker"`
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
		ID     string  `json:"id,omitempty"`
	} `json:"rows"`
}

func NewManualStore(dataDir string, log *logger.Logger) *ManualStore {
	return &ManualStore{dir: filepath.Join(dataDir, "manual"), logger: log}
}

// Get implements contracts.ManualUploadStore. A missing file is a
// normal miss; a present but unparseable file is an error so the user
// finds out their upload is broken.
func (s *ManualStore) Get(ctx context.Context, fundID string) (*contracts.HoldingsTable, bool, error) {
	if csvPath := filepath.Join(s.dir, fundID+".csv"); fileExists(csvPath) {
		table, err := s.loadCSV(csvPath, fundID)
		if err != nil {
			return nil, false, err
		}
		return table, true, nil
	}
	if jsonPath := filepath.Join(s.dir, fundID+".json"); fileExists(jsonPath) {
		table, err := s.loadJSON(jsonPath, fundID)
		if err != nil {
			return nil, false, err
		}
		return table, true, nil
	}
	return nil, false, nil
}

// Save writes an uploaded table to the manual slot as JSON
func (s *ManualStore) Save(ctx context.Context, table *contracts.HoldingsTable) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create manual dir: %w", err)
	}

	out := manualFile{FundID: table.FundID}
	for _, row := range table.Rows {
		out.Rows = append(out.Rows, struct {
			Ticker string  `json:"ticker"`
			Name   string  `json:"name"`
			Weight float64 `json:"weight"`
			ID     string  `json:"id,omitempty"`
		}{Ticker: row.Ticker, Name: row.Name, Weight: row.Weight, ID: row.ProviderID})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, table.FundID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manual holdings: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"fund_id": table.FundID,
		"rows":    len(table.Rows),
		"path":    path,
	}).Info("Manual holdings saved")
	return nil
}

// List returns fund ids that have a manual upload
func (s *ManualStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := map[string]struct{}{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".csv" && ext != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ManualStore) loadCSV(path, fundID string) (*contracts.HoldingsTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	cols, start := csvColumns(records[0])

	var rows []contracts.HoldingRow
	for i, rec := range records[start:] {
		row, err := csvRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+start+1, err)
		}
		rows = append(rows, row)
	}

	return &contracts.HoldingsTable{
		FundID:    fundID,
		Rows:      CleanRows(rows),
		Source:    contracts.HoldingsFromManual,
		FetchedAt: time.Now(),
	}, nil
}

// csvColumns maps header names to indices. Headerless files fall back
// to the fixed ticker,name,weight[,id] order.
func csvColumns(header []string) (map[string]int, int) {
	cols := map[string]int{"ticker": 0, "name": 1, "weight": 2, "id": 3}
	hasHeader := false
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		switch key {
		case "ticker", "symbol":
			cols["ticker"] = i
			hasHeader = true
		case "name", "holding", "security":
			cols["name"] = i
			hasHeader = true
		case "weight", "weight_percent", "weight (%)":
			cols["weight"] = i
			hasHeader = true
		case "id", "isin", "canonical_id":
			cols["id"] = i
			hasHeader = true
		}
	}
	if hasHeader {
		return cols, 1
	}
	return cols, 0
}

func csvRow(rec []string, cols map[string]int) (contracts.HoldingRow, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	weight, err := ParseWeight(field("weight"))
	if err != nil {
		return contracts.HoldingRow{}, err
	}
	return contracts.HoldingRow{
		RawTicker:  field("ticker"),
		Name:       field("name"),
		Weight:     weight,
		ProviderID: field("id"),
	}, nil
}

func (s *ManualStore) loadJSON(path, fundID string) (*contracts.HoldingsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file manualFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var rows []contracts.HoldingRow
	for _, r := range file.Rows {
		rows = append(rows, contracts.HoldingRow{
			RawTicker:  r.Ticker,
			Name:       r.Name,
			Weight:     r.Weight,
			ProviderID: r.ID,
		})
	}

	return &contracts.HoldingsTable{
		FundID:    fundID,
		Rows:      CleanRows(rows),
		Source:    contracts.HoldingsFromManual,
		FetchedAt: time.Now(),
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
