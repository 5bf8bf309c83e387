package resolve

import (
	"encoding/json"
	"os"

	"github.com/wonny/xray/pkg/logger"
)

// ManualTable is the curated ticker → canonical id mapping loaded
// from a JSON file in the data directory. Entries are user-maintained
// overrides for securities the automatic tiers keep getting wrong.
type ManualTable struct {
	byTicker map[string]string
}

// LoadManualTable reads the curated mapping file. A missing file is
// not an error; it yields an empty table.
func LoadManualTable(path string, log *logger.Logger) *ManualTable {
	table := &ManualTable{byTicker: map[string]string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).WithField("path", path).Warn("Failed to read manual mapping file")
		}
		return table
	}

	raw := map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to parse manual mapping file")
		return table
	}

	for ticker, id := range raw {
		cleaned := CleanTicker(ticker)
		if cleaned == "" || !ValidCanonicalID(id) {
			log.WithFields(map[string]interface{}{
				"ticker": ticker,
				"id":     id,
			}).Warn("Skipping invalid manual mapping entry")
			continue
		}
		table.byTicker[cleaned] = id
	}

	log.WithField("entries", len(table.byTicker)).Debug("Manual mapping table loaded")
	return table
}

// Lookup returns the curated id for a ticker, if present
func (t *ManualTable) Lookup(ticker string) (string, bool) {
	id, ok := t.byTicker[CleanTicker(ticker)]
	return id, ok
}

// Len returns the number of curated entries
func (t *ManualTable) Len() int {
	return len(t.byTicker)
}
