package aggregate

import (
	"sort"
	"strings"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// Aggregator merges direct-position exposures and fund-holding
// exposures into one table keyed by canonical security id.
type Aggregator struct {
	logger *logger.Logger
}

// New creates an Aggregator
func New(log *logger.Logger) *Aggregator {
	return &Aggregator{logger: log}
}

// contribution is one exposure flowing into a canonical id
type contribution struct {
	id         string
	name       string
	value      float64
	confidence float64
	source     contracts.ResolutionSource
}

// Aggregate combines all positions and fund decompositions into
// exposure records. metadata carries enrichment results per canonical
// id and may be nil.
//
// The total portfolio value is computed once from the position list,
// never from decomposed holdings, so partial decomposition failures
// cannot skew percentages.
func (a *Aggregator) Aggregate(
	positions []contracts.Position,
	decomps map[string]contracts.FundDecomposition,
	metadata map[string]contracts.Metadata,
) ([]contracts.ExposureRecord, float64) {
	total := 0.0
	for _, p := range positions {
		total += p.MarketValue()
	}

	var contribs []contribution
	for _, p := range positions {
		if !p.IsFund() {
			contribs = append(contribs, directContribution(p))
			continue
		}

		decomp, ok := decomps[p.ID]
		if !ok {
			// Undecomposed funds stay visible as their own exposure;
			// they must not silently vanish from totals.
			contribs = append(contribs, contribution{
				id:         idOrPlaceholder(p.ID, "", p.Name),
				name:       p.Name,
				value:      p.MarketValue(),
				confidence: contracts.SourceConfidence(contracts.SourceFund),
				source:     contracts.SourceFund,
			})
			continue
		}

		fundValue := p.MarketValue()
		for _, row := range decomp.Rows {
			contribs = append(contribs, holdingContribution(fundValue, row))
		}
	}

	records := a.merge(contribs, metadata, total)

	a.logger.WithFields(map[string]interface{}{
		"positions": len(positions),
		"records":   len(records),
		"total":     total,
	}).Info("Exposures aggregated")

	return records, total
}

func directContribution(p contracts.Position) contribution {
	return contribution{
		id:         idOrPlaceholder(p.ID, "", p.Name),
		name:       p.Name,
		value:      p.MarketValue(),
		confidence: contracts.SourceConfidence(contracts.SourceDirect),
		source:     contracts.SourceDirect,
	}
}

func holdingContribution(fundValue float64, row contracts.HoldingRow) contribution {
	c := contribution{
		name:       row.Name,
		value:      fundValue * row.Weight / 100,
		confidence: row.Resolution.Confidence,
		source:     row.Resolution.Source,
	}
	if row.Resolution.IsResolved() {
		c.id = row.Resolution.CanonicalID
	} else {
		c.id = placeholderID(row.Ticker, row.Name)
	}
	return c
}

// merge groups contributions by id. Values sum; name and source come
// from the highest-confidence contributor, ties broken by largest
// contributing value.
func (a *Aggregator) merge(contribs []contribution, metadata map[string]contracts.Metadata, total float64) []contracts.ExposureRecord {
	type bucket struct {
		record    contracts.ExposureRecord
		bestConf  float64
		bestValue float64
	}

	buckets := map[string]*bucket{}
	var order []string

	for _, c := range contribs {
		b, ok := buckets[c.id]
		if !ok {
			b = &bucket{
				record: contracts.ExposureRecord{
					CanonicalID: c.id,
					Name:        c.name,
					Confidence:  c.confidence,
					Source:      c.source,
				},
				bestConf:  c.confidence,
				bestValue: c.value,
			}
			buckets[c.id] = b
			order = append(order, c.id)
		} else if c.confidence > b.bestConf ||
			(c.confidence == b.bestConf && c.value > b.bestValue) {
			b.record.Name = c.name
			b.record.Source = c.source
			b.bestConf = c.confidence
			b.bestValue = c.value
		}

		b.record.TotalExposure += c.value
		b.record.SourceCount++
		if c.confidence > b.record.Confidence {
			b.record.Confidence = c.confidence
		}
	}

	records := make([]contracts.ExposureRecord, 0, len(buckets))
	for _, id := range order {
		r := buckets[id].record
		if meta, ok := metadata[id]; ok {
			r.Sector = meta.Sector
			r.Geography = meta.Geography
		}
		if total > 0 {
			r.PortfolioPercent = r.TotalExposure / total * 100
		} else {
			r.PortfolioPercent = 0.0
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalExposure != records[j].TotalExposure {
			return records[i].TotalExposure > records[j].TotalExposure
		}
		return records[i].CanonicalID < records[j].CanonicalID
	})

	return records
}

// idOrPlaceholder keeps a present id and falls back to a stable
// placeholder otherwise.
func idOrPlaceholder(id, ticker, name string) string {
	if id != "" {
		return id
	}
	return placeholderID(ticker, name)
}

// placeholderID derives a stable placeholder for an unresolved
// security so duplicates of the same unresolved row still merge.
func placeholderID(ticker, name string) string {
	base := ticker
	if base == "" {
		base = name
	}
	return contracts.UnresolvedIDPrefix + slug(base)
}

func slug(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
