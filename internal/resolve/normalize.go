package resolve

import "strings"

// exchangeSuffixes are ticker suffixes appended by data vendors
// (e.g. "AAPL.US", "VOD.L", "SAP:GR"). Stripped before lookups.
var exchangeSuffixes = map[string]bool{
	"US": true, "UQ": true, "UN": true, "L": true, "LN": true,
	"DE": true, "GR": true, "GY": true, "PA": true, "FP": true,
	"AS": true, "NA": true, "MI": true, "IM": true, "SW": true,
	"VX": true, "MC": true, "SM": true, "ST": true, "SS": true,
	"CO": true, "DC": true, "HE": true, "FH": true, "T": true,
	"JP": true, "JT": true, "HK": true, "AX": true, "AU": true,
	"TO": true, "CN": true,
}

// legalForms are company name suffixes stripped when building name
// lookup variants.
var legalForms = []string{
	"INCORPORATED", "CORPORATION", "COMPANY", "HOLDINGS", "HOLDING",
	"GROUP", "LIMITED", "INC", "CORP", "LTD", "PLC", "AG", "SA",
	"SE", "NV", "SPA", "AB", "ASA", "OYJ", "KGAA", "CO",
}

// CleanTicker normalizes a raw ticker for lookups: trims noise
// characters, uppercases, and strips a known exchange suffix.
func CleanTicker(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.Trim(t, "*•·")
	t = strings.ToUpper(t)

	for _, sep := range []string{".", ":"} {
		if idx := strings.LastIndex(t, sep); idx > 0 {
			if exchangeSuffixes[t[idx+1:]] {
				t = t[:idx]
				break
			}
		}
	}

	return strings.TrimSpace(t)
}

// TickerVariants returns the distinct lookup candidates for a raw
// ticker, most specific first.
func TickerVariants(raw string) []string {
	cleaned := CleanTicker(raw)
	upper := strings.ToUpper(strings.TrimSpace(raw))

	variants := []string{}
	seen := map[string]bool{}
	for _, v := range []string{cleaned, upper} {
		if v != "" && !seen[v] {
			variants = append(variants, v)
			seen[v] = true
		}
	}
	return variants
}

// NameVariants returns the distinct lookup candidates for a security
// name: the trimmed original, then progressively stripped of trailing
// legal forms and punctuation.
func NameVariants(name string) []string {
	base := strings.Join(strings.Fields(strings.TrimSpace(name)), " ")
	if base == "" {
		return nil
	}

	variants := []string{base}
	seen := map[string]bool{base: true}

	stripped := base
	for {
		next := stripLegalForm(stripped)
		if next == stripped {
			break
		}
		stripped = next
		if !seen[stripped] {
			variants = append(variants, stripped)
			seen[stripped] = true
		}
	}

	return variants
}

func stripLegalForm(name string) string {
	upper := strings.ToUpper(name)
	for _, form := range legalForms {
		for _, suffix := range []string{" " + form, " " + form + ".", ", " + form, ", " + form + "."} {
			if strings.HasSuffix(upper, suffix) {
				return strings.TrimRight(strings.TrimSpace(name[:len(name)-len(suffix)]), ",.")
			}
		}
	}
	return name
}
