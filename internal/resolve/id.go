package resolve

import "regexp"

// Canonical security ids are ISIN-shaped: a 2-letter country prefix,
// 9 alphanumerics, and a final check digit.
var canonicalIDPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidCanonicalID reports whether id is a well-formed canonical
// security id: 12 characters in ISIN layout with a valid Luhn check
// digit over the base-36 expansion.
func ValidCanonicalID(id string) bool {
	if !canonicalIDPattern.MatchString(id) {
		return false
	}
	return luhnOK(id)
}

// luhnOK runs the ISIN checksum. Letters expand to their base-36
// values (A=10 .. Z=35) as two digits before the standard Luhn pass
// over the digit string, doubling every second digit from the right.
func luhnOK(id string) bool {
	var digits []int
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r >= 'A' && r <= 'Z':
			v := int(r-'A') + 10
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
