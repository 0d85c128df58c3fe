package eval

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	isoCodeRE = regexp.MustCompile(`(\d{4})-(\d{2})`)
	yearRE    = regexp.MustCompile(`\b(20\d{2})\b`)
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december",
}

// dateParts is what could be read from one side of a comparison. Zero
// values mean absent.
type dateParts struct {
	codeYear, codeMonth int // from YYYY-MM
	nameMonth           int // 1-based month from a month name
	nameYear            int // 20xx year accompanying the month name
}

func (d dateParts) hasCode() bool { return d.codeYear != 0 }
func (d dateParts) hasName() bool { return d.nameMonth != 0 && d.nameYear != 0 }

func parseDate(s string) dateParts {
	var d dateParts
	if m := isoCodeRE.FindStringSubmatch(s); m != nil {
		d.codeYear, _ = strconv.Atoi(m[1])
		d.codeMonth, _ = strconv.Atoi(m[2])
	}
	for i, name := range monthNames {
		if strings.Contains(s, name) {
			d.nameMonth = i + 1
			if m := yearRE.FindStringSubmatch(s); m != nil {
				d.nameYear, _ = strconv.Atoi(m[1])
			}
			break
		}
	}
	return d
}

// score returns 1 when both parts agree, 0.5 when one does. ok is false
// when neither agrees, so the caller may try another comparison.
func score(yearA, monthA, yearB, monthB int) (float64, bool) {
	switch {
	case yearA == yearB && monthA == monthB:
		return 1, true
	case yearA == yearB || monthA == monthB:
		return 0.5, true
	}
	return 0, false
}

// Precision scores extracted against expected: 1.0 for an exact
// (normalized) match or when month and year both agree, 0.5 when only one
// of them agrees, 0.0 otherwise or when either side is empty.
//
// Dates are read as YYYY-MM codes and as month names with a 20xx year.
// Anything else, MM/YYYY included, only scores through an exact match.
// The comparisons are tried in order numeric/numeric, name/name,
// numeric/name, name/numeric; the first that finds any agreement decides.
func Precision(extracted, expected string) float64 {
	a := strings.ToLower(strings.TrimSpace(normalizeLLMText(extracted)))
	b := strings.ToLower(strings.TrimSpace(normalizeLLMText(expected)))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	x, y := parseDate(a), parseDate(b)
	if x.hasCode() && y.hasCode() {
		if s, ok := score(x.codeYear, x.codeMonth, y.codeYear, y.codeMonth); ok {
			return s
		}
	}
	if x.hasName() && y.hasName() {
		if s, ok := score(x.nameYear, x.nameMonth, y.nameYear, y.nameMonth); ok {
			return s
		}
	}
	if x.hasCode() && y.hasName() {
		if s, ok := score(x.codeYear, x.codeMonth, y.nameYear, y.nameMonth); ok {
			return s
		}
	}
	if y.hasCode() && x.hasName() {
		if s, ok := score(y.codeYear, y.codeMonth, x.nameYear, x.nameMonth); ok {
			return s
		}
	}
	return 0
}
