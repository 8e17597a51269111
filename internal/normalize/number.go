// Package normalize turns locale-ambiguous price tokens into canonical decimals.
//
// Bulletins mix Costa Rican and US style punctuation, so "." and "," can each be
// a thousands separator or the decimal point depending on the row.
package normalize

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var currencyStripper = strings.NewReplacer("₡", "", "$", "")

// Price normalizes a price token. It never panics; anything that does not parse,
// and any negative value, yields zero.
func Price(token string) decimal.Decimal {
	cleaned := currencyStripper.Replace(strings.TrimSpace(token))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(canonical(cleaned))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// canonical rewrites cleaned so that at most one "." remains, as decimal point.
func canonical(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 1:
		last := strings.LastIndex(s, ".")
		// "1.234.567,89": dot-grouped thousands with a decimal comma
		if commas == 1 && strings.Index(s, ",") > last {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		if len(s[last+1:]) == 2 {
			return strings.ReplaceAll(s[:last], ".", "") + s[last:]
		}
		return strings.ReplaceAll(s, ".", "")
	case commas > 1:
		return strings.ReplaceAll(s, ",", "")
	case dots == 1 && commas == 1:
		if strings.Index(s, ".") > strings.Index(s, ",") {
			return strings.Replace(s, ",", "", 1)
		}
		return strings.Replace(strings.Replace(s, ".", "", 1), ",", ".", 1)
	case dots == 1:
		return singleSeparator(s, ".")
	case commas == 1:
		return singleSeparator(s, ",")
	default:
		return s
	}
}

// singleSeparator treats sep as decimal point when at most two digits follow it.
func singleSeparator(s, sep string) string {
	i := strings.Index(s, sep)
	if len(s[i+1:]) <= 2 {
		return s[:i] + "." + s[i+1:]
	}
	return s[:i] + s[i+1:]
}

// IsPlausibleNumeral reports whether token is made only of digits once currency
// glyphs, separators and whitespace are removed.
func IsPlausibleNumeral(token string) bool {
	cleaned := currencyStripper.Replace(token)
	digits := 0
	for _, r := range cleaned {
		switch {
		case r == '.' || r == ',' || unicode.IsSpace(r):
			continue
		case r >= '0' && r <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}
