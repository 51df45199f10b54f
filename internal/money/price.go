// Package money turns scraped price strings into integer minor units.
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is an amount in cents together with its ISO currency code.
type Price struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency,omitempty"`
}

var (
	numberPattern = regexp.MustCompile(`\d[\d\s\x{00A0}\x{202F}.,']*\d|\d`)
	codePattern   = regexp.MustCompile(`(?i)\b(EUR|USD|GBP|CNY|INR|JPY)\b`)
)

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"¥": "CNY",
	"₹": "INR",
}

// ParsePriceText parses strings such as "49,99 €", "US $1,299.00" or
// "12.50 EUR". Ranges resolve to their first amount. It reports false when
// no positive amount can be read.
func ParsePriceText(text string) (Price, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Price{}, false
	}

	raw := numberPattern.FindString(text)
	if raw == "" {
		return Price{}, false
	}

	amount, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return Price{}, false
	}

	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents <= 0 {
		return Price{}, false
	}

	return Price{Cents: cents, Currency: detectCurrency(text)}, true
}

// ParseCents is ParsePriceText without the currency.
func ParseCents(text string) (int64, bool) {
	p, ok := ParsePriceText(text)
	return p.Cents, ok
}

// FormatCents renders cents as a plain decimal string ("4999" -> "49.99").
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func detectCurrency(text string) string {
	if m := codePattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	for symbol, code := range currencySymbols {
		if strings.Contains(text, symbol) {
			return code
		}
	}
	return ""
}

// normalizeNumber rewrites a localized number into "1234.56" form.
func normalizeNumber(raw string) string {
	s := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(raw)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".")
	}

	return s
}

// resolveSingleSeparator decides whether sep is a decimal mark or a
// thousands separator. A single occurrence followed by one or two digits is
// a decimal mark; anything else groups thousands.
func resolveSingleSeparator(s, sep string) string {
	if strings.Count(s, sep) == 1 {
		idx := strings.Index(s, sep)
		if digits := len(s) - idx - 1; digits == 1 || digits == 2 {
			return strings.Replace(s, sep, ".", 1)
		}
	}
	return strings.ReplaceAll(s, sep, "")
}
