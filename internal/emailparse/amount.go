package emailparse

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/money"
)

// Amount is a monetary value found in alert text.
type Amount struct {
	Minor    int64
	Currency string
}

const numberLiteral = `(?P<amt>\d[\d,]*(?:\.\d{1,2})?)`

// amountPatterns are tried in order; the first match wins. Symbol-prefixed
// INR forms come before bare dollar forms, suffix forms come last.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?P<cur>₹|\bRs\.?|\bINR)\s*` + numberLiteral),
	regexp.MustCompile(`(?P<cur>\$)\s*` + numberLiteral),
	regexp.MustCompile(`(?i)(?P<cur>\bUSD)\s*` + numberLiteral),
	regexp.MustCompile(`(?P<cur>€)\s*` + numberLiteral),
	regexp.MustCompile(`(?i)(?P<cur>\bEUR)\s*` + numberLiteral),
	regexp.MustCompile(`(?P<cur>£)\s*` + numberLiteral),
	regexp.MustCompile(`(?i)(?P<cur>\bGBP)\s*` + numberLiteral),
	regexp.MustCompile(`(?P<cur>¥)\s*` + numberLiteral),
	regexp.MustCompile(`(?i)(?P<cur>\bJPY)\s*` + numberLiteral),
	regexp.MustCompile(`(?i)` + numberLiteral + `\s*(?P<cur>₹|Rs\b\.?|INR\b)`),
	regexp.MustCompile(`(?i)` + numberLiteral + `\s*(?P<cur>USD\b)`),
}

var currencyMarkers = map[string]string{
	"₹":   "INR",
	"RS":  "INR",
	"INR": "INR",
	"$":   "USD",
	"USD": "USD",
	"€":   "EUR",
	"EUR": "EUR",
	"£":   "GBP",
	"GBP": "GBP",
	"¥":   "JPY",
	"JPY": "JPY",
}

func currencyFor(marker, fallback string) string {
	key := strings.ToUpper(strings.TrimSuffix(marker, "."))
	if code, ok := currencyMarkers[key]; ok {
		return code
	}
	return fallback
}

// extractAmount returns the first amount any pattern yields. A literal that
// fails to convert lets the next pattern have a go.
func extractAmount(text, fallback string) (Amount, bool) {
	for _, re := range amountPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		minor, err := money.ParseMinorUnits(m[re.SubexpIndex("amt")])
		if err != nil {
			continue
		}

		return Amount{
			Minor:    minor,
			Currency: currencyFor(m[re.SubexpIndex("cur")], fallback),
		}, true
	}
	return Amount{}, false
}
