package gateway

import "strings"

// ISO 4217 numeric codes for the alphabetic currency codes the gateway is
// deployed with. Callbacks may carry either form; hashing always uses the
// numeric code when the alphabetic lookup succeeds.
var iso4217Numeric = map[string]string{
	"AUD": "036",
	"CAD": "124",
	"CHF": "756",
	"CNY": "156",
	"CZK": "203",
	"DKK": "208",
	"EUR": "978",
	"GBP": "826",
	"HKD": "344",
	"HUF": "348",
	"ISK": "352",
	"JPY": "392",
	"LTL": "440",
	"LVL": "428",
	"NOK": "578",
	"NZD": "554",
	"PLN": "985",
	"RON": "946",
	"RUB": "643",
	"SEK": "752",
	"SGD": "702",
	"THB": "764",
	"TRY": "949",
	"USD": "840",
	"ZAR": "710",
}

// NumericCurrencyCode translates an alphabetic ISO 4217 code to its numeric
// code. Codes that are not known, including ones already numeric, report
// false and are used as-is by callers.
func NumericCurrencyCode(code string) (string, bool) {
	numeric, ok := iso4217Numeric[strings.ToUpper(strings.TrimSpace(code))]
	return numeric, ok
}
