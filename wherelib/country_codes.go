package wherelib

import (
	"strings"

	"github.com/pariz/gountries"
)

var countryCodeQuery = gountries.New()

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Vendors use ZZ or XX for unknown countries, Cloudflare uses T1 for
// Tor. All of them are mapped to empty string.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "XX", "T1", "AP", "EU", "A1", "A2", "O1":
		return ""
	case "UK":
		return "GB"
	default:
		return alpha2
	}
}

// NormalizeCountryCode maps alpha-2, alpha-3 codes and country names to
// alpha-2 code. Unknown values are mapped to empty string.
func NormalizeCountryCode(value string) string {
	value = strings.TrimSpace(value)

	switch len(value) {
	case 0:
		return ""
	case 2:
		return NormalizeAlpha2Code(value)
	case 3:
		if country, err := countryCodeQuery.FindCountryByAlpha(value); err == nil {
			return NormalizeAlpha2Code(country.Alpha2)
		}
	}

	if country, err := countryCodeQuery.FindCountryByName(value); err == nil {
		return NormalizeAlpha2Code(country.Alpha2)
	}

	return ""
}
