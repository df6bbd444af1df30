package providers

import (
	"encoding/json"
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/9seconds/whereabouts/wherelib"
)

// vendorRecord is a common denominator of vendor responses.
type vendorRecord struct {
	City       string
	Region     string
	RegionCode string
	Country    string
	Postal     string
	ISP        string
	ASN        string
	Latitude   json.Number
	Longitude  json.Number
}

func (r vendorRecord) evidence() (wherelib.Evidence, bool) {
	rv := wherelib.Evidence{
		City:    cleanValue(r.City),
		State:   cleanValue(r.Region),
		Country: wherelib.NormalizeCountryCode(cleanValue(r.Country)),
	}

	// subdivision codes are ambiguous outside of the gazetteer country
	if rv.State == "" && (rv.Country == "" || rv.Country == gazetteer.CountryCode) {
		if state := gazetteer.NormalizeState(cleanValue(r.RegionCode)); gazetteer.IsKnownState(state) {
			rv.State = state
		}
	}

	if rv.City == "" && rv.State == "" && rv.Country == "" {
		return wherelib.Evidence{}, false
	}

	if lat, lon, ok := parseCoordinates(r.Latitude, r.Longitude); ok {
		rv.SetCoordinates(lat, lon)
	}

	rv.SetMeta(wherelib.MetaISP, cleanValue(r.ISP))
	rv.SetMeta(wherelib.MetaASN, cleanValue(r.ASN))
	rv.SetMeta(wherelib.MetaPostal, cleanValue(r.Postal))

	return rv, true
}

func cleanValue(value string) string {
	value = strings.TrimSpace(value)

	switch strings.ToLower(value) {
	case "-", "n/a", "na", "unknown", "null", "none":
		return ""
	}

	if strings.Contains(value, "unavailable") {
		return ""
	}

	return value
}

func parseCoordinates(lat, lon json.Number) (float64, float64, bool) {
	latitude, err := lat.Float64()
	if err != nil {
		return 0, 0, false
	}

	longitude, err := lon.Float64()
	if err != nil {
		return 0, 0, false
	}

	switch {
	case latitude == 0 && longitude == 0:
		return 0, 0, false
	case latitude < -90 || latitude > 90:
		return 0, 0, false
	case longitude < -180 || longitude > 180:
		return 0, 0, false
	}

	return latitude, longitude, true
}

func asnString(number json.Number) string {
	if number == "" || number == "0" {
		return ""
	}

	value := string(number)
	if !strings.HasPrefix(strings.ToUpper(value), "AS") {
		value = "AS" + value
	}

	return value
}

// splitOrg cuts 'AS24560 Bharti Airtel Ltd.' into ASN and ISP name.
func splitOrg(org string) (string, string) {
	org = strings.TrimSpace(org)

	if !strings.HasPrefix(strings.ToUpper(org), "AS") {
		return "", org
	}

	chunks := strings.SplitN(org, " ", 2)
	if len(chunks) == 1 {
		return chunks[0], ""
	}

	return chunks[0], strings.TrimSpace(chunks[1])
}
