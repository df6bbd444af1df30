package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ip2locationIOResponse struct {
	Error       json.RawMessage `json:"error"`
	CountryCode string          `json:"country_code"`
	RegionName  string          `json:"region_name"`
	CityName    string          `json:"city_name"`
	ZipCode     string          `json:"zip_code"`
	Latitude    json.Number     `json:"latitude"`
	Longitude   json.Number     `json:"longitude"`
	ASN         json.Number     `json:"asn"`
	AS          string          `json:"as"`
}

func normalizeIP2LocationIO(body []byte) (wherelib.Evidence, bool) {
	resp := ip2locationIOResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Error) > 0 {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:      resp.CityName,
		Region:    resp.RegionName,
		Country:   resp.CountryCode,
		Postal:    resp.ZipCode,
		ISP:       resp.AS,
		ASN:       asnString(resp.ASN),
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
	}.evidence()
}
