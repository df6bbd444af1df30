package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipapiCoResponse struct {
	Error       bool        `json:"error"`
	Reason      string      `json:"reason"`
	City        string      `json:"city"`
	Region      string      `json:"region"`
	RegionCode  string      `json:"region_code"`
	CountryCode string      `json:"country_code"`
	Postal      string      `json:"postal"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
	ASN         string      `json:"asn"`
	Org         string      `json:"org"`
}

func normalizeIPAPICo(body []byte) (wherelib.Evidence, bool) {
	resp := ipapiCoResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Error {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:       resp.City,
		Region:     resp.Region,
		RegionCode: resp.RegionCode,
		Country:    resp.CountryCode,
		Postal:     resp.Postal,
		ISP:        resp.Org,
		ASN:        resp.ASN,
		Latitude:   resp.Latitude,
		Longitude:  resp.Longitude,
	}.evidence()
}
