package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipdataResponse struct {
	Message     string      `json:"message"`
	City        string      `json:"city"`
	Region      string      `json:"region"`
	RegionCode  string      `json:"region_code"`
	CountryCode string      `json:"country_code"`
	Postal      string      `json:"postal"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
	ASN         struct {
		ASN  string `json:"asn"`
		Name string `json:"name"`
	} `json:"asn"`
}

func normalizeIPData(body []byte) (wherelib.Evidence, bool) {
	resp := ipdataResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Message != "" {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:       resp.City,
		Region:     resp.Region,
		RegionCode: resp.RegionCode,
		Country:    resp.CountryCode,
		Postal:     resp.Postal,
		ISP:        resp.ASN.Name,
		ASN:        resp.ASN.ASN,
		Latitude:   resp.Latitude,
		Longitude:  resp.Longitude,
	}.evidence()
}
