package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipwhoisResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	City        string      `json:"city"`
	Region      string      `json:"region"`
	RegionCode  string      `json:"region_code"`
	CountryCode string      `json:"country_code"`
	Postal      string      `json:"postal"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
	Connection  struct {
		ASN json.Number `json:"asn"`
		ISP string      `json:"isp"`
	} `json:"connection"`
}

func normalizeIPWhois(body []byte) (wherelib.Evidence, bool) {
	resp := ipwhoisResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || !resp.Success {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:       resp.City,
		Region:     resp.Region,
		RegionCode: resp.RegionCode,
		Country:    resp.CountryCode,
		Postal:     resp.Postal,
		ISP:        resp.Connection.ISP,
		ASN:        asnString(resp.Connection.ASN),
		Latitude:   resp.Latitude,
		Longitude:  resp.Longitude,
	}.evidence()
}
