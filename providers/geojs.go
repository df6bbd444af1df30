package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type geojsResponse struct {
	City             string      `json:"city"`
	Region           string      `json:"region"`
	CountryCode      string      `json:"country_code"`
	Latitude         json.Number `json:"latitude"`
	Longitude        json.Number `json:"longitude"`
	OrganizationName string      `json:"organization_name"`
	ASN              json.Number `json:"asn"`
}

func normalizeGeoJS(body []byte) (wherelib.Evidence, bool) {
	resp := geojsResponse{}

	if err := json.Unmarshal(body, &resp); err != nil {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:      resp.City,
		Region:    resp.Region,
		Country:   resp.CountryCode,
		ISP:       resp.OrganizationName,
		ASN:       asnString(resp.ASN),
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
	}.evidence()
}
