package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type keycdnResponse struct {
	Status string `json:"status"`
	Data   struct {
		Geo struct {
			City        string      `json:"city"`
			RegionName  string      `json:"region_name"`
			RegionCode  string      `json:"region_code"`
			CountryCode string      `json:"country_code"`
			PostalCode  string      `json:"postal_code"`
			Latitude    json.Number `json:"latitude"`
			Longitude   json.Number `json:"longitude"`
			ASN         json.Number `json:"asn"`
			ISP         string      `json:"isp"`
		} `json:"geo"`
	} `json:"data"`
}

func normalizeKeyCDN(body []byte) (wherelib.Evidence, bool) {
	resp := keycdnResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Status != "success" {
		return wherelib.Evidence{}, false
	}

	geo := resp.Data.Geo

	return vendorRecord{
		City:       geo.City,
		Region:     geo.RegionName,
		RegionCode: geo.RegionCode,
		Country:    geo.CountryCode,
		Postal:     geo.PostalCode,
		ISP:        geo.ISP,
		ASN:        asnString(geo.ASN),
		Latitude:   geo.Latitude,
		Longitude:  geo.Longitude,
	}.evidence()
}
