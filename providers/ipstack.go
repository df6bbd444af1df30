package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipstackResponse struct {
	Success *bool `json:"success"`
	Error   struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
	City        string      `json:"city"`
	RegionName  string      `json:"region_name"`
	RegionCode  string      `json:"region_code"`
	CountryCode string      `json:"country_code"`
	Zip         string      `json:"zip"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
}

func normalizeIPStack(body []byte) (wherelib.Evidence, bool) {
	resp := ipstackResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Error.Code != 0 {
		return wherelib.Evidence{}, false
	}

	if resp.Success != nil && !*resp.Success {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:       resp.City,
		Region:     resp.RegionName,
		RegionCode: resp.RegionCode,
		Country:    resp.CountryCode,
		Postal:     resp.Zip,
		Latitude:   resp.Latitude,
		Longitude:  resp.Longitude,
	}.evidence()
}
