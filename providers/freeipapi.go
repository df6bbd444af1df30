package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type freeipapiResponse struct {
	CityName    string      `json:"cityName"`
	RegionName  string      `json:"regionName"`
	CountryCode string      `json:"countryCode"`
	ZipCode     string      `json:"zipCode"`
	Latitude    json.Number `json:"latitude"`
	Longitude   json.Number `json:"longitude"`
}

func normalizeFreeIPAPI(body []byte) (wherelib.Evidence, bool) {
	resp := freeipapiResponse{}

	if err := json.Unmarshal(body, &resp); err != nil {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:      resp.CityName,
		Region:    resp.RegionName,
		Country:   resp.CountryCode,
		Postal:    resp.ZipCode,
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
	}.evidence()
}
