package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

// ipgeolocation.io returns coordinates as strings.
type ipgeolocationResponse struct {
	Message      string      `json:"message"`
	City         string      `json:"city"`
	StateProv    string      `json:"state_prov"`
	StateCode    string      `json:"state_code"`
	CountryCode2 string      `json:"country_code2"`
	Zipcode      string      `json:"zipcode"`
	Latitude     json.Number `json:"latitude"`
	Longitude    json.Number `json:"longitude"`
	ISP          string      `json:"isp"`
}

func normalizeIPGeolocation(body []byte) (wherelib.Evidence, bool) {
	resp := ipgeolocationResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Message != "" {
		return wherelib.Evidence{}, false
	}

	record := vendorRecord{
		City:      resp.City,
		Region:    resp.StateProv,
		Country:   resp.CountryCode2,
		Postal:    resp.Zipcode,
		ISP:       resp.ISP,
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
	}

	// IN-KA
	if len(resp.StateCode) > 3 && resp.StateCode[2] == '-' {
		record.RegionCode = resp.StateCode[3:]
	}

	return record.evidence()
}
