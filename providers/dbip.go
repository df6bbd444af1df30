package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

// Free API of DB-IP has no coordinates.
type dbipResponse struct {
	Error       string `json:"error"`
	CountryCode string `json:"countryCode"`
	StateProv   string `json:"stateProv"`
	City        string `json:"city"`
}

func normalizeDBIP(body []byte) (wherelib.Evidence, bool) {
	resp := dbipResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Error != "" {
		return wherelib.Evidence{}, false
	}

	return vendorRecord{
		City:    resp.City,
		Region:  resp.StateProv,
		Country: resp.CountryCode,
	}.evidence()
}
