package providers

import (
	"encoding/json"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipapiComResponse struct {
	Status      string      `json:"status"`
	Message     string      `json:"message"`
	CountryCode string      `json:"countryCode"`
	Region      string      `json:"region"`
	RegionName  string      `json:"regionName"`
	City        string      `json:"city"`
	Zip         string      `json:"zip"`
	Lat         json.Number `json:"lat"`
	Lon         json.Number `json:"lon"`
	ISP         string      `json:"isp"`
	AS          string      `json:"as"`
}

// ip-api.com free tier works over plain HTTP only and reports errors
// with status=fail and 200 OK.
func normalizeIPAPICom(body []byte) (wherelib.Evidence, bool) {
	resp := ipapiComResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Status != "success" {
		return wherelib.Evidence{}, false
	}

	asn, _ := splitOrg(resp.AS)

	return vendorRecord{
		City:       resp.City,
		Region:     resp.RegionName,
		RegionCode: resp.Region,
		Country:    resp.CountryCode,
		Postal:     resp.Zip,
		ISP:        resp.ISP,
		ASN:        asn,
		Latitude:   resp.Lat,
		Longitude:  resp.Lon,
	}.evidence()
}
