package providers

import (
	"encoding/json"
	"strings"

	"github.com/9seconds/whereabouts/wherelib"
)

type ipinfoResponse struct {
	Bogon   bool            `json:"bogon"`
	Error   json.RawMessage `json:"error"`
	City    string          `json:"city"`
	Region  string          `json:"region"`
	Country string          `json:"country"`
	Loc     string          `json:"loc"`
	Org     string          `json:"org"`
	Postal  string          `json:"postal"`
}

func normalizeIPInfo(body []byte) (wherelib.Evidence, bool) {
	resp := ipinfoResponse{}

	if err := json.Unmarshal(body, &resp); err != nil || resp.Bogon || len(resp.Error) > 0 {
		return wherelib.Evidence{}, false
	}

	record := vendorRecord{
		City:    resp.City,
		Region:  resp.Region,
		Country: resp.Country,
		Postal:  resp.Postal,
	}
	record.ASN, record.ISP = splitOrg(resp.Org)

	if chunks := strings.SplitN(resp.Loc, ",", 2); len(chunks) == 2 {
		record.Latitude = json.Number(strings.TrimSpace(chunks[0]))
		record.Longitude = json.Number(strings.TrimSpace(chunks[1]))
	}

	return record.evidence()
}
