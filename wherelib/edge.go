package wherelib

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
)

const (
	HeaderEdgeCity       = "CF-IPCity"
	HeaderEdgeRegion     = "CF-Region"
	HeaderEdgeRegionCode = "CF-Region-Code"
	HeaderEdgeCountry    = "CF-IPCountry"
	HeaderEdgeLatitude   = "CF-IPLatitude"
	HeaderEdgeLongitude  = "CF-IPLongitude"

	edgeConfidenceCity   = 88
	edgeConfidenceRegion = 70
)

// EdgeGeo is a geolocation edge network attached to a request.
type EdgeGeo struct {
	City       string   `json:"city,omitempty"`
	Region     string   `json:"region,omitempty"`
	RegionCode string   `json:"region_code,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// EdgeGeoFromHeaders reads Cloudflare geolocation headers.
func EdgeGeoFromHeaders(headers http.Header) EdgeGeo {
	rv := EdgeGeo{
		City:       strings.TrimSpace(headers.Get(HeaderEdgeCity)),
		Region:     strings.TrimSpace(headers.Get(HeaderEdgeRegion)),
		RegionCode: strings.TrimSpace(headers.Get(HeaderEdgeRegionCode)),
		Country:    strings.TrimSpace(headers.Get(HeaderEdgeCountry)),
	}

	lat, errLat := strconv.ParseFloat(strings.TrimSpace(headers.Get(HeaderEdgeLatitude)), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(headers.Get(HeaderEdgeLongitude)), 64)

	if errLat == nil && errLon == nil {
		rv.Latitude = &lat
		rv.Longitude = &lon
	}

	return rv
}

func (e EdgeGeo) evidence() (Evidence, bool) {
	rv := Evidence{
		Source: SourceEdgeHeaders,
		City:   gazetteer.NormalizeCity(e.City),
		State:  gazetteer.NormalizeState(e.Region),
	}

	if rv.State == "" {
		rv.State = gazetteer.NormalizeState(e.RegionCode)
	}

	if rv.State == "" && rv.City != "" {
		rv.State, _ = gazetteer.CityState(rv.City)
	}

	switch {
	case rv.City != "":
		rv.Confidence = edgeConfidenceCity
	case rv.State != "":
		rv.Confidence = edgeConfidenceRegion
	default:
		return Evidence{}, false
	}

	rv.Country = NormalizeCountryCode(e.Country)
	if rv.Country == "" && gazetteer.IsKnownState(rv.State) {
		rv.Country = gazetteer.CountryCode
	}

	if e.Latitude != nil && e.Longitude != nil {
		rv.SetCoordinates(*e.Latitude, *e.Longitude)
	}

	return rv, true
}
