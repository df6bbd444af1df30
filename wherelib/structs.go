package wherelib

import (
	"net"
	"net/netip"
	"time"
)

// Source is a name of evidence producer.
type Source string

const (
	SourceNone         Source = "none"
	SourceEdgeHeaders  Source = "edge_headers"
	SourceLanguage     Source = "language"
	SourceFont         Source = "font"
	SourceLocalGeoIP   Source = "local_geoip"
	SourceReverseDNS   Source = "reverse_dns"
	SourceRDAP         Source = "rdap"
	SourceNetworkProbe Source = "network_probe"
	SourceLearnedRange Source = "learned_range"
	SourceEnsemble     Source = "ensemble"
)

// Well-known keys of Evidence.Meta.
const (
	MetaISP         = "isp"
	MetaASN         = "asn"
	MetaPostal      = "postal"
	MetaHostname    = "hostname"
	MetaPattern     = "pattern"
	MetaColo        = "colo"
	MetaLanguage    = "language"
	MetaNetworkName = "network_name"
	MetaCircle      = "circle"
	MetaCIDR        = "cidr"
)

// Evidence is a location claim of a single source.
//
// If City is set, the source believes it observed a city directly, not
// just a candidate. StatesAlt lists other plausible states for sources
// which only narrow location to a region.
type Evidence struct {
	Source     Source            `json:"source"`
	City       string            `json:"city,omitempty"`
	State      string            `json:"state,omitempty"`
	StatesAlt  []string          `json:"states_alt,omitempty"`
	Country    string            `json:"country,omitempty"`
	Confidence int               `json:"confidence"`
	Weight     float64           `json:"weight"`
	Latitude   *float64          `json:"latitude,omitempty"`
	Longitude  *float64          `json:"longitude,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// HasCoordinates checks if both latitude and longitude are set.
func (e *Evidence) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// SetCoordinates sets both coordinates at once.
func (e *Evidence) SetCoordinates(lat, lon float64) {
	e.Latitude = &lat
	e.Longitude = &lon
}

// SetMeta sets meta value if it is not empty.
func (e *Evidence) SetMeta(key, value string) {
	if value == "" {
		return
	}

	if e.Meta == nil {
		e.Meta = map[string]string{}
	}

	e.Meta[key] = value
}

// Signals are passive client signals collected by a caller.
type Signals struct {
	Edge      EdgeGeo    `json:"edge"`
	Languages []string   `json:"languages,omitempty"`
	Fonts     []string   `json:"fonts,omitempty"`
	Probe     *ProbeData `json:"probe,omitempty"`
	ASN       string     `json:"asn,omitempty"`
	Hostname  string     `json:"hostname,omitempty"`
}

// ProbeData is measured by a browser: a code of edge PoP it reached,
// round trip time to it and the address edge saw.
type ProbeData struct {
	Colo       string   `json:"colo"`
	RTTMs      *float64 `json:"rtt_ms,omitempty"`
	ObservedIP string   `json:"observed_ip,omitempty"`
}

// Alternative is a city candidate with its vote share in percents.
type Alternative struct {
	City        string  `json:"city"`
	Probability float64 `json:"probability"`
}

// Telemetry describes how a prediction was made.
type Telemetry struct {
	StateDisagreementCount int    `json:"state_disagreement_count"`
	CityDisagreementCount  int    `json:"city_disagreement_count"`
	FallbackReason         string `json:"fallback_reason,omitempty"`
	ConfidenceBucket       string `json:"confidence_bucket"`
}

// LocationPrediction is a result of inference.
type LocationPrediction struct {
	IP            net.IP        `json:"ip"`
	City          string        `json:"city,omitempty"`
	State         string        `json:"state,omitempty"`
	Country       string        `json:"country,omitempty"`
	Confidence    int           `json:"confidence"`
	Method        Source        `json:"method"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	ASN           string        `json:"asn,omitempty"`
	ISP           string        `json:"isp,omitempty"`
	Alternatives  []Alternative `json:"alternatives"`
	Telemetry     Telemetry     `json:"telemetry"`
	VPNIndicators []string      `json:"vpn_indicators,omitempty"`
	Evidence      []Evidence    `json:"evidence"`
}

// GeoRecord is a result of local database lookup.
type GeoRecord struct {
	City      string
	State     string
	Country   string
	Postal    string
	ISP       string
	ASN       string
	Latitude  *float64
	Longitude *float64
}

// ConsensusResult is an outcome of ensemble lookup.
type ConsensusResult struct {
	City           string        `json:"city,omitempty"`
	State          string        `json:"state,omitempty"`
	Country        string        `json:"country,omitempty"`
	Confidence     int           `json:"confidence"`
	Latitude       *float64      `json:"latitude,omitempty"`
	Longitude      *float64      `json:"longitude,omitempty"`
	ISP            string        `json:"isp,omitempty"`
	ASN            string        `json:"asn,omitempty"`
	Postal         string        `json:"postal,omitempty"`
	AgreementCount int           `json:"agreement_count"`
	ClusterWeight  float64       `json:"cluster_weight"`
	TotalWeight    float64       `json:"total_weight"`
	Responded      int           `json:"responded"`
	Alternatives   []Alternative `json:"alternatives,omitempty"`
	Sources        []string      `json:"sources,omitempty"`
}

// Empty checks if consensus has nothing to say.
func (c ConsensusResult) Empty() bool {
	return c.City == "" && c.State == "" && c.Country == ""
}

// LearnedIPRange is a range to city mapping reinforced by confident
// detections.
type LearnedIPRange struct {
	CIDR              netip.Prefix `json:"cidr"`
	LearnedCity       string       `json:"learned_city"`
	LearnedState      string       `json:"learned_state,omitempty"`
	SampleCount       int          `json:"sample_count"`
	SuccessRate       float64      `json:"success_rate"`
	AverageConfidence float64      `json:"average_confidence"`
	PrimaryISP        string       `json:"primary_isp,omitempty"`
	PrimaryASN        string       `json:"primary_asn,omitempty"`
	FirstSeen         time.Time    `json:"first_seen"`
	LastSeen          time.Time    `json:"last_seen"`
	IsActive          bool         `json:"is_active"`
}

// Detection is a record learning store learns from.
//
// Verified must be set only if a label was confirmed by something
// external to this engine (user confirmation, billing address etc).
type Detection struct {
	IP         net.IP `json:"ip"`
	City       string `json:"city"`
	State      string `json:"state"`
	Confidence int    `json:"confidence"`
	ISP        string `json:"isp"`
	ASN        string `json:"asn"`
	Verified   bool   `json:"verified"`
}

// VPNAssessment is a result of VPN scoring.
type VPNAssessment struct {
	IsVPN      bool     `json:"is_vpn"`
	Confidence int      `json:"confidence"`
	Score      int      `json:"score"`
	Indicators []string `json:"indicators"`
}
