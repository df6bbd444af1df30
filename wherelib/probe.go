package wherelib

import (
	"net"
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/juju/errors"
)

const (
	DefaultProbeCityRTT  = 10.0
	DefaultProbeStateRTT = 30.0

	IndicatorForeignColo      = "foreign_cf_colo"
	IndicatorSplitTunnelProxy = "split_tunnel_proxy"

	probeConfidenceCity   = 75
	probeConfidenceNearby = 60
	probeConfidenceFar    = 40
	probeConfidenceNoRTT  = 50
)

// ProbeResult is an interpretation of browser measured probe.
type ProbeResult struct {
	Evidence      *Evidence `json:"evidence,omitempty"`
	VPNIndicators []string  `json:"vpn_indicators"`
	Candidates    []string  `json:"candidates"`
	Colo          string    `json:"colo,omitempty"`
	RTTMs         *float64  `json:"rtt_ms,omitempty"`
}

// ProbeInterpreter maps edge PoP a browser has reached to a location.
// The lower RTT to PoP is, the closer browser is.
type ProbeInterpreter struct {
	cityRTT  float64
	stateRTT float64
}

// Process interprets a probe. observedIP is an address server sees for
// the same client.
func (p *ProbeInterpreter) Process(probe ProbeData, observedIP net.IP) ProbeResult {
	rv := ProbeResult{
		VPNIndicators: []string{},
		Candidates:    []string{},
		RTTMs:         probe.RTTMs,
	}

	code := strings.ToUpper(strings.TrimSpace(probe.Colo))
	if code == "" {
		return rv
	}

	rv.Colo = code

	colo, ok := gazetteer.LookupColo(code)
	if !ok {
		rv.VPNIndicators = append(rv.VPNIndicators, IndicatorForeignColo)

		return rv
	}

	if browserIP := net.ParseIP(strings.TrimSpace(probe.ObservedIP)); browserIP != nil &&
		observedIP != nil && !browserIP.Equal(observedIP) {
		rv.VPNIndicators = append(rv.VPNIndicators, IndicatorSplitTunnelProxy)
	}

	rv.Candidates = colo.Candidates
	evidence := Evidence{
		Source:  SourceNetworkProbe,
		State:   colo.State,
		Country: gazetteer.CountryCode,
	}

	evidence.SetMeta(MetaColo, code)

	switch {
	case probe.RTTMs == nil:
		evidence.Confidence = probeConfidenceNoRTT
	case *probe.RTTMs <= p.cityRTT:
		evidence.City = colo.City
		evidence.Confidence = probeConfidenceCity
	case *probe.RTTMs <= p.stateRTT:
		evidence.Confidence = probeConfidenceNearby
	default:
		evidence.Confidence = probeConfidenceFar
	}

	rv.Evidence = &evidence

	return rv
}

// NewProbeInterpreter makes a new interpreter. RTT thresholds are in
// milliseconds, zero values mean defaults.
func NewProbeInterpreter(cityRTT, stateRTT float64) (*ProbeInterpreter, error) {
	if cityRTT == 0 {
		cityRTT = DefaultProbeCityRTT
	}

	if stateRTT == 0 {
		stateRTT = DefaultProbeStateRTT
	}

	if cityRTT < 0 || stateRTT < cityRTT {
		return nil, errors.NotValidf("probe thresholds city=%v state=%v", cityRTT, stateRTT)
	}

	return &ProbeInterpreter{
		cityRTT:  cityRTT,
		stateRTT: stateRTT,
	}, nil
}
