package wherelib

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

const (
	IndicatorDatacenterASN  = "datacenter_asn"
	IndicatorVPNHostname    = "vpn_hostname"
	IndicatorHostingKeyword = "hosting_keyword"
	IndicatorPrivateIP      = "private_ip"

	vpnScoreDatacenterASN  = 40
	vpnScoreVPNHostname    = 50
	vpnScoreHostingKeyword = 25
	vpnScorePrivateIP      = 20

	vpnThreshold     = 50
	vpnMaxConfidence = 95
	vpnMinConfidence = 5
)

// cloud, hosting and VPN operators
var defaultDatacenterASNs = []uint32{
	16509,  // Amazon
	14618,  // Amazon
	15169,  // Google
	396982, // Google Cloud
	8075,   // Microsoft
	14061,  // DigitalOcean
	63949,  // Linode
	16276,  // OVH
	24940,  // Hetzner
	20473,  // Vultr
	9009,   // M247
	51167,  // Contabo
	60781,  // Leaseweb
	28753,  // Leaseweb
	13335,  // Cloudflare
	212238, // Datacamp
	136787, // TEFINCOM (NordVPN)
	45102,  // Alibaba
}

var (
	vpnSubstrings = []string{
		"vpn", "proxy", "mullvad", "surfshark", "windscribe", "ipvanish",
		"cyberghost", "hidemyass", "torguard", "privateinternetaccess",
	}
	vpnTokens = map[string]bool{
		"tor":   true,
		"exit":  true,
		"relay": true,
		"anon":  true,
	}
	hostingKeywords = []string{
		"hosting", "server", "cloud", "datacenter", "data-center",
		"dedicated", "vps", "colo", "amazonaws", "googleusercontent",
		"digitalocean", "linode", "ovh", "hetzner", "vultr", "contabo",
		"leaseweb", "azure", "choopa", "m247",
	}

	vpnTokenSeparator = regexp.MustCompile(`[^a-z0-9]+`)
	vpnASNNumber      = regexp.MustCompile(`(?i)^\s*(?:AS)?\s*(\d+)`)

	reservedNetworks = func() []*net.IPNet {
		cidrs := []string{
			"100.64.0.0/10",
			"192.0.0.0/24",
			"192.0.2.0/24",
			"198.18.0.0/15",
			"198.51.100.0/24",
			"203.0.113.0/24",
			"240.0.0.0/4",
			"2001:db8::/32",
		}
		rv := make([]*net.IPNet, 0, len(cidrs))

		for _, v := range cidrs {
			_, network, err := net.ParseCIDR(v)
			if err != nil {
				panic(err)
			}

			rv = append(rv, network)
		}

		return rv
	}()
)

// VPNScorer is an additive heuristic which estimates if a connection
// goes through VPN or proxy.
type VPNScorer struct {
	datacenterASNs map[uint32]bool
	trusted        bool
}

// Detect scores an IP. asn is a free-form string like 'AS16509
// Amazon.com, Inc.'; asn and hostname may be empty.
func (v *VPNScorer) Detect(ip net.IP, asn, hostname string) VPNAssessment {
	rv := VPNAssessment{
		Indicators: []string{},
	}
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	asnLower := strings.ToLower(asn)

	if number, ok := parseASN(asn); ok && v.datacenterASNs[number] {
		rv.Score += vpnScoreDatacenterASN
		rv.Indicators = append(rv.Indicators, IndicatorDatacenterASN)
	}

	if hasVPNKeyword(hostname) {
		rv.Score += vpnScoreVPNHostname
		rv.Indicators = append(rv.Indicators, IndicatorVPNHostname)
	}

	if hasAnySubstring(hostname, hostingKeywords) || hasAnySubstring(asnLower, hostingKeywords) {
		rv.Score += vpnScoreHostingKeyword
		rv.Indicators = append(rv.Indicators, IndicatorHostingKeyword)
	}

	if !v.trusted && isReservedIP(ip) {
		rv.Score += vpnScorePrivateIP
		rv.Indicators = append(rv.Indicators, IndicatorPrivateIP)
	}

	rv.IsVPN = rv.Score >= vpnThreshold

	if rv.IsVPN {
		rv.Confidence = rv.Score
		if rv.Confidence > vpnMaxConfidence {
			rv.Confidence = vpnMaxConfidence
		}
	} else {
		rv.Confidence = 100 - rv.Score
		if rv.Confidence < vpnMinConfidence {
			rv.Confidence = vpnMinConfidence
		}
	}

	return rv
}

func parseASN(asn string) (uint32, bool) {
	groups := vpnASNNumber.FindStringSubmatch(asn)
	if groups == nil {
		return 0, false
	}

	number, err := strconv.ParseUint(groups[1], 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(number), true
}

func hasVPNKeyword(hostname string) bool {
	if hostname == "" {
		return false
	}

	if hasAnySubstring(hostname, vpnSubstrings) {
		return true
	}

	for _, token := range vpnTokenSeparator.Split(hostname, -1) {
		if vpnTokens[token] {
			return true
		}
	}

	return false
}

func hasAnySubstring(value string, needles []string) bool {
	if value == "" {
		return false
	}

	for _, v := range needles {
		if strings.Contains(value, v) {
			return true
		}
	}

	return false
}

func isReservedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}

	if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}

	for _, v := range reservedNetworks {
		if v.Contains(ip) {
			return true
		}
	}

	return false
}

// NewVPNScorer makes a new scorer. If trusted is set, private and
// reserved addresses are not penalized: this is for local and test
// environments. extraASNs extend a built-in list of datacenter ASNs.
func NewVPNScorer(trusted bool, extraASNs ...uint32) *VPNScorer {
	rv := &VPNScorer{
		datacenterASNs: map[uint32]bool{},
		trusted:        trusted,
	}

	for _, v := range defaultDatacenterASNs {
		rv.datacenterASNs[v] = true
	}

	for _, v := range extraASNs {
		rv.datacenterASNs[v] = true
	}

	return rv
}
