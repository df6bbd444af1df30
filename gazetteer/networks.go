package gazetteer

import (
	"regexp"
	"strings"
)

// HostnamePattern is a naming convention of some ISP. First capturing
// group of the Regexp is a city token.
type HostnamePattern struct {
	Name   string
	Regexp *regexp.Regexp
}

var hostnamePatterns = []HostnamePattern{
	{"act", regexp.MustCompile(`(?i)\.([a-z]{3,})\.(?:actcorp\.in|actfibernet\.net)$`)},
	{"hathway", regexp.MustCompile(`(?i)\.([a-z]{3,})\.hathway\.com$`)},
	{"airtel_abts", regexp.MustCompile(`(?i)^abts-([a-z]{2,})-(?:static|dynamic|fixed)-`)},
	{"airtel", regexp.MustCompile(`(?i)\.([a-z]{3,})\.airtelbroadband\.in$`)},
	{"bsnl", regexp.MustCompile(`(?i)\.([a-z]{3,})\.bsnl\.(?:in|net\.in|co\.in)$`)},
	{"jio", regexp.MustCompile(`(?i)\.([a-z]{3,})\.(?:jio|rjil)\.(?:com|net|in)$`)},
	{"tata", regexp.MustCompile(`(?i)\.([a-z]{3,})\.vsnl\.net\.in$`)},
	{"you", regexp.MustCompile(`(?i)^([a-z]{3,})-\d+-\d+-\d+-\d+\.youbroadband\.in$`)},
	{"spectra", regexp.MustCompile(`(?i)\.([a-z]{3,})\.spectranet\.in$`)},
	{"excitel", regexp.MustCompile(`(?i)\.([a-z]{3,})\.excitel\.(?:com|net|in)$`)},
	{"tikona", regexp.MustCompile(`(?i)\.([a-z]{3,})\.tikona\.in$`)},
	{"generic_static", regexp.MustCompile(`(?i)\.static\.([a-z]{3,})\.[a-z0-9-]+\.(?:in|net\.in|co\.in)$`)},
}

// HostnamePatterns returns ISP hostname conventions in the order they
// have to be tried.
func HostnamePatterns() []HostnamePattern {
	rv := make([]HostnamePattern, len(hostnamePatterns))
	copy(rv, hostnamePatterns)

	return rv
}

// Registration text of Indian ISPs encodes a telecom circle (or a city)
// as a short code. Patterns are applied to uppercased text in order.
var circlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bABTS[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\bBBIL[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\bAIRTEL[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\bBSNL[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\b(?:RJIL|JIO)[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\bVSNL[-_ ]([A-Z]{2,6})\b`),
	regexp.MustCompile(`\b([A-Z]{2,6})[-_ ]CIRCLE\b`),
	regexp.MustCompile(`\bCIRCLE[-_: ]+([A-Z]{2,6})\b`),
}

// CirclePatterns returns regular expressions used to cut circle codes
// out of uppercased registration text.
func CirclePatterns() []*regexp.Regexp {
	rv := make([]*regexp.Regexp, len(circlePatterns))
	copy(rv, circlePatterns)

	return rv
}

var circleStates = map[string]string{
	"AP":  "Andhra Pradesh",
	"AS":  "Assam",
	"BH":  "Bihar",
	"BR":  "Bihar",
	"CG":  "Chhattisgarh",
	"GJ":  "Gujarat",
	"GUJ": "Gujarat",
	"GOA": "Goa",
	"HR":  "Haryana",
	"HP":  "Himachal Pradesh",
	"JH":  "Jharkhand",
	"JK":  "Jammu and Kashmir",
	"KA":  "Karnataka",
	"KK":  "Karnataka",
	"KAR": "Karnataka",
	"KL":  "Kerala",
	"KER": "Kerala",
	"MH":  "Maharashtra",
	"MAH": "Maharashtra",
	"MP":  "Madhya Pradesh",
	"OR":  "Odisha",
	"OD":  "Odisha",
	"ORI": "Odisha",
	"PB":  "Punjab",
	"RJ":  "Rajasthan",
	"RAJ": "Rajasthan",
	"TN":  "Tamil Nadu",
	"TNU": "Tamil Nadu",
	"TS":  "Telangana",
	"TG":  "Telangana",
	"TEL": "Telangana",
	"UP":  "Uttar Pradesh",
	"UPE": "Uttar Pradesh",
	"UPW": "Uttar Pradesh",
	"UK":  "Uttarakhand",
	"UT":  "Uttarakhand",
	"WB":  "West Bengal",
}

// metro circles and city codes
var circleCities = map[string]string{
	"MU":  "Mumbai",
	"MUM": "Mumbai",
	"BOM": "Mumbai",
	"DL":  "Delhi",
	"DEL": "Delhi",
	"KO":  "Kolkata",
	"KOL": "Kolkata",
	"CAL": "Kolkata",
	"CH":  "Chennai",
	"CHN": "Chennai",
	"MAA": "Chennai",
	"BLR": "Bangalore",
	"BNG": "Bangalore",
	"BGL": "Bangalore",
	"HYD": "Hyderabad",
	"PUN": "Pune",
	"PNQ": "Pune",
	"AMD": "Ahmedabad",
	"LKO": "Lucknow",
	"JPR": "Jaipur",
	"CHD": "Chandigarh",
	"COK": "Kochi",
	"KOC": "Kochi",
}

// ResolveCircle maps a circle code to a state and, for metro codes, to
// a city. City codes win over circle codes.
func ResolveCircle(code string) (city, state string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if city, ok := circleCities[code]; ok {
		return city, cityStates[city], true
	}

	if state, ok := circleStates[code]; ok {
		return "", state, true
	}

	return "", "", false
}

// Colo is an edge network point of presence.
type Colo struct {
	Code       string
	City       string
	State      string
	Candidates []string
}

var colos = map[string]Colo{
	"AMD": {City: "Ahmedabad", State: "Gujarat", Candidates: []string{"Ahmedabad", "Gandhinagar", "Vadodara"}},
	"BBI": {City: "Bhubaneswar", State: "Odisha", Candidates: []string{"Bhubaneswar", "Cuttack"}},
	"BLR": {City: "Bangalore", State: "Karnataka", Candidates: []string{"Bangalore", "Mysore", "Hosur"}},
	"BOM": {City: "Mumbai", State: "Maharashtra", Candidates: []string{"Mumbai", "Thane", "Navi Mumbai", "Pune"}},
	"CCU": {City: "Kolkata", State: "West Bengal", Candidates: []string{"Kolkata", "Howrah", "Durgapur"}},
	"CNN": {City: "Kannur", State: "Kerala", Candidates: []string{"Kannur", "Kozhikode"}},
	"COK": {City: "Kochi", State: "Kerala", Candidates: []string{"Kochi", "Thrissur", "Kollam"}},
	"DEL": {City: "Delhi", State: "Delhi", Candidates: []string{"Delhi", "Noida", "Gurgaon", "Ghaziabad", "Faridabad"}},
	"GAU": {City: "Guwahati", State: "Assam", Candidates: []string{"Guwahati"}},
	"HYD": {City: "Hyderabad", State: "Telangana", Candidates: []string{"Hyderabad", "Warangal"}},
	"IXC": {City: "Chandigarh", State: "Chandigarh", Candidates: []string{"Chandigarh", "Mohali", "Ambala"}},
	"KNU": {City: "Kanpur", State: "Uttar Pradesh", Candidates: []string{"Kanpur", "Lucknow"}},
	"MAA": {City: "Chennai", State: "Tamil Nadu", Candidates: []string{"Chennai", "Vellore", "Puducherry"}},
	"NAG": {City: "Nagpur", State: "Maharashtra", Candidates: []string{"Nagpur", "Amravati"}},
	"PAT": {City: "Patna", State: "Bihar", Candidates: []string{"Patna", "Gaya"}},
	"TRV": {City: "Thiruvananthapuram", State: "Kerala", Candidates: []string{"Thiruvananthapuram", "Kollam"}},
}

// LookupColo returns a point of presence by its IATA-like code.
func LookupColo(code string) (Colo, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	colo, ok := colos[code]
	if !ok {
		return Colo{}, false
	}

	colo.Code = code
	colo.Candidates = append([]string(nil), colo.Candidates...)

	return colo, true
}
