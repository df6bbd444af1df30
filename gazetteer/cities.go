package gazetteer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"github.com/xrash/smetrics"
)

const (
	// minimal length of the token for a prefix match against the alias
	// table. Shorter tokens are too ambiguous.
	minPrefixTokenLength = 3

	// minimal length of the name which is allowed to be snapped to the
	// closest known city.
	minSnapLength = 5

	snapStrictThreshold   = 0.95
	snapPhoneticThreshold = 0.9
)

// canonical city name -> state
var cityStates = map[string]string{
	"Mumbai":      "Maharashtra",
	"Navi Mumbai": "Maharashtra",
	"Thane":       "Maharashtra",
	"Pune":        "Maharashtra",
	"Nagpur":      "Maharashtra",
	"Nashik":      "Maharashtra",
	"Aurangabad":  "Maharashtra",
	"Solapur":     "Maharashtra",
	"Kolhapur":    "Maharashtra",
	"Amravati":    "Maharashtra",

	"Bangalore":  "Karnataka",
	"Mysore":     "Karnataka",
	"Mangalore":  "Karnataka",
	"Hubli":      "Karnataka",
	"Belgaum":    "Karnataka",
	"Davanagere": "Karnataka",
	"Shimoga":    "Karnataka",
	"Udupi":      "Karnataka",

	"Chennai":         "Tamil Nadu",
	"Coimbatore":      "Tamil Nadu",
	"Madurai":         "Tamil Nadu",
	"Tiruchirappalli": "Tamil Nadu",
	"Salem":           "Tamil Nadu",
	"Tirunelveli":     "Tamil Nadu",
	"Vellore":         "Tamil Nadu",
	"Erode":           "Tamil Nadu",
	"Hosur":           "Tamil Nadu",

	"Hyderabad":  "Telangana",
	"Warangal":   "Telangana",
	"Karimnagar": "Telangana",

	"Visakhapatnam": "Andhra Pradesh",
	"Vijayawada":    "Andhra Pradesh",
	"Guntur":        "Andhra Pradesh",
	"Nellore":       "Andhra Pradesh",
	"Tirupati":      "Andhra Pradesh",
	"Kurnool":       "Andhra Pradesh",

	"Kochi":              "Kerala",
	"Thiruvananthapuram": "Kerala",
	"Kozhikode":          "Kerala",
	"Thrissur":           "Kerala",
	"Kollam":             "Kerala",
	"Kannur":             "Kerala",

	"Kolkata":  "West Bengal",
	"Howrah":   "West Bengal",
	"Durgapur": "West Bengal",
	"Asansol":  "West Bengal",
	"Siliguri": "West Bengal",

	"Delhi": "Delhi",

	"Lucknow":   "Uttar Pradesh",
	"Kanpur":    "Uttar Pradesh",
	"Noida":     "Uttar Pradesh",
	"Ghaziabad": "Uttar Pradesh",
	"Agra":      "Uttar Pradesh",
	"Varanasi":  "Uttar Pradesh",
	"Prayagraj": "Uttar Pradesh",
	"Meerut":    "Uttar Pradesh",
	"Bareilly":  "Uttar Pradesh",
	"Aligarh":   "Uttar Pradesh",
	"Gorakhpur": "Uttar Pradesh",

	"Gurgaon":   "Haryana",
	"Faridabad": "Haryana",
	"Panipat":   "Haryana",
	"Ambala":    "Haryana",
	"Hisar":     "Haryana",

	"Ahmedabad":   "Gujarat",
	"Surat":       "Gujarat",
	"Vadodara":    "Gujarat",
	"Rajkot":      "Gujarat",
	"Gandhinagar": "Gujarat",
	"Bhavnagar":   "Gujarat",
	"Jamnagar":    "Gujarat",

	"Jaipur":  "Rajasthan",
	"Jodhpur": "Rajasthan",
	"Udaipur": "Rajasthan",
	"Kota":    "Rajasthan",
	"Ajmer":   "Rajasthan",
	"Bikaner": "Rajasthan",

	"Bhopal":   "Madhya Pradesh",
	"Indore":   "Madhya Pradesh",
	"Gwalior":  "Madhya Pradesh",
	"Jabalpur": "Madhya Pradesh",
	"Ujjain":   "Madhya Pradesh",

	"Ludhiana":  "Punjab",
	"Amritsar":  "Punjab",
	"Jalandhar": "Punjab",
	"Patiala":   "Punjab",
	"Mohali":    "Punjab",

	"Chandigarh": "Chandigarh",

	"Patna":       "Bihar",
	"Gaya":        "Bihar",
	"Bhagalpur":   "Bihar",
	"Muzaffarpur": "Bihar",

	"Ranchi":     "Jharkhand",
	"Jamshedpur": "Jharkhand",
	"Dhanbad":    "Jharkhand",

	"Bhubaneswar": "Odisha",
	"Cuttack":     "Odisha",
	"Rourkela":    "Odisha",

	"Guwahati":  "Assam",
	"Dibrugarh": "Assam",
	"Silchar":   "Assam",

	"Raipur":   "Chhattisgarh",
	"Bhilai":   "Chhattisgarh",
	"Bilaspur": "Chhattisgarh",

	"Dehradun": "Uttarakhand",
	"Haridwar": "Uttarakhand",

	"Shimla": "Himachal Pradesh",

	"Srinagar": "Jammu and Kashmir",
	"Jammu":    "Jammu and Kashmir",

	"Panaji": "Goa",
	"Margao": "Goa",

	"Puducherry": "Puducherry",
}

// lowercased alias -> canonical city name. Contains colonial names,
// local spellings and abbreviations ISPs use in hostnames.
var cityAliases = map[string]string{
	"bengaluru":       "Bangalore",
	"bangaluru":       "Bangalore",
	"bengalooru":      "Bangalore",
	"bengaluru urban": "Bangalore",
	"blr":             "Bangalore",
	"bng":             "Bangalore",
	"bgl":             "Bangalore",

	"bombay":                    "Mumbai",
	"mumbai suburban":           "Mumbai",
	"bom":                       "Mumbai",
	"new bombay":                "Navi Mumbai",
	"thana":                     "Thane",
	"poona":                     "Pune",
	"pnq":                       "Pune",
	"nasik":                     "Nashik",
	"sholapur":                  "Solapur",
	"chhatrapati sambhajinagar": "Aurangabad",

	"mysuru":     "Mysore",
	"mangaluru":  "Mangalore",
	"hubballi":   "Hubli",
	"belagavi":   "Belgaum",
	"shivamogga": "Shimoga",
	"davangere":  "Davanagere",

	"madras":  "Chennai",
	"chn":     "Chennai",
	"maa":     "Chennai",
	"trichy":  "Tiruchirappalli",
	"tiruchi": "Tiruchirappalli",

	"secunderabad": "Hyderabad",
	"cyberabad":    "Hyderabad",
	"hyd":          "Hyderabad",

	"vizag":          "Visakhapatnam",
	"vishakhapatnam": "Visakhapatnam",
	"waltair":        "Visakhapatnam",
	"bezawada":       "Vijayawada",

	"cochin":     "Kochi",
	"ernakulam":  "Kochi",
	"cok":        "Kochi",
	"trivandrum": "Thiruvananthapuram",
	"tvm":        "Thiruvananthapuram",
	"calicut":    "Kozhikode",
	"trichur":    "Thrissur",
	"quilon":     "Kollam",
	"cannanore":  "Kannur",

	"calcutta": "Kolkata",
	"ccu":      "Kolkata",
	"kol":      "Kolkata",

	"new delhi": "Delhi",
	"del":       "Delhi",
	"nct":       "Delhi",

	"cawnpore":            "Kanpur",
	"benares":             "Varanasi",
	"banaras":             "Varanasi",
	"allahabad":           "Prayagraj",
	"gautam buddha nagar": "Noida",
	"lko":                 "Lucknow",

	"gurugram": "Gurgaon",
	"ggn":      "Gurgaon",

	"ahmadabad": "Ahmedabad",
	"amd":       "Ahmedabad",
	"baroda":    "Vadodara",

	"sas nagar": "Mohali",
	"chd":       "Chandigarh",

	"bhubaneshwar": "Bhubaneswar",
	"bbi":          "Bhubaneswar",
	"gauhati":      "Guwahati",
	"dehra dun":    "Dehradun",
	"simla":        "Shimla",

	"panjim":      "Panaji",
	"madgaon":     "Margao",
	"pondicherry": "Puducherry",
	"pondy":       "Puducherry",
}

var (
	// lowercased canonical name -> canonical name
	cityIndex = func() map[string]string {
		rv := make(map[string]string, len(cityStates))

		for k := range cityStates {
			rv[strings.ToLower(k)] = k
		}

		return rv
	}()

	// sorted list of every lowercased key (aliases and canonical names)
	// to make prefix and fuzzy matching deterministic.
	cityTokens = func() []string {
		rv := make([]string, 0, len(cityAliases)+len(cityIndex))

		for k := range cityAliases {
			rv = append(rv, k)
		}

		for k := range cityIndex {
			if _, ok := cityAliases[k]; !ok {
				rv = append(rv, k)
			}
		}

		sort.Strings(rv)

		return rv
	}()
)

// CityMatch is a result of matching a short token against the alias
// table.
type CityMatch struct {
	City  string
	State string
	Exact bool
}

// Cities returns a sorted list of all canonical city names.
func Cities() []string {
	rv := make([]string, 0, len(cityStates))

	for k := range cityStates {
		rv = append(rv, k)
	}

	sort.Strings(rv)

	return rv
}

// CityState returns a state for the given city. City name is normalized
// first.
func CityState(city string) (string, bool) {
	state, ok := cityStates[NormalizeCity(city)]

	return state, ok
}

// IsKnownCity checks if the name normalizes to a gazetteer city.
func IsKnownCity(city string) bool {
	_, ok := cityStates[NormalizeCity(city)]

	return ok
}

// NormalizeCity maps alternative spellings to a canonical city name.
//
// Order is: alias table, canonical names (case-insensitive), fuzzy snap
// to a close canonical name. If nothing matches, a trimmed name is
// returned as is. NormalizeCity(NormalizeCity(x)) == NormalizeCity(x).
func NormalizeCity(name string) string {
	name = strings.Join(strings.FieldsFunc(name, isCitySeparator), " ")
	if name == "" {
		return ""
	}

	key := strings.ToLower(name)

	if canonical, ok := cityAliases[key]; ok {
		return canonical
	}

	if canonical, ok := cityIndex[key]; ok {
		return canonical
	}

	if canonical, ok := snapCity(key); ok {
		return canonical
	}

	return name
}

// MatchCityToken resolves a short token, usually cut from a hostname, to
// a city. It tries an exact lowercase match against aliases and
// canonical names first and then a prefix match: alias which starts with
// the token. Prefix match requires at least 3 characters.
func MatchCityToken(token string) (CityMatch, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return CityMatch{}, false
	}

	if city, ok := resolveCityKey(token); ok {
		return CityMatch{City: city, State: cityStates[city], Exact: true}, true
	}

	if len(token) < minPrefixTokenLength {
		return CityMatch{}, false
	}

	for _, v := range cityTokens {
		if strings.HasPrefix(v, token) {
			city, _ := resolveCityKey(v)

			return CityMatch{City: city, State: cityStates[city]}, true
		}
	}

	return CityMatch{}, false
}

func resolveCityKey(key string) (string, bool) {
	if canonical, ok := cityAliases[key]; ok {
		return canonical, true
	}

	canonical, ok := cityIndex[key]

	return canonical, ok
}

// snapCity finds the closest known token using Jaro-Winkler similarity.
// Very close names are accepted as is; merely close names must also
// sound the same.
func snapCity(key string) (string, bool) {
	if len(key) < minSnapLength {
		return "", false
	}

	keyPhonetic, _ := matchr.DoubleMetaphone(key)
	bestScore := 0.0
	bestToken := ""

	for _, v := range cityTokens {
		if len(v) < minSnapLength {
			continue
		}

		score := smetrics.JaroWinkler(key, v, 0.7, 4)

		switch {
		case score >= snapStrictThreshold:
		case score >= snapPhoneticThreshold:
			tokenPhonetic, _ := matchr.DoubleMetaphone(v)
			if tokenPhonetic != keyPhonetic {
				continue
			}
		default:
			continue
		}

		if score > bestScore {
			bestScore = score
			bestToken = v
		}
	}

	if bestToken == "" {
		return "", false
	}

	return resolveCityKey(bestToken)
}

func isCitySeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '_'
}
