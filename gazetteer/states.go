package gazetteer

import "strings"

const (
	// CountryCode is ISO 3166 alpha-2 code of the only country this
	// gazetteer covers.
	CountryCode = "IN"

	// CountryName is a common name of the country.
	CountryName = "India"
)

var states = []string{
	"Andaman and Nicobar Islands",
	"Andhra Pradesh",
	"Arunachal Pradesh",
	"Assam",
	"Bihar",
	"Chandigarh",
	"Chhattisgarh",
	"Dadra and Nagar Haveli and Daman and Diu",
	"Delhi",
	"Goa",
	"Gujarat",
	"Haryana",
	"Himachal Pradesh",
	"Jammu and Kashmir",
	"Jharkhand",
	"Karnataka",
	"Kerala",
	"Ladakh",
	"Lakshadweep",
	"Madhya Pradesh",
	"Maharashtra",
	"Manipur",
	"Meghalaya",
	"Mizoram",
	"Nagaland",
	"Odisha",
	"Puducherry",
	"Punjab",
	"Rajasthan",
	"Sikkim",
	"Tamil Nadu",
	"Telangana",
	"Tripura",
	"Uttar Pradesh",
	"Uttarakhand",
	"West Bengal",
}

// ISO 3166-2:IN subdivision codes, legacy codes and spellings which
// vendors still return.
var stateAliases = map[string]string{
	"an":                                  "Andaman and Nicobar Islands",
	"andaman & nicobar":                   "Andaman and Nicobar Islands",
	"andaman and nicobar":                 "Andaman and Nicobar Islands",
	"ap":                                  "Andhra Pradesh",
	"ar":                                  "Arunachal Pradesh",
	"as":                                  "Assam",
	"br":                                  "Bihar",
	"ch":                                  "Chandigarh",
	"ct":                                  "Chhattisgarh",
	"cg":                                  "Chhattisgarh",
	"chattisgarh":                         "Chhattisgarh",
	"dh":                                  "Dadra and Nagar Haveli and Daman and Diu",
	"dn":                                  "Dadra and Nagar Haveli and Daman and Diu",
	"dd":                                  "Dadra and Nagar Haveli and Daman and Diu",
	"dl":                                  "Delhi",
	"nct":                                 "Delhi",
	"nct of delhi":                        "Delhi",
	"national capital territory of delhi": "Delhi",
	"new delhi":                           "Delhi",
	"ga":                                  "Goa",
	"gj":                                  "Gujarat",
	"hr":                                  "Haryana",
	"hp":                                  "Himachal Pradesh",
	"jk":                                  "Jammu and Kashmir",
	"jammu & kashmir":                     "Jammu and Kashmir",
	"jh":                                  "Jharkhand",
	"ka":                                  "Karnataka",
	"kl":                                  "Kerala",
	"la":                                  "Ladakh",
	"ld":                                  "Lakshadweep",
	"mp":                                  "Madhya Pradesh",
	"mh":                                  "Maharashtra",
	"mn":                                  "Manipur",
	"ml":                                  "Meghalaya",
	"mz":                                  "Mizoram",
	"nl":                                  "Nagaland",
	"or":                                  "Odisha",
	"od":                                  "Odisha",
	"orissa":                              "Odisha",
	"py":                                  "Puducherry",
	"pondicherry":                         "Puducherry",
	"pb":                                  "Punjab",
	"rj":                                  "Rajasthan",
	"sk":                                  "Sikkim",
	"tn":                                  "Tamil Nadu",
	"tamilnadu":                           "Tamil Nadu",
	"tg":                                  "Telangana",
	"ts":                                  "Telangana",
	"telengana":                           "Telangana",
	"tr":                                  "Tripura",
	"up":                                  "Uttar Pradesh",
	"ut":                                  "Uttarakhand",
	"uk":                                  "Uttarakhand",
	"uttaranchal":                         "Uttarakhand",
	"wb":                                  "West Bengal",
	"bengal":                              "West Bengal",
	"dadra and nagar haveli":              "Dadra and Nagar Haveli and Daman and Diu",
	"daman and diu":                       "Dadra and Nagar Haveli and Daman and Diu",
	"the dadra and nagar haveli and daman and diu": "Dadra and Nagar Haveli and Daman and Diu",
}

var stateIndex = func() map[string]string {
	rv := make(map[string]string, len(states))

	for _, v := range states {
		rv[strings.ToLower(v)] = v
	}

	return rv
}()

// States returns a copy of all canonical state and union territory names.
func States() []string {
	rv := make([]string, len(states))
	copy(rv, states)

	return rv
}

// IsKnownState checks if given name is a canonical state name. Check is
// case-insensitive.
func IsKnownState(name string) bool {
	_, ok := stateIndex[strings.ToLower(strings.TrimSpace(name))]

	return ok
}

// NormalizeState maps codes and alternative spellings to canonical state
// names. Unknown names are returned trimmed but otherwise untouched.
func NormalizeState(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	key := strings.ToLower(name)

	if canonical, ok := stateAliases[key]; ok {
		return canonical
	}

	if canonical, ok := stateIndex[key]; ok {
		return canonical
	}

	return name
}
