package gazetteer

import "strings"

// Language describes which states a regional language points to.
type Language struct {
	Code       string
	Name       string
	States     []string
	Confidence int
}

// Base confidences reflect how strongly a language narrows location:
// Kannada pins Karnataka, Hindi spreads over the whole north.
var languages = map[string]Language{
	"kn":  {Name: "Kannada", States: []string{"Karnataka"}, Confidence: 65},
	"ta":  {Name: "Tamil", States: []string{"Tamil Nadu", "Puducherry"}, Confidence: 65},
	"te":  {Name: "Telugu", States: []string{"Andhra Pradesh", "Telangana"}, Confidence: 55},
	"ml":  {Name: "Malayalam", States: []string{"Kerala"}, Confidence: 65},
	"mr":  {Name: "Marathi", States: []string{"Maharashtra"}, Confidence: 60},
	"gu":  {Name: "Gujarati", States: []string{"Gujarat"}, Confidence: 65},
	"bn":  {Name: "Bengali", States: []string{"West Bengal", "Tripura"}, Confidence: 55},
	"pa":  {Name: "Punjabi", States: []string{"Punjab"}, Confidence: 60},
	"or":  {Name: "Odia", States: []string{"Odisha"}, Confidence: 65},
	"as":  {Name: "Assamese", States: []string{"Assam"}, Confidence: 65},
	"kok": {Name: "Konkani", States: []string{"Goa"}, Confidence: 60},
	"ks":  {Name: "Kashmiri", States: []string{"Jammu and Kashmir"}, Confidence: 60},
	"doi": {Name: "Dogri", States: []string{"Jammu and Kashmir"}, Confidence: 55},
	"mni": {Name: "Manipuri", States: []string{"Manipur"}, Confidence: 60},
	"lus": {Name: "Mizo", States: []string{"Mizoram"}, Confidence: 60},
	"kha": {Name: "Khasi", States: []string{"Meghalaya"}, Confidence: 60},
	"mai": {Name: "Maithili", States: []string{"Bihar"}, Confidence: 55},
	"sat": {Name: "Santali", States: []string{"Jharkhand"}, Confidence: 50},
	"bho": {Name: "Bhojpuri", States: []string{"Bihar", "Uttar Pradesh"}, Confidence: 40},
	"ne":  {Name: "Nepali", States: []string{"Sikkim"}, Confidence: 35},
	"sd":  {Name: "Sindhi", States: []string{"Gujarat", "Rajasthan"}, Confidence: 25},
	"hi": {
		Name: "Hindi",
		States: []string{
			"Uttar Pradesh", "Bihar", "Madhya Pradesh", "Rajasthan",
			"Delhi", "Haryana", "Jharkhand", "Chhattisgarh",
			"Uttarakhand", "Himachal Pradesh",
		},
		Confidence: 20,
	},
	"ur": {
		Name:       "Urdu",
		States:     []string{"Uttar Pradesh", "Telangana", "Jammu and Kashmir"},
		Confidence: 15,
	},
}

// LookupLanguage returns a regional language by its ISO 639 base code.
func LookupLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))

	lang, ok := languages[code]
	if !ok {
		return Language{}, false
	}

	lang.Code = code
	lang.States = append([]string(nil), lang.States...)

	return lang, true
}

// font name (lowercased) -> state. Generic pan-Indic fonts like Mangal
// or Nirmala UI are deliberately absent.
var fontStates = map[string]string{
	"tunga":             "Karnataka",
	"kedage":            "Karnataka",
	"mallige":           "Karnataka",
	"nudi":              "Karnataka",
	"lohit kannada":     "Karnataka",
	"noto sans kannada": "Karnataka",
	"kannada sangam mn": "Karnataka",

	"latha":           "Tamil Nadu",
	"vijaya":          "Tamil Nadu",
	"inaimathi":       "Tamil Nadu",
	"lohit tamil":     "Tamil Nadu",
	"noto sans tamil": "Tamil Nadu",
	"tamil sangam mn": "Tamil Nadu",

	"gautami":          "Andhra Pradesh",
	"vani":             "Andhra Pradesh",
	"lohit telugu":     "Andhra Pradesh",
	"noto sans telugu": "Andhra Pradesh",
	"telugu sangam mn": "Andhra Pradesh",

	"kartika":             "Kerala",
	"rachana":             "Kerala",
	"meera":               "Kerala",
	"lohit malayalam":     "Kerala",
	"noto sans malayalam": "Kerala",
	"malayalam sangam mn": "Kerala",

	"shruti":             "Gujarat",
	"lohit gujarati":     "Gujarat",
	"noto sans gujarati": "Gujarat",
	"gujarati sangam mn": "Gujarat",

	"vrinda":            "West Bengal",
	"shonar bangla":     "West Bengal",
	"lohit bengali":     "West Bengal",
	"noto sans bengali": "West Bengal",
	"bangla sangam mn":  "West Bengal",

	"raavi":              "Punjab",
	"lohit gurmukhi":     "Punjab",
	"noto sans gurmukhi": "Punjab",
	"gurmukhi mn":        "Punjab",

	"kalinga":         "Odisha",
	"lohit odia":      "Odisha",
	"noto sans oriya": "Odisha",
	"oriya sangam mn": "Odisha",

	"lohit assamese": "Assam",
	"lohit marathi":  "Maharashtra",
}

// FontState returns a state a regional font is associated with.
func FontState(font string) (string, bool) {
	state, ok := fontStates[strings.ToLower(strings.TrimSpace(font))]

	return state, ok
}
