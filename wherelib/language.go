package wherelib

import (
	"sort"
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
	"golang.org/x/text/language"
)

const (
	languagePositionPenalty    = 5
	languageMaxPositionPenalty = 20
	languageMinConfidence      = 15

	fontBaseConfidence = 30
	fontPerMatch       = 15
	fontMaxConfidence  = 70
)

// LanguageInference is a result of browser languages mapping.
type LanguageInference struct {
	States       []string `json:"states"`
	PrimaryState string   `json:"primary_state"`
	Confidence   int      `json:"confidence"`
	Language     string   `json:"language"`
	Code         string   `json:"code"`
}

// FontInference is a result of installed fonts mapping.
type FontInference struct {
	State      string   `json:"state"`
	Confidence int      `json:"confidence"`
	FontCount  int      `json:"font_count"`
	Fonts      []string `json:"fonts"`
}

// InferFromLanguages maps an ordered list of preferred languages (like
// navigator.languages) to states. Languages later in the list are
// penalized.
func InferFromLanguages(tags []string) (LanguageInference, bool) {
	var best gazetteer.Language

	bestConfidence := -1

	for pos, tag := range tags {
		lang, ok := gazetteer.LookupLanguage(baseLanguage(tag))
		if !ok {
			continue
		}

		penalty := pos * languagePositionPenalty
		if penalty > languageMaxPositionPenalty {
			penalty = languageMaxPositionPenalty
		}

		if adjusted := lang.Confidence - penalty; adjusted > bestConfidence {
			best = lang
			bestConfidence = adjusted
		}
	}

	if bestConfidence < languageMinConfidence {
		return LanguageInference{}, false
	}

	return LanguageInference{
		States:       best.States,
		PrimaryState: best.States[0],
		Confidence:   bestConfidence,
		Language:     best.Name,
		Code:         best.Code,
	}, true
}

// InferFromFonts picks a state with the most recognized regional fonts.
func InferFromFonts(fonts []string) (FontInference, bool) {
	seen := map[string]bool{}
	perState := map[string][]string{}

	for _, font := range fonts {
		key := strings.ToLower(strings.TrimSpace(font))
		if seen[key] {
			continue
		}

		seen[key] = true

		if state, ok := gazetteer.FontState(key); ok {
			perState[state] = append(perState[state], strings.TrimSpace(font))
		}
	}

	if len(perState) == 0 {
		return FontInference{}, false
	}

	states := make([]string, 0, len(perState))
	for k := range perState {
		states = append(states, k)
	}

	sort.Slice(states, func(i, j int) bool {
		if len(perState[states[i]]) != len(perState[states[j]]) {
			return len(perState[states[i]]) > len(perState[states[j]])
		}

		return states[i] < states[j]
	})

	state := states[0]
	count := len(perState[state])
	confidence := fontBaseConfidence + count*fontPerMatch

	if confidence > fontMaxConfidence {
		confidence = fontMaxConfidence
	}

	return FontInference{
		State:      state,
		Confidence: confidence,
		FontCount:  count,
		Fonts:      perState[state],
	}, true
}

func baseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)

	// q-values from raw Accept-Language headers
	if idx := strings.IndexByte(tag, ';'); idx >= 0 {
		tag = tag[:idx]
	}

	if parsed, err := language.Parse(tag); err == nil {
		base, _ := parsed.Base()

		return base.String()
	}

	if idx := strings.IndexAny(tag, "-_"); idx >= 0 {
		tag = tag[:idx]
	}

	return strings.ToLower(tag)
}

func (l LanguageInference) evidence() Evidence {
	rv := Evidence{
		Source:     SourceLanguage,
		State:      l.PrimaryState,
		Country:    gazetteer.CountryCode,
		Confidence: l.Confidence,
	}

	if len(l.States) > 1 {
		rv.StatesAlt = append([]string(nil), l.States[1:]...)
	}

	rv.SetMeta(MetaLanguage, l.Code)

	return rv
}

func (f FontInference) evidence() Evidence {
	return Evidence{
		Source:     SourceFont,
		State:      f.State,
		Country:    gazetteer.CountryCode,
		Confidence: f.Confidence,
	}
}
