package wherelib

import (
	"math"
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
)

const (
	fusionAltStateShare  = 0.3
	fusionCityStateBoost = 1.5

	fusionBaseConfidence      = 30.0
	fusionAgreementScale      = 50.0
	fusionCityAgreementBonus  = 10.0
	fusionCityStrongBonus     = 5.0
	fusionSourceTypesBonus    = 8.0
	fusionSourceTypesRequired = 3
	fusionSplitHighRatio      = 0.6
	fusionSplitHighPenalty    = 8.0
	fusionSplitLowRatio       = 0.4
	fusionSplitLowPenalty     = 4.0
	fusionEdgeFloor           = 85.0
	fusionMinConfidence       = 10
	fusionMaxConfidence       = 98

	BucketHigh    = "high"
	BucketMedium  = "medium"
	BucketLow     = "low"
	BucketVeryLow = "very_low"
)

// ConfidenceBucket maps a confidence to a coarse label.
func ConfidenceBucket(confidence int) string {
	switch {
	case confidence >= 85:
		return BucketHigh
	case confidence >= 70:
		return BucketMedium
	case confidence >= 55:
		return BucketLow
	}

	return BucketVeryLow
}

// fuse makes a prediction by weighted voting. State is voted first,
// then cities of the winning state get a boost.
func fuse(items []Evidence) LocationPrediction {
	rv := LocationPrediction{
		Method:       SourceNone,
		Alternatives: []Alternative{},
		Evidence:     items,
	}

	if rv.Evidence == nil {
		rv.Evidence = []Evidence{}
	}

	if len(items) == 0 {
		rv.Telemetry.ConfidenceBucket = ConfidenceBucket(0)

		return rv
	}

	totalWeight := 0.0
	stateVote := weightedVote{}
	distinctStates := map[string]bool{}
	distinctCities := map[string]bool{}

	for i := range items {
		item := &items[i]

		totalWeight += item.Weight
		stateVote.Add(item.State, item.Weight)

		for _, alt := range item.StatesAlt {
			stateVote.Add(alt, item.Weight*fusionAltStateShare)
		}

		if item.State != "" {
			distinctStates[strings.ToLower(item.State)] = true
		}

		if item.City != "" {
			distinctCities[strings.ToLower(item.City)] = true
		}
	}

	stateRanking := stateVote.Sorted()
	state := ""

	if len(stateRanking) > 0 {
		state = stateRanking[0].value
	}

	cityVote := weightedVote{}

	for i := range items {
		item := &items[i]
		if item.City == "" {
			continue
		}

		weight := item.Weight
		if state != "" && item.State == state {
			weight *= fusionCityStateBoost
		}

		cityVote.Add(item.City, weight)
	}

	city := cityVote.Winner().value

	rv.City = city
	rv.State = state
	rv.Confidence = fusionConfidence(items, stateRanking, state, city, totalWeight)
	rv.Method = fusionMethod(items, state, city)
	rv.Alternatives = alternatives(&cityVote)
	rv.Telemetry.StateDisagreementCount = disagreement(distinctStates)
	rv.Telemetry.CityDisagreementCount = disagreement(distinctCities)
	rv.Telemetry.ConfidenceBucket = ConfidenceBucket(rv.Confidence)

	if rv.State == "" && rv.City != "" {
		rv.State, _ = gazetteer.CityState(rv.City)
	}

	countryVote := weightedVote{}

	for i := range items {
		countryVote.Add(items[i].Country, items[i].Weight)
	}

	rv.Country = countryVote.Winner().value
	if rv.Country == "" && gazetteer.IsKnownState(rv.State) {
		rv.Country = gazetteer.CountryCode
	}

	fuseCoordinates(&rv, items)

	for i := range items {
		if rv.ASN == "" {
			rv.ASN = items[i].Meta[MetaASN]
		}

		if rv.ISP == "" {
			rv.ISP = items[i].Meta[MetaISP]
		}
	}

	return rv
}

func fusionConfidence(items []Evidence, stateRanking []weightedValue,
	state, city string, totalWeight float64) int {
	agreeingWeight := 0.0
	agreeingSources := map[Source]bool{}
	cityAgreement := 0
	edgeCity := false

	for i := range items {
		item := &items[i]

		if state != "" && item.State == state {
			agreeingWeight += item.Weight
			agreeingSources[item.Source] = true
		}

		if city != "" && item.City == city {
			cityAgreement++
		}

		if item.Source == SourceEdgeHeaders && item.City != "" {
			edgeCity = true
		}
	}

	confidence := fusionBaseConfidence
	if totalWeight > 0 {
		confidence += fusionAgreementScale * agreeingWeight / totalWeight
	}

	if cityAgreement >= 2 {
		confidence += fusionCityAgreementBonus
	}

	if cityAgreement >= 3 {
		confidence += fusionCityStrongBonus
	}

	if len(agreeingSources) >= fusionSourceTypesRequired {
		confidence += fusionSourceTypesBonus
	}

	if len(stateRanking) > 1 && stateRanking[0].weight > 0 {
		ratio := stateRanking[1].weight / stateRanking[0].weight

		switch {
		case ratio >= fusionSplitHighRatio:
			confidence -= fusionSplitHighPenalty
		case ratio >= fusionSplitLowRatio:
			confidence -= fusionSplitLowPenalty
		}
	}

	if edgeCity && confidence < fusionEdgeFloor {
		confidence = fusionEdgeFloor
	}

	return clampInt(int(math.Round(confidence)), fusionMinConfidence, fusionMaxConfidence)
}

// fusionMethod is a source of the heaviest evidence which supports
// the winning city, or the winning state if there is no city.
func fusionMethod(items []Evidence, state, city string) Source {
	var best *Evidence

	for i := range items {
		item := &items[i]

		switch {
		case city != "" && item.City != city:
			continue
		case city == "" && state != "" && item.State != state:
			continue
		}

		if best == nil || item.Weight > best.Weight {
			best = item
		}
	}

	if best == nil {
		return SourceNone
	}

	return best.Source
}

func fuseCoordinates(rv *LocationPrediction, items []Evidence) {
	for i := range items {
		if items[i].Source == SourceEdgeHeaders && items[i].HasCoordinates() {
			rv.Latitude = float64Ptr(*items[i].Latitude)
			rv.Longitude = float64Ptr(*items[i].Longitude)

			return
		}
	}

	for i := range items {
		if items[i].HasCoordinates() {
			rv.Latitude = float64Ptr(*items[i].Latitude)
			rv.Longitude = float64Ptr(*items[i].Longitude)

			return
		}
	}
}

func disagreement(distinct map[string]bool) int {
	if len(distinct) == 0 {
		return 0
	}

	return len(distinct) - 1
}
