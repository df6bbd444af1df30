package wherelib

import (
	"strings"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/golang/geo/s2"
)

const (
	DefaultClusterRadiusKm = 50.0
	DefaultMinSources      = 2

	earthRadiusKm = 6371.0

	statePrefilterSources = 3
	statePrefilterPenalty = 0.3

	consensusMinCityConfidence = 55
	consensusCappedConfidence  = 54
	alternativesLimit          = 3
)

type geoCluster struct {
	members []int
	latSum  float64
	lonSum  float64
	coords  int
	weight  float64
}

func (g *geoCluster) add(idx int, entry *Evidence) {
	g.members = append(g.members, idx)
	g.weight += entry.Weight

	if entry.HasCoordinates() {
		g.latSum += *entry.Latitude
		g.lonSum += *entry.Longitude
		g.coords++
	}
}

func (g *geoCluster) centroid() s2.LatLng {
	return s2.LatLngFromDegrees(g.latSum/float64(g.coords), g.lonSum/float64(g.coords))
}

func distanceKm(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * earthRadiusKm
}

// consensusConfidence is a step function of a number of agreeing
// sources and a share of weight they hold.
func consensusConfidence(agreement int, ratio float64) int {
	switch {
	case agreement >= 5 && ratio >= 0.8:
		return 95
	case agreement >= 4 && ratio >= 0.7:
		return 90
	case agreement >= 4:
		return 85
	case agreement >= 3 && ratio >= 0.6:
		return 80
	case agreement >= 3:
		return 75
	case agreement >= 2 && ratio >= 0.5:
		return 70
	case agreement >= 2:
		return 65
	case ratio >= 0.3:
		return 55
	}

	return 45
}

// buildConsensus finds a geographical cluster of evidences with the
// highest weight and votes within it.
func buildConsensus(entries []Evidence, radiusKm float64, minSources int) ConsensusResult {
	rv := ConsensusResult{}

	if len(entries) == 0 {
		return rv
	}

	entries = normalizeConsensusEntries(entries)
	totalWeight := 0.0

	for i := range entries {
		totalWeight += entries[i].Weight
	}

	if totalWeight <= 0 {
		return rv
	}

	best := clusterEntries(entries, radiusKm)
	cityVote := weightedVote{}
	stateVote := weightedVote{}
	countryVote := weightedVote{}
	sources := make([]string, 0, len(best.members))
	latSum, lonSum, coordWeight := 0.0, 0.0, 0.0

	for _, idx := range best.members {
		entry := &entries[idx]

		cityVote.Add(entry.City, entry.Weight)
		stateVote.Add(entry.State, entry.Weight)
		countryVote.Add(entry.Country, entry.Weight)
		sources = append(sources, string(entry.Source))

		if entry.HasCoordinates() {
			latSum += *entry.Latitude * entry.Weight
			lonSum += *entry.Longitude * entry.Weight
			coordWeight += entry.Weight
		}
	}

	rv.AgreementCount = len(best.members)
	rv.ClusterWeight = roundTo(best.weight, 4)
	rv.TotalWeight = roundTo(totalWeight, 4)
	rv.Sources = sources
	rv.Confidence = consensusConfidence(rv.AgreementCount, best.weight/totalWeight)

	if rv.AgreementCount < minSources && rv.Confidence > consensusCappedConfidence {
		rv.Confidence = consensusCappedConfidence
	}

	if rv.Confidence >= consensusMinCityConfidence {
		rv.City = cityVote.Winner().value
	}

	rv.State = stateVote.Winner().value
	rv.Country = countryVote.Winner().value

	if coordWeight > 0 {
		rv.Latitude = float64Ptr(roundTo(latSum/coordWeight, 6))
		rv.Longitude = float64Ptr(roundTo(lonSum/coordWeight, 6))
	}

	ispVote := weightedVote{}
	asnVote := weightedVote{}
	postalVote := weightedVote{}
	allCities := weightedVote{}

	for i := range entries {
		entry := &entries[i]

		ispVote.Add(entry.Meta[MetaISP], entry.Weight)
		asnVote.Add(entry.Meta[MetaASN], entry.Weight)
		postalVote.Add(entry.Meta[MetaPostal], entry.Weight)
		allCities.Add(entry.City, entry.Weight)
	}

	rv.ISP = ispVote.Winner().value
	rv.ASN = asnVote.Winner().value
	rv.Postal = postalVote.Winner().value
	rv.Alternatives = alternatives(&allCities)

	return rv
}

func normalizeConsensusEntries(entries []Evidence) []Evidence {
	rv := make([]Evidence, len(entries))
	stateVote := weightedVote{}

	for i, v := range entries {
		v.City = gazetteer.NormalizeCity(v.City)
		v.State = gazetteer.NormalizeState(v.State)
		v.Country = NormalizeCountryCode(v.Country)

		if v.State == "" && v.City != "" {
			v.State, _ = gazetteer.CityState(v.City)
		}

		rv[i] = v
		stateVote.Add(v.State, v.Weight)
	}

	// outliers are penalized only if some state has enough support
	if supported, ok := supportedState(stateVote); ok {
		for i := range rv {
			if rv[i].State != "" && rv[i].State != supported {
				rv[i].Weight *= statePrefilterPenalty
			}
		}
	}

	return rv
}

// supportedState returns the heaviest state agreed by at least
// statePrefilterSources sources, even if a lighter state is not the
// overall winner.
func supportedState(vote weightedVote) (string, bool) {
	for _, v := range vote.Sorted() {
		if v.count >= statePrefilterSources {
			return v.value, true
		}
	}

	return "", false
}

// clusterEntries groups entries around running centroids and returns
// the heaviest cluster. Entries without coordinates join a cluster by
// a city name.
func clusterEntries(entries []Evidence, radiusKm float64) *geoCluster {
	clusters := []*geoCluster{}

	for i := range entries {
		entry := &entries[i]
		if !entry.HasCoordinates() {
			continue
		}

		point := s2.LatLngFromDegrees(*entry.Latitude, *entry.Longitude)
		joined := false

		for _, cluster := range clusters {
			if cluster.coords > 0 && distanceKm(cluster.centroid(), point) <= radiusKm {
				cluster.add(i, entry)
				joined = true

				break
			}
		}

		if !joined {
			cluster := &geoCluster{}
			cluster.add(i, entry)
			clusters = append(clusters, cluster)
		}
	}

	for i := range entries {
		entry := &entries[i]
		if entry.HasCoordinates() {
			continue
		}

		if cluster := findClusterByCity(clusters, entries, entry.City); cluster != nil {
			cluster.add(i, entry)
		} else {
			cluster := &geoCluster{}
			cluster.add(i, entry)
			clusters = append(clusters, cluster)
		}
	}

	best := clusters[0]

	for _, cluster := range clusters[1:] {
		if cluster.weight > best.weight ||
			(cluster.weight == best.weight && len(cluster.members) > len(best.members)) {
			best = cluster
		}
	}

	return best
}

func findClusterByCity(clusters []*geoCluster, entries []Evidence, city string) *geoCluster {
	if city == "" {
		return nil
	}

	for _, cluster := range clusters {
		for _, idx := range cluster.members {
			if strings.EqualFold(entries[idx].City, city) {
				return cluster
			}
		}
	}

	return nil
}

func alternatives(vote *weightedVote) []Alternative {
	rv := []Alternative{}

	if vote.total <= 0 {
		return rv
	}

	for _, v := range vote.Sorted() {
		if len(rv) == alternativesLimit {
			break
		}

		rv = append(rv, Alternative{
			City:        v.value,
			Probability: roundTo(v.weight/vote.total*100, 1),
		})
	}

	return rv
}
