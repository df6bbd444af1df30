package wherelib

import (
	"math"
	"sort"
)

func roundTo(value float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))

	return math.Round(value*pow) / pow
}

func clampInt(value, low, high int) int {
	switch {
	case value < low:
		return low
	case value > high:
		return high
	}

	return value
}

func float64Ptr(value float64) *float64 {
	return &value
}

type weightedValue struct {
	value  string
	weight float64
	count  int
}

// weightedVote accumulates weights per value and keeps insertion order
// to resolve ties deterministically.
type weightedVote struct {
	index  map[string]int
	values []weightedValue
	total  float64
}

func (w *weightedVote) Add(value string, weight float64) {
	if value == "" {
		return
	}

	if w.index == nil {
		w.index = map[string]int{}
	}

	idx, ok := w.index[value]
	if !ok {
		idx = len(w.values)
		w.index[value] = idx
		w.values = append(w.values, weightedValue{value: value})
	}

	w.values[idx].weight += weight
	w.values[idx].count++
	w.total += weight
}

func (w *weightedVote) Len() int {
	return len(w.values)
}

// Sorted returns values by weight descending. Ties are resolved by a
// count of votes and then by insertion order.
func (w *weightedVote) Sorted() []weightedValue {
	rv := make([]weightedValue, len(w.values))
	copy(rv, w.values)

	sort.SliceStable(rv, func(i, j int) bool {
		if rv[i].weight != rv[j].weight {
			return rv[i].weight > rv[j].weight
		}

		return rv[i].count > rv[j].count
	})

	return rv
}

func (w *weightedVote) Winner() weightedValue {
	if len(w.values) == 0 {
		return weightedValue{}
	}

	return w.Sorted()[0]
}

func (w *weightedVote) Get(value string) weightedValue {
	if idx, ok := w.index[value]; ok {
		return w.values[idx]
	}

	return weightedValue{}
}
