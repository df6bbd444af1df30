package wherelib

import (
	"context"
	"math"
	"net"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/9seconds/whereabouts/gazetteer"
	cidrman "github.com/EvilSuperstars/go-cidrman"
	"github.com/juju/errors"
)

const (
	DefaultLearningMask       = 24
	DefaultLearningThreshold  = 80
	DefaultLearningMinSamples = 3
	DefaultLearningMinRate    = 80.0

	learningDecayRate = 60.0
)

// LearningOptions configure LearningStore. Zero values mean defaults.
type LearningOptions struct {
	Mask            int
	Threshold       int
	MinSamples      int
	MinRate         float64
	RequireVerified bool
}

// LearnedMatch is a result of Check.
type LearnedMatch struct {
	CIDR        netip.Prefix `json:"cidr"`
	City        string       `json:"city"`
	State       string       `json:"state,omitempty"`
	Confidence  int          `json:"confidence"`
	SampleCount int          `json:"sample_count"`
}

// LearnedBlock is a set of active ranges which point to the same city.
type LearnedBlock struct {
	City        string   `json:"city"`
	State       string   `json:"state,omitempty"`
	CIDRs       []string `json:"cidrs"`
	SampleCount int      `json:"sample_count"`
}

// LearningStore learns IPv4 range to city mappings from confident
// detections. A range becomes trusted only after it was confirmed
// several times and decays if detections start to disagree.
type LearningStore struct {
	store  RangeStore
	logger Logger
	opts   LearningOptions
	now    func() time.Time
}

// Learn registers a detection. It returns true if detection passed a
// gate and was stored.
//
// This is a feedback loop: if detections come from this engine, the
// store learns its own guesses and reinforces its own mistakes. Gate is
// a confidence threshold plus, with RequireVerified, a label confirmed
// outside of the engine. Do not relax it without a source of labels
// independent from inference.
func (l *LearningStore) Learn(ctx context.Context, detection Detection) bool {
	city := gazetteer.NormalizeCity(detection.City)

	switch {
	case city == "":
		return false
	case detection.Confidence < l.opts.Threshold:
		return false
	case l.opts.RequireVerified && !detection.Verified:
		return false
	}

	prefix, err := IPToPrefix(detection.IP, l.opts.Mask)
	if err != nil {
		return false
	}

	state := gazetteer.NormalizeState(detection.State)
	if state == "" {
		state, _ = gazetteer.CityState(city)
	}

	now := l.now()

	err = l.store.Upsert(ctx, prefix, func(current *LearnedIPRange) (LearnedIPRange, error) {
		if current == nil {
			return LearnedIPRange{
				CIDR:              prefix,
				LearnedCity:       city,
				LearnedState:      state,
				SampleCount:       1,
				SuccessRate:       100,
				AverageConfidence: float64(detection.Confidence),
				PrimaryISP:        detection.ISP,
				PrimaryASN:        detection.ASN,
				FirstSeen:         now,
				LastSeen:          now,
			}, nil
		}

		return l.update(*current, city, detection, now), nil
	})
	if err != nil {
		l.logger.StoreError("learn", err)

		return false
	}

	return true
}

func (l *LearningStore) update(current LearnedIPRange, city string,
	detection Detection, now time.Time) LearnedIPRange {
	samples := float64(current.SampleCount)
	consistent := math.Round(samples * current.SuccessRate / 100)

	current.LastSeen = now

	if current.PrimaryISP == "" {
		current.PrimaryISP = detection.ISP
	}

	if current.PrimaryASN == "" {
		current.PrimaryASN = detection.ASN
	}

	if !strings.EqualFold(current.LearnedCity, city) {
		current.SampleCount++
		current.SuccessRate = roundTo(consistent/(samples+1)*100, 2)

		if current.SuccessRate < learningDecayRate {
			current.IsActive = false
		}

		return current
	}

	current.SampleCount++
	current.SuccessRate = roundTo((consistent+1)/(samples+1)*100, 2)
	current.AverageConfidence = roundTo(
		(current.AverageConfidence*samples+float64(detection.Confidence))/(samples+1), 2)
	current.IsActive = current.IsActive || l.trusted(current)

	return current
}

func (l *LearningStore) trusted(rng LearnedIPRange) bool {
	return rng.SampleCount >= l.opts.MinSamples && rng.SuccessRate >= l.opts.MinRate
}

// Check returns the most sampled active range which contains the IP.
func (l *LearningStore) Check(ctx context.Context, ip net.IP) (LearnedMatch, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return LearnedMatch{}, false
	}

	addr = addr.Unmap()
	if !addr.Is4() {
		return LearnedMatch{}, false
	}

	ranges, err := l.store.FindContaining(ctx, addr)
	if err != nil {
		l.logger.StoreError("check", err)

		return LearnedMatch{}, false
	}

	var best *LearnedIPRange

	for i := range ranges {
		current := &ranges[i]

		if !current.IsActive || !l.trusted(*current) {
			continue
		}

		if best == nil || current.SampleCount > best.SampleCount ||
			(current.SampleCount == best.SampleCount && current.CIDR.Bits() > best.CIDR.Bits()) {
			best = current
		}
	}

	if best == nil {
		return LearnedMatch{}, false
	}

	return LearnedMatch{
		CIDR:        best.CIDR,
		City:        best.LearnedCity,
		State:       best.LearnedState,
		Confidence:  int(math.Round(math.Min(best.SuccessRate, best.AverageConfidence))),
		SampleCount: best.SampleCount,
	}, true
}

// ActiveBlocks summarizes active ranges per city. Adjacent ranges are
// merged into larger CIDRs.
func (l *LearningStore) ActiveBlocks(ctx context.Context) ([]LearnedBlock, error) {
	ranges, err := l.store.ListActive(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "cannot list active ranges")
	}

	type blockKey struct {
		city  string
		state string
	}

	index := map[blockKey]*LearnedBlock{}
	keys := []blockKey{}

	for _, v := range ranges {
		if !v.IsActive || !l.trusted(v) {
			continue
		}

		key := blockKey{city: v.LearnedCity, state: v.LearnedState}

		block, ok := index[key]
		if !ok {
			block = &LearnedBlock{City: key.city, State: key.state}
			index[key] = block
			keys = append(keys, key)
		}

		block.CIDRs = append(block.CIDRs, v.CIDR.String())
		block.SampleCount += v.SampleCount
	}

	rv := make([]LearnedBlock, 0, len(keys))

	for _, key := range keys {
		block := index[key]

		merged, err := cidrman.MergeCIDRs(block.CIDRs)
		if err != nil {
			return nil, errors.Annotatef(err, "cannot merge ranges of %s", block.City)
		}

		block.CIDRs = merged
		rv = append(rv, *block)
	}

	sort.Slice(rv, func(i, j int) bool {
		if rv[i].City != rv[j].City {
			return rv[i].City < rv[j].City
		}

		return rv[i].State < rv[j].State
	})

	return rv, nil
}

func (m LearnedMatch) evidence() Evidence {
	rv := Evidence{
		Source:     SourceLearnedRange,
		City:       m.City,
		State:      m.State,
		Country:    gazetteer.CountryCode,
		Confidence: m.Confidence,
	}

	rv.SetMeta(MetaCIDR, m.CIDR.String())

	return rv
}

// IPToPrefix returns a masked IPv4 prefix of the address, like
// 10.1.2.0/24 for 10.1.2.3.
func IPToPrefix(ip net.IP, mask int) (netip.Prefix, error) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Prefix{}, errors.NotValidf("ip %v", ip)
	}

	addr = addr.Unmap()
	if !addr.Is4() {
		return netip.Prefix{}, ErrNotIPv4
	}

	prefix, err := addr.Prefix(mask)
	if err != nil {
		return netip.Prefix{}, errors.Annotatef(err, "cannot apply mask %d", mask)
	}

	return prefix, nil
}

// IPToCIDR is IPToPrefix which returns a string.
func IPToCIDR(ip net.IP, mask int) (string, error) {
	prefix, err := IPToPrefix(ip, mask)
	if err != nil {
		return "", err
	}

	return prefix.String(), nil
}

// NewLearningStore makes a new learning store on top of RangeStore.
func NewLearningStore(store RangeStore, logger Logger, opts LearningOptions) (*LearningStore, error) {
	if store == nil {
		return nil, errors.NotValidf("nil range store")
	}

	if logger == nil {
		logger = NoopLogger{}
	}

	if opts.Mask == 0 {
		opts.Mask = DefaultLearningMask
	}

	if opts.Threshold == 0 {
		opts.Threshold = DefaultLearningThreshold
	}

	if opts.MinSamples == 0 {
		opts.MinSamples = DefaultLearningMinSamples
	}

	if opts.MinRate == 0 {
		opts.MinRate = DefaultLearningMinRate
	}

	switch {
	case opts.Mask < 8 || opts.Mask > 32:
		return nil, errors.NotValidf("learning mask /%d", opts.Mask)
	case opts.Threshold < 0 || opts.Threshold > 100:
		return nil, errors.NotValidf("learning threshold %d", opts.Threshold)
	case opts.MinSamples < 1:
		return nil, errors.NotValidf("min samples %d", opts.MinSamples)
	case opts.MinRate < 0 || opts.MinRate > 100:
		return nil, errors.NotValidf("min rate %v", opts.MinRate)
	}

	return &LearningStore{
		store:  store,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}, nil
}
