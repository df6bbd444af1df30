package wherelib

import (
	"context"
	"net"

	"github.com/juju/errors"
)

const (
	DefaultFallbackWeight = 30.0

	FallbackLowEvidenceWeight = "low_evidence_weight"
	FallbackNoCityEvidence    = "no_city_evidence"
)

// DefaultSourceWeights are base weights of sources. Evidence weight is
// a base weight scaled by evidence confidence.
var DefaultSourceWeights = map[Source]float64{
	SourceEdgeHeaders:  40,
	SourceLanguage:     8,
	SourceFont:         6,
	SourceLocalGeoIP:   20,
	SourceReverseDNS:   22,
	SourceRDAP:         15,
	SourceNetworkProbe: 25,
	SourceLearnedRange: 30,
	SourceEnsemble:     35,
}

// EngineConfig is a set of collaborators for Engine. All of them are
// optional: extractors without collaborators are skipped.
type EngineConfig struct {
	Logger     Logger
	LocalDB    LocalGeoDB
	ReverseDNS *ReverseDNS
	RDAP       *RDAP
	Probe      *ProbeInterpreter
	Learning   *LearningStore
	Ensemble   *Ensemble

	// Weights override DefaultSourceWeights.
	Weights map[Source]float64

	// Ensemble is used only if accumulated weight is less than this
	// value or if nothing has produced a city.
	FallbackWeight float64
}

// Engine collects evidences and fuses them into a prediction.
type Engine struct {
	logger         Logger
	localDB        LocalGeoDB
	reverseDNS     *ReverseDNS
	rdap           *RDAP
	probe          *ProbeInterpreter
	learning       *LearningStore
	ensemble       *Ensemble
	weights        map[Source]float64
	fallbackWeight float64
}

type evidenceCollector struct {
	weights map[Source]float64
	items   []Evidence
	weight  float64
	hasCity bool
}

func (e *evidenceCollector) Add(evidence Evidence) {
	evidence.Confidence = clampInt(evidence.Confidence, 0, 100)
	evidence.Weight = e.weights[evidence.Source] * float64(evidence.Confidence) / 100

	e.items = append(e.items, evidence)
	e.weight += evidence.Weight
	e.hasCity = e.hasCity || evidence.City != ""
}

// Infer collects evidences in a fixed order: cheap extractors first,
// optional ones next, ensemble as the last resort. It never fails: if
// nothing is known, prediction has zero confidence.
func (e *Engine) Infer(ctx context.Context, ip net.IP, signals Signals) LocationPrediction {
	collector := &evidenceCollector{
		weights: e.weights,
		items:   make([]Evidence, 0, 10),
	}
	vpnIndicators := []string{}

	if evidence, ok := signals.Edge.evidence(); ok {
		collector.Add(evidence)
	}

	if inference, ok := InferFromLanguages(signals.Languages); ok {
		collector.Add(inference.evidence())
	}

	if inference, ok := InferFromFonts(signals.Fonts); ok {
		collector.Add(inference.evidence())
	}

	if e.localDB != nil {
		if evidence, ok := localGeoIPEvidence(e.localDB, ip, e.logger); ok {
			collector.Add(evidence)
		}
	}

	if e.reverseDNS != nil {
		hostname := signals.Hostname
		if hostname == "" {
			hostname = e.reverseDNS.Hostname(ctx, ip)
		}

		if match, ok := e.reverseDNS.ExtractCity(hostname); ok {
			collector.Add(match.evidence())
		}
	}

	if e.probe != nil && signals.Probe != nil {
		result := e.probe.Process(*signals.Probe, ip)
		vpnIndicators = append(vpnIndicators, result.VPNIndicators...)

		if result.Evidence != nil {
			collector.Add(*result.Evidence)
		}
	}

	if e.rdap != nil {
		if result, ok := e.rdap.Lookup(ctx, ip); ok {
			collector.Add(result.evidence())
		}
	}

	if e.learning != nil {
		if match, ok := e.learning.Check(ctx, ip); ok {
			collector.Add(match.evidence())
		}
	}

	fallbackReason := ""

	if e.ensemble != nil {
		switch {
		case collector.weight < e.fallbackWeight:
			fallbackReason = FallbackLowEvidenceWeight
		case !collector.hasCity:
			fallbackReason = FallbackNoCityEvidence
		}

		if fallbackReason != "" {
			consensus := e.ensemble.Lookup(ctx, ip)
			if evidence, ok := consensus.evidence(); ok {
				collector.Add(evidence)
			}
		}
	}

	rv := fuse(collector.items)
	rv.IP = ip
	rv.Telemetry.FallbackReason = fallbackReason
	rv.VPNIndicators = vpnIndicators

	return rv
}

// NewEngine makes a new engine.
func NewEngine(conf EngineConfig) (*Engine, error) {
	rv := &Engine{
		logger:         conf.Logger,
		localDB:        conf.LocalDB,
		reverseDNS:     conf.ReverseDNS,
		rdap:           conf.RDAP,
		probe:          conf.Probe,
		learning:       conf.Learning,
		ensemble:       conf.Ensemble,
		weights:        map[Source]float64{},
		fallbackWeight: conf.FallbackWeight,
	}

	if rv.logger == nil {
		rv.logger = NoopLogger{}
	}

	switch {
	case rv.fallbackWeight < 0:
		return nil, errors.NotValidf("fallback weight %v", rv.fallbackWeight)
	case rv.fallbackWeight == 0:
		rv.fallbackWeight = DefaultFallbackWeight
	}

	for k, v := range DefaultSourceWeights {
		rv.weights[k] = v
	}

	for k, v := range conf.Weights {
		if _, ok := DefaultSourceWeights[k]; !ok {
			return nil, errors.NotValidf("weight of unknown source %s", k)
		}

		if v < 0 {
			return nil, errors.NotValidf("weight %v of %s", v, k)
		}

		rv.weights[k] = v
	}

	return rv, nil
}
