package api

import (
	"context"
	"net"

	"github.com/9seconds/whereabouts/wherelib"
)

// Engine is satisfied by *wherelib.Engine.
type Engine interface {
	Infer(ctx context.Context, ip net.IP, signals wherelib.Signals) wherelib.LocationPrediction
}

// VPNDetector is satisfied by *wherelib.VPNScorer.
type VPNDetector interface {
	Detect(ip net.IP, asn, hostname string) wherelib.VPNAssessment
}

// Learner is satisfied by *wherelib.LearningStore.
type Learner interface {
	Learn(ctx context.Context, detection wherelib.Detection) bool
	Check(ctx context.Context, ip net.IP) (wherelib.LearnedMatch, bool)
	ActiveBlocks(ctx context.Context) ([]wherelib.LearnedBlock, error)
}

// StatsReporter is satisfied by *wherelib.Ensemble.
type StatsReporter interface {
	Stats() []*wherelib.UsageStats
	CircuitState() wherelib.CircuitState
}
