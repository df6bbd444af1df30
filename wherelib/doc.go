// Package wherelib is a passive location inference engine.
//
// It infers city, state and country of a client from signals which do
// not require any device permission: edge network geo headers, browser
// languages and fonts, local GeoIP databases, reverse DNS, network
// registration data, edge PoP probes, ranges learned from previous
// confident detections and, as a last resort, an ensemble of third
// party IP geolocation APIs.
//
// Each source produces an Evidence. Engine collects evidences in a
// fixed order and fuses them with a weighted vote into a
// LocationPrediction. Engine never fails for business reasons: if
// nothing is known, it returns a prediction with zero confidence and
// "none" method.
//
// All external collaborators (HTTP, cache, DNS, range storage, local
// databases, logging) are injected as interfaces, see interfaces.go.
// Implementations live in stores and providers packages.
//
// VPNScorer and LearningStore are independent of Engine. Callers
// usually run them after inference with the same IP, ASN and hostname.
package wherelib
