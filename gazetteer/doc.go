// Package gazetteer keeps the closed set of places the inference engine
// is allowed to resolve to, together with the static tables extractors
// use to map weak signals onto those places.
//
// Everything here is immutable and built once at process start. Tables
// are exported as read-only lookup functions rather than maps so callers
// cannot mutate shared state.
//
// # Names
//
// City and state names coming from third parties are inconsistent:
// colonial spellings, local spellings, airport codes, typos. Use
// NormalizeCity and NormalizeState before comparing or voting. Both are
// idempotent.
package gazetteer
