// Package providers has a set of sources for wherelib.
//
// Online vendors are described by Vendor: a URL template, a default
// weight and a normalizer which converts a vendor-specific JSON into
// wherelib.Evidence. A set of vendors is turned into ensemble sources
// with Vendor.Source.
//
// Offline databases (MaxMind GeoIP2/GeoLite2 City and IP2Location BIN)
// are implemented as LocalDB, a wherelib.LocalGeoDB which can be
// reloaded when a file on disk is changed.
package providers
