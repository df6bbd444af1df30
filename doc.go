// Whereabouts is a service which infers a city and a state of Indian
// users from their IP addresses and browser signals.
//
// Idea is simple: a single geolocation database is often wrong about
// Indian ISPs, which route whole states through a handful of
// gateways. So whereabouts collects many weak signals and fuses them:
// CDN edge headers, browser languages and fonts, reverse DNS of ISP
// routers, RDAP network names, latency to CDN PoPs, local GeoIP
// databases, ranges it has learned from confirmed detections and, as
// a fallback, a consensus of several online geolocation APIs.
//
// Tool itself is organized into several logical parts:
//
// # Wherelib
//
// wherelib is a main package of the application which contains Engine
// and all evidence extractors. It has its own small interfaces for
// caches, storages and logging.
//
// # Providers
//
// This package has online vendors for the ensemble and local
// databases (MaxMind and IP2Location).
//
// # Stores
//
// Caches (ristretto, Redis) and storages of learned ranges (memory,
// SQLite, PostgreSQL).
//
// # API
//
// A thin HTTP layer based on chi.
//
// A main package itself is an example of how to wire all these
// packages together. Resulting binary starts HTTP server, and it also
// has a couple of commands to debug inference from a command line.
package main
