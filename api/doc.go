// Package api is a thin HTTP surface over wherelib.
//
//	GET  /v1/infer          infers a location of the caller
//	POST /v1/infer          infers a location of an IP with signals
//	GET  /v1/vpn            scores VPN/proxy indicators
//	GET  /v1/learned        checks an IP or lists learned blocks
//	POST /v1/learn          registers a confirmed detection
//	GET  /v1/providers      reports ensemble usage statistics
//
// Errors are always JSON: {"error": {"message": ..., "context": ...}}.
package api
