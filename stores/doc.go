// Package stores has backends for wherelib storage interfaces.
//
// wherelib.Cache is implemented by MemoryCache (ristretto, single
// process) and RedisCache (shared between processes, so circuit
// breaker failures and ensemble results are shared too).
//
// wherelib.RangeStore is implemented by MemoryRangeStore (radix tree,
// volatile), SQLiteRangeStore (single node) and PostgresRangeStore
// (shared). All of them serialize concurrent upserts of the same
// prefix.
package stores
