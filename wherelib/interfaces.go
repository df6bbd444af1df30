package wherelib

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// Fetcher performs HTTP GET requests. Implementation is responsible
// for timeouts, so callers do not have to set them up.
type Fetcher interface {
	Fetch(ctx context.Context, url string, insecure bool) (int, []byte, error)
}

// Cache is a key-value storage with expiration. Missing keys are not
// errors: Get returns false for them.
//
// Increment increases an integer counter and returns a new value. TTL
// is set only when a counter is created, so it defines a window which
// starts from the first increment.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// LocalGeoDB is a local city database, like GeoLite2 City.
type LocalGeoDB interface {
	Name() string
	City(ip net.IP) (GeoRecord, error)
}

// DNSResolver does reverse DNS lookups. Empty hostname means that
// there is no PTR record.
type DNSResolver interface {
	LookupAddr(ctx context.Context, ip net.IP) (string, error)
}

// UpsertFunc gets a current value of the learned range (nil if there is
// no such range yet) and returns a new one. It is executed under a
// lock on the given range, so it has to be fast and must not do any
// I/O.
type UpsertFunc func(current *LearnedIPRange) (LearnedIPRange, error)

// RangeStore is a persistent storage of learned IP ranges.
//
// Upsert is a read-modify-write operation. Implementations have to
// serialize concurrent upserts of the same prefix so updates are not
// lost.
type RangeStore interface {
	FindContaining(ctx context.Context, addr netip.Addr) ([]LearnedIPRange, error)
	Upsert(ctx context.Context, prefix netip.Prefix, fn UpsertFunc) error
	ListActive(ctx context.Context) ([]LearnedIPRange, error)
}

// Logger is used to report problems that library swallows. Nothing of
// these is fatal: library degrades gracefully but it is still
// important to know about.
type Logger interface {
	ProviderError(ip net.IP, name string, err error)
	CircuitOpened(name string, until time.Time)
	CacheError(key string, err error)
	StoreError(op string, err error)
	Debug(name, msg string)
}

// NoopLogger drops everything.
type NoopLogger struct{}

func (NoopLogger) ProviderError(net.IP, string, error) {}
func (NoopLogger) CircuitOpened(string, time.Time)     {}
func (NoopLogger) CacheError(string, error)            {}
func (NoopLogger) StoreError(string, error)            {}
func (NoopLogger) Debug(string, string)                {}
