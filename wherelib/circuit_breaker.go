package wherelib

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultCircuitThreshold = 5
	DefaultCircuitTimeout   = time.Minute
)

// CircuitState is a state of circuit breaker.
type CircuitState uint32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
)

func (c CircuitState) String() string {
	if c == CircuitOpen {
		return "open"
	}

	return "closed"
}

// MarshalText is to conform encoding.TextMarshaler interface.
func (c CircuitState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// failureCounter counts failures within a window which starts on the
// first failure and lasts for a given TTL.
type failureCounter interface {
	Incr(ctx context.Context) int64
	Reset(ctx context.Context)
}

type memoryFailureCounter struct {
	mutex     sync.Mutex
	count     int64
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func (m *memoryFailureCounter) Incr(_ context.Context) int64 {
	now := m.now()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !now.Before(m.expiresAt) {
		m.count = 0
		m.expiresAt = now.Add(m.ttl)
	}

	m.count++

	return m.count
}

func (m *memoryFailureCounter) Reset(_ context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.count = 0
	m.expiresAt = time.Time{}
}

// cacheFailureCounter shares a failure window between processes. If
// cache is not available, it falls back to the local counter.
type cacheFailureCounter struct {
	cache    Cache
	key      string
	ttl      time.Duration
	logger   Logger
	fallback *memoryFailureCounter
}

func (c *cacheFailureCounter) Incr(ctx context.Context) int64 {
	value, err := c.cache.Increment(ctx, c.key, c.ttl)
	if err != nil {
		c.logger.CacheError(c.key, err)

		return c.fallback.Incr(ctx)
	}

	return value
}

func (c *cacheFailureCounter) Reset(ctx context.Context) {
	c.fallback.Reset(ctx)

	if err := c.cache.Delete(ctx, c.key); err != nil {
		c.logger.CacheError(c.key, err)
	}
}

// circuitBreaker has 2 states. It is closed until failure counter
// reaches a threshold. Then it is open for a timeout and closes again
// with a clean counter.
type circuitBreaker struct {
	name        string
	state       uint32
	mutex       sync.Mutex
	openedUntil time.Time

	counter     failureCounter
	threshold   int64
	openTimeout time.Duration
	logger      Logger
	now         func() time.Time
}

// Allow checks if a call is allowed.
func (c *circuitBreaker) Allow() bool {
	if atomic.LoadUint32(&c.state) == uint32(CircuitClosed) {
		return true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.now().Before(c.openedUntil) {
		return false
	}

	c.openedUntil = time.Time{}
	atomic.StoreUint32(&c.state, uint32(CircuitClosed))

	return true
}

func (c *circuitBreaker) State() CircuitState {
	if !c.Allow() {
		return CircuitOpen
	}

	return CircuitClosed
}

func (c *circuitBreaker) Failure(ctx context.Context) {
	if c.counter.Incr(ctx) < c.threshold {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if atomic.LoadUint32(&c.state) == uint32(CircuitOpen) {
		return
	}

	c.openedUntil = c.now().Add(c.openTimeout)
	atomic.StoreUint32(&c.state, uint32(CircuitOpen))
	c.counter.Reset(ctx)
	c.logger.CircuitOpened(c.name, c.openedUntil)
}

func (c *circuitBreaker) Success(ctx context.Context) {
	c.counter.Reset(ctx)
}

func newCircuitBreaker(name string, threshold int, openTimeout time.Duration,
	counter failureCounter, logger Logger, now func() time.Time) *circuitBreaker {
	return &circuitBreaker{
		name:        name,
		counter:     counter,
		threshold:   int64(threshold),
		openTimeout: openTimeout,
		logger:      logger,
		now:         now,
	}
}

func newFailureCounter(cache Cache, key string, ttl time.Duration,
	logger Logger, now func() time.Time) failureCounter {
	local := &memoryFailureCounter{
		ttl: ttl,
		now: now,
	}

	if cache == nil {
		return local
	}

	return &cacheFailureCounter{
		cache:    cache,
		key:      key,
		ttl:      ttl,
		logger:   logger,
		fallback: local,
	}
}
