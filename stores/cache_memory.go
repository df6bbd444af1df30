package stores

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/juju/errors"
)

const (
	// DefaultMemoryCacheSize is a default size of MemoryCache in bytes.
	DefaultMemoryCacheSize = 64 * 1024 * 1024

	memoryCacheBufferItems = 64
	memoryCacheAvgItemSize = 512
)

type memoryCounter struct {
	value    int64
	deadline time.Time
}

// MemoryCache is an in-process wherelib.Cache.
//
// Values are kept in ristretto. Counters are kept separately: ristretto
// may reject a write and counter has to be exact.
type MemoryCache struct {
	cache        *ristretto.Cache[string, []byte]
	counters     map[string]memoryCounter
	countersLock sync.Mutex
	now          func() time.Time
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.cache.Get(key)

	return value, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return errors.NotValidf("ttl %v", ttl)
	}

	m.cache.SetWithTTL(key, value, int64(len(value))+1, ttl)
	m.cache.Wait()

	return nil
}

func (m *MemoryCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.countersLock.Lock()
	defer m.countersLock.Unlock()

	now := m.now()
	counter, ok := m.counters[key]

	if !ok || (!counter.deadline.IsZero() && !now.Before(counter.deadline)) {
		counter = memoryCounter{}

		if ttl > 0 {
			counter.deadline = now.Add(ttl)
		}
	}

	counter.value++
	m.counters[key] = counter

	m.collectCounters(now)

	return counter.value, nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.cache.Del(key)

	m.countersLock.Lock()
	delete(m.counters, key)
	m.countersLock.Unlock()

	return nil
}

func (m *MemoryCache) Close() {
	m.cache.Close()
}

func (m *MemoryCache) collectCounters(now time.Time) {
	for k, v := range m.counters {
		if !v.deadline.IsZero() && !now.Before(v.deadline) {
			delete(m.counters, k)
		}
	}
}

// NewMemoryCache makes a cache which takes approximately maxSize bytes.
func NewMemoryCache(maxSize int64) (*MemoryCache, error) {
	if maxSize == 0 {
		maxSize = DefaultMemoryCacheSize
	}

	if maxSize < 0 {
		return nil, errors.NotValidf("cache size %d", maxSize)
	}

	numCounters := 10 * (maxSize / memoryCacheAvgItemSize)
	if numCounters < 1000 {
		numCounters = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: numCounters,
		MaxCost:     maxSize,
		BufferItems: memoryCacheBufferItems,
	})
	if err != nil {
		return nil, errors.Annotate(err, "cannot create ristretto cache")
	}

	return &MemoryCache{
		cache:    cache,
		counters: map[string]memoryCounter{},
		now:      time.Now,
	}, nil
}
