package wherelib

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) ProviderError(ip net.IP, name string, err error) {
	m.Called(ip, name, err)
}

func (m *LoggerMock) CircuitOpened(name string, until time.Time) {
	m.Called(name, until)
}

func (m *LoggerMock) CacheError(key string, err error) {
	m.Called(key, err)
}

func (m *LoggerMock) StoreError(op string, err error) {
	m.Called(op, err)
}

func (m *LoggerMock) Debug(name, msg string) {
	m.Called(name, msg)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)

	if data := args.Get(0); data != nil {
		return data.([]byte), args.Bool(1), args.Error(2)
	}

	return nil, args.Bool(1), args.Error(2)
}

func (m *CacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *CacheMock) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, key, ttl)

	return args.Get(0).(int64), args.Error(1)
}

func (m *CacheMock) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type LocalGeoDBMock struct {
	mock.Mock
}

func (m *LocalGeoDBMock) Name() string {
	return m.Called().String(0)
}

func (m *LocalGeoDBMock) City(ip net.IP) (GeoRecord, error) {
	args := m.Called(ip)

	return args.Get(0).(GeoRecord), args.Error(1)
}

type DNSResolverMock struct {
	mock.Mock
}

func (m *DNSResolverMock) LookupAddr(ctx context.Context, ip net.IP) (string, error) {
	args := m.Called(ctx, ip)

	return args.String(0), args.Error(1)
}

// MapCache is a naive Cache for tests.
type MapCache struct {
	mutex sync.Mutex
	data  map[string][]byte
}

func (m *MapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	value, ok := m.data[key]

	return value, ok, nil
}

func (m *MapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.data == nil {
		m.data = map[string][]byte{}
	}

	m.data[key] = value

	return nil
}

func (m *MapCache) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.data == nil {
		m.data = map[string][]byte{}
	}

	value := int64(len(m.data[key])) + 1
	m.data[key] = make([]byte, value)

	return value, nil
}

func (m *MapCache) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.data, key)

	return nil
}

func (m *MapCache) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.data)
}

// MapRangeStore is a naive RangeStore for tests.
type MapRangeStore struct {
	mutex  sync.Mutex
	ranges map[netip.Prefix]LearnedIPRange
}

func (m *MapRangeStore) FindContaining(_ context.Context, addr netip.Addr) ([]LearnedIPRange, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rv := []LearnedIPRange{}

	for k, v := range m.ranges {
		if k.Contains(addr) {
			rv = append(rv, v)
		}
	}

	return rv, nil
}

func (m *MapRangeStore) Upsert(_ context.Context, prefix netip.Prefix, fn UpsertFunc) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.ranges == nil {
		m.ranges = map[netip.Prefix]LearnedIPRange{}
	}

	var current *LearnedIPRange

	if value, ok := m.ranges[prefix]; ok {
		current = &value
	}

	value, err := fn(current)
	if err != nil {
		return err
	}

	m.ranges[prefix] = value

	return nil
}

func (m *MapRangeStore) ListActive(_ context.Context) ([]LearnedIPRange, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rv := []LearnedIPRange{}

	for _, v := range m.ranges {
		if v.IsActive {
			rv = append(rv, v)
		}
	}

	return rv, nil
}

func (m *MapRangeStore) Get(prefix netip.Prefix) (LearnedIPRange, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	value, ok := m.ranges[prefix]

	return value, ok
}

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.now = f.now.Add(d)
}
