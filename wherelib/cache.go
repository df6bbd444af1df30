package wherelib

import (
	"context"
	"encoding/json"
	"time"

	"github.com/juju/errors"
)

// cacheClient is a JSON wrapper around Cache which never fails. Nil
// cache is a valid value and means 'no caching'.
type cacheClient struct {
	cache  Cache
	logger Logger
}

func (c cacheClient) load(ctx context.Context, key string, value interface{}) (bool, error) {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if err := json.Unmarshal(data, value); err != nil {
		c.logger.CacheError(key, errors.Annotate(err, "cannot decode cached value"))

		return false, nil
	}

	return true, nil
}

func (c cacheClient) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.CacheError(key, errors.Annotate(err, "cannot encode value"))

		return
	}

	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.CacheError(key, err)
	}
}

// remember returns a cached value or computes a new one. compute
// reports if its result is worth caching.
//
// If cache is broken, value is computed directly and is not stored.
func remember[T any](ctx context.Context, c cacheClient, key string, ttl time.Duration,
	compute func(context.Context) (T, bool)) T {
	if c.cache == nil {
		value, _ := compute(ctx)

		return value
	}

	var cached T

	ok, err := c.load(ctx, key, &cached)

	switch {
	case err != nil:
		c.logger.CacheError(key, err)

		value, _ := compute(ctx)

		return value
	case ok:
		return cached
	}

	value, cacheable := compute(ctx)
	if cacheable {
		c.store(ctx, key, value, ttl)
	}

	return value
}
