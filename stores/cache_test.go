package stores_test

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/9seconds/whereabouts/stores"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/stretchr/testify/suite"
)

type CacheTestSuite struct {
	suite.Suite

	ctx       context.Context
	makeCache func() (wherelib.Cache, func())
	cache     wherelib.Cache
	teardown  func()
	prefix    string
}

func (suite *CacheTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.prefix = "test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":"
	suite.cache, suite.teardown = suite.makeCache()
}

func (suite *CacheTestSuite) TearDownTest() {
	suite.teardown()
}

func (suite *CacheTestSuite) TestMissing() {
	value, ok, err := suite.cache.Get(suite.ctx, suite.prefix+"missing")

	suite.NoError(err)
	suite.False(ok)
	suite.Nil(value)
}

func (suite *CacheTestSuite) TestSetGet() {
	suite.NoError(suite.cache.Set(suite.ctx, suite.prefix+"key", []byte(`{"city":"Pune"}`), time.Minute))

	value, ok, err := suite.cache.Get(suite.ctx, suite.prefix+"key")

	suite.NoError(err)
	suite.True(ok)
	suite.Equal(`{"city":"Pune"}`, string(value))
}

func (suite *CacheTestSuite) TestExpiration() {
	suite.NoError(suite.cache.Set(suite.ctx, suite.prefix+"key", []byte("value"), 1100*time.Millisecond))

	suite.Eventually(func() bool {
		_, ok, err := suite.cache.Get(suite.ctx, suite.prefix+"key")

		return err == nil && !ok
	}, 5*time.Second, 50*time.Millisecond)
}

func (suite *CacheTestSuite) TestDelete() {
	suite.NoError(suite.cache.Set(suite.ctx, suite.prefix+"key", []byte("value"), time.Minute))
	suite.NoError(suite.cache.Delete(suite.ctx, suite.prefix+"key"))

	_, ok, err := suite.cache.Get(suite.ctx, suite.prefix+"key")

	suite.NoError(err)
	suite.False(ok)
}

func (suite *CacheTestSuite) TestIncrement() {
	for i := int64(1); i <= 3; i++ {
		value, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", time.Minute)

		suite.NoError(err)
		suite.Equal(i, value)
	}

	suite.NoError(suite.cache.Delete(suite.ctx, suite.prefix+"counter"))

	value, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", time.Minute)

	suite.NoError(err)
	suite.EqualValues(1, value)
}

func (suite *CacheTestSuite) TestIncrementWindow() {
	value, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", 1100*time.Millisecond)

	suite.NoError(err)
	suite.EqualValues(1, value)

	suite.Eventually(func() bool {
		value, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", time.Minute)

		return err == nil && value == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func (suite *CacheTestSuite) TestConcurrentIncrement() {
	wg := &sync.WaitGroup{}

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", time.Minute)
			suite.NoError(err)
		}()
	}

	wg.Wait()

	value, err := suite.cache.Increment(suite.ctx, suite.prefix+"counter", time.Minute)

	suite.NoError(err)
	suite.EqualValues(21, value)
}

func TestMemoryCache(t *testing.T) {
	suite.Run(t, &CacheTestSuite{
		makeCache: func() (wherelib.Cache, func()) {
			cache, err := stores.NewMemoryCache(1024 * 1024)
			if err != nil {
				panic(err)
			}

			return cache, cache.Close
		},
	})
}

func TestMemoryCacheIncorrectSize(t *testing.T) {
	if _, err := stores.NewMemoryCache(-1); err == nil {
		t.Fatal("error is expected")
	}
}

func TestIntegrationRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipped because of the short mode")
		return
	}

	url, ok := os.LookupEnv("WHEREABOUTS_REDIS_URL")
	if !ok {
		t.Skip("Skipped because WHEREABOUTS_REDIS_URL is not set")
		return
	}

	suite.Run(t, &CacheTestSuite{
		makeCache: func() (wherelib.Cache, func()) {
			cache, err := stores.NewRedisCache(context.Background(), url, "whereabouts:")
			if err != nil {
				panic(err)
			}

			return cache, func() { cache.Close() }
		},
	})
}

func TestRedisCacheIncorrectURL(t *testing.T) {
	if _, err := stores.NewRedisCache(context.Background(), "mysql://localhost", ""); err == nil {
		t.Fatal("error is expected")
	}
}
