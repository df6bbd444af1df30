package wherelib

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CircuitBreakerTestSuite struct {
	suite.Suite

	ctx     context.Context
	clock   *fakeClock
	logMock *LoggerMock
	cb      *circuitBreaker
}

func (suite *CircuitBreakerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.clock = &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	suite.logMock = &LoggerMock{}
	suite.logMock.On("CircuitOpened", "test", mock.Anything).Maybe()

	counter := newFailureCounter(nil, "", time.Minute, suite.logMock, suite.clock.Now)
	suite.cb = newCircuitBreaker("test", 3, time.Minute, counter, suite.logMock, suite.clock.Now)
}

func (suite *CircuitBreakerTestSuite) TearDownTest() {
	suite.logMock.AssertExpectations(suite.T())
}

func (suite *CircuitBreakerTestSuite) TestClosedByDefault() {
	suite.True(suite.cb.Allow())
	suite.Equal(CircuitClosed, suite.cb.State())
}

func (suite *CircuitBreakerTestSuite) TestOpensOnThreshold() {
	suite.cb.Failure(suite.ctx)
	suite.cb.Failure(suite.ctx)
	suite.True(suite.cb.Allow())

	suite.cb.Failure(suite.ctx)
	suite.False(suite.cb.Allow())
	suite.Equal(CircuitOpen, suite.cb.State())
	suite.logMock.AssertCalled(suite.T(), "CircuitOpened", "test",
		suite.clock.Now().Add(time.Minute))
}

func (suite *CircuitBreakerTestSuite) TestClosesAfterTimeout() {
	for i := 0; i < 3; i++ {
		suite.cb.Failure(suite.ctx)
	}

	suite.clock.Advance(59 * time.Second)
	suite.False(suite.cb.Allow())

	suite.clock.Advance(time.Second)
	suite.True(suite.cb.Allow())

	// counter is clean after reopening
	suite.cb.Failure(suite.ctx)
	suite.True(suite.cb.Allow())
}

func (suite *CircuitBreakerTestSuite) TestSuccessResetsCounter() {
	suite.cb.Failure(suite.ctx)
	suite.cb.Failure(suite.ctx)
	suite.cb.Success(suite.ctx)
	suite.cb.Failure(suite.ctx)
	suite.cb.Failure(suite.ctx)

	suite.True(suite.cb.Allow())
}

func (suite *CircuitBreakerTestSuite) TestFailureWindowExpires() {
	suite.cb.Failure(suite.ctx)
	suite.cb.Failure(suite.ctx)

	suite.clock.Advance(2 * time.Minute)

	suite.cb.Failure(suite.ctx)
	suite.True(suite.cb.Allow())
}

func TestCircuitBreaker(t *testing.T) {
	suite.Run(t, &CircuitBreakerTestSuite{})
}

type CacheFailureCounterTestSuite struct {
	suite.Suite

	ctx       context.Context
	clock     *fakeClock
	logMock   *LoggerMock
	cacheMock *CacheMock
	counter   failureCounter
}

func (suite *CacheFailureCounterTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.clock = &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	suite.logMock = &LoggerMock{}
	suite.cacheMock = &CacheMock{}
	suite.counter = newFailureCounter(suite.cacheMock, "key", time.Minute,
		suite.logMock, suite.clock.Now)
}

func (suite *CacheFailureCounterTestSuite) TearDownTest() {
	suite.logMock.AssertExpectations(suite.T())
	suite.cacheMock.AssertExpectations(suite.T())
}

func (suite *CacheFailureCounterTestSuite) TestShared() {
	suite.cacheMock.On("Increment", suite.ctx, "key", time.Minute).Return(int64(4), nil).Once()

	suite.EqualValues(4, suite.counter.Incr(suite.ctx))
}

func (suite *CacheFailureCounterTestSuite) TestFallback() {
	suite.cacheMock.On("Increment", suite.ctx, "key", time.Minute).Return(int64(0), io.EOF).Twice()
	suite.logMock.On("CacheError", "key", io.EOF).Twice()

	suite.EqualValues(1, suite.counter.Incr(suite.ctx))
	suite.EqualValues(2, suite.counter.Incr(suite.ctx))
}

func (suite *CacheFailureCounterTestSuite) TestResetBoth() {
	suite.cacheMock.On("Increment", suite.ctx, "key", time.Minute).Return(int64(0), io.EOF).Once()
	suite.logMock.On("CacheError", "key", io.EOF).Twice()
	suite.cacheMock.On("Delete", suite.ctx, "key").Return(io.EOF).Once()

	suite.counter.Incr(suite.ctx)
	suite.counter.Reset(suite.ctx)

	suite.cacheMock.On("Increment", suite.ctx, "key", time.Minute).Return(int64(0), io.EOF).Once()
	suite.logMock.On("CacheError", "key", io.EOF).Once()

	suite.EqualValues(1, suite.counter.Incr(suite.ctx))
}

func TestCacheFailureCounter(t *testing.T) {
	suite.Run(t, &CacheFailureCounterTestSuite{})
}
