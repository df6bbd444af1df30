package wherelib_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite

	ctx       context.Context
	ip        net.IP
	transport *httpmock.MockTransport
	fetcher   wherelib.Fetcher
	ensemble  *wherelib.Ensemble
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ip = net.ParseIP("49.207.1.1")
	suite.transport = httpmock.NewMockTransport()

	fetcher, err := wherelib.NewFetcher(wherelib.FetcherOptions{
		Transport: suite.transport,
	})
	suite.Require().NoError(err)

	suite.fetcher = fetcher

	sources := []wherelib.EnsembleSource{
		{Name: "first", URL: "https://first.example/{ip}", Weight: 1, Normalize: testNormalize},
		{Name: "second", URL: "https://second.example/{ip}", Weight: 1, Normalize: testNormalize},
	}

	ensemble, err := wherelib.NewEnsemble(fetcher, nil, nil, sources, wherelib.EnsembleOptions{})
	suite.Require().NoError(err)

	suite.ensemble = ensemble
}

func (suite *EngineTestSuite) TearDownTest() {
	suite.ensemble.Shutdown()
}

func (suite *EngineTestSuite) RespondEnsemble(body string) {
	for _, v := range []string{"https://first.example/", "https://second.example/"} {
		suite.transport.RegisterResponder(http.MethodGet, v+suite.ip.String(),
			httpmock.NewStringResponder(http.StatusOK, body))
	}
}

func (suite *EngineTestSuite) MakeEngine(conf wherelib.EngineConfig) *wherelib.Engine {
	engine, err := wherelib.NewEngine(conf)
	suite.Require().NoError(err)

	return engine
}

func (suite *EngineTestSuite) TestNoEvidence() {
	rv := suite.MakeEngine(wherelib.EngineConfig{}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal(0, rv.Confidence)
	suite.Equal(wherelib.SourceNone, rv.Method)
	suite.Empty(rv.City)
	suite.Empty(rv.Telemetry.FallbackReason)
	suite.True(suite.ip.Equal(rv.IP))
}

func (suite *EngineTestSuite) TestEdgeCity() {
	rv := suite.MakeEngine(wherelib.EngineConfig{}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Edge: wherelib.EdgeGeo{
			City:    "Bengaluru",
			Region:  "Karnataka",
			Country: "IN",
		},
	})

	suite.Equal("Bangalore", rv.City)
	suite.Equal("Karnataka", rv.State)
	suite.Equal("IN", rv.Country)
	suite.Equal(85, rv.Confidence)
	suite.Equal(wherelib.SourceEdgeHeaders, rv.Method)
	suite.Equal(wherelib.BucketHigh, rv.Telemetry.ConfidenceBucket)
}

func (suite *EngineTestSuite) TestLocalDBIsNotReady() {
	logger := &wherelib.LoggerMock{}
	db := &wherelib.LocalGeoDBMock{}

	db.On("Name").Return("maxmind")
	db.On("City", mock.Anything).Return(wherelib.GeoRecord{}, wherelib.ErrDatabaseIsNotReadyYet)
	logger.On("Debug", "maxmind", "database is not ready yet").Once()

	rv := suite.MakeEngine(wherelib.EngineConfig{
		Logger:  logger,
		LocalDB: db,
	}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal(0, rv.Confidence)
	logger.AssertExpectations(suite.T())
	db.AssertExpectations(suite.T())
}

func (suite *EngineTestSuite) TestLocalDB() {
	db := &wherelib.LocalGeoDBMock{}

	db.On("City", mock.Anything).Return(wherelib.GeoRecord{
		City:    "Poona",
		Country: "IND",
		ISP:     "Airtel",
		ASN:     "AS24560",
	}, nil)

	rv := suite.MakeEngine(wherelib.EngineConfig{LocalDB: db}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal("Pune", rv.City)
	suite.Equal("Maharashtra", rv.State)
	suite.Equal("IN", rv.Country)
	suite.Equal("Airtel", rv.ISP)
	suite.Equal("AS24560", rv.ASN)
	suite.Equal(wherelib.SourceLocalGeoIP, rv.Method)
}

func (suite *EngineTestSuite) TestHostnameFromSignals() {
	resolver := &wherelib.DNSResolverMock{}

	rv := suite.MakeEngine(wherelib.EngineConfig{
		ReverseDNS: wherelib.NewReverseDNS(resolver, nil),
	}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Hostname: "1-2-3-4.bangalore.hathway.com",
	})

	suite.Equal("Bangalore", rv.City)
	suite.Equal(wherelib.SourceReverseDNS, rv.Method)
	suite.Equal(80, rv.Confidence)
	resolver.AssertNotCalled(suite.T(), "LookupAddr", mock.Anything, mock.Anything)
}

func (suite *EngineTestSuite) TestHostnameFromResolver() {
	resolver := &wherelib.DNSResolverMock{}

	resolver.On("LookupAddr", mock.Anything, suite.ip).Return("10.mumbai.hathway.com.", nil)

	rv := suite.MakeEngine(wherelib.EngineConfig{
		ReverseDNS: wherelib.NewReverseDNS(resolver, nil),
	}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal("Mumbai", rv.City)
	suite.Equal("Maharashtra", rv.State)
}

func (suite *EngineTestSuite) TestResolverError() {
	resolver := &wherelib.DNSResolverMock{}
	logger := &wherelib.LoggerMock{}

	resolver.On("LookupAddr", mock.Anything, suite.ip).Return("", io.ErrUnexpectedEOF)
	logger.On("ProviderError", suite.ip, "reverse_dns", mock.Anything).Once()

	rv := suite.MakeEngine(wherelib.EngineConfig{
		Logger:     logger,
		ReverseDNS: wherelib.NewReverseDNS(resolver, logger),
	}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal(0, rv.Confidence)
	logger.AssertExpectations(suite.T())
}

func (suite *EngineTestSuite) TestProbe() {
	probe, err := wherelib.NewProbeInterpreter(0, 0)
	suite.Require().NoError(err)

	rtt := 5.0
	rv := suite.MakeEngine(wherelib.EngineConfig{Probe: probe}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Probe: &wherelib.ProbeData{
			Colo:       "blr",
			RTTMs:      &rtt,
			ObservedIP: "49.207.1.2",
		},
	})

	suite.Equal("Bangalore", rv.City)
	suite.Equal(wherelib.SourceNetworkProbe, rv.Method)
	suite.Equal([]string{wherelib.IndicatorSplitTunnelProxy}, rv.VPNIndicators)
}

func (suite *EngineTestSuite) TestForeignColo() {
	probe, err := wherelib.NewProbeInterpreter(0, 0)
	suite.Require().NoError(err)

	rv := suite.MakeEngine(wherelib.EngineConfig{Probe: probe}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Probe: &wherelib.ProbeData{Colo: "FRA"},
	})

	suite.Equal(0, rv.Confidence)
	suite.Equal([]string{wherelib.IndicatorForeignColo}, rv.VPNIndicators)
}

func (suite *EngineTestSuite) TestLearnedRange() {
	learning, err := wherelib.NewLearningStore(&wherelib.MapRangeStore{}, nil, wherelib.LearningOptions{})
	suite.Require().NoError(err)

	for i := 1; i <= 3; i++ {
		suite.True(learning.Learn(suite.ctx, wherelib.Detection{
			IP:         net.IPv4(49, 207, 1, byte(i)),
			City:       "Hyderabad",
			Confidence: 90,
		}))
	}

	rv := suite.MakeEngine(wherelib.EngineConfig{Learning: learning}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal("Hyderabad", rv.City)
	suite.Equal("Telangana", rv.State)
	suite.Equal(wherelib.SourceLearnedRange, rv.Method)
	suite.Equal("49.207.1.0/24", rv.Evidence[0].Meta[wherelib.MetaCIDR])
}

func (suite *EngineTestSuite) TestRDAP() {
	suite.transport.RegisterResponder(http.MethodGet, "https://rdap.example/ip/"+suite.ip.String(),
		httpmock.NewStringResponder(http.StatusOK, `{"handle": "IN-1", "name": "ABTS-KK"}`))

	rdap, err := wherelib.NewRDAP(suite.fetcher, nil, nil, []string{"https://rdap.example/ip/{ip}"}, 0, 0)
	suite.Require().NoError(err)

	rv := suite.MakeEngine(wherelib.EngineConfig{RDAP: rdap}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Empty(rv.City)
	suite.Equal("Karnataka", rv.State)
	suite.Equal(wherelib.SourceRDAP, rv.Method)
}

func (suite *EngineTestSuite) TestFallbackOnLowWeight() {
	suite.RespondEnsemble(testVendorBody("Pune", "Maharashtra", 18.5204, 73.8567))

	rv := suite.MakeEngine(wherelib.EngineConfig{Ensemble: suite.ensemble}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal("Pune", rv.City)
	suite.Equal(wherelib.SourceEnsemble, rv.Method)
	suite.Equal(wherelib.FallbackLowEvidenceWeight, rv.Telemetry.FallbackReason)
	suite.Equal(2, suite.transport.GetTotalCallCount())
}

func (suite *EngineTestSuite) TestFallbackOnNoCity() {
	suite.RespondEnsemble(testVendorBody("Bengaluru", "Karnataka", 12.9716, 77.5946))

	rv := suite.MakeEngine(wherelib.EngineConfig{Ensemble: suite.ensemble}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Edge:      wherelib.EdgeGeo{Region: "Karnataka"},
		Languages: []string{"kn-IN", "en"},
	})

	suite.Equal("Bangalore", rv.City)
	suite.Equal("Karnataka", rv.State)
	suite.Equal(wherelib.FallbackNoCityEvidence, rv.Telemetry.FallbackReason)
}

func (suite *EngineTestSuite) TestNoFallback() {
	rv := suite.MakeEngine(wherelib.EngineConfig{Ensemble: suite.ensemble}).Infer(suite.ctx, suite.ip, wherelib.Signals{
		Edge: wherelib.EdgeGeo{City: "Chennai"},
	})

	suite.Equal("Chennai", rv.City)
	suite.Empty(rv.Telemetry.FallbackReason)
	suite.Equal(0, suite.transport.GetTotalCallCount())
}

func (suite *EngineTestSuite) TestFallbackWithoutAnswer() {
	suite.transport.RegisterNoResponder(httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	rv := suite.MakeEngine(wherelib.EngineConfig{Ensemble: suite.ensemble}).Infer(suite.ctx, suite.ip, wherelib.Signals{})

	suite.Equal(0, rv.Confidence)
	suite.Equal(wherelib.FallbackLowEvidenceWeight, rv.Telemetry.FallbackReason)
}

func (suite *EngineTestSuite) TestInvalidConfiguration() {
	_, err := wherelib.NewEngine(wherelib.EngineConfig{FallbackWeight: -1})
	suite.Error(err)

	_, err = wherelib.NewEngine(wherelib.EngineConfig{
		Weights: map[wherelib.Source]float64{"unknown": 1},
	})
	suite.Error(err)

	_, err = wherelib.NewEngine(wherelib.EngineConfig{
		Weights: map[wherelib.Source]float64{wherelib.SourceFont: -1},
	})
	suite.Error(err)
}

func TestEngine(t *testing.T) {
	suite.Run(t, &EngineTestSuite{})
}
