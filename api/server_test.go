package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/9seconds/whereabouts/api"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/go-chi/chi/v5"
	"github.com/juju/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type EngineMock struct {
	mock.Mock
}

func (m *EngineMock) Infer(ctx context.Context, ip net.IP, signals wherelib.Signals) wherelib.LocationPrediction {
	return m.Called(ctx, ip.String(), signals).Get(0).(wherelib.LocationPrediction)
}

type VPNDetectorMock struct {
	mock.Mock
}

func (m *VPNDetectorMock) Detect(ip net.IP, asn, hostname string) wherelib.VPNAssessment {
	return m.Called(ip.String(), asn, hostname).Get(0).(wherelib.VPNAssessment)
}

type LearnerMock struct {
	mock.Mock
}

func (m *LearnerMock) Learn(ctx context.Context, detection wherelib.Detection) bool {
	return m.Called(ctx, detection).Bool(0)
}

func (m *LearnerMock) Check(ctx context.Context, ip net.IP) (wherelib.LearnedMatch, bool) {
	args := m.Called(ctx, ip.String())

	return args.Get(0).(wherelib.LearnedMatch), args.Bool(1)
}

func (m *LearnerMock) ActiveBlocks(ctx context.Context) ([]wherelib.LearnedBlock, error) {
	args := m.Called(ctx)

	return args.Get(0).([]wherelib.LearnedBlock), args.Error(1)
}

type StatsReporterMock struct {
	mock.Mock
}

func (m *StatsReporterMock) Stats() []*wherelib.UsageStats {
	return m.Called().Get(0).([]*wherelib.UsageStats)
}

func (m *StatsReporterMock) CircuitState() wherelib.CircuitState {
	return m.Called().Get(0).(wherelib.CircuitState)
}

type ServerTestSuite struct {
	suite.Suite

	engine  *EngineMock
	vpn     *VPNDetectorMock
	learner *LearnerMock
	stats   *StatsReporterMock
	router  *chi.Mux
}

func (suite *ServerTestSuite) SetupTest() {
	suite.engine = &EngineMock{}
	suite.vpn = &VPNDetectorMock{}
	suite.learner = &LearnerMock{}
	suite.stats = &StatsReporterMock{}

	router, err := api.MakeServer(api.ServerOptions{
		Engine:      suite.engine,
		VPNDetector: suite.vpn,
		Learner:     suite.learner,
		Stats:       suite.stats,
	})
	suite.Require().NoError(err)

	suite.router = router
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.engine.AssertExpectations(suite.T())
	suite.vpn.AssertExpectations(suite.T())
	suite.learner.AssertExpectations(suite.T())
	suite.stats.AssertExpectations(suite.T())
}

func (suite *ServerTestSuite) do(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	recorder := httptest.NewRecorder()

	suite.router.ServeHTTP(recorder, req)

	body := map[string]interface{}{}

	suite.Equal("application/json", recorder.Header().Get("Content-Type"))
	suite.NoError(json.Unmarshal(recorder.Body.Bytes(), &body))

	return recorder, body
}

func (suite *ServerTestSuite) post(path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return suite.do(req)
}

func (suite *ServerTestSuite) errorMessage(body map[string]interface{}) string {
	return body["error"].(map[string]interface{})["message"].(string)
}

func (suite *ServerTestSuite) TestInfer() {
	rtt := 4.0

	suite.engine.
		On("Infer", mock.Anything, "49.207.1.1", wherelib.Signals{
			Edge:      wherelib.EdgeGeo{City: "Bengaluru", Country: "IN"},
			Languages: []string{"kn-IN", "en"},
			Probe:     &wherelib.ProbeData{Colo: "BLR", RTTMs: &rtt},
		}).
		Return(wherelib.LocationPrediction{
			IP:         net.ParseIP("49.207.1.1"),
			City:       "Bangalore",
			State:      "Karnataka",
			Country:    "IN",
			Confidence: 88,
			Method:     wherelib.SourceEdgeHeaders,
		}).
		Once()

	resp, body := suite.post("/v1/infer", `{
        "ip": "49.207.1.1",
        "edge": {"city": "Bengaluru", "country": "IN"},
        "languages": ["kn-IN", "en"],
        "probe": {"colo": "BLR", "rtt_ms": 4}
    }`)

	suite.Equal(http.StatusOK, resp.Code)

	result := body["result"].(map[string]interface{})

	suite.Equal("Bangalore", result["city"])
	suite.EqualValues(88, result["confidence"])
	suite.Equal("edge_headers", result["method"])
}

func (suite *ServerTestSuite) TestInferIncorrectContentType() {
	req := httptest.NewRequest(http.MethodPost, "/v1/infer", strings.NewReader(`{"ip": "49.207.1.1"}`))
	req.Header.Set("Content-Type", "text/plain")

	resp, body := suite.do(req)

	suite.Equal(http.StatusUnsupportedMediaType, resp.Code)
	suite.Equal("Incorrect content type", suite.errorMessage(body))
}

func (suite *ServerTestSuite) TestInferInvalidBody() {
	for _, value := range []string{
		`{}`,
		`{"ip": "localhost"}`,
		`{"ip": "49.207.1.1", "languages": "kn"}`,
		`{"ip": "49.207.1.1", "probe": {"rtt_ms": -1}}`,
		`{[`,
	} {
		resp, body := suite.post("/v1/infer", value)

		suite.Equal(http.StatusBadRequest, resp.Code, value)
		suite.NotEmpty(suite.errorMessage(body), value)
	}
}

func (suite *ServerTestSuite) TestInferSelf() {
	suite.engine.
		On("Infer", mock.Anything, "49.207.1.1", wherelib.Signals{
			Edge:      wherelib.EdgeGeo{City: "Chennai", Country: "IN"},
			Languages: []string{"ta", "en-IN", "en"},
		}).
		Return(wherelib.LocationPrediction{City: "Chennai"}).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/infer/", nil)
	req.RemoteAddr = "49.207.1.1:45678"
	req.Header.Set(wherelib.HeaderEdgeCity, "Chennai")
	req.Header.Set(wherelib.HeaderEdgeCountry, "IN")
	req.Header.Set("Accept-Language", "en;q=0.5, ta, en-IN;q=0.8")

	resp, body := suite.do(req)

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal("Chennai", body["result"].(map[string]interface{})["city"])
}

func (suite *ServerTestSuite) TestInferSelfRealIP() {
	suite.engine.
		On("Infer", mock.Anything, "117.200.1.1", wherelib.Signals{}).
		Return(wherelib.LocationPrediction{}).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/v1/infer", nil)
	req.Header.Set("X-Real-IP", "117.200.1.1")

	resp, _ := suite.do(req)

	suite.Equal(http.StatusOK, resp.Code)
}

func (suite *ServerTestSuite) TestVPN() {
	suite.vpn.
		On("Detect", "13.232.1.1", "AS16509", "").
		Return(wherelib.VPNAssessment{
			IsVPN:      true,
			Confidence: 65,
			Score:      65,
			Indicators: []string{"cloud_provider_asn"},
		}).
		Once()

	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v1/vpn?ip=13.232.1.1&asn=AS16509", nil))

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal("13.232.1.1", body["ip"])

	result := body["result"].(map[string]interface{})

	suite.Equal(true, result["is_vpn"])
	suite.EqualValues(65, result["score"])
}

func (suite *ServerTestSuite) TestVPNIncorrectIP() {
	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v1/vpn?ip=nope", nil))

	suite.Equal(http.StatusBadRequest, resp.Code)
	suite.Equal("Incorrect IP address", suite.errorMessage(body))
	suite.Contains(body["error"].(map[string]interface{})["context"], "not valid")
}

func (suite *ServerTestSuite) TestLearned() {
	suite.learner.
		On("Check", mock.Anything, "49.207.1.1").
		Return(wherelib.LearnedMatch{City: "Bangalore", Confidence: 88, SampleCount: 5}, true).
		Once()

	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v1/learned?ip=49.207.1.1", nil))

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal("Bangalore", body["result"].(map[string]interface{})["city"])
}

func (suite *ServerTestSuite) TestLearnedNotFound() {
	suite.learner.
		On("Check", mock.Anything, "49.207.1.1").
		Return(wherelib.LearnedMatch{}, false).
		Once()

	resp, _ := suite.do(httptest.NewRequest(http.MethodGet, "/v1/learned?ip=49.207.1.1", nil))

	suite.Equal(http.StatusNotFound, resp.Code)
}

func (suite *ServerTestSuite) TestLearnedBlocks() {
	suite.learner.
		On("ActiveBlocks", mock.Anything).
		Return([]wherelib.LearnedBlock{{City: "Pune", CIDRs: []string{"49.207.0.0/23"}, SampleCount: 12}}, nil).
		Once()

	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v1/learned", nil))

	suite.Equal(http.StatusOK, resp.Code)
	suite.Len(body["results"], 1)
}

func (suite *ServerTestSuite) TestLearnedBlocksError() {
	suite.learner.
		On("ActiveBlocks", mock.Anything).
		Return([]wherelib.LearnedBlock(nil), errors.New("database is gone")).
		Once()

	resp, _ := suite.do(httptest.NewRequest(http.MethodGet, "/v1/learned", nil))

	suite.Equal(http.StatusServiceUnavailable, resp.Code)
}

func (suite *ServerTestSuite) TestLearn() {
	suite.learner.
		On("Learn", mock.Anything, mock.MatchedBy(func(detection wherelib.Detection) bool {
			return detection.IP.Equal(net.ParseIP("49.207.1.1")) &&
				detection.City == "Pune" &&
				detection.Confidence == 92 &&
				detection.Verified
		})).
		Return(true).
		Once()

	resp, body := suite.post("/v1/learn",
		`{"ip": "49.207.1.1", "city": "Pune", "confidence": 92, "verified": true}`)

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal(true, body["accepted"])
}

func (suite *ServerTestSuite) TestLearnInvalidBody() {
	for _, value := range []string{
		`{"ip": "49.207.1.1", "city": "Pune"}`,
		`{"ip": "49.207.1.1", "city": "", "confidence": 92}`,
		`{"ip": "2001:db8::1", "city": "Pune", "confidence": 92}`,
		`{"ip": "49.207.1.1", "city": "Pune", "confidence": 101}`,
	} {
		resp, _ := suite.post("/v1/learn", value)

		suite.Equal(http.StatusBadRequest, resp.Code, value)
	}
}

func (suite *ServerTestSuite) TestProviders() {
	stats := &wherelib.UsageStats{Name: "ipinfo"}
	stats.Used(nil, 0)

	suite.stats.On("CircuitState").Return(wherelib.CircuitOpen).Once()
	suite.stats.On("Stats").Return([]*wherelib.UsageStats{stats}).Once()

	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v1/providers", nil))

	suite.Equal(http.StatusOK, resp.Code)
	suite.Equal("open", body["circuit"])
	suite.Len(body["providers"], 1)
}

func (suite *ServerTestSuite) TestNotFound() {
	resp, body := suite.do(httptest.NewRequest(http.MethodGet, "/v2/infer", nil))

	suite.Equal(http.StatusNotFound, resp.Code)
	suite.Equal("Not found", suite.errorMessage(body))
}

func (suite *ServerTestSuite) TestMethodNotAllowed() {
	resp, _ := suite.do(httptest.NewRequest(http.MethodDelete, "/v1/infer", nil))

	suite.Equal(http.StatusMethodNotAllowed, resp.Code)
}

func TestServer(t *testing.T) {
	suite.Run(t, &ServerTestSuite{})
}

type ServerWithoutLearnerTestSuite struct {
	suite.Suite
}

func (suite *ServerWithoutLearnerTestSuite) TestLearnedIsNotMounted() {
	router, err := api.MakeServer(api.ServerOptions{
		Engine:      &EngineMock{},
		VPNDetector: &VPNDetectorMock{},
	})
	suite.Require().NoError(err)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/learned?ip=49.207.1.1", nil))

	suite.Equal(http.StatusNotFound, recorder.Code)
}

func (suite *ServerWithoutLearnerTestSuite) TestProvidersWithoutStats() {
	router, err := api.MakeServer(api.ServerOptions{
		Engine:      &EngineMock{},
		VPNDetector: &VPNDetectorMock{},
	})
	suite.Require().NoError(err)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/providers", nil))

	suite.Equal(http.StatusOK, recorder.Code)
	suite.JSONEq(`{"circuit": "closed", "providers": []}`, recorder.Body.String())
}

func (suite *ServerWithoutLearnerTestSuite) TestIncorrectOptions() {
	_, err := api.MakeServer(api.ServerOptions{VPNDetector: &VPNDetectorMock{}})

	suite.True(errors.IsNotValid(err))

	_, err = api.MakeServer(api.ServerOptions{Engine: &EngineMock{}})

	suite.True(errors.IsNotValid(err))
}

func TestServerWithoutLearner(t *testing.T) {
	suite.Run(t, &ServerWithoutLearnerTestSuite{})
}
