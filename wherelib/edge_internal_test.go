package wherelib

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EdgeTestSuite struct {
	suite.Suite
}

func (suite *EdgeTestSuite) TestHeaders() {
	headers := http.Header{}

	headers.Set(HeaderEdgeCity, " Bengaluru ")
	headers.Set(HeaderEdgeRegion, "Karnataka")
	headers.Set(HeaderEdgeRegionCode, "KA")
	headers.Set(HeaderEdgeCountry, "IN")
	headers.Set(HeaderEdgeLatitude, "12.97160")
	headers.Set(HeaderEdgeLongitude, "77.59460")

	geo := EdgeGeoFromHeaders(headers)

	suite.Equal("Bengaluru", geo.City)
	suite.Equal("KA", geo.RegionCode)
	suite.Require().NotNil(geo.Latitude)
	suite.InDelta(12.9716, *geo.Latitude, 1e-9)
	suite.InDelta(77.5946, *geo.Longitude, 1e-9)

	evidence, ok := geo.evidence()

	suite.True(ok)
	suite.Equal(SourceEdgeHeaders, evidence.Source)
	suite.Equal("Bangalore", evidence.City)
	suite.Equal("Karnataka", evidence.State)
	suite.Equal("IN", evidence.Country)
	suite.Equal(88, evidence.Confidence)
	suite.True(evidence.HasCoordinates())
}

func (suite *EdgeTestSuite) TestBrokenCoordinates() {
	headers := http.Header{}

	headers.Set(HeaderEdgeLatitude, "12.97")
	headers.Set(HeaderEdgeLongitude, "east")

	geo := EdgeGeoFromHeaders(headers)

	suite.Nil(geo.Latitude)
	suite.Nil(geo.Longitude)
}

func (suite *EdgeTestSuite) TestRegionCode() {
	evidence, ok := EdgeGeo{RegionCode: "TN", Country: "T1"}.evidence()

	suite.True(ok)
	suite.Empty(evidence.City)
	suite.Equal("Tamil Nadu", evidence.State)
	suite.Equal("IN", evidence.Country)
	suite.Equal(70, evidence.Confidence)
}

func (suite *EdgeTestSuite) TestStateFromCity() {
	evidence, ok := EdgeGeo{City: "Poona"}.evidence()

	suite.True(ok)
	suite.Equal("Pune", evidence.City)
	suite.Equal("Maharashtra", evidence.State)
}

func (suite *EdgeTestSuite) TestNothing() {
	_, ok := EdgeGeo{Country: "IN"}.evidence()

	suite.False(ok)

	_, ok = EdgeGeoFromHeaders(http.Header{}).evidence()

	suite.False(ok)
}

func TestEdge(t *testing.T) {
	suite.Run(t, &EdgeTestSuite{})
}
