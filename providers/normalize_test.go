package providers_test

import (
	"testing"

	"github.com/9seconds/whereabouts/providers"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/stretchr/testify/suite"
)

type NormalizeTestSuite struct {
	suite.Suite
}

func (suite *NormalizeTestSuite) normalize(name, body string) (wherelib.Evidence, bool) {
	vendor, ok := providers.LookupVendor(name)
	suite.Require().True(ok)

	return vendor.Normalize([]byte(body))
}

func (suite *NormalizeTestSuite) TestIPAPICom() {
	rv, ok := suite.normalize(providers.NameIPAPICom, `{
  "status": "success",
  "countryCode": "IN",
  "region": "KA",
  "regionName": "Karnataka",
  "city": "Bengaluru",
  "zip": "560001",
  "lat": 12.9634,
  "lon": 77.5855,
  "isp": "Atria Convergence Technologies Pvt. Ltd.",
  "as": "AS24309 Atria Convergence Technologies Pvt. Ltd. Broadband Internet Service Provider INDIA"
}`)

	suite.True(ok)
	suite.Equal("Bengaluru", rv.City)
	suite.Equal("Karnataka", rv.State)
	suite.Equal("IN", rv.Country)
	suite.InDelta(12.9634, *rv.Latitude, 1e-6)
	suite.Equal("AS24309", rv.Meta[wherelib.MetaASN])
	suite.Equal("560001", rv.Meta[wherelib.MetaPostal])
}

func (suite *NormalizeTestSuite) TestIPAPIComFail() {
	_, ok := suite.normalize(providers.NameIPAPICom,
		`{"status": "fail", "message": "reserved range"}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPAPICo() {
	rv, ok := suite.normalize(providers.NameIPAPICo, `{
  "ip": "49.207.1.1",
  "city": "Chennai",
  "region": "Tamil Nadu",
  "region_code": "TN",
  "country_code": "IN",
  "postal": "600001",
  "latitude": 13.0878,
  "longitude": 80.2785,
  "asn": "AS24309",
  "org": "Atria Convergence Technologies Pvt. Ltd."
}`)

	suite.True(ok)
	suite.Equal("Chennai", rv.City)
	suite.Equal("Tamil Nadu", rv.State)
	suite.Equal("AS24309", rv.Meta[wherelib.MetaASN])
	suite.Equal("Atria Convergence Technologies Pvt. Ltd.", rv.Meta[wherelib.MetaISP])
}

func (suite *NormalizeTestSuite) TestIPAPICoRateLimited() {
	_, ok := suite.normalize(providers.NameIPAPICo,
		`{"error": true, "reason": "RateLimited"}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPInfo() {
	rv, ok := suite.normalize(providers.NameIPInfo, `{
  "ip": "49.207.1.1",
  "city": "Hyderabad",
  "region": "Telangana",
  "country": "IN",
  "loc": "17.3840,78.4564",
  "org": "AS24309 Atria Convergence Technologies Pvt. Ltd.",
  "postal": "500001"
}`)

	suite.True(ok)
	suite.Equal("Hyderabad", rv.City)
	suite.Equal("Telangana", rv.State)
	suite.InDelta(17.384, *rv.Latitude, 1e-6)
	suite.InDelta(78.4564, *rv.Longitude, 1e-6)
	suite.Equal("AS24309", rv.Meta[wherelib.MetaASN])
	suite.Equal("Atria Convergence Technologies Pvt. Ltd.", rv.Meta[wherelib.MetaISP])
}

func (suite *NormalizeTestSuite) TestIPInfoBogon() {
	_, ok := suite.normalize(providers.NameIPInfo, `{"ip": "10.0.0.1", "bogon": true}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPInfoError() {
	_, ok := suite.normalize(providers.NameIPInfo,
		`{"error": {"title": "Wrong ip", "message": "Please provide a valid IP address"}}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPWhois() {
	rv, ok := suite.normalize(providers.NameIPWhois, `{
  "success": true,
  "city": "Mumbai",
  "region": "Maharashtra",
  "region_code": "MH",
  "country_code": "IN",
  "latitude": 19.0759837,
  "longitude": 72.8776559,
  "connection": {"asn": 55836, "isp": "Reliance Jio Infocomm Limited"}
}`)

	suite.True(ok)
	suite.Equal("Mumbai", rv.City)
	suite.Equal("AS55836", rv.Meta[wherelib.MetaASN])
	suite.Equal("Reliance Jio Infocomm Limited", rv.Meta[wherelib.MetaISP])
}

func (suite *NormalizeTestSuite) TestIPWhoisFailure() {
	_, ok := suite.normalize(providers.NameIPWhois,
		`{"success": false, "message": "Invalid IP address"}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPGeolocation() {
	rv, ok := suite.normalize(providers.NameIPGeolocation, `{
  "ip": "49.207.1.1",
  "country_code2": "IN",
  "state_prov": "",
  "state_code": "IN-KA",
  "city": "Bengaluru",
  "zipcode": "560001",
  "latitude": "12.97194",
  "longitude": "77.59369",
  "isp": "Atria Convergence Technologies"
}`)

	suite.True(ok)
	suite.Equal("Karnataka", rv.State)
	suite.InDelta(12.97194, *rv.Latitude, 1e-6)
}

func (suite *NormalizeTestSuite) TestIPGeolocationError() {
	_, ok := suite.normalize(providers.NameIPGeolocation,
		`{"message": "Provided API key is not valid."}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestFreeIPAPI() {
	rv, ok := suite.normalize(providers.NameFreeIPAPI, `{
  "ipVersion": 4,
  "ipAddress": "49.207.1.1",
  "latitude": 18.5196,
  "longitude": 73.8554,
  "countryName": "India",
  "countryCode": "IN",
  "zipCode": "411001",
  "cityName": "Pune",
  "regionName": "Maharashtra"
}`)

	suite.True(ok)
	suite.Equal("Pune", rv.City)
	suite.Equal("Maharashtra", rv.State)
	suite.Equal("411001", rv.Meta[wherelib.MetaPostal])
}

func (suite *NormalizeTestSuite) TestFreeIPAPIPlaceholders() {
	_, ok := suite.normalize(providers.NameFreeIPAPI,
		`{"cityName": "-", "regionName": "-", "countryCode": "-", "latitude": 0, "longitude": 0}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestGeoJS() {
	rv, ok := suite.normalize(providers.NameGeoJS, `{
  "city": "Kolkata",
  "region": "West Bengal",
  "country_code": "IN",
  "latitude": "22.5626",
  "longitude": "88.363",
  "organization_name": "Bharat Sanchar Nigam Limited",
  "asn": 9829
}`)

	suite.True(ok)
	suite.Equal("Kolkata", rv.City)
	suite.InDelta(88.363, *rv.Longitude, 1e-6)
	suite.Equal("AS9829", rv.Meta[wherelib.MetaASN])
}

func (suite *NormalizeTestSuite) TestIPData() {
	rv, ok := suite.normalize(providers.NameIPData, `{
  "city": "New Delhi",
  "region": "National Capital Territory of Delhi",
  "region_code": "DL",
  "country_code": "IN",
  "latitude": 28.6139,
  "longitude": 77.209,
  "asn": {"asn": "AS9498", "name": "Bharti Airtel Ltd."}
}`)

	suite.True(ok)
	suite.Equal("New Delhi", rv.City)
	suite.Equal("AS9498", rv.Meta[wherelib.MetaASN])
	suite.Equal("Bharti Airtel Ltd.", rv.Meta[wherelib.MetaISP])
}

func (suite *NormalizeTestSuite) TestIPDataError() {
	_, ok := suite.normalize(providers.NameIPData,
		`{"message": "You have either exceeded your quota or that API key does not exist."}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIP2LocationIO() {
	rv, ok := suite.normalize(providers.NameIP2LocationIO, `{
  "ip": "49.207.1.1",
  "country_code": "IN",
  "region_name": "Gujarat",
  "city_name": "Ahmedabad",
  "latitude": 23.02579,
  "longitude": 72.58727,
  "zip_code": "380001",
  "asn": "24560",
  "as": "Bharti Airtel Ltd. AS for GPRS Service"
}`)

	suite.True(ok)
	suite.Equal("Ahmedabad", rv.City)
	suite.Equal("Gujarat", rv.State)
	suite.Equal("AS24560", rv.Meta[wherelib.MetaASN])
}

func (suite *NormalizeTestSuite) TestIP2LocationIOError() {
	_, ok := suite.normalize(providers.NameIP2LocationIO,
		`{"error": {"error_code": 10001, "error_message": "Invalid IP address."}}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestDBIP() {
	rv, ok := suite.normalize(providers.NameDBIP, `{
  "ipAddress": "49.207.1.1",
  "continentCode": "AS",
  "countryCode": "IN",
  "countryName": "India",
  "stateProv": "Kerala",
  "city": "Kochi"
}`)

	suite.True(ok)
	suite.Equal("Kochi", rv.City)
	suite.Equal("Kerala", rv.State)
	suite.False(rv.HasCoordinates())
}

func (suite *NormalizeTestSuite) TestDBIPError() {
	_, ok := suite.normalize(providers.NameDBIP, `{"error": "invalid address"}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestKeyCDN() {
	rv, ok := suite.normalize(providers.NameKeyCDN, `{
  "status": "success",
  "description": "Data successfully received.",
  "data": {
    "geo": {
      "host": "49.207.1.1",
      "ip": "49.207.1.1",
      "isp": "Atria Convergence Technologies",
      "country_code": "IN",
      "region_name": "Karnataka",
      "region_code": "KA",
      "city": "Bengaluru",
      "postal_code": "560002",
      "latitude": 12.9634,
      "longitude": 77.5855,
      "asn": 24309
    }
  }
}`)

	suite.True(ok)
	suite.Equal("Bengaluru", rv.City)
	suite.Equal("AS24309", rv.Meta[wherelib.MetaASN])
}

func (suite *NormalizeTestSuite) TestKeyCDNError() {
	_, ok := suite.normalize(providers.NameKeyCDN,
		`{"status": "error", "description": "Rate limit exceeded."}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestIPStack() {
	rv, ok := suite.normalize(providers.NameIPStack, `{
  "ip": "49.207.1.1",
  "country_code": "IN",
  "region_code": "TN",
  "region_name": "",
  "city": "Coimbatore",
  "zip": "641001",
  "latitude": 11.0168,
  "longitude": 76.9558
}`)

	suite.True(ok)
	suite.Equal("Coimbatore", rv.City)
	suite.Equal("Tamil Nadu", rv.State)
}

func (suite *NormalizeTestSuite) TestIPStackError() {
	_, ok := suite.normalize(providers.NameIPStack, `{
  "success": false,
  "error": {"code": 101, "type": "invalid_access_key", "info": "You have not supplied a valid API Access Key."}
}`)

	suite.False(ok)
}

func (suite *NormalizeTestSuite) TestForeignRegionCodeIsNotExpanded() {
	rv, ok := suite.normalize(providers.NameIPAPICo, `{
  "city": "Ashburn",
  "region": "",
  "region_code": "VA",
  "country_code": "US",
  "latitude": 39.0437,
  "longitude": -77.4875
}`)

	suite.True(ok)
	suite.Equal("US", rv.Country)
	suite.Empty(rv.State)
}

func (suite *NormalizeTestSuite) TestZeroCoordinatesAreDropped() {
	rv, ok := suite.normalize(providers.NameIPAPICo,
		`{"country_code": "IN", "latitude": 0, "longitude": 0}`)

	suite.True(ok)
	suite.False(rv.HasCoordinates())
}

func (suite *NormalizeTestSuite) TestBrokenJSON() {
	for _, vendor := range providers.Vendors() {
		_, ok := vendor.Normalize([]byte(`{[`))

		suite.False(ok, vendor.Name)
	}
}

func TestNormalize(t *testing.T) {
	suite.Run(t, &NormalizeTestSuite{})
}
