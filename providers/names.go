package providers

const (
	// Identifier for ip-api.com.
	NameIPAPICom = "ipapi_com"

	// Identifier for ipapi.co.
	NameIPAPICo = "ipapi_co"

	// Identifier for ipinfo.io.
	NameIPInfo = "ipinfo"

	// Identifier for ipwho.is.
	NameIPWhois = "ipwhois"

	// Identifier for ipgeolocation.io.
	NameIPGeolocation = "ipgeolocation"

	// Identifier for freeipapi.com.
	NameFreeIPAPI = "freeipapi"

	// Identifier for geojs.io.
	NameGeoJS = "geojs"

	// Identifier for ipdata.co.
	NameIPData = "ipdata"

	// Identifier for ip2location.io.
	NameIP2LocationIO = "ip2location_io"

	// Identifier for DB-IP.com free API.
	NameDBIP = "dbip"

	// Identifier for tools.keycdn.com.
	NameKeyCDN = "keycdn"

	// Identifier for ipstack.com.
	NameIPStack = "ipstack"

	// Identifier for MaxMind GeoIP2 and GeoLite2 City databases.
	NameMaxmind = "maxmind"

	// Identifier for IP2Location BIN databases.
	NameIP2Location = "ip2location"
)
