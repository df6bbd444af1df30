package wherelib

import (
	"net"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/juju/errors"
)

const (
	localGeoIPConfidenceCity    = 60
	localGeoIPConfidenceState   = 45
	localGeoIPConfidenceCountry = 25
)

func localGeoIPEvidence(db LocalGeoDB, ip net.IP, logger Logger) (Evidence, bool) {
	record, err := db.City(ip)

	switch {
	case errors.Is(err, ErrDatabaseIsNotReadyYet):
		logger.Debug(db.Name(), "database is not ready yet")

		return Evidence{}, false
	case errors.Is(err, ErrNoEvidence):
		return Evidence{}, false
	case err != nil:
		logger.ProviderError(ip, db.Name(), err)

		return Evidence{}, false
	}

	rv := Evidence{
		Source:  SourceLocalGeoIP,
		City:    gazetteer.NormalizeCity(record.City),
		State:   gazetteer.NormalizeState(record.State),
		Country: NormalizeCountryCode(record.Country),
	}

	if rv.State == "" && rv.City != "" {
		rv.State, _ = gazetteer.CityState(rv.City)
	}

	switch {
	case rv.City != "":
		rv.Confidence = localGeoIPConfidenceCity
	case rv.State != "":
		rv.Confidence = localGeoIPConfidenceState
	case rv.Country != "":
		rv.Confidence = localGeoIPConfidenceCountry
	default:
		return Evidence{}, false
	}

	if record.Latitude != nil && record.Longitude != nil {
		rv.SetCoordinates(*record.Latitude, *record.Longitude)
	}

	rv.SetMeta(MetaISP, record.ISP)
	rv.SetMeta(MetaASN, record.ASN)
	rv.SetMeta(MetaPostal, record.Postal)

	return rv, true
}
