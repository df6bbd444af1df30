package providers

import (
	"net"
	"strings"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"
	"github.com/oschwald/geoip2-golang"
	"github.com/spf13/afero"
)

const maxmindLanguage = "en"

type maxmindReader struct {
	db *geoip2.Reader
}

func (m maxmindReader) City(ip net.IP) (wherelib.GeoRecord, error) {
	city, err := m.db.City(ip)
	if err != nil {
		return wherelib.GeoRecord{}, errors.Annotate(err, "cannot lookup this ip address")
	}

	rv := wherelib.GeoRecord{
		City:    city.City.Names[maxmindLanguage],
		Country: strings.ToUpper(city.Country.IsoCode),
		Postal:  city.Postal.Code,
	}

	if len(city.Subdivisions) > 0 {
		rv.State = city.Subdivisions[0].Names[maxmindLanguage]
		if rv.State == "" {
			rv.State = city.Subdivisions[0].IsoCode
		}
	}

	if rv.City == "" && rv.State == "" && rv.Country == "" {
		return wherelib.GeoRecord{}, wherelib.ErrNoEvidence
	}

	if city.Location.Latitude != 0 || city.Location.Longitude != 0 {
		lat, lon := city.Location.Latitude, city.Location.Longitude
		rv.Latitude = &lat
		rv.Longitude = &lon
	}

	return rv, nil
}

func (m maxmindReader) Close() error {
	return m.db.Close()
}

func openMaxmind(fs afero.Fs, path string) (localReader, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Annotate(err, "cannot read a file")
	}

	db, err := geoip2.FromBytes(data)
	if err != nil {
		return nil, errors.Annotate(err, "cannot initialize a reader of maxminddb")
	}

	return maxmindReader{db: db}, nil
}

// NewMaxmindDB opens GeoIP2/GeoLite2 City database. If fs is nil, OS
// filesystem is used. A database which cannot be loaded yet is
// returned with an error: it stays not ready until Reload succeeds.
func NewMaxmindDB(fs afero.Fs, path string) (*LocalDB, error) {
	return newLocalDB(NameMaxmind, fs, path, openMaxmind)
}
