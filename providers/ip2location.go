package providers

import (
	"net"
	"strings"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/ip2location/ip2location-go/v9"
	"github.com/juju/errors"
	"github.com/spf13/afero"
)

type ip2locationReader struct {
	db *ip2location.DB
}

func (i ip2locationReader) City(ip net.IP) (wherelib.GeoRecord, error) {
	record, err := i.db.Get_all(ip.String())
	if err != nil {
		return wherelib.GeoRecord{}, errors.Annotate(err, "cannot lookup this ip address")
	}

	rv := wherelib.GeoRecord{
		City:    cleanIP2LocationValue(record.City),
		State:   cleanIP2LocationValue(record.Region),
		Country: strings.ToUpper(cleanIP2LocationValue(record.Country_short)),
		Postal:  cleanIP2LocationValue(record.Zipcode),
		ISP:     cleanIP2LocationValue(record.Isp),
	}

	if rv.City == "" && rv.State == "" && rv.Country == "" {
		return wherelib.GeoRecord{}, wherelib.ErrNoEvidence
	}

	if record.Latitude != 0 || record.Longitude != 0 {
		lat, lon := float64(record.Latitude), float64(record.Longitude)
		rv.Latitude = &lat
		rv.Longitude = &lon
	}

	return rv, nil
}

func (i ip2locationReader) Close() error {
	i.db.Close()

	return nil
}

// BIN files of lower tiers fill missing columns with a long notice
// instead of empty strings.
func cleanIP2LocationValue(value string) string {
	if strings.HasPrefix(value, "Invalid") {
		return ""
	}

	return cleanValue(value)
}

func openIP2Location(fs afero.Fs, path string) (localReader, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, errors.Annotate(err, "cannot open a file")
	}

	db, err := ip2location.OpenDBWithReader(file)
	if err != nil {
		file.Close() // nolint: errcheck

		return nil, errors.Annotate(err, "cannot initialize a reader of ip2location")
	}

	return ip2locationReader{db: db}, nil
}

// NewIP2LocationDB opens IP2Location BIN database. If fs is nil, OS
// filesystem is used.
func NewIP2LocationDB(fs afero.Fs, path string) (*LocalDB, error) {
	return newLocalDB(NameIP2Location, fs, path, openIP2Location)
}
