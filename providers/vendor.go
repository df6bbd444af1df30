package providers

import (
	"net/url"
	"sort"
	"strings"

	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"
)

// Vendor is an online geolocation API.
//
// URL is a template: {ip} is replaced with an address on each request,
// {key} is replaced with an auth token once, when a source is made.
type Vendor struct {
	Name        string
	URL         string
	Weight      float64
	RequiresKey bool
	Insecure    bool
	Normalize   func([]byte) (wherelib.Evidence, bool)
}

// VendorOptions customize a source made of Vendor. Zero values mean
// vendor defaults.
type VendorOptions struct {
	Key      string
	Weight   float64
	URL      string
	Insecure bool
}

// Source makes an ensemble source.
func (v Vendor) Source(opts VendorOptions) (wherelib.EnsembleSource, error) {
	rv := wherelib.EnsembleSource{
		Name:      v.Name,
		URL:       v.URL,
		Weight:    v.Weight,
		Insecure:  v.Insecure || opts.Insecure,
		Normalize: v.Normalize,
	}

	if v.RequiresKey && opts.Key == "" {
		return rv, errors.Annotatef(ErrAuthTokenIsRequired, "vendor %s", v.Name)
	}

	if opts.URL != "" {
		rv.URL = opts.URL
	}

	if opts.Weight != 0 {
		rv.Weight = opts.Weight
	}

	if rv.Weight < 0 {
		return rv, errors.NotValidf("weight %v of %s", rv.Weight, v.Name)
	}

	rv.URL = strings.ReplaceAll(rv.URL, "{key}", url.QueryEscape(opts.Key))

	return rv, nil
}

var vendors = map[string]Vendor{
	NameIPAPICom: {
		URL:       "http://ip-api.com/json/{ip}?fields=status,message,countryCode,region,regionName,city,zip,lat,lon,isp,as",
		Weight:    1.0,
		Insecure:  true,
		Normalize: normalizeIPAPICom,
	},
	NameIPAPICo: {
		URL:       "https://ipapi.co/{ip}/json/",
		Weight:    1.0,
		Normalize: normalizeIPAPICo,
	},
	NameIPInfo: {
		URL:       "https://ipinfo.io/{ip}/json?token={key}",
		Weight:    1.2,
		Normalize: normalizeIPInfo,
	},
	NameIPWhois: {
		URL:       "https://ipwho.is/{ip}",
		Weight:    0.9,
		Normalize: normalizeIPWhois,
	},
	NameIPGeolocation: {
		URL:         "https://api.ipgeolocation.io/ipgeo?apiKey={key}&ip={ip}",
		Weight:      1.1,
		RequiresKey: true,
		Normalize:   normalizeIPGeolocation,
	},
	NameFreeIPAPI: {
		URL:       "https://freeipapi.com/api/json/{ip}",
		Weight:    0.8,
		Normalize: normalizeFreeIPAPI,
	},
	NameGeoJS: {
		URL:       "https://get.geojs.io/v1/ip/geo/{ip}.json",
		Weight:    0.7,
		Normalize: normalizeGeoJS,
	},
	NameIPData: {
		URL:         "https://api.ipdata.co/{ip}?api-key={key}",
		Weight:      1.1,
		RequiresKey: true,
		Normalize:   normalizeIPData,
	},
	NameIP2LocationIO: {
		URL:       "https://api.ip2location.io/?key={key}&ip={ip}",
		Weight:    1.1,
		Normalize: normalizeIP2LocationIO,
	},
	NameDBIP: {
		URL:       "https://api.db-ip.com/v2/free/{ip}",
		Weight:    0.9,
		Normalize: normalizeDBIP,
	},
	NameKeyCDN: {
		URL:       "https://tools.keycdn.com/geo.json?host={ip}",
		Weight:    0.8,
		Normalize: normalizeKeyCDN,
	},
	NameIPStack: {
		URL:         "https://api.ipstack.com/{ip}?access_key={key}&output=json&language=en",
		Weight:      1.0,
		RequiresKey: true,
		Normalize:   normalizeIPStack,
	},
}

// LookupVendor returns a vendor by its name.
func LookupVendor(name string) (Vendor, bool) {
	rv, ok := vendors[name]
	rv.Name = name

	return rv, ok
}

// Vendors returns all known vendors sorted by name.
func Vendors() []Vendor {
	rv := make([]Vendor, 0, len(vendors))

	for name := range vendors {
		vendor, _ := LookupVendor(name)
		rv = append(rv, vendor)
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i].Name < rv[j].Name
	})

	return rv
}

// MakeSources builds ensemble sources for given vendor names.
func MakeSources(names []string, opts map[string]VendorOptions) ([]wherelib.EnsembleSource, error) {
	rv := make([]wherelib.EnsembleSource, 0, len(names))

	for _, name := range names {
		vendor, ok := LookupVendor(name)
		if !ok {
			return nil, errors.Annotatef(ErrUnknownVendor, "vendor %s", name)
		}

		source, err := vendor.Source(opts[name])
		if err != nil {
			return nil, err
		}

		rv = append(rv, source)
	}

	return rv, nil
}
