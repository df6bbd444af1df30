package wherelib

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/juju/errors"
)

const (
	DefaultRDAPCacheTTL    = 24 * time.Hour
	DefaultRDAPMissTTL     = 10 * time.Minute
	DefaultRDAPLookupLimit = 1500 * time.Millisecond

	rdapConfidenceCity  = 72
	rdapConfidenceState = 65
)

// DefaultRDAPRegistries are queried in this order. {ip} is replaced
// with an address.
var DefaultRDAPRegistries = []string{
	"https://rdap.apnic.net/ip/{ip}",
	"https://rdap.arin.net/registry/ip/{ip}",
	"https://rdap.db.ripe.net/ip/{ip}",
	"https://rdap.lacnic.net/rdap/ip/{ip}",
	"https://rdap.afrinic.net/rdap/ip/{ip}",
}

// RDAPResult is a location extracted from network registration data.
// Registry may be known while location is not: in that case State is
// empty and Confidence is 0.
type RDAPResult struct {
	State       string `json:"state,omitempty"`
	City        string `json:"city,omitempty"`
	NetworkName string `json:"network_name,omitempty"`
	ISPCircle   string `json:"isp_circle,omitempty"`
	Confidence  int    `json:"confidence"`
	Source      string `json:"source"`
}

type rdapResponse struct {
	Handle  string `json:"handle"`
	Name    string `json:"name"`
	Remarks []struct {
		Title       string   `json:"title"`
		Description []string `json:"description"`
	} `json:"remarks"`
}

func (r *rdapResponse) Text() string {
	chunks := []string{r.Name, r.Handle}

	for _, remark := range r.Remarks {
		chunks = append(chunks, remark.Title)
		chunks = append(chunks, remark.Description...)
	}

	return strings.ToUpper(strings.Join(chunks, " "))
}

// RDAP looks up network registration data and extracts telecom circle
// codes from it. Indian ISPs often encode a circle (or a city) into
// network names and remarks.
type RDAP struct {
	fetcher    Fetcher
	cache      cacheClient
	registries []string
	ttl        time.Duration
	timeout    time.Duration
	logger     Logger
}

// Lookup returns false if there is no usable registration data or
// location was not found in it.
//
// A walk over all registries is limited by a single timeout. If no
// registry has answered in time, a miss is cached for
// DefaultRDAPMissTTL.
func (r *RDAP) Lookup(ctx context.Context, ip net.IP) (RDAPResult, bool) {
	key := "rdap:" + ip.String()
	result := remember(ctx, r.cache, key, r.ttl,
		func(ctx context.Context) (RDAPResult, bool) {
			rv, ok := r.query(ctx, ip)

			// a caller has gone, registries are not guilty
			if !ok && ctx.Err() == nil && r.cache.cache != nil {
				r.cache.store(ctx, key, rv, DefaultRDAPMissTTL)
			}

			return rv, ok
		})

	return result, result.State != ""
}

func (r *RDAP) query(ctx context.Context, ip net.IP) (RDAPResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, registry := range r.registries {
		if ctx.Err() != nil {
			break
		}

		resp, err := r.fetch(ctx, registry, ip)
		if err != nil {
			r.logger.ProviderError(ip, string(SourceRDAP), err)

			continue
		}

		if resp.Name == "" && resp.Handle == "" {
			continue
		}

		return resolveRDAP(resp, registryName(registry)), true
	}

	return RDAPResult{}, false
}

func (r *RDAP) fetch(ctx context.Context, registry string, ip net.IP) (*rdapResponse, error) {
	endpoint := strings.ReplaceAll(registry, "{ip}", ip.String())

	status, body, err := r.fetcher.Fetch(ctx, endpoint, false)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot query %s", endpoint)
	}

	if status != http.StatusOK {
		return nil, errors.Errorf("%s has responded with %d", endpoint, status)
	}

	resp := &rdapResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Annotatef(err, "cannot parse a response of %s", endpoint)
	}

	return resp, nil
}

func resolveRDAP(resp *rdapResponse, source string) RDAPResult {
	rv := RDAPResult{
		NetworkName: resp.Name,
		Source:      source,
	}
	text := resp.Text()

	for _, pattern := range gazetteer.CirclePatterns() {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			city, state, ok := gazetteer.ResolveCircle(groups[1])
			if !ok {
				continue
			}

			rv.ISPCircle = groups[1]
			rv.City = city
			rv.State = state
			rv.Confidence = rdapConfidenceState

			if city != "" {
				rv.Confidence = rdapConfidenceCity
			}

			return rv
		}
	}

	return rv
}

func registryName(registry string) string {
	if parsed, err := url.Parse(registry); err == nil && parsed.Host != "" {
		return parsed.Host
	}

	return registry
}

func (r RDAPResult) evidence() Evidence {
	rv := Evidence{
		Source:     SourceRDAP,
		City:       r.City,
		State:      r.State,
		Country:    gazetteer.CountryCode,
		Confidence: r.Confidence,
	}

	rv.SetMeta(MetaNetworkName, r.NetworkName)
	rv.SetMeta(MetaCircle, r.ISPCircle)

	return rv
}

// NewRDAP makes a new RDAP resolver. Nil cache disables caching, empty
// registries mean DefaultRDAPRegistries. timeout limits a whole walk
// over registries, zero means DefaultRDAPLookupLimit.
func NewRDAP(fetcher Fetcher, cache Cache, logger Logger,
	registries []string, ttl, timeout time.Duration) (*RDAP, error) {
	if fetcher == nil {
		return nil, errors.NotValidf("nil fetcher")
	}

	if logger == nil {
		logger = NoopLogger{}
	}

	if len(registries) == 0 {
		registries = DefaultRDAPRegistries
	}

	for _, v := range registries {
		if !strings.Contains(v, "{ip}") {
			return nil, errors.NotValidf("registry url %s without {ip} placeholder", v)
		}
	}

	switch {
	case ttl < 0:
		return nil, errors.NotValidf("rdap cache ttl %v", ttl)
	case ttl == 0:
		ttl = DefaultRDAPCacheTTL
	}

	switch {
	case timeout < 0:
		return nil, errors.NotValidf("rdap timeout %v", timeout)
	case timeout == 0:
		timeout = DefaultRDAPLookupLimit
	}

	return &RDAP{
		fetcher:    fetcher,
		cache:      cacheClient{cache: cache, logger: logger},
		registries: append([]string(nil), registries...),
		ttl:        ttl,
		timeout:    timeout,
		logger:     logger,
	}, nil
}
