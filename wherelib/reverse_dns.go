package wherelib

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/9seconds/whereabouts/gazetteer"
	lru "github.com/hashicorp/golang-lru"
	"github.com/juju/errors"
)

const (
	DefaultDNSTimeout   = 500 * time.Millisecond
	DefaultDNSCacheSize = 4096

	reverseDNSConfidenceExact  = 70
	reverseDNSConfidencePrefix = 55
)

// HostnameMatch is a city extracted from reverse hostname.
type HostnameMatch struct {
	City          string `json:"city"`
	State         string `json:"state"`
	Confidence    int    `json:"confidence"`
	SourcePattern string `json:"source_pattern"`
	Hostname      string `json:"hostname"`
}

// ExtractCityFromHostname applies ISP naming conventions to a reverse
// hostname. Patterns are tried in order; a pattern which matched but
// whose city token is unknown does not stop the search.
func ExtractCityFromHostname(hostname string) (HostnameMatch, bool) {
	hostname = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")

	if hostname == "" || hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return HostnameMatch{}, false
	}

	for _, pattern := range gazetteer.HostnamePatterns() {
		groups := pattern.Regexp.FindStringSubmatch(hostname)
		if len(groups) < 2 {
			continue
		}

		city, ok := gazetteer.MatchCityToken(groups[1])
		if !ok {
			continue
		}

		rv := HostnameMatch{
			City:          city.City,
			State:         city.State,
			Confidence:    reverseDNSConfidencePrefix,
			SourcePattern: pattern.Name,
			Hostname:      hostname,
		}

		if city.Exact {
			rv.Confidence = reverseDNSConfidenceExact
		}

		return rv, true
	}

	return HostnameMatch{}, false
}

func (h HostnameMatch) evidence() Evidence {
	rv := Evidence{
		Source:     SourceReverseDNS,
		City:       h.City,
		State:      h.State,
		Country:    gazetteer.CountryCode,
		Confidence: h.Confidence,
	}

	rv.SetMeta(MetaHostname, h.Hostname)
	rv.SetMeta(MetaPattern, h.SourcePattern)

	return rv
}

// ReverseDNS resolves PTR records of client addresses and extracts
// cities from them.
type ReverseDNS struct {
	resolver DNSResolver
	logger   Logger
}

// ExtractCity is ExtractCityFromHostname.
func (r *ReverseDNS) ExtractCity(hostname string) (HostnameMatch, bool) {
	return ExtractCityFromHostname(hostname)
}

// Hostname returns a reverse hostname of the IP or empty string. Errors
// are logged, not returned.
func (r *ReverseDNS) Hostname(ctx context.Context, ip net.IP) string {
	hostname, err := r.resolver.LookupAddr(ctx, ip)
	if err != nil {
		r.logger.ProviderError(ip, string(SourceReverseDNS), err)

		return ""
	}

	return hostname
}

func NewReverseDNS(resolver DNSResolver, logger Logger) *ReverseDNS {
	if logger == nil {
		logger = NoopLogger{}
	}

	return &ReverseDNS{
		resolver: resolver,
		logger:   logger,
	}
}

type dnsResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
	cache    *lru.Cache
}

func (d *dnsResolver) LookupAddr(ctx context.Context, ip net.IP) (string, error) {
	key := ip.String()

	if value, ok := d.cache.Get(key); ok {
		return value.(string), nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	names, err := d.resolver.LookupAddr(ctx, key)
	if err != nil {
		var dnsErr *net.DNSError

		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			d.cache.Add(key, "")

			return "", nil
		}

		return "", errors.Annotatef(err, "cannot resolve %s", key)
	}

	hostname := ""
	if len(names) > 0 {
		hostname = strings.TrimSuffix(names[0], ".")
	}

	d.cache.Add(key, hostname)

	return hostname, nil
}

// NewDNSResolver makes a DNSResolver based on system resolver. Results
// are memoized in LRU cache of a given size.
func NewDNSResolver(timeout time.Duration, cacheSize int) (DNSResolver, error) {
	if timeout == 0 {
		timeout = DefaultDNSTimeout
	}

	if cacheSize == 0 {
		cacheSize = DefaultDNSCacheSize
	}

	if timeout < 0 {
		return nil, errors.NotValidf("dns timeout %v", timeout)
	}

	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Annotate(err, "cannot create dns cache")
	}

	return &dnsResolver{
		resolver: net.DefaultResolver,
		timeout:  timeout,
		cache:    cache,
	}, nil
}
