package wherelib

import (
	"context"
	"crypto/tls"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/juju/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultConnectTimeout = 1500 * time.Millisecond
	DefaultFetchTimeout   = 3 * time.Second
	DefaultUserAgent      = "whereabouts"

	defaultMaxBodySize = 1 << 20
)

// FetcherOptions configure NewFetcher. Zero values mean defaults.
//
// Rate limiter is set per host: RateLimitInterval is a minimal
// interval between requests, RateLimitBurst is a size of a bucket. Please
// see https://pkg.go.dev/golang.org/x/time/rate for details.
type FetcherOptions struct {
	UserAgent         string
	ConnectTimeout    time.Duration
	Timeout           time.Duration
	RateLimitInterval time.Duration
	RateLimitBurst    int
	MaxBodySize       int64

	// Transport replaces a default transport of both clients. This is
	// mostly for tests.
	Transport http.RoundTripper
}

type fetcher struct {
	userAgent   string
	timeout     time.Duration
	maxBodySize int64

	secureClient   *http.Client
	insecureClient *http.Client

	limitersMutex     sync.Mutex
	limiters          map[string]*rate.Limiter
	rateLimitInterval time.Duration
	rateLimitBurst    int
}

func (f *fetcher) Fetch(ctx context.Context, rawURL string, insecure bool) (int, []byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, errors.Annotate(err, "incorrect url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.getLimiter(parsed.Host).Wait(ctx); err != nil {
		return 0, nil, errors.Annotate(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, errors.Annotate(err, "cannot build a request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	client := f.secureClient
	if insecure {
		client = f.insecureClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, errors.Annotate(err, "cannot send a request")
	}

	defer func() {
		io.Copy(ioutil.Discard, resp.Body) // nolint: errcheck
		resp.Body.Close()
	}()

	body, err := ioutil.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, errors.Annotate(err, "cannot read response body")
	}

	return resp.StatusCode, body, nil
}

func (f *fetcher) getLimiter(host string) *rate.Limiter {
	f.limitersMutex.Lock()
	defer f.limitersMutex.Unlock()

	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Inf, 0)

		if f.rateLimitInterval > 0 {
			limiter = rate.NewLimiter(rate.Every(f.rateLimitInterval), f.rateLimitBurst)
		}

		f.limiters[host] = limiter
	}

	return limiter
}

// NewFetcher prepares a Fetcher with 2 HTTP clients: one verifies TLS
// certificates, another one does not. Second one is used only for
// sources which are explicitly marked as insecure.
func NewFetcher(opts FetcherOptions) (Fetcher, error) {
	rv := &fetcher{
		userAgent:         opts.UserAgent,
		timeout:           opts.Timeout,
		maxBodySize:       opts.MaxBodySize,
		limiters:          map[string]*rate.Limiter{},
		rateLimitInterval: opts.RateLimitInterval,
		rateLimitBurst:    opts.RateLimitBurst,
	}

	connectTimeout := opts.ConnectTimeout

	switch {
	case connectTimeout < 0:
		return nil, errors.NotValidf("connect timeout %v", connectTimeout)
	case connectTimeout == 0:
		connectTimeout = DefaultConnectTimeout
	}

	switch {
	case rv.timeout < 0:
		return nil, errors.NotValidf("timeout %v", rv.timeout)
	case rv.timeout == 0:
		rv.timeout = DefaultFetchTimeout
	}

	if rv.userAgent == "" {
		rv.userAgent = DefaultUserAgent
	}

	if rv.maxBodySize <= 0 {
		rv.maxBodySize = defaultMaxBodySize
	}

	if rv.rateLimitInterval < 0 {
		return nil, errors.NotValidf("rate limit interval %v", rv.rateLimitInterval)
	}

	if rv.rateLimitBurst <= 0 {
		rv.rateLimitBurst = 1
	}

	rv.secureClient = newHTTPClient(connectTimeout, rv.timeout, false)
	rv.insecureClient = newHTTPClient(connectTimeout, rv.timeout, true)

	if opts.Transport != nil {
		rv.secureClient.Transport = opts.Transport
		rv.insecureClient.Transport = opts.Transport
	}

	return rv, nil
}

func newHTTPClient(connectTimeout, timeout time.Duration, insecure bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	if insecure {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // nolint: gosec
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
