package wherelib

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/9seconds/whereabouts/gazetteer"
	"github.com/juju/errors"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultEnsembleCacheTTL = 6 * time.Hour
	DefaultWorkerPoolSize   = 4096

	workerPoolExpireTime = time.Minute
	ensembleName         = "ensemble"
)

// EnsembleSource is a third party IP geolocation API. URL has {ip}
// placeholder. Normalize converts a vendor response into evidence and
// returns false if vendor reports an error or has no data.
type EnsembleSource struct {
	Name      string
	URL       string
	Weight    float64
	Insecure  bool
	Normalize func(body []byte) (Evidence, bool)
}

// EnsembleOptions configure NewEnsemble. Zero values mean defaults.
//
// If SharedCircuit is set, a failure counter of circuit breaker is
// kept in the cache, so all processes which share a cache share a
// circuit.
type EnsembleOptions struct {
	ClusterRadiusKm  float64
	MinSources       int
	CacheTTL         time.Duration
	CircuitThreshold int
	CircuitTimeout   time.Duration
	SharedCircuit    bool
	WorkerPoolSize   int
}

// Ensemble queries all sources concurrently and builds a consensus of
// their answers.
type Ensemble struct {
	sources   []EnsembleSource
	stats     map[string]*UsageStats
	fetcher   Fetcher
	cache     cacheClient
	breaker   *circuitBreaker
	pool      *ants.Pool
	group     singleflight.Group
	logger    Logger
	opts      EnsembleOptions
	closeOnce sync.Once
}

type ensembleResponse struct {
	evidence  Evidence
	ok        bool
	responded bool
}

// Lookup returns a consensus of sources. Results are cached per IP,
// concurrent lookups of the same IP share a single fan-out.
//
// A shared fan-out does not depend on a deadline of any caller: it is
// bounded by fetcher timeouts only. A caller whose context is done
// gets an empty result, others still get a complete one.
func (e *Ensemble) Lookup(ctx context.Context, ip net.IP) ConsensusResult {
	key := "ensemble:" + ip.String()

	return remember(ctx, e.cache, key, e.opts.CacheTTL,
		func(ctx context.Context) (ConsensusResult, bool) {
			if ctx.Err() != nil {
				return ConsensusResult{}, false
			}

			sharedCtx := context.WithoutCancel(ctx)
			resultChan := e.group.DoChan(key, func() (interface{}, error) {
				return e.lookup(sharedCtx, ip), nil
			})

			select {
			case <-ctx.Done():
				return ConsensusResult{}, false
			case res := <-resultChan:
				rv := res.Val.(ConsensusResult)

				return rv, rv.Responded > 0
			}
		})
}

func (e *Ensemble) lookup(ctx context.Context, ip net.IP) ConsensusResult {
	if !e.breaker.Allow() {
		e.logger.Debug(ensembleName, "circuit is open, skip lookup of "+ip.String())

		return ConsensusResult{}
	}

	entries, responded := e.fanOut(ctx, ip)

	if responded == 0 {
		e.breaker.Failure(ctx)

		return ConsensusResult{}
	}

	e.breaker.Success(ctx)

	rv := buildConsensus(entries, e.opts.ClusterRadiusKm, e.opts.MinSources)
	rv.Responded = responded

	return rv
}

func (e *Ensemble) fanOut(ctx context.Context, ip net.IP) ([]Evidence, int) {
	results := make(chan ensembleResponse, len(e.sources))

	for i := range e.sources {
		source := &e.sources[i]
		task := func() {
			results <- e.query(ctx, ip, source)
		}

		if err := e.pool.Submit(task); err != nil {
			if !errors.Is(err, ants.ErrPoolOverload) {
				e.logger.ProviderError(ip, source.Name, errors.Annotate(err, "cannot submit a task"))
				results <- ensembleResponse{}

				continue
			}

			go task()
		}
	}

	entries := make([]Evidence, 0, len(e.sources))
	responded := 0

	for range e.sources {
		resp := <-results

		if resp.responded {
			responded++
		}

		if resp.ok {
			entries = append(entries, resp.evidence)
		}
	}

	return entries, responded
}

func (e *Ensemble) query(ctx context.Context, ip net.IP, source *EnsembleSource) ensembleResponse {
	rv := ensembleResponse{}
	started := time.Now()
	url := strings.ReplaceAll(source.URL, "{ip}", ip.String())

	status, body, err := e.fetcher.Fetch(ctx, url, source.Insecure)
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = errors.Errorf("unexpected status code %d", status)
	}

	e.stats[source.Name].Used(err, time.Since(started))

	if err != nil {
		e.logger.ProviderError(ip, source.Name, err)

		return rv
	}

	rv.responded = true

	evidence, ok := source.Normalize(body)
	if !ok {
		e.logger.Debug(source.Name, "no evidence for "+ip.String())

		return rv
	}

	evidence.Source = Source(source.Name)
	evidence.Weight = source.Weight
	rv.evidence = evidence
	rv.ok = true

	return rv
}

// Stats returns usage statistics of sources sorted by name.
func (e *Ensemble) Stats() []*UsageStats {
	rv := make([]*UsageStats, 0, len(e.stats))

	for _, v := range e.stats {
		rv = append(rv, v)
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i].Name < rv[j].Name
	})

	return rv
}

func (e *Ensemble) CircuitState() CircuitState {
	return e.breaker.State()
}

// Shutdown releases a worker pool. Ensemble is not usable after that.
func (e *Ensemble) Shutdown() {
	e.closeOnce.Do(func() {
		e.pool.Release()
	})
}

func (c ConsensusResult) evidence() (Evidence, bool) {
	if c.City == "" && c.State == "" {
		return Evidence{}, false
	}

	rv := Evidence{
		Source:     SourceEnsemble,
		City:       c.City,
		State:      c.State,
		Country:    c.Country,
		Confidence: c.Confidence,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
	}

	if rv.Country == "" && gazetteer.IsKnownState(rv.State) {
		rv.Country = gazetteer.CountryCode
	}

	rv.SetMeta(MetaISP, c.ISP)
	rv.SetMeta(MetaASN, c.ASN)
	rv.SetMeta(MetaPostal, c.Postal)

	return rv, true
}

// NewEnsemble makes a new ensemble. Cache may be nil.
func NewEnsemble(fetcher Fetcher, cache Cache, logger Logger,
	sources []EnsembleSource, opts EnsembleOptions) (*Ensemble, error) {
	if fetcher == nil {
		return nil, errors.NotValidf("nil fetcher")
	}

	if len(sources) == 0 {
		return nil, errors.NotValidf("empty list of sources")
	}

	if logger == nil {
		logger = NoopLogger{}
	}

	if err := fillEnsembleDefaults(&opts); err != nil {
		return nil, err
	}

	rv := &Ensemble{
		sources: make([]EnsembleSource, 0, len(sources)),
		stats:   map[string]*UsageStats{},
		fetcher: fetcher,
		cache:   cacheClient{cache: cache, logger: logger},
		logger:  logger,
		opts:    opts,
	}

	for _, v := range sources {
		switch {
		case v.Name == "":
			return nil, errors.NotValidf("source without a name")
		case rv.stats[v.Name] != nil:
			return nil, errors.NotValidf("duplicate source %s", v.Name)
		case !strings.Contains(v.URL, "{ip}"):
			return nil, errors.NotValidf("url of %s without {ip} placeholder", v.Name)
		case v.Weight <= 0:
			return nil, errors.NotValidf("weight %v of %s", v.Weight, v.Name)
		case v.Normalize == nil:
			return nil, errors.NotValidf("normalizer of %s", v.Name)
		}

		rv.sources = append(rv.sources, v)
		rv.stats[v.Name] = &UsageStats{Name: v.Name}
	}

	var counterCache Cache

	if opts.SharedCircuit {
		counterCache = cache
	}

	counter := newFailureCounter(counterCache, "ensemble:circuit", opts.CircuitTimeout, logger, time.Now)
	rv.breaker = newCircuitBreaker(ensembleName, opts.CircuitThreshold,
		opts.CircuitTimeout, counter, logger, time.Now)

	pool, err := ants.NewPool(opts.WorkerPoolSize,
		ants.WithExpiryDuration(workerPoolExpireTime),
		ants.WithNonblocking(true))
	if err != nil {
		return nil, errors.Annotate(err, "cannot create a worker pool")
	}

	rv.pool = pool

	return rv, nil
}

func fillEnsembleDefaults(opts *EnsembleOptions) error {
	if opts.ClusterRadiusKm == 0 {
		opts.ClusterRadiusKm = DefaultClusterRadiusKm
	}

	if opts.MinSources == 0 {
		opts.MinSources = DefaultMinSources
	}

	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultEnsembleCacheTTL
	}

	if opts.CircuitThreshold == 0 {
		opts.CircuitThreshold = DefaultCircuitThreshold
	}

	if opts.CircuitTimeout == 0 {
		opts.CircuitTimeout = DefaultCircuitTimeout
	}

	if opts.WorkerPoolSize == 0 {
		opts.WorkerPoolSize = DefaultWorkerPoolSize
	}

	switch {
	case opts.ClusterRadiusKm < 0:
		return errors.NotValidf("cluster radius %v", opts.ClusterRadiusKm)
	case opts.MinSources < 1:
		return errors.NotValidf("min sources %d", opts.MinSources)
	case opts.CacheTTL < 0:
		return errors.NotValidf("cache ttl %v", opts.CacheTTL)
	case opts.CircuitThreshold < 1:
		return errors.NotValidf("circuit threshold %d", opts.CircuitThreshold)
	case opts.CircuitTimeout < 0:
		return errors.NotValidf("circuit timeout %v", opts.CircuitTimeout)
	case opts.WorkerPoolSize < 1:
		return errors.NotValidf("worker pool size %d", opts.WorkerPoolSize)
	}

	return nil
}
