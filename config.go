package main

import (
	"io"
	"net"
	"time"

	"github.com/9seconds/whereabouts/providers"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

const (
	DefaultListen            = "127.0.0.1:8000"
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10
	DefaultReloadEvery       = time.Hour
	DefaultCachePrefix       = "whereabouts:"

	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Annotatef(err, "cannot parse duration %s", text)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen             string             `toml:"listen"`
	RequestTimeout     duration           `toml:"request_timeout"`
	TrustedEnvironment bool               `toml:"trusted_environment"`
	FallbackWeight     float64            `toml:"fallback_weight"`
	Weights            map[string]float64 `toml:"weights"`
	ExtraVPNASNs       []uint32           `toml:"extra_vpn_asns"`

	Auth       configAuth       `toml:"auth"`
	HTTP       configHTTP       `toml:"http"`
	Cache      configCache      `toml:"cache"`
	Store      configStore      `toml:"store"`
	Learning   configLearning   `toml:"learning"`
	Ensemble   configEnsemble   `toml:"ensemble"`
	ReverseDNS configReverseDNS `toml:"reverse_dns"`
	RDAP       configRDAP       `toml:"rdap"`
	Probe      configProbe      `toml:"probe"`
	LocalDB    configLocalDB    `toml:"local_database"`
	Providers  []configProvider `toml:"providers"`
}

func (c config) GetListen() string {
	if c.Listen == "" {
		return DefaultListen
	}

	return c.Listen
}

func (c config) GetRequestTimeout() time.Duration {
	return c.RequestTimeout.Duration
}

func (c config) GetWeights() map[wherelib.Source]float64 {
	rv := make(map[wherelib.Source]float64, len(c.Weights))

	for k, v := range c.Weights {
		rv[wherelib.Source(k)] = v
	}

	return rv
}

type configAuth struct {
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (c configAuth) Enabled() bool {
	return c.User != "" || c.Password != ""
}

type configHTTP struct {
	UserAgent         string   `toml:"user_agent"`
	Timeout           duration `toml:"timeout"`
	ConnectTimeout    duration `toml:"connect_timeout"`
	RateLimitInterval duration `toml:"rate_limit_interval"`
	RateLimitBurst    int      `toml:"rate_limit_burst"`
	MaxBodySize       int64    `toml:"max_body_size"`
}

func (c configHTTP) GetUserAgent() string {
	if c.UserAgent == "" {
		return wherelib.DefaultUserAgent + "/" + version
	}

	return c.UserAgent
}

func (c configHTTP) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configHTTP) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return c.RateLimitBurst
}

type configCache struct {
	Backend  string `toml:"backend"`
	Size     int64  `toml:"size"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

func (c configCache) GetBackend() string {
	if c.Backend == "" {
		return BackendMemory
	}

	return c.Backend
}

func (c configCache) GetPrefix() string {
	if c.Prefix == "" {
		return DefaultCachePrefix
	}

	return c.Prefix
}

type configStore struct {
	Backend string `toml:"backend"`
	DSN     string `toml:"dsn"`
}

func (c configStore) GetBackend() string {
	if c.Backend == "" {
		return BackendMemory
	}

	return c.Backend
}

type configLearning struct {
	Disabled        bool    `toml:"disabled"`
	Mask            int     `toml:"mask"`
	Threshold       int     `toml:"threshold"`
	MinSamples      int     `toml:"min_samples"`
	MinRate         float64 `toml:"min_rate"`
	RequireVerified bool    `toml:"require_verified"`
}

func (c configLearning) GetOptions() wherelib.LearningOptions {
	return wherelib.LearningOptions{
		Mask:            c.Mask,
		Threshold:       c.Threshold,
		MinSamples:      c.MinSamples,
		MinRate:         c.MinRate,
		RequireVerified: c.RequireVerified,
	}
}

type configEnsemble struct {
	ClusterRadiusKm  float64  `toml:"cluster_radius_km"`
	MinSources       int      `toml:"min_sources"`
	CacheTTL         duration `toml:"cache_ttl"`
	CircuitThreshold int      `toml:"circuit_threshold"`
	CircuitTimeout   duration `toml:"circuit_timeout"`
	SharedCircuit    bool     `toml:"shared_circuit"`
	WorkerPoolSize   int      `toml:"worker_pool_size"`
}

func (c configEnsemble) GetOptions() wherelib.EnsembleOptions {
	return wherelib.EnsembleOptions{
		ClusterRadiusKm:  c.ClusterRadiusKm,
		MinSources:       c.MinSources,
		CacheTTL:         c.CacheTTL.Duration,
		CircuitThreshold: c.CircuitThreshold,
		CircuitTimeout:   c.CircuitTimeout.Duration,
		SharedCircuit:    c.SharedCircuit,
		WorkerPoolSize:   c.WorkerPoolSize,
	}
}

type configReverseDNS struct {
	Disabled  bool     `toml:"disabled"`
	Timeout   duration `toml:"timeout"`
	CacheSize int      `toml:"cache_size"`
}

type configRDAP struct {
	Disabled   bool     `toml:"disabled"`
	Registries []string `toml:"registries"`
	CacheTTL   duration `toml:"cache_ttl"`
	Timeout    duration `toml:"timeout"`
}

type configProbe struct {
	CityRTT  float64 `toml:"city_rtt_ms"`
	StateRTT float64 `toml:"state_rtt_ms"`
}

type configLocalDB struct {
	Name        string   `toml:"name"`
	Path        string   `toml:"path"`
	ReloadEvery duration `toml:"reload_every"`
}

func (c configLocalDB) GetReloadEvery() time.Duration {
	if c.ReloadEvery.Duration == 0 {
		return DefaultReloadEvery
	}

	return c.ReloadEvery.Duration
}

type configProvider struct {
	Name     string  `toml:"name"`
	Key      string  `toml:"key"`
	Weight   float64 `toml:"weight"`
	URL      string  `toml:"url"`
	Insecure bool    `toml:"insecure"`
}

func (c config) GetProviderNames() []string {
	rv := make([]string, 0, len(c.Providers))

	for _, v := range c.Providers {
		rv = append(rv, v.Name)
	}

	return rv
}

func (c config) GetProviderOptions() map[string]providers.VendorOptions {
	rv := make(map[string]providers.VendorOptions, len(c.Providers))

	for _, v := range c.Providers {
		rv[v.Name] = providers.VendorOptions{
			Key:      v.Key,
			Weight:   v.Weight,
			URL:      v.URL,
			Insecure: v.Insecure,
		}
	}

	return rv
}

func parseConfig(reader io.Reader) (*config, error) {
	conf := &config{}

	if _, err := toml.NewDecoder(reader).Decode(conf); err != nil {
		return nil, errors.Annotate(err, "cannot parse config file")
	}

	if err := validateConfig(conf); err != nil {
		return nil, errors.Annotate(err, "invalid config")
	}

	return conf, nil
}

func validateConfig(conf *config) error {
	if _, _, err := net.SplitHostPort(conf.GetListen()); err != nil {
		return errors.Annotate(err, "incorrect host:port for listen")
	}

	if conf.Auth.Enabled() && (conf.Auth.User == "" || conf.Auth.Password == "") {
		return errors.NotValidf("auth without user or password")
	}

	switch conf.Cache.GetBackend() {
	case BackendMemory:
	case BackendRedis:
		if conf.Cache.RedisURL == "" {
			return errors.NotValidf("redis cache without redis_url")
		}
	default:
		return errors.NotValidf("cache backend %s", conf.Cache.Backend)
	}

	switch conf.Store.GetBackend() {
	case BackendMemory:
	case BackendSQLite, BackendPostgres:
		if conf.Store.DSN == "" {
			return errors.NotValidf("%s store without dsn", conf.Store.Backend)
		}
	default:
		return errors.NotValidf("store backend %s", conf.Store.Backend)
	}

	if conf.Ensemble.SharedCircuit && conf.Cache.GetBackend() != BackendRedis {
		return errors.NotValidf("shared circuit without redis cache")
	}

	switch conf.LocalDB.Name {
	case "", providers.NameMaxmind, providers.NameIP2Location:
	default:
		return errors.NotValidf("local database %s", conf.LocalDB.Name)
	}

	if conf.LocalDB.Name != "" && conf.LocalDB.Path == "" {
		return errors.NotValidf("local database %s without path", conf.LocalDB.Name)
	}

	seenProviderNames := map[string]bool{}

	for _, v := range conf.Providers {
		if seenProviderNames[v.Name] {
			return errors.NotValidf("duplicate provider %s", v.Name)
		}

		seenProviderNames[v.Name] = true

		if _, ok := providers.LookupVendor(v.Name); !ok {
			return errors.Annotatef(providers.ErrUnknownVendor, "provider %s", v.Name)
		}
	}

	return nil
}
