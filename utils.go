package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/whereabouts/providers"
	"github.com/9seconds/whereabouts/stores"
	"github.com/9seconds/whereabouts/wherelib"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
)

// components are wired parts of the engine. Closers are executed in
// reverse order.
type components struct {
	engine   *wherelib.Engine
	vpn      *wherelib.VPNScorer
	learning *wherelib.LearningStore
	ensemble *wherelib.Ensemble
	closers  []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeComponents(ctx context.Context, conf *config, logger wherelib.Logger) (*components, error) {
	rv := &components{
		vpn: wherelib.NewVPNScorer(conf.TrustedEnvironment, conf.ExtraVPNASNs...),
	}

	if err := rv.populate(ctx, conf, logger); err != nil {
		rv.Close()

		return nil, err
	}

	return rv, nil
}

func (c *components) populate(ctx context.Context, conf *config, logger wherelib.Logger) error {
	fetcher, err := wherelib.NewFetcher(wherelib.FetcherOptions{
		UserAgent:         conf.HTTP.GetUserAgent(),
		ConnectTimeout:    conf.HTTP.ConnectTimeout.Duration,
		Timeout:           conf.HTTP.Timeout.Duration,
		RateLimitInterval: conf.HTTP.GetRateLimitInterval(),
		RateLimitBurst:    conf.HTTP.GetRateLimitBurst(),
		MaxBodySize:       conf.HTTP.MaxBodySize,
	})
	if err != nil {
		return errors.Annotate(err, "cannot create http fetcher")
	}

	cache, err := c.makeCache(ctx, conf)
	if err != nil {
		return err
	}

	engineConf := wherelib.EngineConfig{
		Logger:         logger,
		Weights:        conf.GetWeights(),
		FallbackWeight: conf.FallbackWeight,
	}

	if engineConf.LocalDB, err = c.makeLocalDB(ctx, conf, logger); err != nil {
		return err
	}

	if !conf.ReverseDNS.Disabled {
		resolver, err := wherelib.NewDNSResolver(conf.ReverseDNS.Timeout.Duration, conf.ReverseDNS.CacheSize)
		if err != nil {
			return errors.Annotate(err, "cannot create dns resolver")
		}

		engineConf.ReverseDNS = wherelib.NewReverseDNS(resolver, logger)
	}

	if !conf.RDAP.Disabled {
		engineConf.RDAP, err = wherelib.NewRDAP(fetcher, cache, logger,
			conf.RDAP.Registries, conf.RDAP.CacheTTL.Duration, conf.RDAP.Timeout.Duration)
		if err != nil {
			return errors.Annotate(err, "cannot create rdap client")
		}
	}

	if engineConf.Probe, err = wherelib.NewProbeInterpreter(conf.Probe.CityRTT, conf.Probe.StateRTT); err != nil {
		return errors.Annotate(err, "cannot create probe interpreter")
	}

	if !conf.Learning.Disabled {
		store, err := c.makeRangeStore(ctx, conf)
		if err != nil {
			return err
		}

		c.learning, err = wherelib.NewLearningStore(store, logger, conf.Learning.GetOptions())
		if err != nil {
			return errors.Annotate(err, "cannot create learning store")
		}

		engineConf.Learning = c.learning
	}

	if len(conf.Providers) > 0 {
		sources, err := providers.MakeSources(conf.GetProviderNames(), conf.GetProviderOptions())
		if err != nil {
			return errors.Annotate(err, "cannot make ensemble sources")
		}

		c.ensemble, err = wherelib.NewEnsemble(fetcher, cache, logger, sources, conf.Ensemble.GetOptions())
		if err != nil {
			return errors.Annotate(err, "cannot create ensemble")
		}

		c.closers = append(c.closers, c.ensemble.Shutdown)
		engineConf.Ensemble = c.ensemble
	}

	if c.engine, err = wherelib.NewEngine(engineConf); err != nil {
		return errors.Annotate(err, "cannot create engine")
	}

	return nil
}

func (c *components) makeCache(ctx context.Context, conf *config) (wherelib.Cache, error) {
	switch conf.Cache.GetBackend() {
	case BackendRedis:
		cache, err := stores.NewRedisCache(ctx, conf.Cache.RedisURL, conf.Cache.GetPrefix())
		if err != nil {
			return nil, errors.Annotate(err, "cannot create redis cache")
		}

		c.closers = append(c.closers, func() { cache.Close() }) // nolint: errcheck

		return cache, nil
	default:
		cache, err := stores.NewMemoryCache(conf.Cache.Size)
		if err != nil {
			return nil, errors.Annotate(err, "cannot create memory cache")
		}

		c.closers = append(c.closers, cache.Close)

		return cache, nil
	}
}

func (c *components) makeRangeStore(ctx context.Context, conf *config) (wherelib.RangeStore, error) {
	switch conf.Store.GetBackend() {
	case BackendSQLite:
		store, err := stores.NewSQLiteRangeStore(ctx, conf.Store.DSN)
		if err != nil {
			return nil, errors.Annotate(err, "cannot create sqlite store")
		}

		c.closers = append(c.closers, func() { store.Close() }) // nolint: errcheck

		return store, nil
	case BackendPostgres:
		store, err := stores.NewPostgresRangeStore(ctx, conf.Store.DSN)
		if err != nil {
			return nil, errors.Annotate(err, "cannot create postgres store")
		}

		c.closers = append(c.closers, store.Close)

		return store, nil
	default:
		return stores.NewMemoryRangeStore(), nil
	}
}

// makeLocalDB returns a database even if it cannot be opened right now:
// it reports itself as not ready until a watcher loads a file.
func (c *components) makeLocalDB(ctx context.Context, conf *config, logger wherelib.Logger) (wherelib.LocalGeoDB, error) {
	var (
		db  *providers.LocalDB
		err error
	)

	switch conf.LocalDB.Name {
	case providers.NameMaxmind:
		db, err = providers.NewMaxmindDB(nil, conf.LocalDB.Path)
	case providers.NameIP2Location:
		db, err = providers.NewIP2LocationDB(nil, conf.LocalDB.Path)
	default:
		return nil, nil
	}

	if db == nil {
		return nil, errors.Annotate(err, "cannot create local database")
	}

	if err != nil {
		log.WithField("database", db.Name()).WithError(err).Warn("Local database is not ready")
	}

	watchCtx, cancel := context.WithCancel(ctx)

	go db.Watch(watchCtx, conf.LocalDB.GetReloadEvery(), logger)

	c.closers = append(c.closers, func() {
		cancel()
		db.Close() // nolint: errcheck
	})

	return db, nil
}
