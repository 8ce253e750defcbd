package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"postmatch/internal/clients/foncii"
	"postmatch/internal/clients/instagram"
	"postmatch/internal/clients/places"
	"postmatch/internal/config"
	"postmatch/internal/extract"
	"postmatch/internal/metrics"
	"postmatch/internal/services"
	"postmatch/internal/store"
	"postmatch/internal/store/handlecache"
	"postmatch/internal/store/primary"
	"postmatch/pkg/similarity"
)

type App struct {
	Config *config.Config

	PrimaryStore *primary.StoreImpl
	RunStore     store.RunStore
	CacheStore   store.HandleCacheStore
	JobClient    store.JobClient

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Clients are nil when the external credentials are missing; see
	// ExternalErr.
	Places    *places.Client
	Foncii    *foncii.Client
	Instagram *instagram.Client

	Resolver        *services.Resolver
	Filter          *services.MatchFilter
	PipelineService *services.PipelineService
	UserService     *services.UserService

	// ExternalErr explains why the external clients are not available.
	ExternalErr error

	redis *redis.Client
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	configureLogging(cfg)

	app := &App{Config: cfg}
	app.initMetrics()

	if err := app.initPrimaryStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initCacheStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initClients(); err != nil {
		// offline commands (history, cache, score) still work
		app.ExternalErr = err
		log.Debugf("External clients disabled: %v", err)
	}
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, err
	}
	if cfg.Server.Async {
		app.initJobClient()
	}

	log.Debug("Application initialization complete.")
	return app, nil
}

// --- Private Helper Methods ---

func configureLogging(cfg *config.Config) {
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	} else if cfg.Log.Level != "" {
		log.Warnf("Unknown log level %q, keeping %s", cfg.Log.Level, log.GetLevel())
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func (a *App) initMetrics() {
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)
}

func (a *App) initPrimaryStore(ctx context.Context) error {
	ps, err := primary.NewPrimaryStore(ctx, a.Config.Database.Driver, a.Config.Database.DSN)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	a.PrimaryStore = ps
	a.RunStore = ps
	return nil
}

func (a *App) redisClient() *redis.Client {
	if a.redis == nil {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Address,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
	}
	return a.redis
}

func (a *App) initCacheStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		a.CacheStore = handlecache.NewFileStore(cfg.Cache.Path)
	case config.CacheBackendRedis:
		a.CacheStore = handlecache.NewRedisStore(a.redisClient(), cfg.Cache.RedisKey)
	case config.CacheBackendGCS:
		gcs, err := handlecache.NewGCSStore(ctx, cfg.Cache.Bucket, cfg.Cache.Object)
		if err != nil {
			return fmt.Errorf("init gcs handle cache: %w", err)
		}
		a.CacheStore = gcs
	case config.CacheBackendSQL:
		a.CacheStore = a.PrimaryStore
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	log.Debugf("Using %s handle cache", cfg.Cache.Backend)
	return nil
}

func (a *App) initClients() error {
	cfg := a.Config
	if err := cfg.ValidateExternal(); err != nil {
		return err
	}

	pc, err := places.New(cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.Timeout)
	if err != nil {
		return fmt.Errorf("init places client: %w", err)
	}
	fc, err := foncii.New(foncii.Config{
		APIKey:       cfg.Foncii.APIKey,
		ProdEndpoint: cfg.Foncii.ProdEndpoint,
		DevEndpoint:  cfg.Foncii.DevEndpoint,
		Debug:        cfg.Foncii.Debug,
		Timeout:      cfg.Foncii.Timeout,
	})
	if err != nil {
		return fmt.Errorf("init foncii client: %w", err)
	}
	ic, err := instagram.New(cfg.Instagram.AccessKey, cfg.Instagram.BaseURL, cfg.Instagram.Timeout)
	if err != nil {
		return fmt.Errorf("init instagram client: %w", err)
	}

	a.Places, a.Foncii, a.Instagram = pc, fc, ic
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config
	cutoff, err := cfg.MinPostTime()
	if err != nil {
		return err
	}

	deps := services.ResolverDeps{
		Scorer:     similarity.New(cfg.Matching.Algorithm),
		Categories: cfg.Matching.Categories,
		Strategies: services.DefaultStrategies(cfg.Matching.MaybeThreshold, cfg.Matching.NoThreshold),
		Metrics:    a.Metrics,
	}
	// typed nils must not leak into the interfaces
	if a.Places != nil {
		deps.Searcher = a.Places
	}
	if a.Foncii != nil {
		deps.Lookup = a.Foncii
	}
	a.Resolver = services.NewResolver(deps)
	a.Filter = services.NewMatchFilter(cfg.Matching.AcceptanceFloor)

	if a.ExternalErr != nil {
		return nil
	}
	a.PipelineService = services.NewPipelineService(services.PipelineDeps{
		Source:     a.Instagram,
		Sink:       a.Foncii,
		CacheStore: a.CacheStore,
		Runs:       a.RunStore,
		Resolver:   a.Resolver,
		Filter:     a.Filter,
		Extractor:  extract.New(cutoff),
		Aggregator: services.NewAggregator(a.Instagram, cfg.Pipeline.MaxPostAge, cfg.Pipeline.MinBatch),
		BatchSize:  cfg.Pipeline.UploadBatchSize,
		Metrics:    a.Metrics,
	})
	a.UserService = services.NewUserService(a.Instagram, a.Foncii, a.PipelineService)
	return nil
}

func (a *App) initJobClient() {
	a.JobClient = store.NewAsynqJobClient(a.RedisOpt(), a.RunStore)
}

// RedisOpt is the asynq connection for the job queue.
func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

// RequirePipeline reports whether the pipeline services are usable.
func (a *App) RequirePipeline() error {
	if a.PipelineService == nil || a.UserService == nil {
		if a.ExternalErr != nil {
			return fmt.Errorf("pipeline unavailable: %w", a.ExternalErr)
		}
		return fmt.Errorf("pipeline unavailable")
	}
	return nil
}

func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Printf("Error closing job client: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis client: %v", err)
		}
	}
	if a.PrimaryStore != nil {
		if err := a.PrimaryStore.Close(); err != nil {
			log.Printf("Error closing primary store: %v", err)
		}
	}
}
