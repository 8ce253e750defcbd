package config

import (
	"errors"
	"fmt"
	"strings"
)

/*
Validate checks the settings every command relies on: database, cache
backend, matching thresholds, pipeline limits and worker. Credentials for the
external services are checked by ValidateExternal, since offline commands
(history, cache, score) run without them.
*/
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "pgx", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case CacheBackendFile:
		if c.Cache.Path == "" {
			return errors.New("cache.path is required for the file cache backend")
		}
	case CacheBackendRedis:
		if c.Redis.Address == "" {
			return errors.New("redis.address is required for the redis cache backend")
		}
	case CacheBackendGCS:
		if c.Cache.Bucket == "" || c.Cache.Object == "" {
			return errors.New("cache.bucket and cache.object are required for the gcs cache backend")
		}
	case CacheBackendSQL:
	default:
		return fmt.Errorf("cache.backend must be one of file, redis, gcs, sql, got %q", c.Cache.Backend)
	}

	switch c.Matching.Algorithm {
	case "", "ratcliff", "jarowinkler":
	default:
		return fmt.Errorf("matching.algorithm must be ratcliff or jarowinkler, got %q", c.Matching.Algorithm)
	}
	if len(c.Matching.Categories) == 0 {
		return errors.New("matching.categories must list at least one category")
	}
	for name, v := range map[string]float64{
		"matching.maybe_threshold":  c.Matching.MaybeThreshold,
		"matching.no_threshold":     c.Matching.NoThreshold,
		"matching.acceptance_floor": c.Matching.AcceptanceFloor,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}

	if _, err := c.MinPostTime(); err != nil {
		return err
	}
	if c.Pipeline.MaxPostAge <= 0 {
		return errors.New("pipeline.max_post_age must be positive")
	}
	if c.Pipeline.MinBatch < 0 {
		return errors.New("pipeline.min_batch must not be negative")
	}
	if c.Pipeline.UploadBatchSize <= 0 {
		return errors.New("pipeline.upload_batch_size must be a positive integer")
	}

	// The handle cache is a single document with last-writer-wins saves, so
	// only one pipeline may run at a time.
	if c.Worker.Concurrency != 1 {
		return fmt.Errorf("worker.concurrency must be 1, got %d", c.Worker.Concurrency)
	}
	for name, priority := range c.Worker.Queues {
		if name == "" {
			return errors.New("worker.queues contains an empty queue name")
		}
		if priority <= 0 {
			return fmt.Errorf("worker.queues priority for queue '%s' must be positive", name)
		}
	}

	return nil
}

// ValidateExternal checks the credentials of the external services.
func (c *Config) ValidateExternal() error {
	if c.Places.APIKey == "" {
		return errors.New("places.api_key is required (GOOGLE_MAPS_API_KEY)")
	}
	if c.Foncii.APIKey == "" {
		return errors.New("foncii.api_key is required (FONCII_API_KEY)")
	}
	if c.Foncii.Debug && c.Foncii.DevEndpoint == "" {
		return errors.New("foncii.dev_endpoint is required when foncii.debug is set (FONCII_DEV_SERVER_ENDPOINT)")
	}
	if !c.Foncii.Debug && c.Foncii.ProdEndpoint == "" {
		return errors.New("foncii.prod_endpoint is required (FONCII_PROD_SERVER_ENDPOINT)")
	}
	if c.Instagram.AccessKey == "" {
		return errors.New("instagram.access_key is required (HIKER_API_KEY)")
	}
	return nil
}
