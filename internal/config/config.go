package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Handle cache backends.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendGCS   = "gcs"
	CacheBackendSQL   = "sql"
)

const minPostDateLayout = "2006-01-02"

type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"log"`

	Database struct {
		Driver string `mapstructure:"driver"` // "postgres" or "sqlite"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Cache struct {
		Backend  string `mapstructure:"backend"`
		Path     string `mapstructure:"path"`
		Bucket   string `mapstructure:"bucket"`
		Object   string `mapstructure:"object"`
		RedisKey string `mapstructure:"redis_key"`
	} `mapstructure:"cache"`

	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Places struct {
		APIKey  string        `mapstructure:"api_key"`
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"places"`

	Foncii struct {
		APIKey       string        `mapstructure:"api_key"`
		ProdEndpoint string        `mapstructure:"prod_endpoint"`
		DevEndpoint  string        `mapstructure:"dev_endpoint"`
		Debug        bool          `mapstructure:"debug"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"foncii"`

	Instagram struct {
		AccessKey string        `mapstructure:"access_key"`
		BaseURL   string        `mapstructure:"base_url"`
		Timeout   time.Duration `mapstructure:"timeout"`
	} `mapstructure:"instagram"`

	Matching struct {
		Algorithm       string   `mapstructure:"algorithm"` // "ratcliff" or "jarowinkler"
		Categories      []string `mapstructure:"categories"`
		MaybeThreshold  float64  `mapstructure:"maybe_threshold"`
		NoThreshold     float64  `mapstructure:"no_threshold"`
		AcceptanceFloor float64  `mapstructure:"acceptance_floor"`
	} `mapstructure:"matching"`

	Pipeline struct {
		MinPostDate     string        `mapstructure:"min_post_date"`
		MaxPostAge      time.Duration `mapstructure:"max_post_age"`
		MinBatch        int           `mapstructure:"min_batch"`
		UploadBatchSize int           `mapstructure:"upload_batch_size"`
	} `mapstructure:"pipeline"`

	Server struct {
		Address string `mapstructure:"address"`
		APIKey  string `mapstructure:"api_key"`
		// Async enqueues pipeline requests instead of running them inline.
		Async bool `mapstructure:"async"`
	} `mapstructure:"server"`

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	} `mapstructure:"worker"`
}

// MinPostTime parses pipeline.min_post_date.
func (c *Config) MinPostTime() (time.Time, error) {
	t, err := time.Parse(minPostDateLayout, c.Pipeline.MinPostDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("pipeline.min_post_date: %w", err)
	}
	return t, nil
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	return load(viper.GetViper())
}

// LoadConfigFile reads the given file instead of ./config.yaml.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	// Environment variables used by the existing deployments.
	_ = v.BindEnv("places.api_key", "GOOGLE_MAPS_API_KEY")
	_ = v.BindEnv("foncii.api_key", "FONCII_API_KEY")
	_ = v.BindEnv("foncii.prod_endpoint", "FONCII_PROD_SERVER_ENDPOINT")
	_ = v.BindEnv("foncii.dev_endpoint", "FONCII_DEV_SERVER_ENDPOINT")
	_ = v.BindEnv("foncii.debug", "DEBUG")
	_ = v.BindEnv("server.api_key", "API_KEY")
	_ = v.BindEnv("cache.bucket", "GC_BUCKET_NAME")
	_ = v.BindEnv("cache.object", "GC_FILE_PATH")
	_ = v.BindEnv("instagram.access_key", "HIKER_API_KEY")
	_ = v.BindEnv("database.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env vars still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "postmatch.db")

	v.SetDefault("cache.backend", CacheBackendFile)
	v.SetDefault("cache.path", "instagram_handles.json")
	v.SetDefault("cache.object", "instagram_handles.json")
	v.SetDefault("cache.redis_key", "postmatch:handle_cache")

	v.SetDefault("redis.address", "localhost:6379")

	v.SetDefault("places.timeout", "15s")
	v.SetDefault("foncii.timeout", "30s")
	v.SetDefault("instagram.timeout", "30s")

	v.SetDefault("matching.algorithm", "ratcliff")
	v.SetDefault("matching.categories", []string{"restaurant", "food", "bar", "cafe", "bakery", "meal_delivery", "meal_takeaway"})
	v.SetDefault("matching.maybe_threshold", 0.6)
	v.SetDefault("matching.no_threshold", 0.7)
	v.SetDefault("matching.acceptance_floor", 0.55)

	v.SetDefault("pipeline.min_post_date", "2021-01-01")
	v.SetDefault("pipeline.max_post_age", "17520h")
	v.SetDefault("pipeline.min_batch", 30)
	v.SetDefault("pipeline.upload_batch_size", 40)

	v.SetDefault("server.address", ":8080")

	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.queues", map[string]int{"pipeline": 1})
}
