package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmatch/internal/config"
	"postmatch/internal/store/handlecache"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	cfg, err := config.LoadConfigFile(path)
	require.NoError(t, err)

	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ":memory:"
	cfg.Cache.Backend = config.CacheBackendFile
	cfg.Cache.Path = filepath.Join(dir, "handles.json")
	cfg.Server.Async = false
	return cfg
}

func TestNewApp_Offline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Places.APIKey = ""

	a, err := NewApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &handlecache.FileStore{}, a.CacheStore)
	assert.NotNil(t, a.RunStore)
	assert.NotNil(t, a.Resolver)
	assert.Nil(t, a.PipelineService)
	assert.Error(t, a.ExternalErr)
	assert.ErrorContains(t, a.RequirePipeline(), "places.api_key")
}

func TestNewApp_WithClients(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = config.CacheBackendSQL
	cfg.Places.APIKey = "gmaps"
	cfg.Foncii.APIKey = "foncii"
	cfg.Foncii.ProdEndpoint = "https://api.example.com/graphql"
	cfg.Foncii.Debug = false
	cfg.Instagram.AccessKey = "hiker"

	a, err := NewApp(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Same(t, a.PrimaryStore, a.CacheStore)
	assert.NoError(t, a.RequirePipeline())
	assert.NotNil(t, a.UserService)
	assert.Nil(t, a.JobClient)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.Concurrency = 3

	_, err := NewApp(cfg)
	assert.ErrorContains(t, err, "worker.concurrency")
}
