package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 2, cfg.Server.ScanRunners)
	require.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "55", cfg.Registry.IndustryCode)
	require.Equal(t, 50, cfg.Registry.PageSize)
	require.Equal(t, 10, cfg.Registry.MaxPages)
	require.Equal(t, 500*time.Millisecond, cfg.Registry.PageDelay)
	require.Equal(t, 15*time.Second, cfg.Fetcher.Timeout)
	require.Equal(t, 5*time.Second, cfg.Fetcher.ProbeTimeout)
	require.Equal(t, 5, cfg.Scan.Concurrency)
	require.Equal(t, time.Second, cfg.Scan.SequentialDelay)
	require.Equal(t, 30, cfg.Scan.MaxTargets)
	require.Equal(t, 30, cfg.Rubric.Title.Min)
	require.Equal(t, 160, cfg.Rubric.MetaDescription.Max)
	require.Equal(t, 60, cfg.Ranking.WeaknessWeight)
	require.Equal(t, SessionStoreMemory, cfg.Session.Store)
	require.Equal(t, "both", cfg.Export.Format)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  scan_runners: 4
  allowed_origins: ["https://dashboard.example.no"]
registry:
  page_size: 25
  page_delay: 1s
fetcher:
  timeout: 20s
scan:
  concurrency: 8
rubric:
  title:
    min: 20
ranking:
  weakness_weight: 70
  size_weight: 30
session:
  store: redis
  redis_addr: redis:6379
export:
  format: json
  gcs_bucket: scans
  pubsub_project: seo
  pubsub_topic: scan-complete
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 4, cfg.Server.ScanRunners)
	require.Equal(t, []string{"https://dashboard.example.no"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 25, cfg.Registry.PageSize)
	require.Equal(t, time.Second, cfg.Registry.PageDelay)
	require.Equal(t, 20*time.Second, cfg.Fetcher.Timeout)
	require.Equal(t, 8, cfg.Scan.Concurrency)
	require.Equal(t, 20, cfg.Rubric.Title.Min)
	require.Equal(t, 60, cfg.Rubric.Title.Max)
	require.Equal(t, 70, cfg.Ranking.WeaknessWeight)
	require.Equal(t, SessionStoreRedis, cfg.Session.Store)
	require.Equal(t, "json", cfg.Export.Format)
	require.Equal(t, "scan-complete", cfg.Export.PubSubTopic)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SEOSCAN_SCAN_CONCURRENCY", "3")
	t.Setenv("SEOSCAN_REGISTRY_INDUSTRY_CODE", "56")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Scan.Concurrency)
	require.Equal(t, "56", cfg.Registry.IndustryCode)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("SEOSCAN_SERVER_PORT=7070\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SEOSCAN_SERVER_PORT") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no runners", func(c *Config) { c.Server.ScanRunners = 0 }, "server.scan_runners"},
		{"invalid page size", func(c *Config) { c.Registry.PageSize = 0 }, "registry.page_size"},
		{"invalid fetch timeout", func(c *Config) { c.Fetcher.Timeout = 0 }, "fetcher.timeout"},
		{"invalid concurrency", func(c *Config) { c.Scan.Concurrency = 0 }, "scan.concurrency"},
		{"bad rubric band", func(c *Config) { c.Rubric.Title.Max = 10 }, "rubric.title"},
		{"rubric sum", func(c *Config) { c.Rubric.ViewportPoints = 15 }, "must sum to 100"},
		{"weights off", func(c *Config) { c.Ranking.SizeWeight = 50 }, "must equal 100"},
		{"unknown store", func(c *Config) { c.Session.Store = "etcd" }, "session.store"},
		{"redis without addr", func(c *Config) {
			c.Session.Store = SessionStoreRedis
			c.Session.RedisAddr = ""
		}, "session.redis_addr"},
		{"topic without project", func(c *Config) { c.Export.PubSubTopic = "t" }, "export.pubsub_project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
