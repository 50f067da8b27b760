package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noDotEnv(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", noDotEnv(t))
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Empty(t, cfg.Server.APIKey)
	require.Equal(t, ProviderColly, cfg.Fetch.Provider)
	require.Equal(t, 2<<20, cfg.Fetch.MaxPageBytes)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, 300*time.Second, cfg.RequestTimeout())
	require.InDelta(t, 2.0, cfg.Fetch.RatePerSecond, 0)
	require.Equal(t, "comprehensive", cfg.Crawl.Mode)
	require.Equal(t, 8, cfg.Crawl.MaxPages)
	require.Equal(t, 5, cfg.Crawl.EarlyStopContacts)
	require.Equal(t, 2, cfg.Crawl.EarlyStopPeople)
	require.Equal(t, 15, cfg.Crawl.MaxDiscovered)
	require.Equal(t, 500, cfg.Crawl.CardMaxChars)
	require.Equal(t, 3, cfg.Batch.WindowSize)
	require.Equal(t, 2*time.Second, cfg.Batch.WindowDelay)
	require.Equal(t, "US", cfg.Phone.Region)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  api_key: secret
fetch:
  provider: ninjas
  api_key: ninja-key
  timeout_seconds: 45
  max_page_bytes: 1048576
  rate_per_second: 0.5
crawl:
  mode: quick
  max_pages: 4
  card_max_chars: 800
batch:
  window_size: 5
  window_delay: 500ms
logging:
  development: false
phone:
  region: GB
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path, noDotEnv(t))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "secret", cfg.Server.APIKey)
	require.Equal(t, ProviderNinjas, cfg.Fetch.Provider)
	require.Equal(t, "ninja-key", cfg.Fetch.APIKey)
	require.Equal(t, 45*time.Second, cfg.FetchTimeout())
	require.Equal(t, 1<<20, cfg.Fetch.MaxPageBytes)
	require.InDelta(t, 0.5, cfg.Fetch.RatePerSecond, 0)
	require.Equal(t, "quick", cfg.Crawl.Mode)
	require.Equal(t, 4, cfg.Crawl.MaxPages)
	require.Equal(t, 800, cfg.Crawl.CardMaxChars)
	require.Equal(t, 5, cfg.Batch.WindowSize)
	require.Equal(t, 500*time.Millisecond, cfg.Batch.WindowDelay)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "GB", cfg.Phone.Region)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noDotEnv(t))
	require.ErrorContains(t, err, "read config")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONTACTS_SERVER_PORT", "9999")
	t.Setenv("CONTACTS_FETCH_PROVIDER", "ninjas")
	t.Setenv("CONTACTS_FETCH_API_KEY", "env-key")
	t.Setenv("CONTACTS_BATCH_WINDOW_DELAY", "1s")

	cfg, err := Load("", noDotEnv(t))
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Server.Port)
	require.Equal(t, "env-key", cfg.Fetch.APIKey)
	require.Equal(t, time.Second, cfg.Batch.WindowDelay)
}

func TestLoadLegacyKeyFromDotEnv(t *testing.T) {
	t.Setenv(LegacyAPIKeyEnv, "")
	require.NoError(t, os.Unsetenv(LegacyAPIKeyEnv))
	t.Setenv("CONTACTS_FETCH_PROVIDER", "ninjas")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(LegacyAPIKeyEnv+"=dotenv-key\n"), 0o600))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	require.Equal(t, "dotenv-key", cfg.Fetch.APIKey)
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv(LegacyAPIKeyEnv, "")
	t.Setenv("CONTACTS_FETCH_PROVIDER", "ninjas")

	_, err := Load("", noDotEnv(t))
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("", noDotEnv(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid request timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, "server.request_timeout_seconds"},
		{"unknown provider", func(c *Config) { c.Fetch.Provider = "carrier-pigeon" }, "fetch.provider"},
		{"ninjas without key", func(c *Config) { c.Fetch.Provider = ProviderNinjas; c.Fetch.APIKey = " " }, "fetch.api_key"},
		{"invalid fetch timeout", func(c *Config) { c.Fetch.TimeoutSeconds = 0 }, "fetch.timeout_seconds"},
		{"invalid page size", func(c *Config) { c.Fetch.MaxPageBytes = 0 }, "fetch.max_page_bytes"},
		{"negative rate", func(c *Config) { c.Fetch.RatePerSecond = -1 }, "fetch.rate_per_second"},
		{"unknown mode", func(c *Config) { c.Crawl.Mode = "deep" }, "crawl.mode"},
		{"invalid max pages", func(c *Config) { c.Crawl.MaxPages = 0 }, "crawl.max_pages"},
		{"min above max discovered", func(c *Config) { c.Crawl.MinDiscovered = 20 }, "crawl.min_discovered"},
		{"invalid card size", func(c *Config) { c.Crawl.CardMaxChars = 0 }, "crawl.card_max_chars"},
		{"invalid window", func(c *Config) { c.Batch.WindowSize = 0 }, "batch.window_size"},
		{"negative delay", func(c *Config) { c.Batch.WindowDelay = -time.Second }, "batch.window_delay"},
		{"bad region", func(c *Config) { c.Phone.Region = "USA" }, "phone.region"},
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
