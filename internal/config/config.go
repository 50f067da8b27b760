// Package config loads and validates contact crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LegacyAPIKeyEnv is read when fetch.api_key is unset.
const LegacyAPIKeyEnv = "REACT_APP_API_NINJAS_KEY"

// Fetch providers.
const (
	ProviderColly  = "colly"
	ProviderNinjas = "ninjas"
)

// ErrMissingAPIKey is returned when the ninjas provider has no API key.
var ErrMissingAPIKey = errors.New("fetch.api_key must be set for the ninjas provider (or " + LegacyAPIKeyEnv + ")")

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Logging LoggingConfig `mapstructure:"logging"`
	Phone   PhoneConfig   `mapstructure:"phone"`
}

// ServerConfig controls HTTP server behavior. An empty APIKey disables auth.
type ServerConfig struct {
	Port                  int    `mapstructure:"port"`
	APIKey                string `mapstructure:"api_key"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// FetchConfig selects and tunes the page fetcher.
type FetchConfig struct {
	Provider       string  `mapstructure:"provider"`
	APIKey         string  `mapstructure:"api_key"`
	Endpoint       string  `mapstructure:"endpoint"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxPageBytes   int     `mapstructure:"max_page_bytes"`
	RespectRobots  bool    `mapstructure:"respect_robots"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
}

// CrawlConfig governs a single domain crawl.
type CrawlConfig struct {
	Mode              string `mapstructure:"mode"`
	MaxPages          int    `mapstructure:"max_pages"`
	EarlyStopContacts int    `mapstructure:"early_stop_contacts"`
	EarlyStopPeople   int    `mapstructure:"early_stop_people"`
	MinDiscovered     int    `mapstructure:"min_discovered"`
	MaxDiscovered     int    `mapstructure:"max_discovered"`
	CardMaxChars      int    `mapstructure:"card_max_chars"`
}

// BatchConfig controls batch windowing.
type BatchConfig struct {
	WindowSize  int           `mapstructure:"window_size"`
	WindowDelay time.Duration `mapstructure:"window_delay"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PhoneConfig sets the region used to render phone numbers.
type PhoneConfig struct {
	Region string `mapstructure:"region"`
}

// Load builds a Config from dotenv files, disk and the environment, in
// increasing precedence. Without envFiles it tries ./.env; missing files are ignored.
func Load(path string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix("CONTACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Fetch.APIKey == "" {
		cfg.Fetch.APIKey = os.Getenv(LegacyAPIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("fetch.provider", ProviderColly)
	v.SetDefault("fetch.api_key", "")
	v.SetDefault("fetch.endpoint", "https://api.api-ninjas.com/v1/webscraper")
	v.SetDefault("fetch.user_agent", "Contact-Scraper/1.0")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_page_bytes", 2<<20)
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.burst", 2)
	v.SetDefault("crawl.mode", "comprehensive")
	v.SetDefault("crawl.max_pages", 8)
	v.SetDefault("crawl.early_stop_contacts", 5)
	v.SetDefault("crawl.early_stop_people", 2)
	v.SetDefault("crawl.min_discovered", 3)
	v.SetDefault("crawl.max_discovered", 15)
	v.SetDefault("crawl.card_max_chars", 500)
	v.SetDefault("batch.window_size", 3)
	v.SetDefault("batch.window_delay", "2s")
	v.SetDefault("logging.development", true)
	v.SetDefault("phone.region", "US")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	switch c.Fetch.Provider {
	case ProviderColly:
	case ProviderNinjas:
		if strings.TrimSpace(c.Fetch.APIKey) == "" {
			return ErrMissingAPIKey
		}
	default:
		return fmt.Errorf("fetch.provider must be %q or %q, got %q", ProviderColly, ProviderNinjas, c.Fetch.Provider)
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxPageBytes <= 0 {
		return fmt.Errorf("fetch.max_page_bytes must be > 0")
	}
	if c.Fetch.RatePerSecond < 0 {
		return fmt.Errorf("fetch.rate_per_second must be >= 0")
	}
	if c.Crawl.Mode != "quick" && c.Crawl.Mode != "comprehensive" {
		return fmt.Errorf("crawl.mode must be quick or comprehensive, got %q", c.Crawl.Mode)
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Crawl.MinDiscovered > c.Crawl.MaxDiscovered {
		return fmt.Errorf("crawl.min_discovered must be <= crawl.max_discovered")
	}
	if c.Crawl.CardMaxChars <= 0 {
		return fmt.Errorf("crawl.card_max_chars must be > 0")
	}
	if c.Batch.WindowSize <= 0 {
		return fmt.Errorf("batch.window_size must be > 0")
	}
	if c.Batch.WindowDelay < 0 {
		return fmt.Errorf("batch.window_delay must be >= 0")
	}
	if len(c.Phone.Region) != 2 {
		return fmt.Errorf("phone.region must be a two-letter region code")
	}
	return nil
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// RequestTimeout converts the HTTP request timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
