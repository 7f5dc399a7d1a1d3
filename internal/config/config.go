// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Output  OutputConfig  `mapstructure:"output"`
	DB      DBConfig      `mapstructure:"db"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig points the crawler at the buyer API.
type APIConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Key      string `mapstructure:"key"`
	Language string `mapstructure:"language"`
}

// CrawlerConfig governs scheduler and walker behavior.
type CrawlerConfig struct {
	CityID       int      `mapstructure:"city_id"`
	Categories   []string `mapstructure:"categories"`
	Concurrency  int      `mapstructure:"concurrency"`
	DelayMs      int      `mapstructure:"delay_ms"`
	PageLimit    int      `mapstructure:"page_limit"`
	UserAgent    string   `mapstructure:"user_agent"`
	MaxRetries   int      `mapstructure:"max_retries"`
	BackoffMs    int      `mapstructure:"backoff_ms"`
	BackoffMaxMs int      `mapstructure:"backoff_max_ms"`
}

// HTTPConfig configures HTTP client behavior.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// OutputConfig sets the output destination for the product document.
// Path may be a local file path or a gs://bucket/object URI.
type OutputConfig struct {
	Path        string `mapstructure:"path"`
	ContentType string `mapstructure:"content_type"`
}

// DBConfig controls optional Postgres persistence. Empty DSN disables it.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig controls the optional observability HTTP server.
// Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FIXCRAWL")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.fix-price.com/buyer/v1")
	v.SetDefault("api.language", "ru")
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.delay_ms", 500)
	v.SetDefault("crawler.page_limit", 24)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:129.0) Gecko/20100101 Firefox/129.0")
	v.SetDefault("crawler.max_retries", 3)
	v.SetDefault("crawler.backoff_ms", 250)
	v.SetDefault("crawler.backoff_max_ms", 5000)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("output.path", "products.json")
	v.SetDefault("output.content_type", "application/json")
	v.SetDefault("db.table", "products")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be set")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.PageLimit <= 0 || c.Crawler.PageLimit > 99 {
		return fmt.Errorf("crawler.page_limit must be in 1..99")
	}
	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must be set")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PolitenessDelay converts the per-host delay into a duration.
func (c Config) PolitenessDelay() time.Duration {
	return time.Duration(c.Crawler.DelayMs) * time.Millisecond
}

// Backoff returns the base and cap for retry backoff.
func (c Config) Backoff() (base, maxDelay time.Duration) {
	return time.Duration(c.Crawler.BackoffMs) * time.Millisecond,
		time.Duration(c.Crawler.BackoffMaxMs) * time.Millisecond
}
