// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob loaded via Viper.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlerConfig governs crawl pipeline behavior.
type CrawlerConfig struct {
	Seed             string  `mapstructure:"seed"`
	OutputDir        string  `mapstructure:"output_dir"`
	MaxDepth         int     `mapstructure:"max_depth"`
	DelaySeconds     float64 `mapstructure:"delay_seconds"`
	MaxPages         int     `mapstructure:"max_pages"`
	UserAgent        string  `mapstructure:"user_agent"`
	ChunkTargetWords int     `mapstructure:"chunk_target_words"`
}

// HTTPConfig configures the HTTP client used for all fetches.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAGCRAWL")
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
	v.SetDefault("crawler.seed", "https://zirmon.com/")
	v.SetDefault("crawler.output_dir", "data")
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("crawler.delay_seconds", 1.0)
	v.SetDefault("crawler.max_pages", 5000)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; RAG-Scraper/1.0; +https://example.com/bot)")
	v.SetDefault("crawler.chunk_target_words", 650)
	v.SetDefault("http.timeout_seconds", 25)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("metrics.listen_addr", "")
	v.SetDefault("logging.development", false)
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawler.Seed) == "" {
		return fmt.Errorf("crawler.seed must be set")
	}
	if strings.TrimSpace(c.Crawler.OutputDir) == "" {
		return fmt.Errorf("crawler.output_dir must be set")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.DelaySeconds < 0 {
		return fmt.Errorf("crawler.delay_seconds must be >= 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if strings.TrimSpace(c.Crawler.UserAgent) == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Crawler.ChunkTargetWords <= 0 {
		return fmt.Errorf("crawler.chunk_target_words must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	return nil
}

// Delay returns the configured inter-request delay.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Crawler.DelaySeconds * float64(time.Second))
}

// Timeout returns the configured per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
