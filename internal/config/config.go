// Package config handles configuration loading for yfbridge.
// It supports an optional YAML config file with environment variable
// overrides. Every key has a working default, so a bare run needs neither.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override,
// e.g. YFBRIDGE_YAHOO_TIMEOUT_SEC.
const EnvPrefix = "YFBRIDGE"

// Config represents the complete application configuration.
type Config struct {
	Yahoo   YahooConfig   `mapstructure:"yahoo"   yaml:"yahoo"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// YahooConfig holds the Yahoo Finance endpoints and transport settings.
type YahooConfig struct {
	Query1URL  string `mapstructure:"query1_url"  yaml:"query1_url"`
	Query2URL  string `mapstructure:"query2_url"  yaml:"query2_url"`
	RSSURL     string `mapstructure:"rss_url"     yaml:"rss_url"`
	CookieURL  string `mapstructure:"cookie_url"  yaml:"cookie_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	UserAgent  string `mapstructure:"user_agent"  yaml:"user_agent"`
	AutoAdjust bool   `mapstructure:"auto_adjust" yaml:"auto_adjust"` // scale OHLC by adjusted close
	NewsCount  int    `mapstructure:"news_count"  yaml:"news_count"`
}

// Timeout returns the per-request HTTP timeout.
func (y YahooConfig) Timeout() time.Duration {
	return time.Duration(y.TimeoutSec) * time.Second
}

// LoggingConfig holds logging settings. Logs always go to stderr.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.yfbridge/config.yaml
//  3. /etc/yfbridge/config.yaml
//
// Environment variables override config file values.
// Format: YFBRIDGE_<SECTION>_<KEY>, e.g., YFBRIDGE_LOGGING_LEVEL
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".yfbridge"))
	v.AddConfigPath("/etc/yfbridge")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Yahoo.TimeoutSec <= 0 {
		cfg.Yahoo.TimeoutSec = defaultTimeoutSec
	}
	if cfg.Yahoo.NewsCount <= 0 {
		cfg.Yahoo.NewsCount = defaultNewsCount
	}
	return &cfg, nil
}

const (
	defaultTimeoutSec = 30
	defaultNewsCount  = 10
)

// DefaultUserAgent is sent on every Yahoo request. Yahoo rejects the Go
// default agent on several endpoints.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, _ := decode(v)
	return cfg
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Yahoo defaults
	v.SetDefault("yahoo.query1_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo.query2_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.rss_url", "https://feeds.finance.yahoo.com")
	v.SetDefault("yahoo.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("yahoo.timeout_sec", defaultTimeoutSec)
	v.SetDefault("yahoo.user_agent", DefaultUserAgent)
	v.SetDefault("yahoo.auto_adjust", true)
	v.SetDefault("yahoo.news_count", defaultNewsCount)

	// Logging defaults: stdout carries the response, so stay quiet
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
