package internal

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration
const EnvPrefix = "VIDEORIPPER"

// Config holds application configuration
type Config struct {
	Threads     int           `mapstructure:"threads"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	PageRetries int           `mapstructure:"page_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	OutputDir   string        `mapstructure:"output"`
	InputFile   string        `mapstructure:"input"`
	CookiesFile string        `mapstructure:"cookies"`
	ProxyURL    string        `mapstructure:"proxy"`

	// Logging configuration
	LogLevel    string `mapstructure:"log_level"`
	EnableDebug bool   `mapstructure:"debug"`
	QuietMode   bool   `mapstructure:"quiet"`
	LogFile     string `mapstructure:"log_file"`

	Provider EndpointConfig `mapstructure:"provider"`
}

// EndpointConfig overrides the provider endpoints, for mirrors and tests
type EndpointConfig struct {
	SearchURL          string `mapstructure:"search_url"`
	AccountPostsURL    string `mapstructure:"account_posts_url"`
	CollectionPostsURL string `mapstructure:"collection_posts_url"`
	PlayURL            string `mapstructure:"play_url"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	profile := DefaultProviderProfile()
	return &Config{
		Threads:     10,
		Timeout:     10 * time.Second,
		Retries:     5,
		PageRetries: 5,
		RetryDelay:  0,
		OutputDir:   "download",
		InputFile:   "user-number.txt",

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr

		Provider: EndpointConfig{
			SearchURL:          profile.SearchURL,
			AccountPostsURL:    profile.Account.URL,
			CollectionPostsURL: profile.Collection.URL,
			PlayURL:            profile.PlayURL,
		},
	}
}

// NewConfigLoader returns a viper instance seeded with defaults and bound to
// the environment. Callers may bind flags before passing it to LoadConfig.
func NewConfigLoader() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("threads", def.Threads)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("retries", def.Retries)
	v.SetDefault("page_retries", def.PageRetries)
	v.SetDefault("retry_delay", def.RetryDelay)
	v.SetDefault("output", def.OutputDir)
	v.SetDefault("input", def.InputFile)
	v.SetDefault("cookies", def.CookiesFile)
	v.SetDefault("proxy", def.ProxyURL)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("debug", def.EnableDebug)
	v.SetDefault("quiet", def.QuietMode)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("provider.search_url", def.Provider.SearchURL)
	v.SetDefault("provider.account_posts_url", def.Provider.AccountPostsURL)
	v.SetDefault("provider.collection_posts_url", def.Provider.CollectionPostsURL)
	v.SetDefault("provider.play_url", def.Provider.PlayURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads the optional config file at path and decodes the merged
// defaults, file, environment and bound flags into a validated Config.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewConfigLoader()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewValidationErrorWithValue("config", "failed to read config file", path).
				WithContext("error", err.Error())
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if config.EnableDebug {
		config.LogLevel = "debug"
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.Threads < 1 || c.Threads > 64 {
		return NewValidationErrorWithValue("threads", "must be between 1 and 64", c.Threads)
	}

	if c.Timeout <= 0 {
		return NewValidationErrorWithValue("timeout", "must be greater than zero", c.Timeout)
	}

	if c.Retries < 1 {
		return NewValidationErrorWithValue("retries", "must be at least 1", c.Retries)
	}

	if c.PageRetries < 1 {
		return NewValidationErrorWithValue("page_retries", "must be at least 1", c.PageRetries)
	}

	if c.RetryDelay < 0 {
		return NewValidationErrorWithValue("retry_delay", "cannot be negative", c.RetryDelay)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return NewValidationError("output", "output directory cannot be empty")
	}

	endpoints := map[string]string{
		"provider.search_url":           c.Provider.SearchURL,
		"provider.account_posts_url":    c.Provider.AccountPostsURL,
		"provider.collection_posts_url": c.Provider.CollectionPostsURL,
		"provider.play_url":             c.Provider.PlayURL,
	}
	for field, raw := range endpoints {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return NewValidationErrorWithValue(field, "must be an absolute http(s) URL", raw)
		}
	}

	return nil
}

// ProviderProfile returns the default provider profile with the configured
// endpoint overrides applied.
func (c *Config) ProviderProfile() ProviderProfile {
	profile := DefaultProviderProfile()
	if c.Provider.SearchURL != "" && c.Provider.SearchURL != profile.SearchURL {
		profile.SearchURL = c.Provider.SearchURL
		// The fixed Host header only matches the public API
		headers := make(map[string]string, len(profile.SearchHeaders))
		for k, v := range profile.SearchHeaders {
			if k != "Host" {
				headers[k] = v
			}
		}
		profile.SearchHeaders = headers
	}
	if c.Provider.AccountPostsURL != "" {
		profile.Account.URL = c.Provider.AccountPostsURL
	}
	if c.Provider.CollectionPostsURL != "" {
		profile.Collection.URL = c.Provider.CollectionPostsURL
	}
	if c.Provider.PlayURL != "" {
		profile.PlayURL = c.Provider.PlayURL
	}
	return profile
}
