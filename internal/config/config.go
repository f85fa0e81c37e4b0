package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phishfinder/")
	v.AddConfigPath("$HOME/.phishfinder")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.domain", "localhost")
	v.SetDefault("server.max_message_bytes", 10*1024*1024)

	// Analysis defaults
	v.SetDefault("analysis.timeout", "30s")
	v.SetDefault("analysis.max_concurrency", 8)
	v.SetDefault("analysis.signal_timeout", "10s")

	// Policy defaults
	v.SetDefault("policy.keyword_caution_min", 2)
	v.SetDefault("policy.history_flagged_ratio", 0.5)
	v.SetDefault("policy.history_min_observations", 6)
	v.SetDefault("policy.new_sender_window", "168h")
	v.SetDefault("policy.ai_score_caution_min", 0.7)
	v.SetDefault("policy.keywords", []string{})
	v.SetDefault("policy.allowed_bulk_domains", []string{})

	// Sender history defaults
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.sqlite_path", "/data/phishfinder.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/phishfinder?parseTime=true")

	// Reputation defaults
	v.SetDefault("reputation.provider", "disabled")
	v.SetDefault("safebrowsing.api_key", "")
	v.SetDefault("safebrowsing.endpoint", "")
	v.SetDefault("safebrowsing.timeout", "10s")
	v.SetDefault("safebrowsing.client_id", "phishfinder")
	v.SetDefault("safebrowsing.client_version", "1.0.0")

	// Authentication defaults
	v.SetDefault("auth.dns_lookups", true)
	v.SetDefault("auth.dns_server", "")
	v.SetDefault("auth.cache_ttl", "1h")

	// Detector defaults
	v.SetDefault("detector.provider", "disabled")
	v.SetDefault("detector.max_body_size", 4096)
	v.SetDefault("winston.api_key", "")
	v.SetDefault("winston.endpoint", "")
	v.SetDefault("winston.timeout", "15s")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
