package config

import "time"

// Config holds runtime settings for the finsync CLI.
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	AccessToken         string
	DefaultAccountID    string
	FallbackCurrency    string
	RetryAttempts       uint
	RetryBaseDelay      time.Duration
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "finsync.db"
	c.FallbackCurrency = "USD"
	c.RetryAttempts = 3
	c.RetryBaseDelay = time.Second
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
