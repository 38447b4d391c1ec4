package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/finsync/internal/flagx"
	"github.com/dmitrijs2005/finsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations may
// be strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DatabasePath        string         `json:"database_path"`
	AccessToken         string         `json:"access_token"`
	DefaultAccountID    string         `json:"default_account_id"`
	FallbackCurrency    string         `json:"fallback_currency"`
	RetryAttempts       uint           `json:"retry_attempts"`
	RetryBaseDelay      timex.Duration `json:"retry_base_delay"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays cfg with the fields present in the file named by -c or
// -config. Absent fields keep their current values. Read or decode errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.DefaultAccountID, jc.DefaultAccountID)
	setString(&cfg.FallbackCurrency, jc.FallbackCurrency)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RetryAttempts > 0 {
		cfg.RetryAttempts = jc.RetryAttempts
	}
	if jc.RetryBaseDelay.Duration > 0 {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
