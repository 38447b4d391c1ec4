package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/finsync/internal/flagx"
	"github.com/dmitrijs2005/finsync/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept strings such as
// "720h" or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	InboundSecret               string         `json:"inbound_secret"`
	FallbackCurrency            string         `json:"fallback_currency"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
	MailFrom                    string         `json:"mail_from"`
	GmailClientID               string         `json:"gmail_client_id"`
	GmailClientSecret           string         `json:"gmail_client_secret"`
	GmailRefreshToken           string         `json:"gmail_refresh_token"`
	SMTPHost                    string         `json:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port"`
	SMTPUser                    string         `json:"smtp_user"`
	SMTPPassword                string         `json:"smtp_password"`
	TwilioAccountSID            string         `json:"twilio_account_sid"`
	TwilioAuthToken             string         `json:"twilio_auth_token"`
	TwilioFrom                  string         `json:"twilio_from"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
}

// parseJson overlays config with the non-empty fields of the file named by
// -c or -config. Read or decode errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.InboundSecret, c.InboundSecret)
	setString(&config.FallbackCurrency, c.FallbackCurrency)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.GmailClientID, c.GmailClientID)
	setString(&config.GmailClientSecret, c.GmailClientSecret)
	setString(&config.GmailRefreshToken, c.GmailRefreshToken)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort > 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.TwilioAccountSID, c.TwilioAccountSID)
	setString(&config.TwilioAuthToken, c.TwilioAuthToken)
	setString(&config.TwilioFrom, c.TwilioFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
