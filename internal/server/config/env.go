package config

import (
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the variables read by parseEnv.
const EnvPrefix = "FINSYNC_"

// EnvConfig maps FINSYNC_* variables. Durations use time.ParseDuration syntax.
type EnvConfig struct {
	EndpointAddrGRPC            string        `koanf:"FINSYNC_GRPC_ADDR"`
	EndpointAddrHTTP            string        `koanf:"FINSYNC_HTTP_ADDR"`
	DatabaseDSN                 string        `koanf:"FINSYNC_DATABASE_DSN"`
	SecretKey                   string        `koanf:"FINSYNC_SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `koanf:"FINSYNC_ACCESS_TOKEN_TTL"`
	InboundSecret               string        `koanf:"FINSYNC_INBOUND_SECRET"`
	FallbackCurrency            string        `koanf:"FINSYNC_FALLBACK_CURRENCY"`
	LogLevel                    string        `koanf:"FINSYNC_LOG_LEVEL"`
	LogFormat                   string        `koanf:"FINSYNC_LOG_FORMAT"`
	MailFrom                    string        `koanf:"FINSYNC_MAIL_FROM"`
	GmailClientID               string        `koanf:"FINSYNC_GMAIL_CLIENT_ID"`
	GmailClientSecret           string        `koanf:"FINSYNC_GMAIL_CLIENT_SECRET"`
	GmailRefreshToken           string        `koanf:"FINSYNC_GMAIL_REFRESH_TOKEN"`
	SMTPHost                    string        `koanf:"FINSYNC_SMTP_HOST"`
	SMTPPort                    int           `koanf:"FINSYNC_SMTP_PORT"`
	SMTPUser                    string        `koanf:"FINSYNC_SMTP_USER"`
	SMTPPassword                string        `koanf:"FINSYNC_SMTP_PASSWORD"`
	TwilioAccountSID            string        `koanf:"FINSYNC_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken             string        `koanf:"FINSYNC_TWILIO_AUTH_TOKEN"`
	TwilioFrom                  string        `koanf:"FINSYNC_TWILIO_FROM"`
	S3RootUser                  string        `koanf:"FINSYNC_S3_USER"`
	S3RootPassword              string        `koanf:"FINSYNC_S3_PASSWORD"`
	S3Bucket                    string        `koanf:"FINSYNC_S3_BUCKET"`
	S3Region                    string        `koanf:"FINSYNC_S3_REGION"`
	S3BaseEndpoint              string        `koanf:"FINSYNC_S3_ENDPOINT"`
}

// parseEnv overlays config with the FINSYNC_* variables that are set.
// Malformed values panic, like the other sources.
func parseEnv(config *Config) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", nil), nil); err != nil {
		panic(err)
	}

	var c EnvConfig
	if err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration
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
