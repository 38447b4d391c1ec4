// Package config loads runtime configuration for the finsync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "database_path": "finsync.db",
//	  "access_token": "...",
//	  "default_account_id": "0b6f...",
//	  "fallback_currency": "INR",
//	  "retry_attempts": 3,
//	  "retry_base_delay": "1s",
//	  "request_timeout": "30s",
//	  "online_check_interval": "10s",
//	  "log_level": "info"
//	}
package config
