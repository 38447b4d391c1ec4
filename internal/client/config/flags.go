package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/finsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   address and port of the server
//	-d string   path of the local queue database
//	-t string   access token
//	-acc string default account id for captured e-mails
//	-cur string fallback currency code
//	-n uint     import attempts
//	-b int      base retry delay (milliseconds)
//	-i int      connectivity check interval (seconds)
//	-l string   log level
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-acc", "-cur", "-n", "-b", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.DefaultAccountID, "acc", cfg.DefaultAccountID, "default account id")
	fs.StringVar(&cfg.FallbackCurrency, "cur", cfg.FallbackCurrency, "fallback currency code")
	fs.UintVar(&cfg.RetryAttempts, "n", cfg.RetryAttempts, "import attempts")
	baseDelay := fs.Int("b", int(cfg.RetryBaseDelay.Milliseconds()), "base retry delay (in milliseconds)")
	checkInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online status check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// durations are only touched when given, so sub-unit JSON values survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "b":
			cfg.RetryBaseDelay = time.Duration(*baseDelay) * time.Millisecond
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*checkInterval) * time.Second
		}
	})
}
