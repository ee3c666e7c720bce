package config

import (
	"flag"

	"github.com/dmitrijs2005/miroir/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string     identity provider address (host:port)
//	-d string     local database path
//	-dsn string   document store PostgreSQL DSN
//	-t duration   collaborator call timeout
//	-i duration   provider connectivity check interval
//	-l string     log level (debug, info, warn, error)
//
// args are filtered with flagx.FilterArgs so flags owned by other loaders
// (-c, -env) do not trip the parser.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-dsn", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProviderAddr, "a", cfg.ProviderAddr, "identity provider address")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database path")
	fs.StringVar(&cfg.DocumentDSN, "dsn", cfg.DocumentDSN, "document store DSN")
	fs.DurationVar(&cfg.CallTimeout, "t", cfg.CallTimeout, "collaborator call timeout")
	fs.DurationVar(&cfg.PingInterval, "i", cfg.PingInterval, "connectivity check interval")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
