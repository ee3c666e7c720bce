// Package config loads runtime configuration for the Miroir client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. MIROIR_* variables, from the process environment or a dotenv file
//     (.env in the working directory, or the file named by -env).
//  3. Optional JSON file selected via -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     identity provider address (host:port)
//	-d string     local database path
//	-dsn string   document store PostgreSQL DSN
//	-t duration   collaborator call timeout
//	-i duration   provider connectivity check interval
//	-l string     log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "provider_addr": "127.0.0.1:50051",
//	  "call_timeout": "10s",
//	  "code_ttl": "15m",
//	  "s3_bucket": "miroir-photos"
//	}
//
// Malformed input in any source panics; configuration is loaded once at
// start-up.
package config
