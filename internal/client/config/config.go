package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/miroir/internal/client/media"
)

// Config holds runtime settings for the Miroir client.
type Config struct {
	// identity provider (gRPC host:port)
	ProviderAddr string
	// local SQLite database holding the persisted session
	LocalDBPath string
	// PostgreSQL DSN of the document store; empty keeps documents in memory
	DocumentDSN string
	// upper bound for each collaborator call
	CallTimeout time.Duration
	// lifetime of email verification codes
	CodeTTL time.Duration
	// how often the CLI probes the identity provider
	PingInterval time.Duration

	EmailEndpoint   string
	EmailServiceID  string
	EmailTemplateID string
	EmailPublicKey  string

	S3User     string
	S3Password string
	S3Bucket   string
	S3Region   string
	S3Endpoint string

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ProviderAddr = "127.0.0.1:50051"
	c.LocalDBPath = defaultLocalDBPath()
	c.CallTimeout = 10 * time.Second
	c.CodeTTL = 15 * time.Minute
	c.PingInterval = 30 * time.Second
	c.EmailTemplateID = "verification"
	c.S3Region = "us-east-1"
	c.LogLevel = "info"
}

func defaultLocalDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "miroir.db"
	}
	return filepath.Join(dir, "miroir", "miroir.db")
}

// LoadConfig builds the configuration from the process arguments and
// environment.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}

// Load applies defaults, then the .env file and MIROIR_* variables, then the
// JSON file, then flags. Later sources take precedence. Malformed input
// panics.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, args)
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}

// MediaConfig returns the photo bucket settings.
func (c *Config) MediaConfig() media.Config {
	return media.Config{
		Region:   c.S3Region,
		User:     c.S3User,
		Password: c.S3Password,
		Endpoint: c.S3Endpoint,
		Bucket:   c.S3Bucket,
	}
}
