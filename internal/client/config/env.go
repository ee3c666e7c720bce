package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/miroir/internal/flagx"
)

// defaultEnvFile is read when present; -env names another file.
const defaultEnvFile = ".env"

// parseEnv overlays values from MIROIR_* variables. Variables set in the
// process environment win over the same names in the .env file.
func parseEnv(cfg *Config, args []string) {
	file := flagx.EnvFileFlag(args)
	explicit := file != ""
	if !explicit {
		file = defaultEnvFile
	}

	fileVars, err := godotenv.Read(file)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
		fileVars = map[string]string{}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	strs := map[string]*string{
		"MIROIR_PROVIDER_ADDR":     &cfg.ProviderAddr,
		"MIROIR_LOCAL_DB":          &cfg.LocalDBPath,
		"MIROIR_DOCUMENT_DSN":      &cfg.DocumentDSN,
		"MIROIR_EMAIL_ENDPOINT":    &cfg.EmailEndpoint,
		"MIROIR_EMAIL_SERVICE_ID":  &cfg.EmailServiceID,
		"MIROIR_EMAIL_TEMPLATE_ID": &cfg.EmailTemplateID,
		"MIROIR_EMAIL_PUBLIC_KEY":  &cfg.EmailPublicKey,
		"MIROIR_S3_USER":           &cfg.S3User,
		"MIROIR_S3_PASSWORD":       &cfg.S3Password,
		"MIROIR_S3_BUCKET":         &cfg.S3Bucket,
		"MIROIR_S3_REGION":         &cfg.S3Region,
		"MIROIR_S3_ENDPOINT":       &cfg.S3Endpoint,
		"MIROIR_LOG_LEVEL":         &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"MIROIR_CALL_TIMEOUT":  &cfg.CallTimeout,
		"MIROIR_CODE_TTL":      &cfg.CodeTTL,
		"MIROIR_PING_INTERVAL": &cfg.PingInterval,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}
}
