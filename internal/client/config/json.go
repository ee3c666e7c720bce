package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/miroir/internal/flagx"
	"github.com/dmitrijs2005/miroir/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// are timex.Duration, so they may be strings like "10s" or nanoseconds.
type JsonConfig struct {
	ProviderAddr    string         `json:"provider_addr"`
	LocalDBPath     string         `json:"local_db_path"`
	DocumentDSN     string         `json:"document_dsn"`
	CallTimeout     timex.Duration `json:"call_timeout"`
	CodeTTL         timex.Duration `json:"code_ttl"`
	PingInterval    timex.Duration `json:"ping_interval"`
	EmailEndpoint   string         `json:"email_endpoint"`
	EmailServiceID  string         `json:"email_service_id"`
	EmailTemplateID string         `json:"email_template_id"`
	EmailPublicKey  string         `json:"email_public_key"`
	S3User          string         `json:"s3_user"`
	S3Password      string         `json:"s3_password"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3Endpoint      string         `json:"s3_endpoint"`
	LogLevel        string         `json:"log_level"`
}

// parseJson overlays Config with the non-empty values of the JSON file named
// by -c or -config. Read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.ProviderAddr, jc.ProviderAddr)
	set(&cfg.LocalDBPath, jc.LocalDBPath)
	set(&cfg.DocumentDSN, jc.DocumentDSN)
	set(&cfg.EmailEndpoint, jc.EmailEndpoint)
	set(&cfg.EmailServiceID, jc.EmailServiceID)
	set(&cfg.EmailTemplateID, jc.EmailTemplateID)
	set(&cfg.EmailPublicKey, jc.EmailPublicKey)
	set(&cfg.S3User, jc.S3User)
	set(&cfg.S3Password, jc.S3Password)
	set(&cfg.S3Bucket, jc.S3Bucket)
	set(&cfg.S3Region, jc.S3Region)
	set(&cfg.S3Endpoint, jc.S3Endpoint)
	set(&cfg.LogLevel, jc.LogLevel)

	if jc.CallTimeout.Duration != 0 {
		cfg.CallTimeout = jc.CallTimeout.Duration
	}
	if jc.CodeTTL.Duration != 0 {
		cfg.CodeTTL = jc.CodeTTL.Duration
	}
	if jc.PingInterval.Duration != 0 {
		cfg.PingInterval = jc.PingInterval.Duration
	}
}
