package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseEnv_FromFile(t *testing.T) {
	path := writeEnvFile(t, `
MIROIR_EMAIL_SERVICE_ID=service_x
MIROIR_EMAIL_PUBLIC_KEY=pk
MIROIR_CALL_TIMEOUT=2s
MIROIR_CODE_TTL=30m
`)
	cfg := &Config{}
	cfg.LoadDefaults()

	parseEnv(cfg, []string{"-env", path})

	assert.Equal(t, "service_x", cfg.EmailServiceID)
	assert.Equal(t, "pk", cfg.EmailPublicKey)
	assert.Equal(t, 2*time.Second, cfg.CallTimeout)
	assert.Equal(t, 30*time.Minute, cfg.CodeTTL)
}

func TestParseEnv_ProcessEnvironmentWins(t *testing.T) {
	path := writeEnvFile(t, "MIROIR_LOG_LEVEL=debug\n")
	t.Setenv("MIROIR_LOG_LEVEL", "warn")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, []string{"-env", path})

	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestParseEnv_MissingDefaultFileIsIgnored(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.NotPanics(t, func() { parseEnv(cfg, nil) })
	assert.Equal(t, "127.0.0.1:50051", cfg.ProviderAddr)
}

func TestParseEnv_MissingExplicitFilePanics(t *testing.T) {
	cfg := &Config{}
	assert.Panics(t, func() {
		parseEnv(cfg, []string{"-env", filepath.Join(t.TempDir(), "nope.env")})
	})
}

func TestParseEnv_BadDurationPanics(t *testing.T) {
	t.Setenv("MIROIR_CALL_TIMEOUT", "soon")
	cfg := &Config{}
	assert.Panics(t, func() { parseEnv(cfg, nil) })
}
