package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValidWithOperatorKey(t *testing.T) {
	cfg := Defaults()
	cfg.Operator.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "orbit"
	cfg.Market.Address = "not-an-address"
	cfg.Operator.EncryptedKeyPath = "/tmp/key.json" // no password

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "market.address")
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidateDemoModeSkipsInfra(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "demo"
	cfg.Operator.PrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	cfg.Postgres.Host = ""
	cfg.Redis.Addr = ""

	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marketd.toml")
	body := `
mode = "demo"
log_level = "debug"

[market]
address = "0x1111111111111111111111111111111111111111"
allowed_tokens = ["0x2222222222222222222222222222222222222222"]

[server]
port = 9090
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("MARKETD_SERVER_PORT", "7070")
	t.Setenv("MARKETD_REDIS_ADDR", "cache:6379")
	t.Setenv("MARKETD_MARKET_ALLOWED_TOKENS", "0x3333333333333333333333333333333333333333, 0x4444444444444444444444444444444444444444")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Market.Address)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Len(t, cfg.Market.AllowedTokens, 2)
	assert.Len(t, cfg.AllowedTokenAddresses(), 2)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
