package config

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "vault_data", cfg.FileVaultDir)
	assert.NotEmpty(t, cfg.SigningSecret)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	// No key source configured.
	assert.ErrorIs(t, cfg.Validate(), ErrNoRootKey)

	cfg.VaultKeyHex = "00"
	assert.NoError(t, cfg.Validate())

	cfg.Backend = "cloud9"
	assert.Error(t, cfg.Validate())
}

func TestRootKey_FromHex(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	cfg := &Config{VaultKeyHex: hex.EncodeToString(raw)}
	key, err := cfg.RootKey()
	require.NoError(t, err)
	assert.Equal(t, raw, key)
}

func TestRootKey_FromHexRejectsBadLength(t *testing.T) {
	cfg := &Config{VaultKeyHex: "abcd"}
	_, err := cfg.RootKey()
	assert.Error(t, err)
}

func TestRootKey_DerivedFromPassphrase(t *testing.T) {
	cfg := &Config{VaultPassphrase: "correct horse", VaultSalt: "00112233445566778899aabbccddeeff"}

	key, err := cfg.RootKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// Same inputs derive the same key.
	again, err := cfg.RootKey()
	require.NoError(t, err)
	assert.Equal(t, key, again)
}

func TestRootKey_Missing(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.RootKey()
	assert.ErrorIs(t, err, ErrNoRootKey)
}

func TestParseEnvOverlay(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	t.Setenv("ADDRESS", ":9090")
	t.Setenv("VAULT_BACKEND", BackendFile)
	t.Setenv("VAULT_KEY", "aa")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	parseEnv(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "aa", cfg.VaultKeyHex)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	// Untouched values keep their defaults.
	assert.Equal(t, "vault_data", cfg.FileVaultDir)
}

func TestParseJSONOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"endpoint_addr_http": ":7070", "vault_backend": "postgres", "database_dsn": "postgres://u:p@h/db"}`,
	), 0o600))

	origArgs := os.Args
	os.Args = []string{"consentvault", "-c", path}
	defer func() { os.Args = origArgs }()

	cfg := &Config{}
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(cfg))

	assert.Equal(t, ":7070", cfg.EndpointAddrHTTP)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "postgres://u:p@h/db", cfg.DatabaseDSN)
}

func TestParseJSONMissingFile(t *testing.T) {
	origArgs := os.Args
	os.Args = []string{"consentvault", "-c", filepath.Join(t.TempDir(), "nope.json")}
	defer func() { os.Args = origArgs }()

	cfg := &Config{}
	cfg.LoadDefaults()
	assert.Error(t, parseJSON(cfg))
}
