package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hushh-ai/consentvault/internal/flagx"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It is an intermediate DTO used only for reading JSON
// configuration files; its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	Backend          string `json:"vault_backend"`
	FileVaultDir     string `json:"file_vault_dir"`
	DatabaseDSN      string `json:"database_dsn"`
	SigningSecret    string `json:"signing_secret"`
	VaultKeyHex      string `json:"vault_key_hex"`
	VaultPassphrase  string `json:"vault_passphrase"`
	VaultSalt        string `json:"vault_salt"`
	RedisAddr        string `json:"redis_addr"`
	S3RootUser       string `json:"s3_root_user"`
	S3RootPassword   string `json:"s3_root_password"`
	S3Bucket         string `json:"s3_bucket"`
	S3Region         string `json:"s3_region"`
	S3BaseEndpoint   string `json:"s3_base_endpoint"`
}

// parseJSON loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. Only non-empty values
// from the file override the current Config.
func parseJSON(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config file %s: %w", jsonConfigFile, err)
	}

	overlay(config, c)
	return nil
}

func overlay(config *Config, c *JsonConfig) {
	setIfNotEmpty(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIfNotEmpty(&config.Backend, c.Backend)
	setIfNotEmpty(&config.FileVaultDir, c.FileVaultDir)
	setIfNotEmpty(&config.DatabaseDSN, c.DatabaseDSN)
	setIfNotEmpty(&config.SigningSecret, c.SigningSecret)
	setIfNotEmpty(&config.VaultKeyHex, c.VaultKeyHex)
	setIfNotEmpty(&config.VaultPassphrase, c.VaultPassphrase)
	setIfNotEmpty(&config.VaultSalt, c.VaultSalt)
	setIfNotEmpty(&config.RedisAddr, c.RedisAddr)
	setIfNotEmpty(&config.S3RootUser, c.S3RootUser)
	setIfNotEmpty(&config.S3RootPassword, c.S3RootPassword)
	setIfNotEmpty(&config.S3Bucket, c.S3Bucket)
	setIfNotEmpty(&config.S3Region, c.S3Region)
	setIfNotEmpty(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setIfNotEmpty(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
