package config

import "os"

// parseEnv overlays Config values from environment variables. A .env file
// loaded by the entrypoint (godotenv) lands here as well. Empty variables
// leave the current value untouched.
func parseEnv(config *Config) {
	setIfNotEmpty(&config.EndpointAddrHTTP, os.Getenv("ADDRESS"))
	setIfNotEmpty(&config.Backend, os.Getenv("VAULT_BACKEND"))
	setIfNotEmpty(&config.FileVaultDir, os.Getenv("FILE_VAULT_DIR"))
	setIfNotEmpty(&config.DatabaseDSN, os.Getenv("DATABASE_DSN"))
	setIfNotEmpty(&config.SigningSecret, os.Getenv("SIGNING_SECRET"))
	setIfNotEmpty(&config.VaultKeyHex, os.Getenv("VAULT_KEY"))
	setIfNotEmpty(&config.VaultPassphrase, os.Getenv("VAULT_PASSPHRASE"))
	setIfNotEmpty(&config.VaultSalt, os.Getenv("VAULT_SALT"))
	setIfNotEmpty(&config.RedisAddr, os.Getenv("REDIS_ADDR"))
	setIfNotEmpty(&config.S3RootUser, os.Getenv("S3_ROOT_USER"))
	setIfNotEmpty(&config.S3RootPassword, os.Getenv("S3_ROOT_PASSWORD"))
	setIfNotEmpty(&config.S3Bucket, os.Getenv("S3_BUCKET"))
	setIfNotEmpty(&config.S3Region, os.Getenv("S3_REGION"))
	setIfNotEmpty(&config.S3BaseEndpoint, os.Getenv("S3_BASE_ENDPOINT"))
}
