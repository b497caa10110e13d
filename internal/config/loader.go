package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration from defaults, an optional TOML file and
// MARKETD_* environment variables, in that precedence order.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	// Best effort; a missing .env file is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr("MARKETD_MODE", &cfg.Mode)
	setStr("MARKETD_LOG_LEVEL", &cfg.LogLevel)

	setStr("MARKETD_MARKET_ADDRESS", &cfg.Market.Address)
	setStr("MARKETD_MARKET_AUTENTICA", &cfg.Market.Autentica)
	setStr("MARKETD_MARKET_ADMIN", &cfg.Market.Admin)
	setStringSlice("MARKETD_MARKET_ALLOWED_TOKENS", &cfg.Market.AllowedTokens)

	setStr("MARKETD_COLLECTION_ADDRESS", &cfg.Collection.Address)

	setStr("MARKETD_OPERATOR_PRIVATE_KEY", &cfg.Operator.PrivateKey)
	setStr("MARKETD_OPERATOR_ENCRYPTED_KEY_PATH", &cfg.Operator.EncryptedKeyPath)
	setStr("MARKETD_OPERATOR_KEY_PASSWORD", &cfg.Operator.KeyPassword)

	setStr("MARKETD_POSTGRES_DSN", &cfg.Postgres.DSN)
	setStr("MARKETD_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("MARKETD_POSTGRES_PORT", &cfg.Postgres.Port)
	setStr("MARKETD_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setStr("MARKETD_POSTGRES_USER", &cfg.Postgres.User)
	setStr("MARKETD_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setStr("MARKETD_POSTGRES_SSL_MODE", &cfg.Postgres.SSLMode)
	setBool("MARKETD_POSTGRES_RUN_MIGRATIONS", &cfg.Postgres.RunMigrations)

	setStr("MARKETD_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("MARKETD_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("MARKETD_REDIS_DB", &cfg.Redis.DB)
	setBool("MARKETD_REDIS_TLS_ENABLED", &cfg.Redis.TLSEnabled)

	setBool("MARKETD_S3_ENABLED", &cfg.S3.Enabled)
	setStr("MARKETD_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("MARKETD_S3_REGION", &cfg.S3.Region)
	setStr("MARKETD_S3_BUCKET", &cfg.S3.Bucket)
	setStr("MARKETD_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("MARKETD_S3_SECRET_KEY", &cfg.S3.SecretKey)
	setBool("MARKETD_S3_USE_SSL", &cfg.S3.UseSSL)
	setBool("MARKETD_S3_FORCE_PATH_STYLE", &cfg.S3.ForcePathStyle)

	setStr("MARKETD_SERVER_HOST", &cfg.Server.Host)
	setInt("MARKETD_SERVER_PORT", &cfg.Server.Port)
	setStr("MARKETD_SERVER_API_KEY", &cfg.Server.APIKey)
	setStringSlice("MARKETD_SERVER_ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}
