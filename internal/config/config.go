// Package config defines the top-level configuration for the marketplace
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETD_* environment
// variables.
type Config struct {
	Market     MarketConfig     `toml:"market"`
	Collection CollectionConfig `toml:"collection"`
	Operator   OperatorConfig   `toml:"operator"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// MarketConfig holds the settlement venue's identity and policy addresses.
type MarketConfig struct {
	// Address is the marketplace's own address, bound into signed tuples.
	Address string `toml:"address"`

	// Autentica is the treasury address receiving marketplace cuts.
	Autentica string `toml:"autentica"`

	// Admin receives the admin role on the marketplace and the collection.
	Admin string `toml:"admin"`

	// AllowedTokens seeds the payment-token allow-list.
	AllowedTokens []string `toml:"allowed_tokens"`
}

// CollectionConfig holds the Autentica collection's identity.
type CollectionConfig struct {
	Address string `toml:"address"`
}

// OperatorConfig holds the operator signing key. Either a raw private key
// or an encrypted key file plus password.
type OperatorConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for settlement
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	APIKey         string   `toml:"api_key"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Defaults returns the built-in configuration, suitable for local
// development against dockerized Postgres and Redis.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Address:   "0x00000000000000000000000000000000000000A1",
			Autentica: "0x00000000000000000000000000000000000000F1",
			Admin:     "0x00000000000000000000000000000000000000D1",
		},
		Collection: CollectionConfig{
			Address: "0x00000000000000000000000000000000000000C1",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "marketd",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketd-archive",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server": true,
	"demo":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency and returns
// all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, demo)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	for _, field := range []struct{ name, value string }{
		{"market.address", c.Market.Address},
		{"market.autentica", c.Market.Autentica},
		{"market.admin", c.Market.Admin},
		{"collection.address", c.Collection.Address},
	} {
		if !common.IsHexAddress(field.value) {
			errs = append(errs, fmt.Sprintf("%s: %q is not a valid address", field.name, field.value))
		}
	}
	for _, token := range c.Market.AllowedTokens {
		if !common.IsHexAddress(token) {
			errs = append(errs, fmt.Sprintf("market.allowed_tokens: %q is not a valid address", token))
		}
	}

	if c.Operator.PrivateKey == "" && c.Operator.EncryptedKeyPath == "" {
		errs = append(errs, "operator: either private_key or encrypted_key_path must be set")
	}
	if c.Operator.EncryptedKeyPath != "" && c.Operator.KeyPassword == "" {
		errs = append(errs, "operator: key_password is required when encrypted_key_path is set")
	}

	if strings.ToLower(c.Mode) == "server" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: invalid port %d", c.Postgres.Port))
			}
		}
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: invalid port %d", c.Server.Port))
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archival is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when archival is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MarketAddress returns the parsed marketplace address.
func (c *Config) MarketAddress() common.Address {
	return common.HexToAddress(c.Market.Address)
}

// AutenticaAddress returns the parsed treasury address.
func (c *Config) AutenticaAddress() common.Address {
	return common.HexToAddress(c.Market.Autentica)
}

// AdminAddress returns the parsed admin address.
func (c *Config) AdminAddress() common.Address {
	return common.HexToAddress(c.Market.Admin)
}

// CollectionAddress returns the parsed collection address.
func (c *Config) CollectionAddress() common.Address {
	return common.HexToAddress(c.Collection.Address)
}

// AllowedTokenAddresses returns the parsed allow-list seed.
func (c *Config) AllowedTokenAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Market.AllowedTokens))
	for _, t := range c.Market.AllowedTokens {
		out = append(out, common.HexToAddress(t))
	}
	return out
}
