// Package config loads process configuration from the environment
// (optionally seeded from a .env file), following the teacher's
// godotenv.Load usage in api/server/server.go and the explicit
// LookupEnv-with-default pattern from dgdraganov-fethcher's
// internal/config/config.go. An optional YAML overlay (gopkg.in/yaml.v3)
// lets an operator pin non-secret defaults in source control, the same
// role ardanlabs-service's config layer gives a config file alongside
// env vars.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every environment option spec.md §6 recognizes.
type Config struct {
	DatabaseURL              string        `yaml:"databaseUrl"`
	DataRoot                 string        `yaml:"dataRoot"`
	NetworkID                string        `yaml:"networkId"`
	APIPrefix                string        `yaml:"apiPrefix"`
	AuditRetentionDays       int           `yaml:"auditRetentionDays"`
	AuditLogMaxBytes         int64         `yaml:"auditLogMaxBytes"`
	WalletNonceTTL           time.Duration `yaml:"-"`
	WalletNonceTTLSeconds    int           `yaml:"walletNonceTtlSeconds"`
	Port                     string        `yaml:"port"`
	DemoExternalSignerAddr   string        `yaml:"demoExternalSignerAddress"`
	AdminJWTSecret           string        `yaml:"-"`
}

// Load copies .env (if present, silently ignored otherwise) into the
// process environment without overriding variables already set, reads
// an optional YAML overlay at configPath (if non-empty and present),
// then applies env vars. Env vars, including those loaded from .env,
// override the YAML overlay.
func Load(configPath string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(&cfg)

	cfg.WalletNonceTTL = time.Duration(cfg.WalletNonceTTLSeconds) * time.Second

	if cfg.DataRoot == "" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: one of DATA_ROOT or DATABASE_URL must be set")
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		APIPrefix:             "/api",
		AuditRetentionDays:    0,
		AuditLogMaxBytes:      0,
		WalletNonceTTLSeconds: 300,
		Port:                  "8080",
		NetworkID:             "uniledger-dev",
	}
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}
	if v, ok := os.LookupEnv("DATA_ROOT"); ok {
		cfg.DataRoot = v
	}
	if v, ok := os.LookupEnv("NETWORK_ID"); ok {
		cfg.NetworkID = v
	}
	if v, ok := os.LookupEnv("API_PREFIX"); ok {
		cfg.APIPrefix = v
	}
	if v, ok := os.LookupEnv("AUDIT_RETENTION_DAYS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuditRetentionDays = n
		}
	}
	if v, ok := os.LookupEnv("AUDIT_LOG_MAX_BYTES"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.AuditLogMaxBytes = n
		}
	}
	if v, ok := os.LookupEnv("WALLET_NONCE_TTL_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WalletNonceTTLSeconds = n
		}
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := os.LookupEnv("DEMO_EXTERNAL_SIGNER_ADDRESS"); ok {
		cfg.DemoExternalSignerAddr = v
	}
	if v, ok := os.LookupEnv("ADMIN_JWT_SECRET"); ok {
		cfg.AdminJWTSecret = v
	}
}

// UsesPostgres reports whether this configuration selects the
// relational backend over the default file-based one.
func (c Config) UsesPostgres() bool { return c.DatabaseURL != "" }
