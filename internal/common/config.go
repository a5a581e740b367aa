// Package common provides shared utilities for bagboard
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for bagboard
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Auth        AuthConfig       `toml:"auth"`
	Privy       PrivyConfig      `toml:"privy"`
	Clients     ClientsConfig    `toml:"clients"`
	Metadata    MetadataConfig   `toml:"metadata"`
	Cache       CacheConfig      `toml:"cache"`
	Portfolio   PortfolioConfig  `toml:"portfolio"`
	ImageProxy  ImageProxyConfig `toml:"image_proxy"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "surrealdb" (default) or "memory"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// AuthConfig holds session cookie configuration.
type AuthConfig struct {
	CookieName    string `toml:"cookie_name"`
	SessionTTL    string `toml:"session_ttl"` // duration string, default "168h"
	SecureCookies bool   `toml:"secure_cookies"`
}

// GetSessionTTL parses and returns the session lifetime.
func (c *AuthConfig) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 7 * 24 * time.Hour
	}
	return d
}

// PrivyConfig holds the wallet-auth provider settings.
type PrivyConfig struct {
	AppID     string `toml:"app_id"`
	AppSecret string `toml:"app_secret"`
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *PrivyConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	DexScreener ClientConfig `toml:"dexscreener"`
	CoinGecko   ClientConfig `toml:"coingecko"`
	Jupiter     ClientConfig `toml:"jupiter"`
	PumpFun     ClientConfig `toml:"pumpfun"`
	Scraper     ClientConfig `toml:"scraper"`
	Bitquery    ClientConfig `toml:"bitquery"`
	Metaplex    ClientConfig `toml:"metaplex"`
}

// ClientConfig is the shared shape of every outbound market-data client.
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	Enabled   bool   `toml:"enabled"`
}

// GetTimeout parses and returns the timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// MetadataConfig tunes the token metadata pipeline.
type MetadataConfig struct {
	Concurrency  int `toml:"concurrency"`
	MaxAddresses int `toml:"max_addresses"`
}

// CacheConfig configures the token metadata cache.
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTL           string `toml:"ttl"`
	MaxEntries    int    `toml:"max_entries"` // in-process cache only
}

// GetTTL parses and returns the cache TTL.
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// PortfolioConfig holds per-user portfolio limits.
type PortfolioConfig struct {
	MaxPortfolios int `toml:"max_portfolios"`
	MaxRows       int `toml:"max_rows"`
}

// ImageProxyConfig limits what the image proxy will fetch.
type ImageProxyConfig struct {
	AllowedHosts []string `toml:"allowed_hosts"`
	MaxBytes     int64    `toml:"max_bytes"`
	Timeout      string   `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ImageProxyConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "bagboard",
			Database:  "bagboard",
			Username:  "root",
			Password:  "root",
		},
		Auth: AuthConfig{
			CookieName: "sessionToken",
			SessionTTL: "168h",
		},
		Privy: PrivyConfig{
			BaseURL: "https://auth.privy.io",
			Timeout: "10s",
		},
		Clients: ClientsConfig{
			DexScreener: ClientConfig{
				BaseURL:   "https://api.dexscreener.com",
				RateLimit: 5,
				Timeout:   "8s",
				Enabled:   true,
			},
			CoinGecko: ClientConfig{
				BaseURL:   "https://api.coingecko.com",
				RateLimit: 2,
				Timeout:   "8s",
				Enabled:   true,
			},
			Jupiter: ClientConfig{
				BaseURL: "https://token.jup.ag/strict",
				Timeout: "15s",
				Enabled: true,
			},
			PumpFun: ClientConfig{
				BaseURL:   "https://images.pump.fun",
				RateLimit: 5,
				Timeout:   "5s",
				Enabled:   true,
			},
			Scraper: ClientConfig{
				BaseURL:   "https://dexscreener.com",
				RateLimit: 1,
				Timeout:   "8s",
				Enabled:   true,
			},
			Bitquery: ClientConfig{
				BaseURL:   "https://streaming.bitquery.io/graphql",
				RateLimit: 2,
				Timeout:   "10s",
				Enabled:   true,
			},
			Metaplex: ClientConfig{
				RateLimit: 5,
				Timeout:   "10s",
			},
		},
		Metadata: MetadataConfig{
			Concurrency:  4,
			MaxAddresses: 50,
		},
		Cache: CacheConfig{
			TTL:        "60s",
			MaxEntries: 10000,
		},
		Portfolio: PortfolioConfig{
			MaxPortfolios: 20,
			MaxRows:       50,
		},
		ImageProxy: ImageProxyConfig{
			MaxBytes: 5 << 20,
			Timeout:  "8s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first; existing
// environment variables are not overwritten.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Later files override earlier
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if config.IsProduction() {
		config.Auth.SecureCookies = true
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BAGBOARD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("BAGBOARD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("BAGBOARD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if origins := os.Getenv("BAGBOARD_CORS_ORIGINS"); origins != "" {
		config.Server.CORSOrigins = splitList(origins)
	}

	if level := os.Getenv("BAGBOARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("BAGBOARD_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("BAGBOARD_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("BAGBOARD_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("BAGBOARD_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("BAGBOARD_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("BAGBOARD_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Auth overrides
	if v := os.Getenv("BAGBOARD_SESSION_TTL"); v != "" {
		config.Auth.SessionTTL = v
	}
	if v := os.Getenv("BAGBOARD_PRIVY_APP_ID"); v != "" {
		config.Privy.AppID = v
	}
	if v := os.Getenv("BAGBOARD_PRIVY_APP_SECRET"); v != "" {
		config.Privy.AppSecret = v
	}

	// Client keys
	if v := os.Getenv("BAGBOARD_COINGECKO_API_KEY"); v != "" {
		config.Clients.CoinGecko.APIKey = v
	}
	if v := os.Getenv("BAGBOARD_BITQUERY_API_KEY"); v != "" {
		config.Clients.Bitquery.APIKey = v
	}
	if v := os.Getenv("BAGBOARD_SOLANA_RPC_URL"); v != "" {
		config.Clients.Metaplex.BaseURL = v
		config.Clients.Metaplex.Enabled = true
	}

	// Cache
	if v := os.Getenv("BAGBOARD_REDIS_ADDR"); v != "" {
		config.Cache.RedisAddr = v
	}
	if v := os.Getenv("BAGBOARD_REDIS_PASSWORD"); v != "" {
		config.Cache.RedisPassword = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
