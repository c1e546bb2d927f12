// Package config handles loading and managing application configuration.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// Gateway credentials and mode
	Gateway GatewayConfig

	// Processor connection settings
	Processor ProcessorConfig

	// Storage settings
	Storage StorageConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// GatewayConfig holds the merchant's processor credentials and flags.
type GatewayConfig struct {
	PublicKey string
	SecretKey string
	Mode      string // "test" or "live"

	// SubscriptionsEnabled turns on card storage: multi-use tokens are
	// requested so stored methods can be charged again later.
	SubscriptionsEnabled bool
}

// ProcessorConfig holds the remote processor API settings.
type ProcessorConfig struct {
	ServiceURL    string
	DeveloperID   string
	VersionNumber string
}

// StorageConfig selects the entity store. An empty RedisAddr keeps the
// in-memory store.
type StorageConfig struct {
	RedisAddr string
}

// Load reads configuration from environment variables.
// Returns a Config struct with all settings populated.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Gateway: GatewayConfig{
			PublicKey:            getEnv("HEARTLAND_PUBLIC_KEY", ""),
			SecretKey:            getEnv("HEARTLAND_SECRET_KEY", ""),
			Mode:                 getEnv("HEARTLAND_MODE", "test"),
			SubscriptionsEnabled: getEnvBool("SUBSCRIPTIONS_ENABLED", false),
		},
		Processor: ProcessorConfig{
			ServiceURL:    getEnv("HEARTLAND_SERVICE_URL", "https://cert.api2.heartlandportico.com"),
			DeveloperID:   getEnv("HEARTLAND_DEVELOPER_ID", ""),
			VersionNumber: getEnv("HEARTLAND_VERSION_NUMBER", ""),
		},
		Storage: StorageConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
		},
	}
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean with a fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
