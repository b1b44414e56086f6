// Package dwnconfig loads process configuration from the environment,
// the same getEnv/getEnvAsInt pattern the teacher's config/config.go
// uses, generalized to this module's own settings.
package dwnconfig

import (
	"os"
	"strconv"
)

// Config is the full set of settings cmd/dwnd needs to start a node.
type Config struct {
	ServerPort string
	ServerHost string

	StoreDriver string // "postgres", "sqlite", or "memory"
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string
	IPFSNodeURL string

	RedisEnabled bool
	RedisHost    string
	RedisPort    string
	RedisTTLSec  int

	DIDResolverURL string

	AnchorEnabled bool

	LogLevel  string
	LogFormat string

	Environment string
}

// Load reads Config from the environment, applying the same defaults
// the teacher ships for local development.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("DWN_SERVER_PORT", "8787"),
		ServerHost: getEnv("DWN_SERVER_HOST", "0.0.0.0"),

		StoreDriver: getEnv("DWN_STORE_DRIVER", "sqlite"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "dwn"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		SQLitePath:  getEnv("DWN_SQLITE_PATH", "dwn.db"),
		IPFSNodeURL: getEnv("DWN_IPFS_NODE_URL", ""),

		RedisEnabled: getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisTTLSec:  getEnvAsInt("REDIS_TTL_SECONDS", 300),

		DIDResolverURL: getEnv("DWN_DID_RESOLVER_URL", ""),

		AnchorEnabled: getEnvAsBool("DWN_ANCHOR_ENABLED", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Environment: getEnv("ENVIRONMENT", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
