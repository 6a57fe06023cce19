package config

import (
	"os"
	"strconv"
	"time"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"

	CatalogEmbedded = "embedded"
	CatalogMySQL    = "mysql"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	AppEnv   string
	LogLevel string

	HTTPAddr string
	GRPCAddr string

	StorageBackend string
	RedisAddr      string
	CartNamespace  string

	CatalogSource string
	MySQLDSN      string

	SessionCapacity int
	NotifyBuffer    int
	ShutdownTimeout time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		AppEnv:          envOrDefault("APP_ENV", "dev"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		GRPCAddr:        envOrDefault("GRPC_ADDR", ":50051"),
		StorageBackend:  envOrDefault("STORAGE_BACKEND", StorageRedis),
		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
		CartNamespace:   envOrDefault("CART_NAMESPACE", "@CoffeeDelivery:cart"),
		CatalogSource:   envOrDefault("CATALOG_SOURCE", CatalogEmbedded),
		MySQLDSN:        envOrDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/coffeecart?parseTime=true"),
		SessionCapacity: envInt("SESSION_CAPACITY", 10000),
		NotifyBuffer:    envInt("NOTIFY_BUFFER", 16),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 5*time.Second),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		seconds, err := strconv.Atoi(v)
		if err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}
