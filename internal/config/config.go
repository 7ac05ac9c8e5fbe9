package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CatalogDBPath     string
	CatalogMigrations string

	KafkaBrokers     []string
	CartChangedTopic string
	ConsumerGroup    string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	BreakerTimeout  time.Duration
	BreakerFailures uint32

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real env vars win over it.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		GRPCPort:          getEnv("GRPC_PORT", "50052"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getInt("REDIS_DB", 0),
		CacheTTL:          getDuration("CACHE_TTL", 15*time.Minute),
		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS", "internal/catalog/migrations"),
		KafkaBrokers:      getList("KAFKA_BROKERS"),
		CartChangedTopic:  getEnv("CART_CHANGED_TOPIC", "cart-changed"),
		ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "cart-service-consumer"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:       getList("CORS_ALLOWED_ORIGINS"),
		BreakerTimeout:    getDuration("BREAKER_TIMEOUT", 30*time.Second),
		BreakerFailures:   uint32(getInt("BREAKER_FAILURES", 5)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

// getList splits a comma separated value, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
