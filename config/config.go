package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all app configuration
type Config struct {
	// App environment: local, dev or prod
	Env string

	// Server
	HTTPPort string

	// Engine settings
	SweepIntervalSec   int
	StaleAfterSec      int
	MaxSlippagePercent float64
	FetchTimeoutSec    int
	PeggedTokens       []string

	// Market data
	BinanceStreamURL string
	BinanceRESTURL   string

	// DemoMode replaces the live Binance feed with a synthetic random walk
	// quote generator. Useful for local development without network access.
	DemoMode bool

	// Redis
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ClickHouse
	ClickHouseEnabled  bool
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseTimeout  int

	// Kafka
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaTradesTopic string
	KafkaAlertsTopic string
}

// LoadConfig loads configuration from environment variables, with optional
// .env file. A missing .env file is not an error; the process environment
// always wins.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("ENV", "local"),

		// Server
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		// Engine settings
		SweepIntervalSec:   getEnvAsInt("SWEEP_INTERVAL_SEC", 10),
		StaleAfterSec:      getEnvAsInt("PRICE_STALE_AFTER_SEC", 30),
		MaxSlippagePercent: getEnvAsFloat("MAX_SLIPPAGE_PERCENT", 2.0),
		FetchTimeoutSec:    getEnvAsInt("PRICE_FETCH_TIMEOUT_SEC", 10),
		PeggedTokens:       getEnvAsSlice("PEGGED_TOKENS", []string{"USDC", "USDT"}, ","),

		// Market data
		BinanceStreamURL: getEnv("BINANCE_STREAM_URL", "wss://stream.binance.com:9443/stream"),
		BinanceRESTURL:   getEnv("BINANCE_REST_URL", "https://api.binance.com/api/v3"),
		DemoMode:         getEnvAsBool("DEMO_MODE", false),

		// Redis
		RedisEnabled:  getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// ClickHouse
		ClickHouseEnabled:  getEnvAsBool("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "default"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		ClickHouseTimeout:  getEnvAsInt("CLICKHOUSE_TIMEOUT", 10),

		// Kafka
		KafkaEnabled:     getEnvAsBool("KAFKA_ENABLED", false),
		KafkaBrokers:     getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}, ","),
		KafkaTradesTopic: getEnv("KAFKA_TRADES_TOPIC", "trade-results"),
		KafkaAlertsTopic: getEnv("KAFKA_ALERTS_TOPIC", "alert-triggers"),
	}

	return cfg
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultVal
	}
	parts := strings.Split(valStr, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
