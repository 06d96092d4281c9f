package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment        string
	Host               string
	DatabaseURL        string
	JWTSecret          string
	DefaultWarehouseID int
	MigrationsDir      string
	AutoMigrate        bool
	RequestTimeout     time.Duration
	CORSOrigins        []string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaAcks    string
	KafkaRetries int

	RedisAddress      string
	DashboardCacheTTL time.Duration

	SheetsCredentialsJSON string
	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
	SheetsRange           string
}

// Load reads .env when present and then the process environment, which takes precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:        getEnv("APP_ENV", "development"),
		Host:               getEnv("APP_HOST", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		DefaultWarehouseID: getEnvAsInt("DEFAULT_WAREHOUSE_ID", 1),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		AutoMigrate:        getEnvAsBool("AUTO_MIGRATE", false),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:        splitList(os.Getenv("CORS_ORIGINS")),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "tool-system.movements"),
		KafkaAcks:    getEnv("KAFKA_ACKS", "all"),
		KafkaRetries: getEnvAsInt("KAFKA_RETRIES", 3),

		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", time.Minute),

		SheetsCredentialsJSON: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_JSON"),
		SheetsCredentialsFile: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_FILE"),
		SheetsSpreadsheetID:   os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"),
		SheetsRange:           os.Getenv("GOOGLE_SHEETS_RANGE"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.DefaultWarehouseID <= 0 {
		return nil, fmt.Errorf("DEFAULT_WAREHOUSE_ID must be a positive id, got %d", cfg.DefaultWarehouseID)
	}
	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}

// getEnvAsDuration accepts Go durations ("90s") and plain seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	result, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
