package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name
	DBDriver   string // mysql, postgres or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	SQLitePath string // Database file when DBDriver is sqlite
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address, empty disables Redis
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number

	CacheTTL time.Duration // Lifetime of cached wallet reads

	LockBackend string        // memory or redis
	LockTTL     time.Duration // Lease of a Redis wallet lock
	LockWait    time.Duration // Longest wait for a wallet lock

	NotifySink    string   // log, redis or kafka
	NotifyStream  string   // Redis stream receiving notifications
	NotifyWorkers int      // Dispatcher goroutines
	NotifyBuffer  int      // Dispatcher queue size
	KafkaBrokers  []string // Kafka bootstrap brokers
	KafkaTopic    string   // Kafka topic receiving notifications
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),                        // Application port
		IsProd:        os.Getenv("IS_PROD") == "true",                    // Is production environment
		LogLevel:      getEnv("LOG_LEVEL", "info"),                       // Log level
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)), // Database driver
		DBUser:        os.Getenv("DB_USER"),                              // Database user
		DBPassword:    os.Getenv("DB_PASSWORD"),                          // Database password
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),                    // Database host
		DBPort:        os.Getenv("DB_PORT"),                              // Database port
		DBName:        os.Getenv("DB_NAME"),                              // Database name
		SQLitePath:    getEnv("SQLITE_PATH", "coin_wallet.db"),           // SQLite file
		JWTSecret:     os.Getenv("JWT_SECRET"),                           // JWT secret key
		RedisAddr:     os.Getenv("REDIS_ADDR"),                           // Redis server address
		RedisPass:     os.Getenv("REDIS_PASS"),                           // Redis password
		RedisDB:       getEnvAsInt("REDIS_DB", 0),                        // Redis database number
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 60)) * time.Second,
		LockBackend:   strings.ToLower(getEnv("LOCK_BACKEND", "memory")),
		LockTTL:       time.Duration(getEnvAsInt("LOCK_TTL_MS", 5000)) * time.Millisecond,
		LockWait:      time.Duration(getEnvAsInt("LOCK_WAIT_MS", 3000)) * time.Millisecond,
		NotifySink:    strings.ToLower(getEnv("NOTIFY_SINK", "log")),
		NotifyStream:  getEnv("NOTIFY_STREAM", "stream:notifications"),
		NotifyWorkers: getEnvAsInt("NOTIFY_WORKERS", 2),
		NotifyBuffer:  getEnvAsInt("NOTIFY_BUFFER", 256),
		KafkaBrokers:  getEnvAsList("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "employee-notifications"),
	}
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	switch c.DBDriver {
	case DriverPostgres:
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, port)
	case DriverSQLite:
		return c.SQLitePath
	default:
		port := c.DBPort
		if port == "" {
			port = "3306"
		}
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true"
	}
}

// getEnv returns the value of the environment variable or a default value if not set
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAsInt returns the value of the environment variable as an integer or a default value if not set
func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma separated variable, skipping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
