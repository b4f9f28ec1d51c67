package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser    string
	DBPass    string
	DBHost    string
	DBPort    string
	DBName    string
	SSLMode   string
	RedisHost string
	RedisPort string
	NatsHost  string
	NatsPort  string
	APIPort   string
	LogLevel  string
}

// New loads configuration from environment variables, reading a .env file
// first if one exists. Postgres and Redis are required; NATS is optional —
// when unset, the event bus and the cache sync worker simply don't start.
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:    os.Getenv("TALLY_POSTGRES_USER"),
		DBPass:    os.Getenv("TALLY_POSTGRES_PASSWORD"),
		DBHost:    os.Getenv("TALLY_POSTGRES_HOST"),
		DBPort:    getEnv("TALLY_POSTGRES_PORT", "5432"),
		DBName:    os.Getenv("TALLY_POSTGRES_DB"),
		SSLMode:   getEnv("TALLY_POSTGRES_SSLMODE", "disable"),
		RedisHost: os.Getenv("TALLY_REDIS_HOST"),
		RedisPort: getEnv("TALLY_REDIS_PORT", "6379"),
		NatsHost:  os.Getenv("TALLY_NATS_HOST"),
		NatsPort:  getEnv("TALLY_NATS_PORT", "4222"),
		APIPort:   getEnv("TALLY_API_PORT", "8080"),
		LogLevel:  getEnv("TALLY_LOG_LEVEL", "info"),
	}

	if cfg.DBUser == "" || cfg.DBHost == "" || cfg.DBName == "" {
		return nil, fmt.Errorf("missing required env for database: TALLY_POSTGRES_USER/HOST/DB")
	}
	if cfg.RedisHost == "" {
		return nil, fmt.Errorf("missing required env: TALLY_REDIS_HOST")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName, c.SSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// NatsAddr returns the NATS URL and whether NATS is configured at all.
func (c *Config) NatsAddr() (string, bool) {
	if c.NatsHost == "" {
		return "", false
	}
	return fmt.Sprintf("nats://%s:%s", c.NatsHost, c.NatsPort), true
}

func (c *Config) APIAddr() string {
	return ":" + c.APIPort
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
