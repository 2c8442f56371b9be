package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment             string
	ServerPort              int
	RedisURL                string
	DBHost                  string
	DBPort                  int
	DBUser                  string
	DBPassword              string
	DBName                  string
	DBSSLMode               string
	JWTSecret               string
	LogLevel                string
	CORSAllowedOrigins      []string
	SnapshotIntervalMinutes int
	DefaultMaxUsers         int
	ReservedUsernames       []string
	Plans                   map[string]Plan
}

// Plan defines a seat plan template
type Plan struct {
	Name          string
	MaxUsers      int
	PricePerMonth float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	snapshotInterval, err := strconv.Atoi(getEnv("SNAPSHOT_INTERVAL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_INTERVAL_MINUTES: %w", err)
	}

	defaultMaxUsers, err := strconv.Atoi(getEnv("DEFAULT_MAX_USERS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_MAX_USERS: %w", err)
	}

	return &Config{
		Environment:             getEnv("ENVIRONMENT", "development"),
		ServerPort:              port,
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		DBHost:                  getEnv("DB_HOST", "localhost"),
		DBPort:                  dbPort,
		DBUser:                  getEnv("DB_USER", "mailseat"),
		DBPassword:              getEnv("DB_PASSWORD", "dev"),
		DBName:                  getEnv("DB_NAME", "mailseat"),
		DBSSLMode:               getEnv("DB_SSLMODE", "disable"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
		SnapshotIntervalMinutes: snapshotInterval,
		DefaultMaxUsers:         defaultMaxUsers,
		// RFC 2142 role addresses stay routable to the operator
		ReservedUsernames: parseCSVEnv("RESERVED_USERNAMES", []string{
			"postmaster", "abuse", "hostmaster", "webmaster", "admin", "root", "noreply",
		}),
		Plans: map[string]Plan{
			"free": {
				Name:          "Free (5 seats)",
				MaxUsers:      5,
				PricePerMonth: 0,
			},
			"team": {
				Name:          "Team (25 seats)",
				MaxUsers:      25,
				PricePerMonth: 12,
			},
			"business": {
				Name:          "Business (250 seats)",
				MaxUsers:      250,
				PricePerMonth: 89,
			},
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
