package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string
	BaseURL     string // instance base URL, used for invite accept links
	JWTSecret   string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL string

	// Remote sync backend. URL and service-role key are required: running
	// unauthenticated against the hosted store is never valid.
	SyncURL        string
	SyncServiceKey string
	SyncAnonKey    string

	SMTPHost   string
	SMTPPort   int
	SMTPSender string

	SyncRetryIntervalSeconds int

	CORSAllowedOrigins []string
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

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	retryInterval, err := strconv.Atoi(getEnv("SYNC_RETRY_INTERVAL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_RETRY_INTERVAL_SECONDS: %w", err)
	}

	syncURL := os.Getenv("SYNC_URL")
	if syncURL == "" {
		return nil, fmt.Errorf("SYNC_URL is required")
	}

	syncKey := os.Getenv("SYNC_SERVICE_ROLE_KEY")
	if syncKey == "" {
		return nil, fmt.Errorf("SYNC_SERVICE_ROLE_KEY is required")
	}

	return &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     port,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		BaseURL:        getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         dbPort,
		DBUser:         getEnv("DB_USER", "flowhub"),
		DBPassword:     getEnv("DB_PASSWORD", "dev"),
		DBName:         getEnv("DB_NAME", "flowhub"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		SyncURL:        strings.TrimRight(syncURL, "/"),
		SyncServiceKey: syncKey,
		SyncAnonKey:    getEnv("SYNC_ANON_KEY", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       smtpPort,
		SMTPSender:     getEnv("SMTP_SENDER", "no-reply@flowhub.local"),

		SyncRetryIntervalSeconds: retryInterval,

		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
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
