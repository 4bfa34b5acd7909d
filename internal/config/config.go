// Package config loads application settings from the environment, after
// reading an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Email     EmailConfig
	Ticketing TicketingConfig
	LogLevel  string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // used as-is when set
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// DSN builds a libpq-compatible connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds the notification queue connection.
type RedisConfig struct {
	URL string
}

// JWTConfig holds the shared secret of the identity provider.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// EmailConfig holds SMTP settings. An empty SMTPHost selects the log sender.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// TicketingConfig holds the business knobs of the registration core.
type TicketingConfig struct {
	AllowedDomain       string // campus email domain for restricted events
	PointsPerAttendance int
	DefaultTeamSize     int
	TxMaxAttempts       int
	QRImageBaseURL      string
	NotifyTimeout       time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			AllowedOrigins: parseList(getEnv("ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "campustickets"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getIntEnv("DB_MAX_CONNS", 20)),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpireHours: getIntEnv("JWT_EXPIRE_HOURS", 24),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "tickets@localhost"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Campus Events"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getIntEnv("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Ticketing: TicketingConfig{
			AllowedDomain:       strings.ToLower(getEnv("ALLOWED_EMAIL_DOMAIN", "")),
			PointsPerAttendance: getIntEnv("POINTS_PER_ATTENDANCE", 50),
			DefaultTeamSize:     getIntEnv("DEFAULT_TEAM_SIZE", 4),
			TxMaxAttempts:       getIntEnv("TX_MAX_ATTEMPTS", 4),
			QRImageBaseURL:      getEnv("QR_IMAGE_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/?size=250x250&data="),
			NotifyTimeout:       getDurationEnv("NOTIFY_TIMEOUT", 5*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Ticketing.PointsPerAttendance <= 0 {
		return fmt.Errorf("POINTS_PER_ATTENDANCE must be positive")
	}
	if c.Ticketing.DefaultTeamSize < 1 {
		return fmt.Errorf("DEFAULT_TEAM_SIZE must be at least 1")
	}
	return nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseList parses a comma-separated list into a slice
func parseList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
