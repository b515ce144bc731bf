package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type SMTP struct {
	Server   string
	Port     int
	Email    string
	Password string
	Timeout  time.Duration
}

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	AdminUsername     string
	AdminPasswordHash string // bcrypt
	SessionSecret     string

	SMTP SMTP

	BaseURL         string
	TokenExpiryDays int
	Debug           bool
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:quotecraft.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", "admin")
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", "")
	cfg.SessionSecret = getEnv("SESSION_SECRET", "devsessionsecret")
	cfg.SMTP = SMTP{
		Server:   getEnv("SMTP_SERVER", "smtp.gmail.com"),
		Port:     ParseInt("SMTP_PORT", 587),
		Email:    getEnv("SMTP_EMAIL", ""),
		Password: getEnv("SMTP_APP_PASSWORD", ""),
		Timeout:  time.Duration(ParseInt("SMTP_TIMEOUT_SECONDS", 15)) * time.Second,
	}
	cfg.BaseURL = getEnv("APP_BASE_URL", "http://localhost:8080")
	cfg.TokenExpiryDays = ParseInt("TOKEN_EXPIRY_DAYS", 30)
	cfg.Debug = ParseBool("DEBUG", false)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseInt reads an env var as int with default.
func ParseInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
