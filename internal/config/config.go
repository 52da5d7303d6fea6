package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram
	BotToken  string `validate:"required"`
	AdminID   int64
	ChannelID int64 `validate:"required"`
	SubDays   int   `validate:"gt=0"`

	// Sweeper
	SweepInterval time.Duration `validate:"gt=0"`

	// Postgres
	DatabaseURL string `validate:"required"`

	// Ops HTTP API
	HTTPAddr        string
	JWTSecret       string
	OpsUser         string
	OpsPasswordHash string
	MetricsUser     string
	MetricsPassword string

	LogLevel string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &Config{
		BotToken:        os.Getenv("BOT_TOKEN"),
		AdminID:         getEnvInt64("ADMIN_ID", 0),
		ChannelID:       getEnvInt64("PRIVATE_CHANNEL_ID", 0),
		SubDays:         getEnvInt("SUB_DAYS", 30),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		OpsUser:         os.Getenv("OPS_USER"),
		OpsPasswordHash: os.Getenv("OPS_PASSWORD_HASH"),
		MetricsUser:     getEnv("METRICS_USER", "metrics"),
		MetricsPassword: os.Getenv("METRICS_PASSWORD"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// OpsEnabled reports whether the ops API can issue tokens.
func (c *Config) OpsEnabled() bool {
	return c.JWTSecret != "" && c.OpsUser != "" && c.OpsPasswordHash != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: %s is not a number, using default", key)
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("Warning: %s is not a number, using default", key)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: %s is not a duration, using default", key)
		return fallback
	}
	return d
}
