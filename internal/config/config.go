package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	// embedded zone database so TIMEZONE resolves on slim images
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=salesperf port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
	minSecretLength    = 32
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string
	LogLevel    string
	LogFormat   string
	Timezone    string
	// Location is Timezone loaded; periods are computed in it.
	Location *time.Location
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("TIMEZONE", "UTC")
	v.AutomaticEnv()

	cfg := &Config{
		HTTPPort:    v.GetString("HTTP_PORT"),
		DatabaseDSN: v.GetString("DATABASE_DSN"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		JWTTTL:      v.GetDuration("JWT_TTL"),
		CORSOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		LogLevel:    strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:   strings.ToLower(v.GetString("LOG_FORMAT")),
		Timezone:    v.GetString("TIMEZONE"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive, got %q", v.GetString("JWT_TTL"))
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// Warnings lists settings still on their development defaults.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	return out
}

// AllowedOrigins is CORSOrigins normalised for the CORS middleware.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}
