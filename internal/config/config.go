package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crm-web/internal/pkg/validate"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `validate:"required,numeric"`
	AppEnv   string `validate:"oneof=development staging production test"`
	LogLevel string `validate:"oneof=debug info warn error"`

	Backend Backend

	RedirectDelay time.Duration `validate:"gt=0"`
	LoginRoute    string        `validate:"required,startswith=/"`

	AllowedOrigins []string `validate:"min=1"` // CORS allowed origins
	RateLimitRPS   float64  `validate:"gt=0"`
	RateLimitBurst int      `validate:"gt=0"`
	RedisAddr      string   // empty disables the shared limiter
	RedisPassword  string
	WSSendBuffer   int `validate:"gt=0"`
}

// Backend describes the remote CRM API the pages talk to.
type Backend struct {
	BaseURL      string        `validate:"required,url"`
	VerifyPath   string        `validate:"required,startswith=/"`
	RegisterPath string        `validate:"required,startswith=/"`
	LoginPath    string        `validate:"required,startswith=/"`
	Timeout      time.Duration `validate:"gt=0"`
	JWTSecret    string        // empty: access tokens are read without verification
	JWTAlgorithm string        `validate:"oneof=HS256 HS384 HS512"`
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Backend: Backend{
			BaseURL:      strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:8000"), "/"),
			VerifyPath:   getEnv("BACKEND_VERIFY_PATH", "/auth/verify-email"),
			RegisterPath: getEnv("BACKEND_REGISTER_PATH", "/api/v1/general/register"),
			LoginPath:    getEnv("BACKEND_LOGIN_PATH", "/api/v1/login"),
			Timeout:      getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
			JWTSecret:    getEnv("BACKEND_JWT_SECRET", ""),
			JWTAlgorithm: getEnv("BACKEND_JWT_ALGORITHM", "HS256"),
		},
		RedirectDelay:  time.Duration(getEnvInt("REDIRECT_DELAY_MS", 2000)) * time.Millisecond,
		LoginRoute:     getEnv("LOGIN_ROUTE", "/login"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		WSSendBuffer:   getEnvInt("WS_SEND_BUFFER", 16),
	}
}

// Validate checks the loaded values against their struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsProduction reports whether the app runs with production defaults.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
