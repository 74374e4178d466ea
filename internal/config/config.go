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
	Addr     string
	LogLevel string

	// KV backend: sqlite, redis or memory
	KVBackend     string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret string
	SessionTTL    time.Duration
	LoginEmail    string
	LoginPassword string

	AuthMode string
	APIKey   string

	RateLimitRPS   float64
	RateLimitBurst int

	OTelExporter string
	OTelEndpoint string

	CORSOrigins []string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getenv("APP_ADDR", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		KVBackend:      strings.ToLower(getenv("KV_BACKEND", "sqlite")),
		SQLitePath:     getenv("SQLITE_PATH", "data/taskorbit.db"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		SessionTTL:     24 * time.Hour,
		LoginEmail:     getenv("LOGIN_EMAIL", "intern@demo.com"),
		LoginPassword:  getenv("LOGIN_PASSWORD", "intern123"),
		AuthMode:       strings.ToLower(getenv("AUTH_MODE", "session")),
		APIKey:         os.Getenv("API_KEY"),
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		OTelExporter:   strings.ToLower(getenv("OTEL_EXPORTER", "none")),
		OTelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("REDIS_DB: invalid value %q", v)
		}
		cfg.RedisDB = n
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("SESSION_TTL: invalid duration %q", v)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_BURST: invalid value %q", v)
		}
		cfg.RateLimitBurst = n
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.KVBackend {
	case "sqlite", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("KV_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("KV_BACKEND: unknown backend %q", c.KVBackend)
	}

	switch c.AuthMode {
	case "session":
		if c.SessionSecret == "" {
			return fmt.Errorf("AUTH_MODE=session requires SESSION_SECRET")
		}
	case "apikey":
		if c.APIKey == "" {
			return fmt.Errorf("AUTH_MODE=apikey requires API_KEY")
		}
	case "none":
	default:
		return fmt.Errorf("AUTH_MODE: unknown mode %q", c.AuthMode)
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("OTEL_EXPORTER: unknown exporter %q", c.OTelExporter)
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
