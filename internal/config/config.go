package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AuthAddr    string
	DatabaseURL string

	// SigningKey is the raw HMAC key, decoded once at load and never
	// mutated afterwards.
	SigningKey []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	KafkaBrokers []string
	LogLevel     string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	key, err := DecodeSigningKey(os.Getenv("TOKEN_SIGNING_KEY"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AuthAddr:    envDefault("AUTH_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SigningKey:  key,

		AccessTTL:  envMillis("ACCESS_TOKEN_TTL_MS", 86400000),
		RefreshTTL: envMillis("REFRESH_TOKEN_TTL_MS", 604800000),

		KafkaBrokers: csv(os.Getenv("KAFKA_ADDRESS")),
		LogLevel:     envDefault("LOG_LEVEL", "info"),
	}

	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	return cfg, nil
}

// DecodeSigningKey decodes the base64url key material from the environment.
// Padding is tolerated since operators paste keys from different generators.
func DecodeSigningKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("missing required env TOKEN_SIGNING_KEY")
	}
	key, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_SIGNING_KEY is not valid base64url: %w", err)
	}
	return key, nil
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func envMillis(key string, def int64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}
