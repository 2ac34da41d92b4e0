package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	DBPath          string
	RefreshInterval time.Duration
	Location        *time.Location

	RedisAddrs []string
	RedisPass  string
	CacheTTL   time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads a .env file when present and then the process environment.
// It reports whether a .env file was found so the caller can log it.
func Load() (Config, bool, error) {
	found := godotenv.Load() == nil

	refresh, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "30s"))
	if err != nil {
		return Config{}, found, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	if refresh <= 0 {
		return Config{}, found, fmt.Errorf("invalid REFRESH_INTERVAL: %s must be positive", refresh)
	}

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, found, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	loc := time.Local
	if name := getEnv("TIMEZONE", ""); name != "" {
		if loc, err = time.LoadLocation(name); err != nil {
			return Config{}, found, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
	}

	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DBPath:          getEnv("DB_PATH", "./khata.db"),
		RefreshInterval: refresh,
		Location:        loc,
		RedisAddrs:      splitList(getEnv("REDIS_ADDR", "")),
		RedisPass:       getEnv("REDIS_PASS", ""),
		CacheTTL:        ttl,
		KafkaBrokers:    splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "khata.summaries"),
	}, found, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
