// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Service identity.
const (
	ServiceName    = "restaurantcore"
	ServiceVersion = "0.1.0"
)

// Config holds environment-specific configuration.
type Config struct {
	HTTPAddr        string
	TLSCert         string
	TLSKey          string
	ShutdownTimeout time.Duration

	DatabaseDriver string
	DatabaseURL    string

	RedisAddr  string
	SessionTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OtelHost        string
	OtelProbability float64

	LogLevel string
}

// Load reads the environment, applying defaults and validating the result.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPAddr:       get("HTTP_ADDR", ":8443"),
		TLSCert:        get("TLS_CERT", ""),
		TLSKey:         get("TLS_KEY", ""),
		DatabaseDriver: get("DATABASE_DRIVER", "memory"),
		DatabaseURL:    get("DATABASE_URL", ""),
		RedisAddr:      get("REDIS_ADDR", ""),
		KafkaTopic:     get("KAFKA_TOPIC", "restaurant.events"),
		OtelHost:       get("OTEL_HOST", ""),
		LogLevel:       get("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.ShutdownTimeout, err = time.ParseDuration(get("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(get("SESSION_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.OtelProbability, err = strconv.ParseFloat(get("OTEL_PROBABILITY", "1.0"), 64); err != nil {
		return nil, fmt.Errorf("OTEL_PROBABILITY: %w", err)
	}
	if brokers := get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch cfg.DatabaseDriver {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER %q is not supported", cfg.DatabaseDriver)
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is required")
	}
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}
	if cfg.OtelProbability < 0 || cfg.OtelProbability > 1 {
		return nil, fmt.Errorf("OTEL_PROBABILITY must be within [0,1]")
	}
	return cfg, nil
}
