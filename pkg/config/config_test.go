package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(env(map[string]string{"REDIS_ADDR": "localhost:6379"}))
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.DatabaseDriver)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 1.0, cfg.OtelProbability)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadKafkaBrokers(t *testing.T) {
	cfg, err := load(env(map[string]string{
		"REDIS_ADDR":    "r:6379",
		"KAFKA_BROKERS": "k1:9092, k2:9092,",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing redis":     {},
		"postgres no url":   {"REDIS_ADDR": "r", "DATABASE_DRIVER": "postgres"},
		"unknown driver":    {"REDIS_ADDR": "r", "DATABASE_DRIVER": "mysql"},
		"half tls":          {"REDIS_ADDR": "r", "TLS_CERT": "c.crt"},
		"bad probability":   {"REDIS_ADDR": "r", "OTEL_PROBABILITY": "2"},
		"bad session ttl":   {"REDIS_ADDR": "r", "SESSION_TTL": "soon"},
		"bad shutdown wait": {"REDIS_ADDR": "r", "SHUTDOWN_TIMEOUT": "x"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(env(vars))
			assert.Error(t, err)
		})
	}
}
