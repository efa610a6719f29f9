// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the warren binary needs to wire itself up.
type Config struct {
	Port     string
	FlowPath string
	LogLevel string

	// Model collaborator
	AnthropicAPIKey string
	Model           string
	ModelTimeout    time.Duration
	MinConfidence   float64

	// Conversation lifecycle
	FailureThreshold int
	AbandonAfter     time.Duration

	// Transition sink selection: memory, redis or supabase
	SinkDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SupabaseURL   string
	SupabaseKey   string
}

// Load reads the configuration from the environment, applying defaults for
// everything optional.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FlowPath:         getEnv("WARREN_FLOW", "flows/animal_control.yaml"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		Model:            getEnv("WARREN_MODEL", "claude-haiku-4-5-20251001"),
		SinkDriver:       getEnv("WARREN_SINK", "memory"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		SupabaseURL:      getEnv("SUPABASE_URL", ""),
		SupabaseKey:      getEnv("SUPABASE_KEY", ""),
		FailureThreshold: 3,
		ModelTimeout:     15 * time.Second,
		AbandonAfter:     10 * time.Minute,
		MinConfidence:    0.5,
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.FailureThreshold, err = getEnvInt("WARREN_FAILURE_THRESHOLD", cfg.FailureThreshold); err != nil {
		return nil, err
	}
	if cfg.ModelTimeout, err = getEnvDuration("WARREN_MODEL_TIMEOUT", cfg.ModelTimeout); err != nil {
		return nil, err
	}
	if cfg.AbandonAfter, err = getEnvDuration("WARREN_ABANDON_AFTER", cfg.AbandonAfter); err != nil {
		return nil, err
	}
	if cfg.MinConfidence, err = getEnvFloat("WARREN_MIN_CONFIDENCE", cfg.MinConfidence); err != nil {
		return nil, err
	}

	switch cfg.SinkDriver {
	case "memory", "redis", "supabase":
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.SinkDriver)
	}
	if cfg.SinkDriver == "supabase" && (cfg.SupabaseURL == "" || cfg.SupabaseKey == "") {
		return nil, fmt.Errorf("sink driver supabase requires SUPABASE_URL and SUPABASE_KEY")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
