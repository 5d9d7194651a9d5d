// config/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config loads the engine's environment-derived configuration.
// cmd/vice/main.go parses its handful of knobs with flag.String at
// startup and fails loudly on bad values; this package does the
// equivalent for a headless worker, where every knob comes from the
// environment rather than a CLI flag.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything spec.md §6 says is read from the environment.
type Config struct {
	// RefreshIntervalMS is observational only -- it is parsed and kept
	// here, but the engine never reads it to pace itself.
	RefreshIntervalMS int

	RabbitURL string
	RedisURL  string
	LogLevel  string
	LogDir    string

	// InstanceID disambiguates log lines from horizontally-scaled
	// replicas; it has no effect on engine behavior.
	InstanceID string

	// ShutdownDrainTimeout bounds how long graceful shutdown waits for
	// in-flight messages to finish before the process exits anyway.
	ShutdownDrainTimeout time.Duration

	// HealthAddr is the address the /healthz HTTP server listens on.
	HealthAddr string
}

// Load reads Config from the environment. RABBIT_URL and REDIS_URL are
// required -- a missing one is a fatal initialization failure per
// spec.md §7, and the caller is expected to exit(1) on error.
func Load() (Config, error) {
	c := Config{
		RabbitURL:            os.Getenv("RABBIT_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		LogLevel:             envOr("LOG_LEVEL", "info"),
		LogDir:               os.Getenv("LOG_DIR"),
		InstanceID:           envOr("INSTANCE_ID", "eventproc"),
		ShutdownDrainTimeout: 10 * time.Second,
		HealthAddr:           envOr("HEALTH_ADDR", ":8080"),
	}

	if c.RabbitURL == "" {
		return Config{}, fmt.Errorf("RABBIT_URL is required")
	}
	if c.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL is required")
	}

	if v := os.Getenv("REFRESH_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("REFRESH_INTERVAL_MS: %w", err)
		}
		c.RefreshIntervalMS = ms
	}

	if v := os.Getenv("SHUTDOWN_DRAIN_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("SHUTDOWN_DRAIN_TIMEOUT_MS: %w", err)
		}
		c.ShutdownDrainTimeout = time.Duration(ms) * time.Millisecond
	}

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
