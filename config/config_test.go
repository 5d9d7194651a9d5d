// config/config_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresRabbitAndRedis(t *testing.T) {
	t.Setenv("RABBIT_URL", "")
	t.Setenv("REDIS_URL", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("RABBIT_URL", "amqp://localhost")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost")
	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, "amqp://localhost", c.RabbitURL)
	require.Equal(t, "redis://localhost", c.RedisURL)
	require.Equal(t, "info", c.LogLevel)
}

func TestLoadParsesRefreshInterval(t *testing.T) {
	t.Setenv("RABBIT_URL", "amqp://localhost")
	t.Setenv("REDIS_URL", "redis://localhost")
	t.Setenv("REFRESH_INTERVAL_MS", "15000")

	c, err := Load()
	require.NoError(t, err)
	require.Equal(t, 15000, c.RefreshIntervalMS)
}

func TestLoadRejectsMalformedRefreshInterval(t *testing.T) {
	t.Setenv("RABBIT_URL", "amqp://localhost")
	t.Setenv("REDIS_URL", "redis://localhost")
	t.Setenv("REFRESH_INTERVAL_MS", "not-a-number")

	_, err := Load()
	require.Error(t, err)
}
