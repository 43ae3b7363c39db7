package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Empty(t, cfg.Database.URL)
		assert.Equal(t, 5*time.Minute, cfg.Redis.ValidityTTL)
		assert.False(t, cfg.PublishingEnabled())
		assert.True(t, cfg.RateLimit.Enabled)
		assert.Equal(t, 120, cfg.RateLimit.WriteRequests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("TRAFFICREG_ADDR", ":9999")
		t.Setenv("TRAFFICREG_KAFKA_BROKERS", "a:9092,b:9092")
		t.Setenv("TRAFFICREG_OUTBOX_INTERVAL", "250ms")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9999", cfg.Addr)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Interval)
		assert.True(t, cfg.PublishingEnabled())
	})

	t.Run("blank broker entries are dropped", func(t *testing.T) {
		t.Setenv("TRAFFICREG_KAFKA_BROKERS", " a:9092, ,a:9092")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"a:9092"}, cfg.Kafka.Brokers)

		t.Setenv("TRAFFICREG_KAFKA_BROKERS", " , ")
		cfg, err = FromEnv()
		require.NoError(t, err)
		assert.False(t, cfg.PublishingEnabled())
	})

	t.Run("tracing is off without an endpoint", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.Tracing.Enabled)
		assert.Empty(t, cfg.Tracing.Endpoint)
		assert.Equal(t, "trafficreg", cfg.Tracing.ServiceName)
	})

	t.Run("malformed duration fails", func(t *testing.T) {
		t.Setenv("TRAFFICREG_SHUTDOWN_GRACE", "soon")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
