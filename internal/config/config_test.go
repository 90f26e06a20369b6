package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCart_Defaults(t *testing.T) {
	cfg, err := LoadCart()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders.events", cfg.Kafka.Topic)
	assert.Equal(t, 3, cfg.Publisher.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Publisher.RetryBackoff)
	assert.Equal(t, 10*time.Second, cfg.Publisher.FlushTimeout)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadCart_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_DISABLED", "true")
	t.Setenv("PUBLISHER_RETRY_BACKOFF", "50ms")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadCart()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Disabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Publisher.RetryBackoff)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadCart_Invalid(t *testing.T) {
	t.Setenv("PUBLISHER_MAX_RETRIES", "-1")
	_, err := LoadCart()
	assert.Error(t, err)

	t.Setenv("PUBLISHER_MAX_RETRIES", "many")
	_, err = LoadCart()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestLoadOrder(t *testing.T) {
	cfg, err := LoadOrder()
	require.NoError(t, err)
	assert.Equal(t, "order-service", cfg.Consumer.GroupID)
	assert.Equal(t, 5, cfg.Consumer.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Consumer.RetryBackoff)
	assert.Equal(t, time.Second, cfg.Consumer.PollTimeout)

	t.Setenv("CONSUMER_MAX_RETRIES", "0")
	_, err = LoadOrder()
	assert.Error(t, err)
}

func TestIdempotencyLockTTL_OutlivesSlowestPublish(t *testing.T) {
	cfg, err := LoadCart()
	require.NoError(t, err)

	// 4 attempts of 10s plus backoffs of 200ms, 400ms and 600ms.
	assert.Equal(t, 41200*time.Millisecond, cfg.Publisher.MaxPublishDuration())
	assert.Greater(t, cfg.IdempotencyLockTTL(), cfg.Publisher.MaxPublishDuration())

	t.Setenv("PUBLISHER_MAX_RETRIES", "0")
	t.Setenv("PUBLISHER_FLUSH_TIMEOUT", "2s")
	cfg, err = LoadCart()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Publisher.MaxPublishDuration())
	assert.Equal(t, 12*time.Second, cfg.IdempotencyLockTTL())
}
