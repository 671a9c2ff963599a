package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEnv(t *testing.T) {
	t.Setenv("ESCROW_WORKER_BATCH_SIZE", "25")
	t.Setenv("ESCROW_WORKER_BUDGET", "40s")
	t.Setenv("ESCROW_STRIPE_WEBHOOK_SECRET", "whsec_test")

	cfg := NewEnv("escrow", "worker.batch_size", "worker.budget", "stripe.webhook_secret", "redis.addr")

	assert.True(t, cfg.IsSet("worker.batch_size"))
	assert.Equal(t, 25, cfg.GetInt("worker.batch_size"))
	assert.Equal(t, 40*time.Second, cfg.GetDuration("worker.budget"))
	assert.Equal(t, "whsec_test", cfg.GetString("stripe.webhook_secret"))
	assert.False(t, cfg.IsSet("redis.addr"))
}
