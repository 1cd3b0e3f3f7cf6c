package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "shop")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "shop_management")
	t.Setenv("JWT_ACCESS_KEY", "access")
	t.Setenv("JWT_REFRESH_KEY", "refresh")
	t.Setenv("JWT_SECRET", "activation")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 10*time.Minute, cfg.JWT.ActivationTTL)
	assert.Equal(t, 5*time.Second, cfg.DB.Timeout)
	assert.Equal(t, 120.0, cfg.Payment.ExchangeRate)
	assert.Len(t, cfg.Payment.ReceivingAccounts(), 4)
	assert.True(t, cfg.Cache.Methods["GET"])
	assert.Equal(t, 10, cfg.RateLimit.Capacity)
	assert.InDelta(t, 10.0/60.0, cfg.RateLimit.PerSecond(), 0.0001)
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_ACCESS_KEY", "")
	_, err := Load("testdata/missing.env")
	assert.Error(t, err)
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{Capacity: 0, RefillTokens: 0, RefillInterval: 0, TTL: 0}
	c.normalize()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, time.Second, c.RefillInterval)
	assert.Equal(t, 5*time.Second, c.TTL)
}

func TestRedisAddressPrefersHostPort(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", RedisConfig{Addr: "x:1"}.Address())
}
