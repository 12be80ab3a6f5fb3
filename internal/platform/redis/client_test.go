package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iinfinder/internal/platform/config"
)

func TestApplyOverrides(t *testing.T) {
	opts, err := redis.ParseURL("redis://localhost:6379/0")
	require.NoError(t, err)
	defaultPool := opts.PoolSize

	applyOverrides(opts, config.RedisConfig{DialTimeout: 2 * time.Second, MinIdleConns: 3})

	assert.Equal(t, defaultPool, opts.PoolSize)
	assert.Equal(t, 3, opts.MinIdleConns)
	assert.Equal(t, 2*time.Second, opts.DialTimeout)
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	assert.Error(t, err)

	_, err = New(context.Background(), config.RedisConfig{URL: "not a url"})
	assert.ErrorContains(t, err, "parse redis URL")
}
