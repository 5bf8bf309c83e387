package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/xray/pkg/logger"
)

func TestNegativeCacheLocalFallback(t *testing.T) {
	nc := NewNegativeCache(nil, logger.NewNop())
	ctx := context.Background()

	assert.False(t, nc.IsNegative(ctx, "UNKNOWN"))

	nc.MarkNegative(ctx, "UNKNOWN", time.Minute)
	assert.True(t, nc.IsNegative(ctx, "UNKNOWN"))
	assert.False(t, nc.IsNegative(ctx, "OTHER"))
}

func TestNegativeCacheExpiry(t *testing.T) {
	nc := NewNegativeCache(nil, logger.NewNop())
	ctx := context.Background()

	nc.MarkNegative(ctx, "SHORT", -time.Second)
	assert.False(t, nc.IsNegative(ctx, "SHORT"), "expired entries are misses")
}
