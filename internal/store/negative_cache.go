package store

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
	"github.com/wonny/xray/pkg/redis"
)

// NegativeCache remembers identifiers that recently failed to resolve.
// Backed by Redis when available so parallel runs share the memory;
// falls back to an in-process map otherwise.
type NegativeCache struct {
	cache  *redis.Cache
	logger *logger.Logger

	mu    sync.RWMutex
	local map[string]time.Time
}

func NewNegativeCache(client *redis.Client, log *logger.Logger) *NegativeCache {
	nc := &NegativeCache{
		logger: log,
		local:  make(map[string]time.Time),
	}
	if client != nil && client.Enabled() {
		nc.cache = redis.NewCache(client, "")
	}
	return nc
}

var _ contracts.NegativeCache = (*NegativeCache)(nil)

// IsNegative reports whether the identifier failed recently
func (n *NegativeCache) IsNegative(ctx context.Context, key string) bool {
	if n.cache != nil {
		var marker bool
		found, err := n.cache.Get(ctx, redis.UnresolvedKey(key), &marker)
		if err != nil {
			n.logger.WithError(err).WithField("key", key).Warn("Negative cache read failed")
			return false
		}
		return found
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	expiry, ok := n.local[key]
	return ok && time.Now().Before(expiry)
}

// MarkNegative records a failed resolution for ttl
func (n *NegativeCache) MarkNegative(ctx context.Context, key string, ttl time.Duration) {
	if n.cache != nil {
		if err := n.cache.Set(ctx, redis.UnresolvedKey(key), true, ttl); err != nil {
			n.logger.WithError(err).WithField("key", key).Warn("Negative cache write failed")
		}
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.local[key] = time.Now().Add(ttl)
}
