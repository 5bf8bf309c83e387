package redis

import (
	"testing"

	"github.com/wonny/xray/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(nil, FinnhubRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != FinnhubRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", FinnhubRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(nil, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "ResolutionKey",
			fn:       func() string { return ResolutionKey("AAPL") },
			expected: "resolve:AAPL",
		},
		{
			name:     "UnresolvedKey",
			fn:       func() string { return UnresolvedKey("Mystery Fund X") },
			expected: "resolve:negative:Mystery Fund X",
		},
		{
			name:     "HoldingsKey",
			fn:       func() string { return HoldingsKey("IE00B5BMR087") },
			expected: "holdings:IE00B5BMR087",
		},
		{
			name:     "MetadataKey",
			fn:       func() string { return MetadataKey("US0378331005") },
			expected: "metadata:US0378331005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
