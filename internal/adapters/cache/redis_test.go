package cache_test

import (
	"testing"
	"time"

	"misskey-comments/internal/adapters/cache"
)

func TestNewRedisCache_InvalidURL_ReturnsError(t *testing.T) {
	_, err := cache.NewRedisCache("not a url", "mkc:", time.Minute)

	if err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestNewRedisCache_Unreachable_ReturnsError(t *testing.T) {
	// Port 1 on loopback refuses connections.
	_, err := cache.NewRedisCache("redis://127.0.0.1:1/0", "mkc:", time.Minute)

	if err == nil {
		t.Error("expected ping error")
	}
}
