package auth

import (
	"context"
	"testing"
)

func TestTokenCacheDisabledWithoutRedis(t *testing.T) {
	c := NewTokenCache(nil, nil, 0)
	ctx := context.Background()

	claims, hit, err := c.Get(ctx, "token")
	if err != nil || hit || claims != nil {
		t.Fatalf("Get on disabled cache: claims=%v hit=%v err=%v", claims, hit, err)
	}
	if err := c.Set(ctx, "token", &Claims{Tag: "T", Admin: true}); err != nil {
		t.Fatalf("Set on disabled cache: %v", err)
	}
}

func TestCacheKeyShardsByRing(t *testing.T) {
	ring := NewRing([]string{"node-a", "node-b", "node-c"}, 50)
	c := NewTokenCache(nil, ring, 0)

	k1 := c.cacheKey("token-one")
	k2 := c.cacheKey("token-one")
	if k1 != k2 {
		t.Fatalf("cache key not stable: %s vs %s", k1, k2)
	}
	if k1 == c.cacheKey("token-two") {
		t.Fatal("distinct tokens share a cache key")
	}
}
