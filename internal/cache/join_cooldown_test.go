package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pixjoin/internal/config"
)

func TestJoinCooldownAllowsWhenRedisDisabled(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	limiter := NewJoinCooldown(30 * time.Second)
	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), "42")
		if err != nil || !allowed {
			t.Fatalf("expected allow without redis, got allowed=%v err=%v", allowed, err)
		}
	}
}

func TestJoinCooldownKeyUsesPrefix(t *testing.T) {
	redisPrefix = "pixjoin"
	if got := buildKey(joinCooldownKey("42")); got != "pixjoin:join_cooldown:42" {
		t.Fatalf("unexpected key %s", got)
	}
}
