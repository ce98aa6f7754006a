package cache

import (
	"context"
	"strings"
	"time"
)

// JoinCooldown 同一用户在冷却期内只能发起一次购买
type JoinCooldown struct {
	ttl time.Duration
}

// NewJoinCooldown 创建冷却限制器，ttl<=0 时不限制
func NewJoinCooldown(ttl time.Duration) *JoinCooldown {
	return &JoinCooldown{ttl: ttl}
}

// Allow SET NX EX 抢占冷却键；Redis 未启用时放行
func (c *JoinCooldown) Allow(ctx context.Context, requesterID string) (bool, error) {
	if c == nil || c.ttl <= 0 || !Enabled() {
		return true, nil
	}
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return true, nil
	}
	return SetNX(ctx, joinCooldownKey(requesterID), time.Now().Unix(), c.ttl)
}

func joinCooldownKey(requesterID string) string {
	return "join_cooldown:" + requesterID
}
