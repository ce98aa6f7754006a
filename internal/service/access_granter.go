package service

import (
	"context"
	"fmt"

	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/queue"
)

// QueueAccessGranter 将权益发放投递到异步队列，队列不可用时退回同步发放
type QueueAccessGranter struct {
	client   *queue.Client
	fallback AccessGranter
}

// NewQueueAccessGranter 创建队列发放器
func NewQueueAccessGranter(client *queue.Client, fallback AccessGranter) *QueueAccessGranter {
	return &QueueAccessGranter{client: client, fallback: fallback}
}

// Grant 投递 access:grant 任务
func (g *QueueAccessGranter) Grant(ctx context.Context, grant AccessGrant) error {
	if g.client == nil || !g.client.Enabled() {
		if g.fallback == nil {
			return ErrGranterUnavailable
		}
		return g.fallback.Grant(ctx, grant)
	}
	err := g.client.EnqueueAccessGrant(queue.AccessGrantPayload{
		ReferenceCode: grant.ReferenceCode,
		RequesterID:   grant.RequesterID,
		DisplayName:   grant.DisplayName,
	})
	if err != nil {
		logger.Warnw("access_grant_enqueue_failed", "reference_code", grant.ReferenceCode, "error", err)
		if g.fallback != nil {
			return g.fallback.Grant(ctx, grant)
		}
		return fmt.Errorf("%w: %w", ErrGrantFailed, err)
	}
	return nil
}
