package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/provider"
	"github.com/pixjoin/internal/queue"
	"github.com/pixjoin/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAccessGrant, c.handleAccessGrant)
}

func (c *Consumer) handleAccessGrant(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_access_grant_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseAccessGrantPayload(task)
	if err != nil {
		logger.Warnw("worker_access_grant_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if strings.TrimSpace(payload.RequesterID) == "" {
		logger.Debugw("worker_access_grant_skip_invalid_payload", "reference_code", payload.ReferenceCode)
		return nil
	}
	if c.DirectGranter == nil {
		logger.Warnw("worker_access_grant_skip_granter_nil", "reference_code", payload.ReferenceCode)
		return nil
	}
	err = c.DirectGranter.Grant(ctx, service.AccessGrant{
		ReferenceCode: payload.ReferenceCode,
		RequesterID:   payload.RequesterID,
		DisplayName:   payload.DisplayName,
	})
	if err != nil {
		logger.Warnw("worker_access_grant_failed",
			"reference_code", payload.ReferenceCode,
			"requester_id", payload.RequesterID,
			"error", err,
		)
		// 发放失败由管理端 regrant 人工跟进
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	logger.Infow("worker_access_grant_done", "reference_code", payload.ReferenceCode)
	return nil
}
