package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/pixjoin/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskAccessGrant 支付结算后的权益发放任务
	TaskAccessGrant = constants.TaskAccessGrant
)

// AccessGrantPayload 权益发放任务载荷
type AccessGrantPayload struct {
	ReferenceCode string `json:"reference_code"`
	RequesterID   string `json:"requester_id"`
	DisplayName   string `json:"display_name"`
}

// NewAccessGrantTask 创建权益发放任务
func NewAccessGrantTask(payload AccessGrantPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.RequesterID) == "" {
		return nil, errors.New("access grant payload missing requester_id")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessGrant, body), nil
}

// ParseAccessGrantPayload 解析权益发放任务载荷
func ParseAccessGrantPayload(task *asynq.Task) (AccessGrantPayload, error) {
	var payload AccessGrantPayload
	if task == nil {
		return payload, errors.New("task is nil")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}
