// Package payment 定义 PIX 收款渠道的统一契约。
package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrProviderUnavailable 渠道网络异常或 5xx
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrProviderRejected 渠道拒绝请求（4xx、参数不合法、响应缺字段）
	ErrProviderRejected = errors.New("payment provider rejected request")
	// ErrNotificationUnresolvable 回调无法解析为支付事实
	ErrNotificationUnresolvable = errors.New("payment notification unresolvable")
)

// Provider PIX 收款渠道适配器
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, input ChargeInput) (*Charge, error)
	ResolveNotification(ctx context.Context, req *WebhookRequest) (*Notification, error)
}

// ChargeInput 创建收款参数
type ChargeInput struct {
	ReferenceCode string
	AmountCents   int64
	Description   string
}

// Charge 创建收款结果
type Charge struct {
	ProviderTxID  string
	PayableString string
}

// Notification 归一化后的支付事实，ReferenceCode 为空表示非支付事件
type Notification struct {
	ReferenceCode string
	Outcome       string
	AmountCents   int64
	ProviderTxID  string
}

// WebhookRequest 入站回调的原始内容
type WebhookRequest struct {
	Body    []byte
	Headers http.Header
	Query   url.Values
}

// Header 读取请求头，大小写不敏感
func (r *WebhookRequest) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return strings.TrimSpace(r.Headers.Get(key))
}

// QueryValue 读取查询参数
func (r *WebhookRequest) QueryValue(key string) string {
	if r == nil || r.Query == nil {
		return ""
	}
	return strings.TrimSpace(r.Query.Get(key))
}
