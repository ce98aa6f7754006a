package repository

import "time"

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page          int
	PageSize      int
	Status        string
	Provider      string
	RequesterID   string
	ReferenceCode string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// WebhookEventListFilter 查询回调流水的过滤条件
type WebhookEventListFilter struct {
	Page          int
	PageSize      int
	Provider      string
	ReferenceCode string
	Result        string
}
