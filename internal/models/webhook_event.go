package models

import "time"

// WebhookEvent 支付回调处理流水
type WebhookEvent struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Provider      string    `gorm:"type:varchar(32);index;not null" json:"provider"`
	ReferenceCode string    `gorm:"type:varchar(64);index" json:"reference_code"`
	ProviderTxID  string    `gorm:"type:varchar(128)" json:"provider_txid"`
	Authenticated bool      `gorm:"not null;default:false" json:"authenticated"`
	Result        string    `gorm:"type:varchar(32);index;not null" json:"result"` // settled/ignored/unresolvable/...
	Reason        string    `gorm:"type:varchar(64)" json:"reason"`
	Headers       JSON      `gorm:"type:json" json:"headers"`
	RawBody       string    `gorm:"type:text" json:"raw_body"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
